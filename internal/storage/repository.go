package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO category_alerts (
        run_at,
        customer_id,
        category,
        signal_type,
        severity,
        baseline_qty,
        current_qty,
        drop_pct,
        weeks_since_last_order,
        estimated_lost_revenue,
        competitor_likely,
        recommended_discount
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        run_at,
        customer_id,
        category,
        signal_type,
        severity,
        baseline_qty,
        current_qty,
        drop_pct,
        weeks_since_last_order,
        estimated_lost_revenue,
        competitor_likely,
        recommended_discount,
        created_at
    FROM category_alerts
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT
        id,
        run_at,
        customer_id,
        category,
        signal_type,
        severity,
        baseline_qty,
        current_qty,
        drop_pct,
        weeks_since_last_order,
        estimated_lost_revenue,
        competitor_likely,
        recommended_discount,
        created_at
    FROM category_alerts
    WHERE run_at >= $1
      AND run_at < $2
    ORDER BY run_at, id;`

	insertSignalSQL = `INSERT INTO competitor_signals (
        run_at,
        customer_id,
        category,
        signal_type,
        strength,
        competitor_type,
        price_advantage_pct,
        win_back_probability
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, created_at;`

	listRecentSignalsSQL = `SELECT
        id,
        run_at,
        customer_id,
        category,
        signal_type,
        strength,
        competitor_type,
        price_advantage_pct,
        win_back_probability,
        created_at
    FROM competitor_signals
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for churn alert persistence.
type AlertStore interface {
	InsertAlerts(ctx context.Context, alerts []AlertRecord) error
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error)
}

// SignalStore defines operations for competitor signal persistence.
type SignalStore interface {
	InsertSignals(ctx context.Context, signals []SignalRecord) error
	ListRecentSignals(ctx context.Context, limit int) ([]SignalRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers for the watch loop.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to alert and signal records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlerts persists the batch of alerts from one run.
func (s *Store) InsertAlerts(ctx context.Context, alerts []AlertRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for i := range alerts {
		a := &alerts[i]
		row := pool.QueryRow(ctx, insertAlertSQL,
			a.RunAt,
			a.CustomerID,
			a.Category,
			a.SignalType,
			a.Severity,
			a.BaselineQty,
			a.CurrentQty,
			a.DropPct,
			a.WeeksSinceLastOrder,
			a.EstimatedLostRevenue.String(),
			a.CompetitorLikely,
			a.RecommendedDiscount,
		)
		if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return nil
}

// ListRecentAlerts lists the most recently persisted alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// ListAlertsBetween lists alerts whose run timestamp falls in [from, to).
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

func collectAlerts(rows pgx.Rows) ([]AlertRecord, error) {
	alerts := make([]AlertRecord, 0)
	for rows.Next() {
		var a AlertRecord
		var revenue string
		if err := rows.Scan(
			&a.ID,
			&a.RunAt,
			&a.CustomerID,
			&a.Category,
			&a.SignalType,
			&a.Severity,
			&a.BaselineQty,
			&a.CurrentQty,
			&a.DropPct,
			&a.WeeksSinceLastOrder,
			&revenue,
			&a.CompetitorLikely,
			&a.RecommendedDiscount,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		parsed, err := decimal.NewFromString(revenue)
		if err != nil {
			return nil, fmt.Errorf("parse estimated_lost_revenue: %w", err)
		}
		a.EstimatedLostRevenue = parsed
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// InsertSignals persists the batch of competitor signals from one run.
func (s *Store) InsertSignals(ctx context.Context, signals []SignalRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for i := range signals {
		sig := &signals[i]
		row := pool.QueryRow(ctx, insertSignalSQL,
			sig.RunAt,
			sig.CustomerID,
			sig.Category,
			sig.SignalType,
			sig.Strength,
			sig.CompetitorType,
			sig.PriceAdvantagePct,
			sig.WinBackProbability,
		)
		if err := row.Scan(&sig.ID, &sig.CreatedAt); err != nil {
			return fmt.Errorf("insert signal: %w", err)
		}
	}
	return nil
}

// ListRecentSignals lists the most recently persisted competitor signals.
func (s *Store) ListRecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSignalsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent signals: %w", queryErr)
	}
	defer rows.Close()

	signals := make([]SignalRecord, 0)
	for rows.Next() {
		var sig SignalRecord
		if err := rows.Scan(
			&sig.ID,
			&sig.RunAt,
			&sig.CustomerID,
			&sig.Category,
			&sig.SignalType,
			&sig.Strength,
			&sig.CompetitorType,
			&sig.PriceAdvantagePct,
			&sig.WinBackProbability,
			&sig.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

var (
	_ AlertStore     = (*Store)(nil)
	_ SignalStore    = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
