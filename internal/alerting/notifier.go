package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Digest summarises one analysis run for notification purposes.
type Digest struct {
	RunAt                time.Time
	TotalAlerts          int
	CriticalAlerts       int
	WarningAlerts        int
	EstimatedMonthlyLoss decimal.Decimal
	TopActions           []string
	Channels             []string
}

// Notifier dispatches run digests to a delivery channel.
type Notifier interface {
	Notify(ctx context.Context, digest Digest) error
}

// TelegramNotifier pushes digests through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered digest via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderDigest(digest),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram responded with ok=false")
		}
	}

	n.logger.Info().Time("run_at", digest.RunAt).
		Int("alerts", digest.TotalAlerts).
		Str("channels", strings.Join(digest.Channels, ",")).
		Msg("digest dispatched via telegram")
	return nil
}

func renderDigest(digest Digest) string {
	builder := strings.Builder{}
	builder.WriteString("[Churn Watch]\n")
	builder.WriteString(fmt.Sprintf("Run: %s UTC\n", digest.RunAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Alerts: %d (%d critical, %d warning)\n",
		digest.TotalAlerts, digest.CriticalAlerts, digest.WarningAlerts))
	builder.WriteString(fmt.Sprintf("Estimated monthly loss: %s\n", digest.EstimatedMonthlyLoss.StringFixed(2)))
	for i, action := range digest.TopActions {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, action))
	}
	if len(digest.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(digest.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
