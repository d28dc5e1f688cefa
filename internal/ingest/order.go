package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field aliases accepted on raw order records. The first populated alias wins.
var (
	customerAliases = []string{"customer_id", "customer", "account"}
	productAliases  = []string{"product", "item", "category"}
	quantityAliases = []string{"quantity", "qty"}
	valueAliases    = []string{"value", "amount", "total"}
	dateAliases     = []string{"date", "order_date"}
)

// RawOrder is one decoded input record before alias resolution.
type RawOrder map[string]any

// Order is the canonical internal order record. Immutable once built.
type Order struct {
	Date     string          `json:"date"`
	Quantity float64         `json:"quantity"`
	Value    decimal.Decimal `json:"value"`

	// PlacedAt is the parsed order date. Orders with an unparseable or missing
	// date keep the zero value and are excluded from time-windowed statistics.
	PlacedAt time.Time `json:"-"`
}

// HasDate reports whether the order carries a parseable date.
func (o Order) HasDate() bool {
	return !o.PlacedAt.IsZero()
}

// ReadOrdersFile loads and decodes a JSON order list. Any read or decode failure is
// fatal for the run: there is no partial output over a malformed batch.
func ReadOrdersFile(path string) ([]RawOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}

	var orders []RawOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode orders file: %w", err)
	}
	return orders, nil
}

// Resolve maps a raw record onto a canonical Order plus its customer identifier and
// product label. ok is false when either identifier is missing, which marks the row
// as a data-quality drop rather than an error.
func Resolve(raw RawOrder) (customerID, product string, order Order, ok bool) {
	customerID = firstString(raw, customerAliases)
	product = firstString(raw, productAliases)
	if customerID == "" || product == "" {
		return "", "", Order{}, false
	}

	order = Order{
		Date:     firstString(raw, dateAliases),
		Quantity: resolveQuantity(raw),
		Value:    decimal.NewFromFloat(firstNumber(raw, valueAliases)),
	}
	if t, err := ParseDate(order.Date); err == nil {
		order.PlacedAt = t
	}
	return customerID, product, order, true
}

// resolveQuantity coerces the first present quantity alias to a number. A record that
// carries neither alias defaults to one unit so that pure frequency data still counts.
func resolveQuantity(raw RawOrder) float64 {
	for _, key := range quantityAliases {
		if v, present := raw[key]; present && v != nil {
			return coerceNumber(v)
		}
	}
	return 1
}

func firstString(raw RawOrder, aliases []string) string {
	for _, key := range aliases {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(raw RawOrder, aliases []string) float64 {
	for _, key := range aliases {
		if v, present := raw[key]; present && v != nil {
			return coerceNumber(v)
		}
	}
	return 0
}

// coerceNumber converts a decoded JSON value to float64, treating anything
// non-numeric as zero.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date string, with or without a time component.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
