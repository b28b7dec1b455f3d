// Package ingest classifies and validates inbound payloads against the
// shape contract of their declared kind, producing a normalized, strongly
// typed record or a structured validation failure.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/botledger/botgate/internal/model"
)

const (
	KindTrade    = "trade"
	KindSnapshot = "snapshot"
	KindEvent    = "event"
)

// DefaultEventType is stored when an event payload omits event_type.
const DefaultEventType = "note"

// Record is the closed tagged union over the three accepted payload kinds.
// Each variant carries fully coerced, strongly typed fields ready to persist.
type Record interface {
	Kind() string
}

type TradeRecord struct {
	TxType   string
	Side     string
	Ticker   string
	Quantity float64
	Price    float64
	Notional float64
	PnL      *float64
	Reason   *string
}

func (TradeRecord) Kind() string { return KindTrade }

type SnapshotRecord struct {
	State         *string
	Side          *string
	Ticker        *string
	Balance       *float64
	PnLPct        *float64
	UnrealizedPnL *float64
	FundingRate   *float64
	Trend         *string
	EntryPrice    *float64
	CurrentPrice  *float64
}

func (SnapshotRecord) Kind() string { return KindSnapshot }

type EventRecord struct {
	Title       string
	Description *string
	Value       *float64
	EventType   string
}

func (EventRecord) Kind() string { return KindEvent }

// ValidationError carries the human-readable requirement that was violated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate dispatches on kind and checks the payload against that kind's
// shape contract. Unknown kinds are always an error, never a default branch.
func Validate(kind string, data map[string]any) (Record, *ValidationError) {
	switch kind {
	case KindTrade:
		return validateTrade(data)
	case KindSnapshot:
		return validateSnapshot(data)
	case KindEvent:
		return validateEvent(data)
	default:
		return nil, invalid("unknown type %q. Use: trade, snapshot, event", kind)
	}
}

func validateTrade(data map[string]any) (Record, *ValidationError) {
	if isMissingText(data["tx_type"]) || isMissingText(data["side"]) || isMissingText(data["ticker"]) ||
		data["quantity"] == nil || data["price"] == nil || data["notional"] == nil {
		return nil, invalid("trade requires: tx_type, side, ticker, quantity, price, notional")
	}

	rec := TradeRecord{
		TxType: toText(data["tx_type"]),
		Side:   toText(data["side"]),
		Ticker: toText(data["ticker"]),
	}

	var err *ValidationError
	if rec.Quantity, err = requireNumber(data, "quantity"); err != nil {
		return nil, err
	}
	if rec.Price, err = requireNumber(data, "price"); err != nil {
		return nil, err
	}
	if rec.Notional, err = requireNumber(data, "notional"); err != nil {
		return nil, err
	}
	if rec.PnL, err = optionalNumber(data, "pnl"); err != nil {
		return nil, err
	}
	rec.Reason = optionalText(data["reason"])

	return rec, nil
}

func validateSnapshot(data map[string]any) (Record, *ValidationError) {
	// Every field is optional; an empty snapshot is valid.
	rec := SnapshotRecord{
		State:  optionalText(data["state"]),
		Side:   optionalText(data["side"]),
		Ticker: optionalText(data["ticker"]),
		Trend:  optionalText(data["trend"]),
	}

	var err *ValidationError
	if rec.Balance, err = optionalNumber(data, "balance"); err != nil {
		return nil, err
	}
	if rec.PnLPct, err = optionalNumber(data, "pnl_pct"); err != nil {
		return nil, err
	}
	if rec.UnrealizedPnL, err = optionalNumber(data, "unrealized_pnl"); err != nil {
		return nil, err
	}
	if rec.FundingRate, err = optionalNumber(data, "funding_rate"); err != nil {
		return nil, err
	}
	if rec.EntryPrice, err = optionalNumber(data, "entry_price"); err != nil {
		return nil, err
	}
	if rec.CurrentPrice, err = optionalNumber(data, "current_price"); err != nil {
		return nil, err
	}

	return rec, nil
}

func validateEvent(data map[string]any) (Record, *ValidationError) {
	if isMissingText(data["title"]) {
		return nil, invalid("event requires: title")
	}

	rec := EventRecord{
		Title:       toText(data["title"]),
		Description: optionalText(data["description"]),
		EventType:   DefaultEventType,
	}
	if data["event_type"] != nil {
		rec.EventType = toText(data["event_type"])
	}

	var err *ValidationError
	if rec.Value, err = optionalNumber(data, "value"); err != nil {
		return nil, err
	}

	return rec, nil
}

// toFiniteNumber is the single coercion point for every numeric field across
// kinds: any JSON number or numeric string converts to float64. NaN, infinite
// and non-numeric input fail instead of being persisted as garbage. Lossy for
// integers beyond 2^53.
func toFiniteNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func requireNumber(data map[string]any, field string) (float64, *ValidationError) {
	f, ok := toFiniteNumber(data[field])
	if !ok {
		return 0, invalid("field %q must be a finite number", field)
	}
	return f, nil
}

func optionalNumber(data map[string]any, field string) (*float64, *ValidationError) {
	v := data[field]
	if v == nil {
		return nil, nil
	}
	f, ok := toFiniteNumber(v)
	if !ok {
		return nil, invalid("field %q must be a finite number", field)
	}
	return &f, nil
}

// toText stringifies scalar values the way the loose contract expects:
// strings pass through, numbers and bools render with their JSON form.
func toText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func optionalText(v any) *string {
	if v == nil {
		return nil
	}
	s := toText(v)
	return &s
}

// isMissingText reports whether a required string field is absent. The empty
// string counts as missing.
func isMissingText(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// ToTrade copies coerced trade fields onto a storable model row.
func (r TradeRecord) ToTrade(projectID string) *model.Trade {
	return &model.Trade{
		ProjectID: projectID,
		TxType:    r.TxType,
		Side:      r.Side,
		Ticker:    r.Ticker,
		Quantity:  r.Quantity,
		Price:     r.Price,
		Notional:  r.Notional,
		PnL:       r.PnL,
		Reason:    r.Reason,
	}
}

func (r SnapshotRecord) ToSnapshot(projectID string) *model.Snapshot {
	return &model.Snapshot{
		ProjectID:     projectID,
		State:         r.State,
		Side:          r.Side,
		Ticker:        r.Ticker,
		Balance:       r.Balance,
		PnLPct:        r.PnLPct,
		UnrealizedPnL: r.UnrealizedPnL,
		FundingRate:   r.FundingRate,
		Trend:         r.Trend,
		EntryPrice:    r.EntryPrice,
		CurrentPrice:  r.CurrentPrice,
	}
}

func (r EventRecord) ToEvent(projectID string) *model.Event {
	return &model.Event{
		ProjectID:   projectID,
		Title:       r.Title,
		Description: r.Description,
		Value:       r.Value,
		EventType:   r.EventType,
	}
}
