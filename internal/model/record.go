package model

import "time"

// Trade is one immutable bot transaction. PnL is nil for opening or otherwise
// non-closing transactions; only closed trades carry a realized PnL.
type Trade struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"-"`
	ProjectID string    `json:"project_id"`
	TxType    string    `json:"tx_type"` // open|close|switch_open|switch_close|stop_loss|take_profit (not enforced)
	Side      string    `json:"side"`    // long|short
	Ticker    string    `json:"ticker"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Notional  float64   `json:"notional"`
	PnL       *float64  `json:"pnl"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a point-in-time capture of a bot's live state. Every field is
// optional; only the most recent snapshot per project is meaningful.
type Snapshot struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"-"`
	ProjectID     string    `json:"project_id"`
	State         *string   `json:"state"`
	Side          *string   `json:"side"`
	Ticker        *string   `json:"ticker"`
	Balance       *float64  `json:"balance"`
	PnLPct        *float64  `json:"pnl_pct"`
	UnrealizedPnL *float64  `json:"unrealized_pnl"`
	FundingRate   *float64  `json:"funding_rate"`
	Trend         *string   `json:"trend"` // free string, commonly BULLISH|BEARISH
	EntryPrice    *float64  `json:"entry_price"`
	CurrentPrice  *float64  `json:"current_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// Event is a free-form log entry (task completion, milestone, points award).
type Event struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"-"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Value       *float64  `json:"value"` // points, XP
	EventType   string    `json:"event_type"`
	CreatedAt   time.Time `json:"created_at"`
}
