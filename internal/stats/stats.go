// Package stats derives summary statistics from a project's persisted
// records. Pure functions, no storage access, no errors: missing data
// degrades to zero values or nil.
package stats

import "github.com/botledger/botgate/internal/model"

// Trend is the three-way classification of a snapshot's free-text trend.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// Summary aggregates a bounded window of recent trades. WinRate is nil when
// no trade in the window carries a realized PnL (rendered as a dash).
type Summary struct {
	TotalTrades   int      `json:"total_trades"`
	ClosedTrades  int      `json:"closed_trades"`
	WinningTrades int      `json:"winning_trades"`
	TotalPnL      float64  `json:"total_pnl"`
	WinRate       *float64 `json:"win_rate"`
}

// Summarize computes realized PnL and win rate over the given trades.
// Closed trades are those with a non-nil pnl; open or non-closing
// transactions never count toward the win rate denominator.
func Summarize(trades []model.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		s.ClosedTrades++
		s.TotalPnL += *t.PnL
		if *t.PnL > 0 {
			s.WinningTrades++
		}
	}
	if s.ClosedTrades > 0 {
		rate := float64(s.WinningTrades) / float64(s.ClosedTrades) * 100
		s.WinRate = &rate
	}
	return s
}

// ClassifyTrend maps a snapshot's trend string to a display class.
// Exact, case-sensitive match only; anything else, including a missing
// snapshot or trend, is neutral.
func ClassifyTrend(snap *model.Snapshot) Trend {
	if snap == nil || snap.Trend == nil {
		return TrendNeutral
	}
	switch *snap.Trend {
	case "BULLISH":
		return TrendBullish
	case "BEARISH":
		return TrendBearish
	default:
		return TrendNeutral
	}
}
