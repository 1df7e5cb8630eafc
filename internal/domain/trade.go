package domain

import "time"

// TradeType is the side of a fill.
type TradeType string

// Trade types
const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// TradeEvent is one immutable fill within an episode.
// Corresponds to trade_events table in PostgreSQL.
type TradeEvent struct {
	EventID         string    // deterministic hash
	CandidateID     string    // owning candidate
	StockCode       string    // denormalized for per-stock folds
	StockName       string    // denormalized for reports
	Seq             int       // position within the episode, starting at 0
	TradeType       TradeType // BUY | SELL
	TradeDate       time.Time // day of the fill
	Shares          int64     // always > 0
	Price           float64   // fill price
	ResultingClose  float64   // bar close used for mark-to-market
	HoldingDayCount int       // trading-day counter at the fill, 1 on entry
	Reason          string    // entry tranche or exit reason code
}

// Amount returns price × shares.
func (e *TradeEvent) Amount() float64 {
	return e.Price * float64(e.Shares)
}

// Entry reason codes
const (
	EntryReasonOpen  = "ENTRY_OPEN"
	EntryReasonClose = "ENTRY_CLOSE"
)

// Exit reason codes
const (
	ExitReasonMaxHolding       = "MAX_HOLDING"
	ExitReasonStopLoss         = "STOP_LOSS"
	ExitReasonSupportBreak     = "SUPPORT_BREAK"
	ExitReasonTakeProfit       = "TAKE_PROFIT"
	ExitReasonLadderTop        = "LADDER_TOP"
	ExitReasonLadderStagnation = "LADDER_STAGNATION"
	ExitReasonLadderStop       = "LADDER_STOP"
	ExitReasonLadderMaxHolding = "LADDER_MAX_HOLDING"
	ExitReasonEndOfData        = "END_OF_DATA"
)
