package domain

import "time"

// Phase is the lifecycle state of one episode.
type Phase string

// Episode phases. CLOSED is terminal.
const (
	PhaseNotEntered   Phase = "NOT_ENTERED"
	PhaseFullPosition Phase = "FULL_POSITION"
	PhaseHalfPosition Phase = "HALF_POSITION"
	PhaseClosed       Phase = "CLOSED"
)

// IsOpen reports whether the phase still holds shares.
func (p Phase) IsOpen() bool {
	return p == PhaseFullPosition || p == PhaseHalfPosition
}

// Position is the mutable state of one (stock, entry-episode).
type Position struct {
	Phase           Phase
	InitCash        float64
	SharesHeld      int64
	CostPrice       float64 // volume-weighted entry price, unchanged by sells
	CashRemaining   float64
	StopLossPrice   float64
	HalfSold        bool
	MaxRiseReached  float64    // highest ladder rung reached, ratio to cost
	RiseBreakDate   *time.Time // day of the most recent rung breach (nullable)
	HoldingDayCount int        // 1 on the entry bar

	// Ladder bookkeeping
	RecoverCount   int     // consecutive non-recovering bars below support
	RungDwellDays  int     // bars since the most recent rung breach
	PeakCloseRatio float64 // highest close / cost seen while holding
}

// EpisodeResult is the immutable outcome of simulating one candidate.
type EpisodeResult struct {
	CandidateID string
	StockCode   string
	StockName   string
	InitCash    float64
	EntryDate   time.Time
	Events      []TradeEvent // ordered, buys first
	Final       Position     // snapshot after the last processed bar
	ExitReason  string       // reason of the terminal sell
}

// SkipRecord is a diagnostic for a candidate or stock that produced no episode.
// Corresponds to skip_records table in PostgreSQL.
type SkipRecord struct {
	RunID       string
	CandidateID string // empty when a whole stock was skipped
	StockCode   string
	Reason      string
	CreatedAt   int64 // ms
}
