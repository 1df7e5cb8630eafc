package domain

import "time"

// Candidate is a breakout signal for one stock.
// Corresponds to candidates table in PostgreSQL.
type Candidate struct {
	CandidateID      string     // PRIMARY KEY, deterministic hash of (stock_code, breakthrough_date)
	StockCode        string     // exchange code
	StockName        string     // display name
	BreakthroughDate time.Time  // day the close broke above the recent high
	SupportPrice     float64    // prior local high acting as floor; 0 means unknown
	SupportDate      *time.Time // day the support level was set (nullable)
	CreatedAt        int64      // record creation timestamp (ms)
}

// HasSupport reports whether the candidate carries a usable support level.
func (c *Candidate) HasSupport() bool {
	return c.SupportPrice > 0
}
