// Package verification checks stored trade events against a fresh replay
// of the strategy and against the invariants every episode must hold.
package verification

import (
	"context"
	"math"

	"breakout-backtest/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Seq      int         // event sequence; -1 for episode-level fields
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying one episode.
type VerificationResult struct {
	CandidateID    string
	Match          bool // true if the replay matches and no invariant is violated
	Divergences    []FieldDivergence
	Violations     []Violation
	StoredEvents   int
	ReplayedEvents int
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalEpisodes     int
	MatchedEpisodes   int
	DivergentEpisodes int
	Results           []VerificationResult // sorted by candidate ID
}

// Verifier interface for trade-event replay verification.
type Verifier interface {
	// VerifyEpisode re-simulates one candidate and compares the fills with the stored ones.
	VerifyEpisode(ctx context.Context, candidateID string) (*VerificationResult, error)

	// VerifyAll verifies every episode that has stored events.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareEpisodes compares two ordered event lists fill by fill.
// Prices use FloatTolerance; everything else must match exactly.
func CompareEpisodes(stored, replayed []domain.TradeEvent) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Seq:      -1,
			Field:    "EventCount",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	n := len(stored)
	if len(replayed) < n {
		n = len(replayed)
	}
	for i := 0; i < n; i++ {
		divergences = append(divergences, compareEvents(stored[i], replayed[i])...)
	}

	return divergences
}

func compareEvents(s, r domain.TradeEvent) []FieldDivergence {
	var d []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		d = append(d, FieldDivergence{Seq: s.Seq, Field: field, Expected: expected, Actual: actual})
	}

	// EventID covers candidate, seq, type and date
	if s.EventID != r.EventID {
		add("EventID", s.EventID, r.EventID)
	}
	if s.TradeType != r.TradeType {
		add("TradeType", s.TradeType, r.TradeType)
	}
	if !s.TradeDate.Equal(r.TradeDate) {
		add("TradeDate", s.TradeDate, r.TradeDate)
	}
	if s.Shares != r.Shares {
		add("Shares", s.Shares, r.Shares)
	}
	if !floatEquals(s.Price, r.Price) {
		add("Price", s.Price, r.Price)
	}
	if !floatEquals(s.ResultingClose, r.ResultingClose) {
		add("ResultingClose", s.ResultingClose, r.ResultingClose)
	}
	if s.HoldingDayCount != r.HoldingDayCount {
		add("HoldingDayCount", s.HoldingDayCount, r.HoldingDayCount)
	}
	if s.Reason != r.Reason {
		add("Reason", s.Reason, r.Reason)
	}

	return d
}

// floatEquals compares two floats with relative tolerance above 1 and absolute below.
func floatEquals(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= FloatTolerance*scale
}
