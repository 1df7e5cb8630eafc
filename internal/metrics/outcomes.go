// Package metrics computes return statistics over closed episodes.
package metrics

import (
	"sort"
	"time"

	"breakout-backtest/internal/domain"
)

// EpisodeOutcome is the realized return of one episode.
type EpisodeOutcome struct {
	CandidateID string
	StockCode   string
	EntryDate   time.Time
	Invested    float64 // sum of buy fills
	Proceeds    float64 // sum of sell fills
	Return      float64 // (proceeds − invested) / invested
	Closed      bool    // false when shares were still held after the last event
}

// Outcomes regroups events by candidate and realizes each episode's return.
// Episodes are ordered by entry date, then candidate ID. Episodes without
// a buy are dropped.
func Outcomes(events []domain.TradeEvent) []EpisodeOutcome {
	type acc struct {
		out  EpisodeOutcome
		held int64
	}
	byCandidate := make(map[string]*acc)

	for _, e := range events {
		a, ok := byCandidate[e.CandidateID]
		if !ok {
			a = &acc{out: EpisodeOutcome{CandidateID: e.CandidateID, StockCode: e.StockCode}}
			byCandidate[e.CandidateID] = a
		}

		amount := e.Price * float64(e.Shares)
		switch e.TradeType {
		case domain.TradeTypeBuy:
			if a.out.EntryDate.IsZero() || e.TradeDate.Before(a.out.EntryDate) {
				a.out.EntryDate = e.TradeDate
			}
			a.out.Invested += amount
			a.held += e.Shares
		case domain.TradeTypeSell:
			a.out.Proceeds += amount
			a.held -= e.Shares
		}
	}

	out := make([]EpisodeOutcome, 0, len(byCandidate))
	for _, a := range byCandidate {
		if a.out.Invested <= 0 {
			continue
		}
		a.out.Return = (a.out.Proceeds - a.out.Invested) / a.out.Invested
		a.out.Closed = a.held <= 0
		out = append(out, a.out)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].CandidateID < out[j].CandidateID
	})
	return out
}
