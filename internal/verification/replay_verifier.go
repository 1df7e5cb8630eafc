package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"breakout-backtest/internal/adjust"
	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/simulation"
	"breakout-backtest/internal/storage"
	"breakout-backtest/internal/strategy"
)

var (
	// ErrEpisodeNotFound is returned when a candidate has no stored events.
	ErrEpisodeNotFound = errors.New("no stored trade events for candidate")

	// ErrCandidateNotFound is returned when candidate ID doesn't exist.
	ErrCandidateNotFound = errors.New("candidate not found")
)

// ReplayVerifier implements Verifier by re-running the strategy on current bars.
type ReplayVerifier struct {
	eventStore     storage.TradeEventStore
	candidateStore storage.CandidateStore
	barStore       storage.BarStore
	strategy       strategy.Strategy
	cfg            domain.StrategyConfig
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	EventStore     storage.TradeEventStore
	CandidateStore storage.CandidateStore
	BarStore       storage.BarStore

	// Config must be the one the stored run used
	Config domain.StrategyConfig
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) (*ReplayVerifier, error) {
	strat, err := strategy.FromConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	return &ReplayVerifier{
		eventStore:     opts.EventStore,
		candidateStore: opts.CandidateStore,
		barStore:       opts.BarStore,
		strategy:       strat,
		cfg:            opts.Config,
	}, nil
}

// VerifyEpisode verifies one candidate by replaying its simulation.
func (v *ReplayVerifier) VerifyEpisode(ctx context.Context, candidateID string) (*VerificationResult, error) {
	// 1. Load stored events
	stored, err := v.eventStore.GetByCandidateID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrEpisodeNotFound
	}

	return v.verify(ctx, candidateID, derefEvents(stored))
}

// VerifyAll verifies every stored episode, in candidate ID order.
// An episode that cannot be replayed is reported as divergent, not returned as an error.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	all, err := v.eventStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	byCandidate := make(map[string][]domain.TradeEvent)
	for _, e := range all {
		byCandidate[e.CandidateID] = append(byCandidate[e.CandidateID], *e)
	}
	ids := make([]string, 0, len(byCandidate))
	for id := range byCandidate {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := &VerificationReport{
		TotalEpisodes: len(ids),
		Results:       make([]VerificationResult, 0, len(ids)),
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		events := byCandidate[id]
		sort.SliceStable(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })

		result, err := v.verify(ctx, id, events)
		if err != nil {
			// Record error as divergence
			result = &VerificationResult{
				CandidateID:  id,
				StoredEvents: len(events),
				Divergences: []FieldDivergence{
					{Seq: -1, Field: "Error", Expected: nil, Actual: err.Error()},
				},
			}
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedEpisodes++
		} else {
			report.DivergentEpisodes++
		}
	}

	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, candidateID string, stored []domain.TradeEvent) (*VerificationResult, error) {
	// 2. Replay
	replayed, err := v.replay(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	// 3. Compare and check invariants on what was stored
	divergences := CompareEpisodes(stored, replayed.Events)
	violations := CheckEpisode(candidateID, stored, v.cfg)

	return &VerificationResult{
		CandidateID:    candidateID,
		Match:          len(divergences) == 0 && len(violations) == 0,
		Divergences:    divergences,
		Violations:     violations,
		StoredEvents:   len(stored),
		ReplayedEvents: len(replayed.Events),
	}, nil
}

// replay re-executes the candidate on its stock's current bar history.
func (v *ReplayVerifier) replay(ctx context.Context, candidateID string) (*domain.EpisodeResult, error) {
	c, err := v.candidateStore.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}

	raw, err := v.barStore.GetByStockCode(ctx, c.StockCode)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", c.StockCode, err)
	}
	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, *b)
	}

	adjusted, err := adjust.Adjust(bars)
	if err != nil {
		return nil, fmt.Errorf("adjust %s: %w", c.StockCode, err)
	}

	ep, _, err := simulation.Simulate(ctx, v.strategy, *c, adjusted, v.cfg.SupportLookbackDays)
	return ep, err
}

func derefEvents(events []*domain.TradeEvent) []domain.TradeEvent {
	out := make([]domain.TradeEvent, len(events))
	for i, e := range events {
		out[i] = *e
	}
	return out
}

// Ensure ReplayVerifier implements Verifier
var _ Verifier = (*ReplayVerifier)(nil)
