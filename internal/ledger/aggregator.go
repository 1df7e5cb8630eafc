package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// ErrNoEvents is returned when no trade events are available for aggregation.
var ErrNoEvents = errors.New("no trade events available for aggregation")

// Aggregator rebuilds the ledger from persisted trade events.
type Aggregator struct {
	eventStore     storage.TradeEventStore
	candidateStore storage.CandidateStore
	budget         float64

	// MissingCandidates tracks events whose candidate is not in the candidate store.
	// Key: candidate_id, Value: count of events referencing it.
	MissingCandidates map[string]int
}

// NewAggregator creates a new ledger aggregator.
// budget is the capital allotted to each episode. candidateStore may be nil,
// in which case stock names come from the events alone.
func NewAggregator(eventStore storage.TradeEventStore, candidateStore storage.CandidateStore, budget float64) *Aggregator {
	return &Aggregator{
		eventStore:        eventStore,
		candidateStore:    candidateStore,
		budget:            budget,
		MissingCandidates: make(map[string]int),
	}
}

// ComputeFromStore loads all events, regroups them into episodes and folds them.
// Returns ErrNoEvents if the store is empty.
func (a *Aggregator) ComputeFromStore(ctx context.Context) (*Ledger, error) {
	events, err := a.eventStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trade events: %w", err)
	}
	return a.Compute(ctx, events)
}

// Compute regroups already loaded events into episodes and folds them.
// Returns ErrNoEvents if events is empty.
func (a *Aggregator) Compute(ctx context.Context, events []*domain.TradeEvent) (*Ledger, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	episodes, err := a.regroup(ctx, events)
	if err != nil {
		return nil, err
	}

	return Fold(episodes), nil
}

// regroup turns a flat event list back into one EpisodeResult per candidate.
func (a *Aggregator) regroup(ctx context.Context, events []*domain.TradeEvent) ([]*domain.EpisodeResult, error) {
	byCandidate := make(map[string]*domain.EpisodeResult)
	var order []string

	for _, e := range events {
		ep, ok := byCandidate[e.CandidateID]
		if !ok {
			ep = &domain.EpisodeResult{
				CandidateID: e.CandidateID,
				StockCode:   e.StockCode,
				StockName:   e.StockName,
				InitCash:    a.budget,
			}
			byCandidate[e.CandidateID] = ep
			order = append(order, e.CandidateID)
		}
		ep.Events = append(ep.Events, *e)
	}

	result := make([]*domain.EpisodeResult, 0, len(order))
	for _, id := range order {
		ep := byCandidate[id]
		sort.SliceStable(ep.Events, func(i, j int) bool {
			return ep.Events[i].Seq < ep.Events[j].Seq
		})
		ep.EntryDate = ep.Events[0].TradeDate
		if last := ep.Events[len(ep.Events)-1]; last.TradeType == domain.TradeTypeSell {
			ep.ExitReason = last.Reason
		}

		if err := a.attachCandidate(ctx, ep); err != nil {
			return nil, err
		}
		result = append(result, ep)
	}

	return result, nil
}

// attachCandidate fills the stock name from the candidate store.
// Missing candidates are recorded, not fatal.
func (a *Aggregator) attachCandidate(ctx context.Context, ep *domain.EpisodeResult) error {
	if a.candidateStore == nil {
		return nil
	}

	c, err := a.candidateStore.GetByID(ctx, ep.CandidateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.MissingCandidates[ep.CandidateID] += len(ep.Events)
			return nil
		}
		return fmt.Errorf("load candidate %s: %w", ep.CandidateID, err)
	}

	if ep.StockName == "" {
		ep.StockName = c.StockName
	}
	return nil
}

// GetMissingCandidateErrors returns data quality errors for missing candidates.
// Returns slice of error messages sorted by candidate_id for deterministic output.
func (a *Aggregator) GetMissingCandidateErrors() []string {
	if len(a.MissingCandidates) == 0 {
		return nil
	}

	keys := make([]string, 0, len(a.MissingCandidates))
	for k := range a.MissingCandidates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]string, len(keys))
	for i, candidateID := range keys {
		errs[i] = fmt.Sprintf("missing candidate %s referenced by %d event(s)", candidateID, a.MissingCandidates[candidateID])
	}
	return errs
}
