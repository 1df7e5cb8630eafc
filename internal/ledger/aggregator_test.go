package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage/memory"
)

func storedEvents() []*domain.TradeEvent {
	events := []domain.TradeEvent{
		buy("c1", 0, 1, 5000, 10.00, 10.00),
		buy("c1", 1, 1, 5000, 10.00, 10.00),
		sell("c1", 2, 4, 5000, 11.00, 11.50, 4, domain.ExitReasonTakeProfit),
		sell("c1", 3, 9, 5000, 12.00, 12.10, 9, domain.ExitReasonLadderStop),
	}
	result := make([]*domain.TradeEvent, len(events))
	for i := range events {
		events[i].EventID = events[i].CandidateID + "-" + string(rune('a'+i))
		events[i].StockName = ""
		result[i] = &events[i]
	}
	return result
}

func TestAggregator_ComputeFromStore(t *testing.T) {
	ctx := context.Background()
	eventStore := memory.NewTradeEventStore()
	candidateStore := memory.NewCandidateStore()

	require.NoError(t, candidateStore.Insert(ctx, &domain.Candidate{
		CandidateID: "c1",
		StockCode:   "600000",
		StockName:   "SPDB",
	}))
	require.NoError(t, eventStore.InsertBulk(ctx, storedEvents()))

	agg := NewAggregator(eventStore, candidateStore, 100000)
	l, err := agg.ComputeFromStore(ctx)
	require.NoError(t, err)

	require.Len(t, l.Rows, 1)
	row := l.Rows[0]
	assert.Equal(t, "SPDB", row.StockName)
	assert.InDelta(t, 15000, row.Profit, tolerance)
	assert.InDelta(t, 15000, l.Total.Profit, tolerance)
	assert.Empty(t, agg.GetMissingCandidateErrors())
}

func TestAggregator_MatchesInMemoryFold(t *testing.T) {
	ctx := context.Background()
	eventStore := memory.NewTradeEventStore()
	events := storedEvents()
	require.NoError(t, eventStore.InsertBulk(ctx, events))

	values := make([]domain.TradeEvent, len(events))
	for i, e := range events {
		values[i] = *e
	}
	direct := Fold([]*domain.EpisodeResult{{
		CandidateID: "c1", StockCode: "600000", InitCash: 100000, EntryDate: day(1), Events: values,
	}})

	rebuilt, err := NewAggregator(eventStore, nil, 100000).ComputeFromStore(ctx)
	require.NoError(t, err)

	assert.Equal(t, direct.Rows, rebuilt.Rows)
	assert.Equal(t, direct.Total, rebuilt.Total)
}

func TestAggregator_MissingCandidate(t *testing.T) {
	ctx := context.Background()
	eventStore := memory.NewTradeEventStore()
	require.NoError(t, eventStore.InsertBulk(ctx, storedEvents()))

	agg := NewAggregator(eventStore, memory.NewCandidateStore(), 100000)
	l, err := agg.ComputeFromStore(ctx)
	require.NoError(t, err)

	assert.Len(t, l.Rows, 1)
	assert.Equal(t, []string{"missing candidate c1 referenced by 4 event(s)"}, agg.GetMissingCandidateErrors())
}

func TestAggregator_NoEvents(t *testing.T) {
	agg := NewAggregator(memory.NewTradeEventStore(), nil, 100000)

	_, err := agg.ComputeFromStore(context.Background())
	assert.ErrorIs(t, err, ErrNoEvents)
}
