package strategy

import (
	"context"
	"errors"
	"fmt"

	"breakout-backtest/internal/domain"
)

// Input errors. Each one skips the candidate; none is fatal to a batch.
var (
	ErrNoEntryBar        = errors.New("no bar after breakthrough date")
	ErrNonMonotonicBars  = errors.New("bars are not strictly ordered by trade date")
	ErrStockMismatch     = errors.New("bars belong to a different stock than the candidate")
	ErrZeroFill          = errors.New("allocation rounds to zero shares in both tranches")
	ErrInvalidEntryPrice = errors.New("entry bar has no positive open or close")
)

// Strategy turns one candidate and its adjusted bars into an episode.
type Strategy interface {
	// Execute runs the strategy for one candidate.
	// Pure: the same input always yields the same result.
	Execute(ctx context.Context, input *Input) (*domain.EpisodeResult, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// Input holds all data needed for one episode.
type Input struct {
	Candidate domain.Candidate
	Bars      []domain.AdjustedBar // from the breakthrough date forward, ascending
}

// Validate checks ordering and ownership of the bar window.
func (in *Input) Validate() error {
	if len(in.Bars) == 0 {
		return ErrNoEntryBar
	}

	for i, b := range in.Bars {
		if b.StockCode != "" && b.StockCode != in.Candidate.StockCode {
			return fmt.Errorf("%w: candidate %s, bar %s", ErrStockMismatch, in.Candidate.StockCode, b.StockCode)
		}
		if i > 0 && !in.Bars[i-1].TradeDate.Before(b.TradeDate) {
			return fmt.Errorf("%w: %s at index %d", ErrNonMonotonicBars, b.TradeDate.Format("2006-01-02"), i)
		}
	}

	return nil
}

// entryIndex returns the index of the first bar strictly after the breakthrough date.
func (in *Input) entryIndex() (int, error) {
	breakout := domain.DateOnly(in.Candidate.BreakthroughDate)
	for i, b := range in.Bars {
		if domain.DateOnly(b.TradeDate).After(breakout) {
			return i, nil
		}
	}
	return -1, ErrNoEntryBar
}
