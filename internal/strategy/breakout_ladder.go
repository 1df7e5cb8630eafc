package strategy

import (
	"context"
	"fmt"

	"breakout-backtest/internal/domain"
)

// BreakoutLadder buys a breakout in two tranches and exits through
// a stop-loss, a support-break confirmation, a half take-profit and
// a ratcheting profit ladder for the remaining half.
type BreakoutLadder struct {
	cfg domain.StrategyConfig
}

// NewBreakoutLadder creates a BreakoutLadder. cfg must already be validated.
func NewBreakoutLadder(cfg domain.StrategyConfig) *BreakoutLadder {
	return &BreakoutLadder{cfg: cfg}
}

// Config returns the parameters the strategy runs with.
func (s *BreakoutLadder) Config() domain.StrategyConfig {
	return s.cfg
}

// ID returns the strategy identifier including parameters.
func (s *BreakoutLadder) ID() string {
	return fmt.Sprintf("BREAKOUT_LADDER_hold%d_stop%.0f_tp%.0f_top%.0f_sc%d_%s",
		s.cfg.MaxHoldingDays,
		s.cfg.StopLossPct*100,
		s.cfg.TakeProfitPct*100,
		s.cfg.LadderTop*100,
		s.cfg.SupportConfirmBars,
		s.cfg.LadderSellPricing)
}

// Execute runs one episode.
// Steps:
//  1. Validate input and locate the entry bar (first bar after breakthrough)
//  2. Fill both tranches; skip on zero shares
//  3. Walk forward bar by bar applying exit rules in priority order
//  4. Force liquidation on the final bar if still open
func (s *BreakoutLadder) Execute(_ context.Context, input *Input) (*domain.EpisodeResult, error) {
	// 1. Validate and locate entry
	if err := input.Validate(); err != nil {
		return nil, err
	}
	entryIdx, err := input.entryIndex()
	if err != nil {
		return nil, err
	}

	ep := newEpisode(input.Candidate, s.cfg)

	// 2. Entry fills
	if err := ep.enter(input.Bars[entryIdx]); err != nil {
		return nil, err
	}

	// 3. Walk forward; the window never exceeds max_holding_days + 1 bars
	bars := input.Bars
	limit := entryIdx + s.cfg.MaxHoldingDays + 1
	if limit > len(bars) {
		limit = len(bars)
	}

	for i := entryIdx; i < limit; i++ {
		ep.pos.HoldingDayCount = i - entryIdx + 1
		s.step(ep, bars, i)
		if ep.pos.Phase == domain.PhaseClosed {
			break
		}

		// 4. End of data
		if i == len(bars)-1 {
			ep.endOfData(bars[entryIdx : i+1])
		}
	}

	return ep.result(), nil
}

// step applies the exit rules to bar i. The first rule that trades ends the bar.
func (s *BreakoutLadder) step(ep *episode, bars []domain.AdjustedBar, i int) {
	bar := bars[i]
	pos := &ep.pos

	// 1. Max holding: sell at the previous bar's close
	if pos.HoldingDayCount > s.cfg.MaxHoldingDays {
		prev := bars[i-1]
		price := prev.AdjClose
		if !validPrice(price) {
			price = pos.CostPrice
		}
		ep.sell(prev, price, pos.SharesHeld, domain.ExitReasonMaxHolding, pos.HoldingDayCount-1)
		return
	}

	// 2. Stop-loss at the level in force before this bar
	if validPrice(bar.AdjLow) && bar.AdjLow < pos.StopLossPrice {
		reason := domain.ExitReasonStopLoss
		if pos.HalfSold {
			reason = domain.ExitReasonLadderStop
		}
		ep.sellAll(bar, stopFill(bar, pos.StopLossPrice), reason)
		return
	}

	// 3. Support-break confirmation
	if s.supportBreak(ep, bar) {
		ep.sellAll(bar, bar.AdjClose, domain.ExitReasonSupportBreak)
		return
	}

	ratio, ok := closeRatio(bar, pos.CostPrice)

	// 4. First take-profit
	if !pos.HalfSold {
		if ok && reached(ratio, s.takeProfitLevel()) {
			s.takeProfit(ep, bar)
			return
		}
		ep.trackPeak(ratio, ok)
		return
	}

	// 5. Ladder for the remaining half
	s.ladder(ep, bar, ratio, ok)
}

// supportBreak updates the confirmation counter and reports whether it reached the threshold.
// A candidate without support, or a bar without usable low/close, leaves the counter untouched.
func (s *BreakoutLadder) supportBreak(ep *episode, bar domain.AdjustedBar) bool {
	support := ep.candidate.SupportPrice
	if !validPrice(support) || !validPrice(bar.AdjLow) || !validPrice(bar.AdjClose) {
		return false
	}

	pos := &ep.pos
	if bar.AdjLow >= support || bar.AdjClose >= support {
		pos.RecoverCount = 0
		return false
	}

	pos.RecoverCount++
	return pos.RecoverCount >= s.cfg.SupportConfirmBars
}

// takeProfit sells half the position and arms the ladder.
func (s *BreakoutLadder) takeProfit(ep *episode, bar domain.AdjustedBar) {
	pos := &ep.pos
	level := s.takeProfitLevel()

	// Lot-sized holdings split evenly; an odd count leaves the extra share in the ladder half.
	half := pos.SharesHeld / 2
	if half == 0 {
		half = pos.SharesHeld
	}
	ep.sell(bar, s.sellPrice(pos.CostPrice*level, bar), half, domain.ExitReasonTakeProfit, pos.HoldingDayCount)
	if pos.Phase == domain.PhaseClosed {
		return
	}

	pos.Phase = domain.PhaseHalfPosition
	pos.HalfSold = true
	pos.StopLossPrice = pos.CostPrice * s.cfg.ProfitStopRatio
	pos.MaxRiseReached = level
	pos.RiseBreakDate = nil
	pos.RungDwellDays = 0
	ep.trackPeak(bar.AdjClose/pos.CostPrice, true)
}

// ladder applies the trailing rules to the half position.
// Order: rung update, top rung, stagnation, raised stop, ladder hold.
func (s *BreakoutLadder) ladder(ep *episode, bar domain.AdjustedBar, ratio float64, ok bool) {
	pos := &ep.pos

	if !ok {
		if pos.RiseBreakDate != nil {
			pos.RungDwellDays++
		}
		return
	}

	// Rung update
	newRung := false
	if rung := s.rungFor(ratio); rung > pos.MaxRiseReached+ratioEpsilon {
		pos.MaxRiseReached = rung
		date := bar.TradeDate
		pos.RiseBreakDate = &date
		pos.RungDwellDays = 0
		if stop := pos.CostPrice * rung; stop > pos.StopLossPrice {
			pos.StopLossPrice = stop
		}
		newRung = true
	} else if pos.RiseBreakDate != nil {
		pos.RungDwellDays++
	}

	// Top rung
	if reached(ratio, s.cfg.LadderTop) {
		ep.sellAll(bar, s.sellPrice(pos.CostPrice*s.cfg.LadderTop, bar), domain.ExitReasonLadderTop)
		return
	}

	// Stagnation since the most recent rung breach
	if s.cfg.StagnationEnabled && !newRung && pos.RiseBreakDate != nil &&
		pos.RungDwellDays > s.cfg.StagnationDays &&
		!reached(ratio, roundRung(pos.MaxRiseReached+s.cfg.LadderStep)) {
		ep.sellAll(bar, bar.AdjClose, domain.ExitReasonLadderStagnation)
		return
	}

	// Pullback through a stop raised on this bar fills at the rung
	if validPrice(bar.AdjLow) && bar.AdjLow < pos.StopLossPrice {
		ep.sellAll(bar, pos.StopLossPrice, domain.ExitReasonLadderStop)
		return
	}

	// Ladder hold limit without a new high
	madeHigh := ratio > pos.PeakCloseRatio+ratioEpsilon
	if s.cfg.LadderMaxHoldingDays > 0 && pos.HoldingDayCount >= s.cfg.LadderMaxHoldingDays && !madeHigh {
		ep.sellAll(bar, bar.AdjClose, domain.ExitReasonLadderMaxHolding)
		return
	}

	ep.trackPeak(ratio, ok)
}

// takeProfitLevel returns the first take-profit ratio, e.g. 1.10.
func (s *BreakoutLadder) takeProfitLevel() float64 {
	return roundRung(1 + s.cfg.TakeProfitPct)
}

// rungFor returns the highest ladder rung at or below ratio, capped at the top rung.
// Rungs start at the take-profit level and step by LadderStep.
func (s *BreakoutLadder) rungFor(ratio float64) float64 {
	first := s.takeProfitLevel()
	if !reached(ratio, first) {
		return 0
	}
	if reached(ratio, s.cfg.LadderTop) {
		return s.cfg.LadderTop
	}

	steps := int((ratio - first + ratioEpsilon) / s.cfg.LadderStep)
	rung := roundRung(first + float64(steps)*s.cfg.LadderStep)
	if rung > s.cfg.LadderTop {
		rung = s.cfg.LadderTop
	}
	return rung
}

// sellPrice applies the configured pricing to a take-profit or top-rung fill.
func (s *BreakoutLadder) sellPrice(trigger float64, bar domain.AdjustedBar) float64 {
	if s.cfg.LadderSellPricing == domain.SellPricingClose && validPrice(bar.AdjClose) {
		return bar.AdjClose
	}
	return trigger
}

// Ensure BreakoutLadder implements Strategy
var _ Strategy = (*BreakoutLadder)(nil)
