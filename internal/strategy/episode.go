package strategy

import (
	"fmt"

	"breakout-backtest/internal/domain"
)

// episode accumulates the position and fills of one candidate.
// It is owned by a single Execute call and never shared.
type episode struct {
	candidate domain.Candidate
	cfg       domain.StrategyConfig
	pos       domain.Position
	events    []domain.TradeEvent
	entryBar  domain.AdjustedBar
	exit      string
}

func newEpisode(c domain.Candidate, cfg domain.StrategyConfig) *episode {
	return &episode{
		candidate: c,
		cfg:       cfg,
		pos: domain.Position{
			Phase:          domain.PhaseNotEntered,
			InitCash:       cfg.InitialCash,
			CashRemaining:  cfg.InitialCash,
			MaxRiseReached: 1.0,
		},
	}
}

// enter fills the open and close tranches on the entry bar.
// Each tranche is floored to the lot size independently; leftovers stay in cash.
func (ep *episode) enter(bar domain.AdjustedBar) error {
	if !validPrice(bar.AdjOpen) && !validPrice(bar.AdjClose) {
		return fmt.Errorf("%w: %s on %s", ErrInvalidEntryPrice, ep.candidate.StockCode, bar.TradeDate.Format("2006-01-02"))
	}

	openCash := ep.cfg.InitialCash * ep.cfg.OpenTrancheRatio
	closeCash := ep.cfg.InitialCash - openCash

	openShares := floorToLot(openCash, bar.AdjOpen, ep.cfg.LotSize)
	closeShares := floorToLot(closeCash, bar.AdjClose, ep.cfg.LotSize)
	if openShares+closeShares == 0 {
		return fmt.Errorf("%w: %s on %s", ErrZeroFill, ep.candidate.StockCode, bar.TradeDate.Format("2006-01-02"))
	}

	ep.entryBar = bar
	ep.pos.HoldingDayCount = 1
	ep.buy(bar, bar.AdjOpen, openShares, domain.EntryReasonOpen)
	ep.buy(bar, bar.AdjClose, closeShares, domain.EntryReasonClose)

	ep.pos.Phase = domain.PhaseFullPosition
	ep.pos.StopLossPrice = ep.pos.CostPrice * (1 - ep.cfg.StopLossPct)
	return nil
}

// buy records a fill and reblends the cost price. Zero-share tranches are dropped.
func (ep *episode) buy(bar domain.AdjustedBar, price float64, shares int64, reason string) {
	if shares <= 0 {
		return
	}

	pos := &ep.pos
	invested := pos.CostPrice*float64(pos.SharesHeld) + price*float64(shares)
	pos.SharesHeld += shares
	pos.CashRemaining -= price * float64(shares)
	pos.CostPrice = invested / float64(pos.SharesHeld)

	ep.record(bar, domain.TradeTypeBuy, price, shares, reason, pos.HoldingDayCount)
}

// sell records a fill of shares at price. The episode closes when nothing is left.
func (ep *episode) sell(bar domain.AdjustedBar, price float64, shares int64, reason string, holdingDays int) {
	pos := &ep.pos
	if shares <= 0 || !pos.Phase.IsOpen() {
		return
	}
	if shares > pos.SharesHeld {
		shares = pos.SharesHeld
	}

	pos.SharesHeld -= shares
	pos.CashRemaining += price * float64(shares)
	ep.record(bar, domain.TradeTypeSell, price, shares, reason, holdingDays)

	if pos.SharesHeld == 0 {
		pos.Phase = domain.PhaseClosed
		ep.exit = reason
	}
}

// sellAll liquidates the remaining position on bar.
func (ep *episode) sellAll(bar domain.AdjustedBar, price float64, reason string) {
	ep.sell(bar, price, ep.pos.SharesHeld, reason, ep.pos.HoldingDayCount)
}

// endOfData liquidates at the last usable close in the window.
func (ep *episode) endOfData(window []domain.AdjustedBar) {
	for i := len(window) - 1; i >= 0; i-- {
		if validPrice(window[i].AdjClose) {
			ep.sell(window[len(window)-1], window[i].AdjClose, ep.pos.SharesHeld, domain.ExitReasonEndOfData, ep.pos.HoldingDayCount)
			return
		}
	}
	// No usable close anywhere: fall back to cost so the episode still terminates flat
	ep.sell(window[len(window)-1], ep.pos.CostPrice, ep.pos.SharesHeld, domain.ExitReasonEndOfData, ep.pos.HoldingDayCount)
}

// trackPeak records the highest close ratio seen while holding.
func (ep *episode) trackPeak(ratio float64, ok bool) {
	if ok && ratio > ep.pos.PeakCloseRatio {
		ep.pos.PeakCloseRatio = ratio
	}
}

func (ep *episode) record(bar domain.AdjustedBar, tradeType domain.TradeType, price float64, shares int64, reason string, holdingDays int) {
	seq := len(ep.events)
	ep.events = append(ep.events, domain.TradeEvent{
		EventID:         computeEventID(ep.candidate.CandidateID, seq, tradeType, bar.TradeDate.Unix()),
		CandidateID:     ep.candidate.CandidateID,
		StockCode:       ep.candidate.StockCode,
		StockName:       ep.candidate.StockName,
		Seq:             seq,
		TradeType:       tradeType,
		TradeDate:       bar.TradeDate,
		Shares:          shares,
		Price:           price,
		ResultingClose:  bar.AdjClose,
		HoldingDayCount: holdingDays,
		Reason:          reason,
	})
}

// result snapshots the episode into an immutable value.
func (ep *episode) result() *domain.EpisodeResult {
	events := make([]domain.TradeEvent, len(ep.events))
	copy(events, ep.events)

	final := ep.pos
	if final.RiseBreakDate != nil {
		d := *final.RiseBreakDate
		final.RiseBreakDate = &d
	}

	return &domain.EpisodeResult{
		CandidateID: ep.candidate.CandidateID,
		StockCode:   ep.candidate.StockCode,
		StockName:   ep.candidate.StockName,
		InitCash:    ep.pos.InitCash,
		EntryDate:   ep.entryBar.TradeDate,
		Events:      events,
		Final:       final,
		ExitReason:  ep.exit,
	}
}
