package strategy

import (
	"math"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/idhash"
)

// ratioEpsilon absorbs float noise when comparing price ratios to thresholds.
const ratioEpsilon = 1e-9

// validPrice reports whether p can be used in a ratio or as a fill.
func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// floorToLot returns the largest multiple of lot affordable with cash at price.
// Returns 0 when the price is unusable.
func floorToLot(cash, price float64, lot int64) int64 {
	if !validPrice(price) || cash <= 0 || lot <= 0 {
		return 0
	}
	lots := math.Floor(cash / price / float64(lot))
	return int64(lots) * lot
}

// closeRatio returns close / cost. ok is false when either side is unusable.
func closeRatio(bar domain.AdjustedBar, cost float64) (float64, bool) {
	if !validPrice(bar.AdjClose) || !validPrice(cost) {
		return 0, false
	}
	return bar.AdjClose / cost, true
}

// reached reports whether ratio is at or above threshold.
func reached(ratio, threshold float64) bool {
	return ratio+ratioEpsilon >= threshold
}

// stopFill returns the fill for a resting stop: the stop, or the open if it gapped below.
func stopFill(bar domain.AdjustedBar, stop float64) float64 {
	if validPrice(bar.AdjOpen) && bar.AdjOpen < stop {
		return bar.AdjOpen
	}
	return stop
}

// roundRung removes float noise from computed ladder levels.
func roundRung(r float64) float64 {
	return math.Round(r*1e6) / 1e6
}

// computeEventID generates deterministic trade event ID.
// Delegates to idhash.ComputeTradeEventID for single-source-of-truth.
func computeEventID(candidateID string, seq int, tradeType domain.TradeType, tradeDate int64) string {
	return idhash.ComputeTradeEventID(candidateID, seq, string(tradeType), tradeDate)
}
