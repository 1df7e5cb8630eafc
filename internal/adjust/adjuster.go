// Package adjust back-adjusts raw daily bars by compounded daily returns.
package adjust

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"breakout-backtest/internal/domain"
)

// Adjustment errors
var (
	ErrNoBars          = errors.New("no bars to adjust")
	ErrMixedStocks     = errors.New("bars belong to more than one stock")
	ErrConflictingBars = errors.New("conflicting bars share a trade date")
	ErrInvalidAnchor   = errors.New("last bar close is not a positive price")
)

// Adjust produces the back-adjusted series for one stock's full raw history.
// Steps:
//  1. Sort by trade date, drop exact duplicates
//  2. Daily return r = close / prev_close - 1 (neutral when prev_close is missing)
//  3. Cumulative factor F = exp(sum ln(1 + r))
//  4. adj_close = F * (C_last / F_last), last bar pinned to its raw close
//  5. open/high/low/prev_close scaled by (field / close) * adj_close
//
// The input slice is not modified.
func Adjust(raw []domain.Bar) ([]domain.AdjustedBar, error) {
	// 1. Sort and deduplicate
	bars, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	// 2-3. Cumulative factors
	factors := cumulativeFactors(bars)

	// 4. Anchor on the last bar
	last := len(bars) - 1
	anchor := bars[last].Close
	if !isPositive(anchor) {
		return nil, fmt.Errorf("%w: %s close=%v", ErrInvalidAnchor, bars[last].StockCode, anchor)
	}
	scale := anchor / factors[last]

	// 5. Scale the remaining fields
	out := make([]domain.AdjustedBar, len(bars))
	for i, b := range bars {
		adjClose := factors[i] * scale
		if i == last {
			adjClose = anchor
		}

		out[i] = domain.AdjustedBar{
			Bar:          b,
			AdjOpen:      scaleField(b.Open, b.Close, adjClose),
			AdjHigh:      scaleField(b.High, b.Close, adjClose),
			AdjLow:       scaleField(b.Low, b.Close, adjClose),
			AdjClose:     adjClose,
			AdjPrevClose: scaleField(b.PrevClose, b.Close, adjClose),
		}
	}

	return out, nil
}

// normalize returns a sorted copy with exact duplicates removed.
// Two different rows on the same date cannot be reconciled and fail the stock.
func normalize(raw []domain.Bar) ([]domain.Bar, error) {
	if len(raw) == 0 {
		return nil, ErrNoBars
	}

	bars := make([]domain.Bar, len(raw))
	copy(bars, raw)

	code := bars[0].StockCode
	for _, b := range bars[1:] {
		if b.StockCode != code {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedStocks, code, b.StockCode)
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].TradeDate.Before(bars[j].TradeDate)
	})

	result := bars[:1]
	for _, b := range bars[1:] {
		prev := result[len(result)-1]
		if domain.SameDay(prev.TradeDate, b.TradeDate) {
			if sameRow(prev, b) {
				continue
			}
			return nil, fmt.Errorf("%w: %s on %s", ErrConflictingBars, code, b.TradeDate.Format("2006-01-02"))
		}
		result = append(result, b)
	}

	return result, nil
}

// cumulativeFactors computes F_t as exp of the running log-return sum.
func cumulativeFactors(bars []domain.Bar) []float64 {
	factors := make([]float64, len(bars))
	var logSum float64
	for i, b := range bars {
		logSum += logReturn(b.Close, b.PrevClose)
		factors[i] = math.Exp(logSum)
	}
	return factors
}

// logReturn returns ln(1 + r) for one day, or 0 when the day is neutral.
func logReturn(close, prevClose float64) float64 {
	if !isPositive(prevClose) || !isPositive(close) {
		return 0
	}
	r := close/prevClose - 1
	return math.Log1p(r)
}

// scaleField returns (raw / close) * adjClose, treating the ratio as 1 when close is 0.
func scaleField(raw, close, adjClose float64) float64 {
	if close == 0 || math.IsNaN(close) || math.IsInf(close, 0) {
		return adjClose
	}
	return raw / close * adjClose
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func sameRow(a, b domain.Bar) bool {
	return a.Open == b.Open &&
		a.High == b.High &&
		a.Low == b.Low &&
		a.Close == b.Close &&
		a.PrevClose == b.PrevClose &&
		a.Volume == b.Volume
}
