package metrics

import (
	"math"
	"sort"
)

// Stats summarizes the return distribution of a set of episodes.
type Stats struct {
	// Counts
	Episodes     int
	Stocks       int
	Wins         int
	Losses       int
	WinRate      float64
	StockWinRate float64 // share of stocks with at least one winning episode

	// Return distribution
	ReturnMean   float64
	ReturnMedian float64
	ReturnP10    float64
	ReturnP90    float64
	ReturnMin    float64
	ReturnMax    float64
	ReturnStddev float64

	// Order-dependent, over entry-date order
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// Compute calculates Stats. outcomes must be in entry-date order, as Outcomes returns them.
// A return of exactly zero counts as a loss.
func Compute(outcomes []EpisodeOutcome) Stats {
	n := len(outcomes)
	if n == 0 {
		return Stats{}
	}

	returns := make([]float64, n)
	wins := 0
	for i, o := range outcomes {
		returns[i] = o.Return
		if o.Return > 0 {
			wins++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	mean := computeMean(returns)
	stocks, stockWinRate := computeStockWinRate(outcomes)

	return Stats{
		Episodes:     n,
		Stocks:       stocks,
		Wins:         wins,
		Losses:       n - wins,
		WinRate:      float64(wins) / float64(n),
		StockWinRate: stockWinRate,

		ReturnMean:   mean,
		ReturnMedian: computePercentile(sorted, 0.50),
		ReturnP10:    computePercentile(sorted, 0.10),
		ReturnP90:    computePercentile(sorted, 0.90),
		ReturnMin:    sorted[0],
		ReturnMax:    sorted[n-1],
		ReturnStddev: computeStddev(returns, mean),

		MaxDrawdown:          computeMaxDrawdown(returns),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(returns),
	}
}

// computeStockWinRate groups episodes by stock. A stock wins if any of its episodes did.
func computeStockWinRate(outcomes []EpisodeOutcome) (int, float64) {
	won := make(map[string]bool)
	for _, o := range outcomes {
		won[o.StockCode] = won[o.StockCode] || o.Return > 0
	}

	winning := 0
	for _, w := range won {
		if w {
			winning++
		}
	}
	return len(won), float64(winning) / float64(len(won))
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be ascending.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates the worst peak-to-trough fall of cumulative returns.
func computeMaxDrawdown(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of returns <= 0.
func computeMaxConsecutiveLosses(returns []float64) int {
	maxStreak := 0
	streak := 0
	for _, r := range returns {
		if r <= 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
