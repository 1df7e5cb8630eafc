package domain

import "time"

// Bar represents one raw trading day for one stock.
// Corresponds to daily_bars table in ClickHouse.
type Bar struct {
	StockCode string    // exchange code, e.g. "600519"
	StockName string    // display name (may be empty)
	TradeDate time.Time // trading day, UTC midnight
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64 // 0 when the vendor did not supply it
	Volume    float64
}

// AdjustedBar is a Bar with back-adjusted prices attached.
// The adjusted close of a stock's last bar equals its raw close.
type AdjustedBar struct {
	Bar

	AdjOpen      float64
	AdjHigh      float64
	AdjLow       float64
	AdjClose     float64
	AdjPrevClose float64
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates t to UTC midnight of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
