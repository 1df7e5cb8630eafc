package domain

// Sell pricing modes for take-profit and top-rung exits.
const (
	SellPricingRung  = "rung"  // resting order at the trigger level
	SellPricingClose = "close" // discretionary fill at the bar close
)

// StrategyConfig holds the breakout-ladder strategy parameters.
type StrategyConfig struct {
	InitialCash      float64 `yaml:"initial_cash"`
	LotSize          int64   `yaml:"lot_size"`
	OpenTrancheRatio float64 `yaml:"open_tranche_ratio"`

	MaxHoldingDays int     `yaml:"max_holding_days"`
	StopLossPct    float64 `yaml:"stop_loss_pct"`

	SupportConfirmBars int `yaml:"support_confirm_bars"`

	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	ProfitStopRatio float64 `yaml:"profit_stop_ratio"`

	LadderStep           float64 `yaml:"ladder_step"`
	LadderTop            float64 `yaml:"ladder_top"`
	LadderSellPricing    string  `yaml:"ladder_sell_pricing"`
	StagnationEnabled    bool    `yaml:"stagnation_enabled"`
	StagnationDays       int     `yaml:"stagnation_days"`
	LadderMaxHoldingDays int     `yaml:"ladder_max_holding_days"`

	SupportLookbackDays int `yaml:"support_lookback_days"`
}

// DefaultStrategyConfig returns the reference parameter set.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		InitialCash:          100000,
		LotSize:              100,
		OpenTrancheRatio:     0.5,
		MaxHoldingDays:       40,
		StopLossPct:          0.05,
		SupportConfirmBars:   3,
		TakeProfitPct:        0.10,
		ProfitStopRatio:      1.10,
		LadderStep:           0.10,
		LadderTop:            2.00,
		LadderSellPricing:    SellPricingRung,
		StagnationEnabled:    true,
		StagnationDays:       5,
		LadderMaxHoldingDays: 20,
		SupportLookbackDays:  40,
	}
}
