package strategy

import (
	"errors"
	"fmt"

	"breakout-backtest/internal/domain"
)

// Factory errors. All of them are configuration errors and fatal at startup.
var (
	ErrInvalidInitialCash        = errors.New("initial_cash must be positive")
	ErrInvalidLotSize            = errors.New("lot_size must be positive")
	ErrInvalidTrancheRatio       = errors.New("open_tranche_ratio must be within [0, 1]")
	ErrInvalidMaxHoldingDays     = errors.New("max_holding_days must be at least 1")
	ErrInvalidStopLossPct        = errors.New("stop_loss_pct must be within (0, 1)")
	ErrInvalidSupportConfirmBars = errors.New("support_confirm_bars must be at least 1")
	ErrInvalidTakeProfitPct      = errors.New("take_profit_pct must be positive")
	ErrInvalidProfitStopRatio    = errors.New("profit_stop_ratio must be positive and not above the take-profit level")
	ErrInvalidLadderStep         = errors.New("ladder_step must be positive")
	ErrInvalidLadderTop          = errors.New("ladder_top must be above the take-profit level")
	ErrUnknownSellPricing        = errors.New("ladder_sell_pricing must be rung or close")
	ErrInvalidStagnationDays     = errors.New("stagnation_days must be at least 1 when stagnation is enabled")
	ErrInvalidLadderHoldingDays  = errors.New("ladder_max_holding_days must not be negative")
	ErrInvalidSupportLookback    = errors.New("support_lookback_days must not be negative")
)

// ValidateConfig checks every parameter and returns the first violation.
func ValidateConfig(cfg domain.StrategyConfig) error {
	takeProfitLevel := 1 + cfg.TakeProfitPct

	switch {
	case !(cfg.InitialCash > 0):
		return fmt.Errorf("%w: got %v", ErrInvalidInitialCash, cfg.InitialCash)
	case cfg.LotSize <= 0:
		return fmt.Errorf("%w: got %d", ErrInvalidLotSize, cfg.LotSize)
	case cfg.OpenTrancheRatio < 0 || cfg.OpenTrancheRatio > 1:
		return fmt.Errorf("%w: got %v", ErrInvalidTrancheRatio, cfg.OpenTrancheRatio)
	case cfg.MaxHoldingDays < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidMaxHoldingDays, cfg.MaxHoldingDays)
	case !(cfg.StopLossPct > 0) || cfg.StopLossPct >= 1:
		return fmt.Errorf("%w: got %v", ErrInvalidStopLossPct, cfg.StopLossPct)
	case cfg.SupportConfirmBars < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidSupportConfirmBars, cfg.SupportConfirmBars)
	case !(cfg.TakeProfitPct > 0):
		return fmt.Errorf("%w: got %v", ErrInvalidTakeProfitPct, cfg.TakeProfitPct)
	case !(cfg.ProfitStopRatio > 0) || cfg.ProfitStopRatio > takeProfitLevel+ratioEpsilon:
		return fmt.Errorf("%w: got %v", ErrInvalidProfitStopRatio, cfg.ProfitStopRatio)
	case !(cfg.LadderStep > 0):
		return fmt.Errorf("%w: got %v", ErrInvalidLadderStep, cfg.LadderStep)
	case !(cfg.LadderTop > takeProfitLevel):
		return fmt.Errorf("%w: got %v", ErrInvalidLadderTop, cfg.LadderTop)
	case cfg.LadderSellPricing != domain.SellPricingRung && cfg.LadderSellPricing != domain.SellPricingClose:
		return fmt.Errorf("%w: got %q", ErrUnknownSellPricing, cfg.LadderSellPricing)
	case cfg.StagnationEnabled && cfg.StagnationDays < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidStagnationDays, cfg.StagnationDays)
	case cfg.LadderMaxHoldingDays < 0:
		return fmt.Errorf("%w: got %d", ErrInvalidLadderHoldingDays, cfg.LadderMaxHoldingDays)
	case cfg.SupportLookbackDays < 0:
		return fmt.Errorf("%w: got %d", ErrInvalidSupportLookback, cfg.SupportLookbackDays)
	}

	return nil
}

// FromConfig creates a BreakoutLadder from domain.StrategyConfig.
// Returns clear errors for invalid params.
func FromConfig(cfg domain.StrategyConfig) (*BreakoutLadder, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return NewBreakoutLadder(cfg), nil
}
