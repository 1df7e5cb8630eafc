package verification

import (
	"fmt"

	"breakout-backtest/internal/domain"
)

// Invariant names reported in a Violation.
const (
	RuleSequence            = "sequence"
	RuleLotSize             = "lot_size"
	RuleOverspend           = "overspend"
	RuleOversell            = "oversell"
	RuleAfterClose          = "event_after_close"
	RuleNotFlat             = "not_flat"
	RuleHoldingDays         = "holding_days"
)

// cashTolerance absorbs float drift in cash bookkeeping, in currency units.
const cashTolerance = 1e-6

// Violation is one broken episode invariant.
type Violation struct {
	CandidateID string
	Seq         int
	Rule        string
	Detail      string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s seq=%d %s: %s", v.CandidateID, v.Seq, v.Rule, v.Detail)
}

// CheckEpisode validates one episode's ordered events against cfg.
// Checks:
//   - seq runs 0, 1, 2, ... without gaps
//   - buy share counts are multiples of the lot size
//   - buys never spend more than the initial cash
//   - no sell exceeds the shares held, and nothing trades after the position closes
//   - the episode ends flat, with no sell beyond max_holding_days
func CheckEpisode(candidateID string, events []domain.TradeEvent, cfg domain.StrategyConfig) []Violation {
	var out []Violation
	add := func(seq int, rule, format string, args ...interface{}) {
		out = append(out, Violation{CandidateID: candidateID, Seq: seq, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	var (
		held   int64
		cash   = cfg.InitialCash
		closed bool
	)

	for i, e := range events {
		if e.Seq != i {
			add(e.Seq, RuleSequence, "expected seq %d", i)
		}
		if closed {
			add(e.Seq, RuleAfterClose, "%s after the position closed", e.TradeType)
		}

		switch e.TradeType {
		case domain.TradeTypeBuy:
			if cfg.LotSize > 0 && e.Shares%cfg.LotSize != 0 {
				add(e.Seq, RuleLotSize, "%d shares is not a multiple of %d", e.Shares, cfg.LotSize)
			}
			held += e.Shares
			cash -= e.Price * float64(e.Shares)
			if cash < -cashTolerance {
				add(e.Seq, RuleOverspend, "cash %.4f after buying %d at %.4f", cash, e.Shares, e.Price)
			}

		case domain.TradeTypeSell:
			if e.Shares > held {
				add(e.Seq, RuleOversell, "sold %d with %d held", e.Shares, held)
				held = 0
			} else {
				held -= e.Shares
			}
			cash += e.Price * float64(e.Shares)
			if cfg.MaxHoldingDays > 0 && e.HoldingDayCount > cfg.MaxHoldingDays {
				add(e.Seq, RuleHoldingDays, "%d exceeds %d", e.HoldingDayCount, cfg.MaxHoldingDays)
			}
			if held == 0 {
				closed = true
			}
		}
	}

	if len(events) > 0 && held != 0 {
		add(events[len(events)-1].Seq, RuleNotFlat, "%d shares still held", held)
	}

	return out
}
