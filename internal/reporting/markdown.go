package reporting

import (
	"fmt"
	"strings"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Breakout Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.StrategyID != "" {
		sb.WriteString(fmt.Sprintf("Strategy: `%s`\n\n", r.StrategyID))
	}
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Candidates | %d |\n", r.Summary.Candidates))
	sb.WriteString(fmt.Sprintf("| Episodes | %d |\n", r.Summary.Episodes))
	sb.WriteString(fmt.Sprintf("| Skipped | %d |\n", r.Summary.Skipped))
	sb.WriteString(fmt.Sprintf("| Stocks | %d |\n", r.Summary.Stocks))
	sb.WriteString(fmt.Sprintf("| Trade Events | %d |\n", r.Summary.Events))
	sb.WriteString("\n")

	// Ledger
	sb.WriteString("## Ledger\n\n")
	if len(r.Ledger.Rows) > 0 {
		sb.WriteString("| Code | Name | Episodes | Init Cash | Bought | Last Sell | Shares Held | Cost | Cash | Market Value | Profit | Profit % | Hold Days | Flag |\n")
		sb.WriteString("|------|------|----------|-----------|--------|-----------|-------------|------|------|--------------|--------|----------|-----------|------|\n")
		for _, row := range r.Ledger.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %d | %s | %s | %s | %s | %s | %d | %s |\n",
				row.StockCode, escapeCell(row.StockName), row.Episodes,
				formatMoney(row.InitCash), formatDate(row.BoughtDate), formatDatePtr(row.TradeDate),
				row.SharesHeld, formatPrice(row.CostPrice), formatMoney(row.CashRemaining),
				formatMoney(row.MarketValue), formatMoney(row.Profit), formatPercent(row.ProfitPercent),
				row.HoldingDays, domain.ProfitFlag(row.Profit)))
		}
		sb.WriteString("\n")
		renderTotal(&sb, r.Ledger.Total)
	} else {
		sb.WriteString("No ledger rows available.\n")
	}
	sb.WriteString("\n")

	// Exit Reasons
	sb.WriteString("## Exit Reasons\n\n")
	if len(r.ExitReasons) > 0 {
		sb.WriteString("| Reason | Episodes |\n")
		sb.WriteString("|--------|----------|\n")
		for _, e := range r.ExitReasons {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", e.Reason, e.Count))
		}
	} else {
		sb.WriteString("No closed episodes.\n")
	}
	sb.WriteString("\n")

	// Episode Statistics
	if r.Stats.Episodes > 0 {
		renderStats(&sb, r.Stats)
	}

	// Diagnostics (always shown if present)
	if len(r.Skips) > 0 || len(r.MissingCandidates) > 0 {
		sb.WriteString("## Diagnostics\n\n")
		for _, s := range r.Skips {
			sb.WriteString(fmt.Sprintf("- skipped %s %s: %s\n", s.StockCode, shortID(s.CandidateID), s.Reason))
		}
		for _, m := range r.MissingCandidates {
			sb.WriteString(fmt.Sprintf("- %s\n", m))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderTotal writes the portfolio total as its own table.
func renderTotal(sb *strings.Builder, t domain.PortfolioTotal) {
	sb.WriteString("### Portfolio Total\n\n")
	sb.WriteString("| Stocks | Init Cash | Cash | Market Value | Profit | Profit % | Flag |\n")
	sb.WriteString("|--------|-----------|------|--------------|--------|----------|------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s |\n",
		t.Stocks, formatMoney(t.InitCash), formatMoney(t.CashRemaining),
		formatMoney(t.MarketValue), formatMoney(t.Profit), formatPercent(t.ProfitPercent),
		domain.ProfitFlag(t.Profit)))
}

// renderStats writes the episode return distribution.
func renderStats(sb *strings.Builder, s metrics.Stats) {
	sb.WriteString("## Episode Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Win Rate | %s (%d/%d) |\n", formatPercent(s.WinRate), s.Wins, s.Episodes))
	sb.WriteString(fmt.Sprintf("| Stock Win Rate | %s (%d stocks) |\n", formatPercent(s.StockWinRate), s.Stocks))
	sb.WriteString(fmt.Sprintf("| Mean Return | %s |\n", formatPercent(s.ReturnMean)))
	sb.WriteString(fmt.Sprintf("| Median Return | %s |\n", formatPercent(s.ReturnMedian)))
	sb.WriteString(fmt.Sprintf("| P10 / P90 | %s / %s |\n", formatPercent(s.ReturnP10), formatPercent(s.ReturnP90)))
	sb.WriteString(fmt.Sprintf("| Min / Max | %s / %s |\n", formatPercent(s.ReturnMin), formatPercent(s.ReturnMax)))
	sb.WriteString(fmt.Sprintf("| Stddev | %s |\n", formatPercent(s.ReturnStddev)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", formatPercent(s.MaxDrawdown)))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// shortID trims a 64-char hash for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
