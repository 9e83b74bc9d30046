package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Config: %s | Symbol: %s\n\n", r.ConfigName, r.Symbol))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Summary.RunID))
	sb.WriteString(fmt.Sprintf("| Initial Cash | %.2f |\n", r.Summary.InitialCash))
	sb.WriteString(fmt.Sprintf("| Final Value | %.6f |\n", r.Summary.FinalValue))
	sb.WriteString(fmt.Sprintf("| Return | %.4f%% |\n", r.Summary.ReturnPct))
	sb.WriteString(fmt.Sprintf("| Final Cash | %.6f |\n", r.Summary.Cash))
	sb.WriteString(fmt.Sprintf("| Final Position | %.6f |\n", r.Summary.Position))
	sb.WriteString(fmt.Sprintf("| Price Samples | %d |\n", r.Summary.SampleCount))
	sb.WriteString(fmt.Sprintf("| Trades | %d (%d buys, %d sells) |\n",
		r.Summary.TradeCount, r.Summary.BuyCount, r.Summary.SellCount))
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Seq | Timestamp | Side | Price | Size | Value |\n")
		sb.WriteString("|-----|-----------|------|-------|------|-------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.6f | %.6f | %.6f |\n",
				t.Seq, t.Timestamp.UTC().Format(time.RFC3339), t.Side,
				t.Price, t.Size, t.Value))
		}
	} else {
		sb.WriteString("No trades executed.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
