// Package reporting turns backtest results into Markdown and CSV reports.
package reporting

import (
	"time"

	"hyperliquid-grid-bot/internal/backtest"
	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/idhash"
)

// Generator produces reports from backtest results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report for one backtest run.
func (g *Generator) Generate(cfg *config.BotConfig, initialCash float64, samples []domain.PriceSample, result *backtest.Result) *Report {
	summary := RunSummary{
		RunID:       RunID(cfg, initialCash, samples),
		InitialCash: initialCash,
		FinalValue:  result.FinalValue,
		Cash:        result.Cash,
		Position:    result.Position,
		SampleCount: len(samples),
		TradeCount:  len(result.Trades),
	}
	if initialCash != 0 {
		summary.ReturnPct = (result.FinalValue - initialCash) / initialCash * 100
	}

	trades := make([]TradeRow, 0, len(result.Trades))
	for i, t := range result.Trades {
		if t.Side == domain.SideBuy {
			summary.BuyCount++
		} else {
			summary.SellCount++
		}
		trades = append(trades, TradeRow{
			Seq:       i,
			Timestamp: t.Timestamp,
			Side:      string(t.Side),
			Price:     t.Price,
			Size:      t.Size,
			Value:     t.Price * t.Size,
		})
	}

	return &Report{
		GeneratedAt: g.now(),
		ConfigName:  cfg.Name,
		Symbol:      cfg.Grid.Symbol,
		Summary:     summary,
		Trades:      trades,
	}
}

// RunID computes the deterministic identifier for a run over the given
// inputs. Runs over identical inputs share an ID.
func RunID(cfg *config.BotConfig, initialCash float64, samples []domain.PriceSample) string {
	var firstTs, lastTs int64
	if len(samples) > 0 {
		firstTs = samples[0].Timestamp.UnixMilli()
		lastTs = samples[len(samples)-1].Timestamp.UnixMilli()
	}
	return idhash.ComputeRunID(cfg.Name, cfg.Grid.Symbol, initialCash, len(samples), firstTs, lastTs)
}

// ToRun converts a generated report into the persisted run summary.
func ToRun(r *Report, startedAt, finishedAt time.Time) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:       r.Summary.RunID,
		ConfigName:  r.ConfigName,
		Symbol:      r.Symbol,
		InitialCash: r.Summary.InitialCash,
		FinalValue:  r.Summary.FinalValue,
		Cash:        r.Summary.Cash,
		Position:    r.Summary.Position,
		SampleCount: r.Summary.SampleCount,
		TradeCount:  r.Summary.TradeCount,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
}

// ToRunTrades converts a result's fills into persisted rows for a run.
func ToRunTrades(runID string, trades []domain.TradeExecution) []*domain.RunTrade {
	out := make([]*domain.RunTrade, 0, len(trades))
	for i, t := range trades {
		out = append(out, &domain.RunTrade{RunID: runID, Seq: i, TradeExecution: t})
	}
	return out
}
