package domain

import "time"

// BacktestRun is a persisted summary of one backtest execution.
// Corresponds to the backtest_runs table.
type BacktestRun struct {
	RunID       string // deterministic hash
	ConfigName  string
	Symbol      string
	InitialCash float64
	FinalValue  float64
	Cash        float64
	Position    float64
	SampleCount int
	TradeCount  int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RunTrade is one fill belonging to a persisted backtest run. Seq preserves
// execution order within the run.
type RunTrade struct {
	RunID string
	Seq   int
	TradeExecution
}
