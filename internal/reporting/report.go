package reporting

import "time"

// Report summarizes one backtest run for human review.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	ConfigName  string
	Symbol      string

	// Run Summary
	Summary RunSummary

	// Trades in execution order
	Trades []TradeRow
}

// RunSummary contains the account outcome of the run.
type RunSummary struct {
	RunID       string
	InitialCash float64
	FinalValue  float64
	ReturnPct   float64 // (final - initial) / initial * 100, 0 if initial == 0
	Cash        float64
	Position    float64
	SampleCount int
	TradeCount  int
	BuyCount    int
	SellCount   int
}

// TradeRow represents one executed trade in the report.
type TradeRow struct {
	Seq       int
	Timestamp time.Time
	Side      string
	Price     float64
	Size      float64
	Value     float64 // price * size
}
