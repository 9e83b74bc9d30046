package strategy

import (
	"hyperliquid-grid-bot/internal/domain"
)

// Strategy produces trading signals from market data ticks.
type Strategy interface {
	// GenerateSignals runs the strategy on one market data tick.
	// Signal order is deterministic for identical inputs.
	GenerateSignals(md *domain.MarketData, positions []domain.Position, balance float64) ([]domain.TradingSignal, error)

	// OnTradeExecuted notifies the strategy that one of its signals filled.
	OnTradeExecuted(signal *domain.TradingSignal, executedPrice, executedSize float64) error

	// Name returns the strategy identifier.
	Name() string

	// Start marks the strategy active.
	Start()

	// Stop marks the strategy inactive. A stopped strategy emits no signals.
	Stop()

	// Status returns a snapshot of internal state for reporting.
	Status() map[string]any
}
