package storage

import (
	"context"

	"hyperliquid-grid-bot/internal/domain"
)

// BacktestRunStore provides access to backtest_runs storage.
type BacktestRunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByConfig retrieves all runs for a config name, ordered by started_at ASC.
	GetByConfig(ctx context.Context, configName string) ([]*domain.BacktestRun, error)

	// GetBySymbol retrieves all runs for a symbol, ordered by started_at ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRun, error)
}

// RunTradeStore provides access to run_trades storage.
type RunTradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on
	// duplicate (run_id, seq).
	InsertBulk(ctx context.Context, trades []*domain.RunTrade) error

	// GetByRunID retrieves all trades for a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.RunTrade, error)
}

// PricePointStore provides access to price_points storage.
type PricePointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error)
}
