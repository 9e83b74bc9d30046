package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const backtestRunColumns = `
	run_id, config_name, symbol,
	initial_cash, final_value, final_cash, final_position,
	sample_count, trade_count,
	started_at, finished_at
`

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, r *domain.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (` + backtestRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.ConfigName, r.Symbol,
		r.InitialCash, r.FinalValue, r.Cash, r.Position,
		r.SampleCount, r.TradeCount,
		r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `
		SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanBacktestRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetByConfig retrieves all runs for a config name, ordered by started_at ASC.
func (s *BacktestRunStore) GetByConfig(ctx context.Context, configName string) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE config_name = $1
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, configName)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by config: %w", err)
	}
	defer rows.Close()

	return scanBacktestRuns(rows)
}

// GetBySymbol retrieves all runs for a symbol, ordered by started_at ASC.
func (s *BacktestRunStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE symbol = $1
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by symbol: %w", err)
	}
	defer rows.Close()

	return scanBacktestRuns(rows)
}

// scanBacktestRun scans a single row into a BacktestRun.
func scanBacktestRun(row pgx.Row) (*domain.BacktestRun, error) {
	var r domain.BacktestRun

	err := row.Scan(
		&r.RunID, &r.ConfigName, &r.Symbol,
		&r.InitialCash, &r.FinalValue, &r.Cash, &r.Position,
		&r.SampleCount, &r.TradeCount,
		&r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanBacktestRuns scans multiple rows into a slice of BacktestRun.
func scanBacktestRuns(rows pgx.Rows) ([]*domain.BacktestRun, error) {
	var runs []*domain.BacktestRun

	for rows.Next() {
		r, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}
