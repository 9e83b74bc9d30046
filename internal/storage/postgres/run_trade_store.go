package postgres

import (
	"context"
	"fmt"

	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/storage"
)

// RunTradeStore implements storage.RunTradeStore using PostgreSQL.
type RunTradeStore struct {
	pool *Pool
}

// NewRunTradeStore creates a new RunTradeStore.
func NewRunTradeStore(pool *Pool) *RunTradeStore {
	return &RunTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunTradeStore = (*RunTradeStore)(nil)

// InsertBulk adds multiple trades atomically. Fails entire batch on
// duplicate (run_id, seq).
func (s *RunTradeStore) InsertBulk(ctx context.Context, trades []*domain.RunTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO run_trades (run_id, seq, executed_at, price, size, side)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.RunID, t.Seq, t.Timestamp, t.Price, t.Size, string(t.Side),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert run trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades for a run, ordered by seq ASC.
func (s *RunTradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.RunTrade, error) {
	query := `
		SELECT run_id, seq, executed_at, price, size, side
		FROM run_trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get run trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.RunTrade
	for rows.Next() {
		var t domain.RunTrade
		var side string

		err := rows.Scan(&t.RunID, &t.Seq, &t.Timestamp, &t.Price, &t.Size, &side)
		if err != nil {
			return nil, fmt.Errorf("scan run trade row: %w", err)
		}

		t.Side = domain.OrderSide(side)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run trade rows: %w", err)
	}

	return trades, nil
}
