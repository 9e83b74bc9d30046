package memory

import (
	"context"
	"sort"
	"sync"

	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/storage"
)

// RunTradeStore is an in-memory implementation of storage.RunTradeStore.
type RunTradeStore struct {
	mu   sync.RWMutex
	data map[runTradeKey]*domain.RunTrade
}

type runTradeKey struct {
	runID string
	seq   int
}

// NewRunTradeStore creates a new in-memory run trade store.
func NewRunTradeStore() *RunTradeStore {
	return &RunTradeStore{
		data: make(map[runTradeKey]*domain.RunTrade),
	}
}

var _ storage.RunTradeStore = (*RunTradeStore)(nil)

// InsertBulk adds multiple trades atomically. Fails entire batch on
// duplicate (run_id, seq).
func (s *RunTradeStore) InsertBulk(_ context.Context, trades []*domain.RunTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[runTradeKey]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := runTradeKey{t.RunID, t.Seq}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, t := range trades {
		copy := *t
		s.data[runTradeKey{t.RunID, t.Seq}] = &copy
	}

	return nil
}

// GetByRunID retrieves all trades for a run, ordered by seq ASC.
func (s *RunTradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.RunTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunTrade
	for _, t := range s.data {
		if t.RunID == runID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}
