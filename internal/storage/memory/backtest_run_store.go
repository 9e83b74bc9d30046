package memory

import (
	"context"
	"sort"
	"sync"

	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/storage"
)

// BacktestRunStore is an in-memory implementation of storage.BacktestRunStore.
type BacktestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestRun // keyed by run_id
}

// NewBacktestRunStore creates a new in-memory backtest run store.
func NewBacktestRunStore() *BacktestRunStore {
	return &BacktestRunStore{
		data: make(map[string]*domain.BacktestRun),
	}
}

var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(_ context.Context, r *domain.BacktestRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.RunID] = &copy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(_ context.Context, runID string) (*domain.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByConfig retrieves all runs for a config name, ordered by started_at ASC.
func (s *BacktestRunStore) GetByConfig(_ context.Context, configName string) ([]*domain.BacktestRun, error) {
	return s.filter(func(r *domain.BacktestRun) bool { return r.ConfigName == configName }), nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by started_at ASC.
func (s *BacktestRunStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.BacktestRun, error) {
	return s.filter(func(r *domain.BacktestRun) bool { return r.Symbol == symbol }), nil
}

func (s *BacktestRunStore) filter(keep func(*domain.BacktestRun) bool) []*domain.BacktestRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestRun
	for _, r := range s.data {
		if keep(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].RunID < result[j].RunID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})

	return result
}
