package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/storage"
)

func sampleRun(runID string) *domain.BacktestRun {
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.BacktestRun{
		RunID:       runID,
		ConfigName:  "btc-grid",
		Symbol:      "BTC",
		InitialCash: 5000,
		FinalValue:  5327.76,
		Cash:        4000,
		Position:    12.07,
		SampleCount: 5,
		TradeCount:  3,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
	}
}

func TestBacktestRunStoreInsertAndGet(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	run := sampleRun("run-1")
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	// Mutating the stored copy must not affect later reads.
	got.FinalValue = 0
	again, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5327.76, again.FinalValue)
}

func TestBacktestRunStoreDuplicateID(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run-1")))
	err := store.Insert(ctx, sampleRun("run-1"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBacktestRunStoreInvalidInput(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.BacktestRun{}), storage.ErrInvalidInput)
}

func TestBacktestRunStoreNotFound(t *testing.T) {
	store := NewBacktestRunStore()

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestRunStoreGetByConfigOrdersByStart(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	later := sampleRun("run-later")
	later.StartedAt = later.StartedAt.Add(time.Hour)
	require.NoError(t, store.Insert(ctx, later))
	require.NoError(t, store.Insert(ctx, sampleRun("run-earlier")))

	other := sampleRun("run-other")
	other.ConfigName = "eth-grid"
	require.NoError(t, store.Insert(ctx, other))

	runs, err := store.GetByConfig(ctx, "btc-grid")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-earlier", runs[0].RunID)
	assert.Equal(t, "run-later", runs[1].RunID)
}

func TestBacktestRunStoreGetBySymbol(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run-btc")))
	eth := sampleRun("run-eth")
	eth.Symbol = "ETH"
	require.NoError(t, store.Insert(ctx, eth))

	runs, err := store.GetBySymbol(ctx, "ETH")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-eth", runs[0].RunID)
}
