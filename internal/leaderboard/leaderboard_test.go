package leaderboard

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient answers info requests from canned responses keyed by request
// type, with per-user fill pages.
type stubClient struct {
	mu          sync.Mutex
	leaderboard any
	fillPages   map[string][]any
	fundingFor  map[string]any
	fillCalls   map[string]int
}

func (c *stubClient) Post(_ context.Context, body any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := body.(map[string]any)
	switch req["type"] {
	case "leaderboard":
		return json.Marshal(c.leaderboard)
	case "userFillsByTime":
		user := req["user"].(string)
		if c.fillCalls == nil {
			c.fillCalls = make(map[string]int)
		}
		page := c.fillCalls[user]
		c.fillCalls[user]++
		pages := c.fillPages[user]
		if page >= len(pages) {
			return json.Marshal([]any{})
		}
		return json.Marshal(pages[page])
	case "userFunding":
		if funding, ok := c.fundingFor[req["user"].(string)]; ok {
			delete(c.fundingFor, req["user"].(string))
			return json.Marshal(funding)
		}
		return json.Marshal([]any{})
	}
	return json.Marshal([]any{})
}

func TestFetchTopWalletsRanksByNet(t *testing.T) {
	client := &stubClient{
		leaderboard: []any{
			map[string]any{"address": "0xaaa"},
			map[string]any{"user": "0xbbb"},
		},
		fillPages: map[string][]any{
			"0xaaa": {[]any{
				map[string]any{"time": 1000, "closedPnl": "10", "fee": "1"},
			}},
			"0xbbb": {[]any{
				map[string]any{"time": 1000, "closedPnl": 50.0, "fee": 2.0, "builderFee": "0.5"},
			}},
		},
		fundingFor: map[string]any{
			"0xaaa": []any{map[string]any{"time": 1500, "funding": "3"}},
		},
	}

	end := uint64(10_000)
	params := DefaultParams()
	params.EndMsOverride = &end
	results, err := FetchTopWallets(context.Background(), client, params)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 0xbbb nets 47.5, 0xaaa nets 12; ranks follow net PnL.
	assert.Equal(t, "0xbbb", results[0].Address)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 50.0, results[0].RealizedPnL, 1e-9)
	assert.InDelta(t, 47.5, results[0].NetPnL, 1e-9)

	assert.Equal(t, "0xaaa", results[1].Address)
	assert.Equal(t, 2, results[1].Rank)
	assert.InDelta(t, 12.0, results[1].NetPnL, 1e-9)
	assert.Equal(t, Breakdown{FillsCount: 1, FundingEvents: 1, Fees: 1, Funding: 3}, results[1].Breakdown)
}

func TestFetchTopWalletsRejectsTestnet(t *testing.T) {
	params := DefaultParams()
	params.IsTestnet = true
	_, err := FetchTopWallets(context.Background(), &stubClient{}, params)
	require.ErrorIs(t, err, ErrTestnetUnsupported)
}

func TestFetchTopWalletsSkipsBrokenEntries(t *testing.T) {
	client := &stubClient{
		leaderboard: []any{
			map[string]any{"note": "no address here"},
			map[string]any{"wallet": "0xccc"},
		},
		fillPages: map[string][]any{},
	}

	end := uint64(10_000)
	params := DefaultParams()
	params.EndMsOverride = &end
	results, err := FetchTopWallets(context.Background(), client, params)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "0xccc", results[0].Address)
	assert.Zero(t, results[0].NetPnL)
}

func TestFetchTopWalletsLimitsAddresses(t *testing.T) {
	client := &stubClient{
		leaderboard: []any{
			map[string]any{"address": "0x1"},
			map[string]any{"address": "0x2"},
			map[string]any{"address": "0x3"},
		},
		fillPages: map[string][]any{},
	}

	end := uint64(10_000)
	params := DefaultParams()
	params.EndMsOverride = &end
	params.LimitAddresses = 2
	results, err := FetchTopWallets(context.Background(), client, params)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFetchPaginatedAdvancesCursor(t *testing.T) {
	client := &stubClient{
		fillPages: map[string][]any{
			"0xaaa": {
				[]any{
					map[string]any{"time": 100, "closedPnl": 1.0},
					map[string]any{"time": 200, "closedPnl": 1.0},
				},
				[]any{
					map[string]any{"time": 300, "closedPnl": 1.0},
				},
			},
		},
	}

	items, err := fetchPaginated(context.Background(), client, paginationQuery{
		requestType: "userFillsByTime",
		address:     "0xaaa",
		startMs:     0,
		endMs:       1000,
		maxPages:    10,
		softCap:     100_000,
	})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	// Two data pages plus the terminating empty page.
	assert.Equal(t, 3, client.fillCalls["0xaaa"])
}

func TestFetchPaginatedStopsAtSoftCap(t *testing.T) {
	client := &stubClient{
		fillPages: map[string][]any{
			"0xaaa": {
				[]any{
					map[string]any{"time": 100},
					map[string]any{"time": 200},
				},
				[]any{
					map[string]any{"time": 300},
				},
			},
		},
	}

	items, err := fetchPaginated(context.Background(), client, paginationQuery{
		requestType: "userFillsByTime",
		address:     "0xaaa",
		startMs:     0,
		endMs:       1000,
		maxPages:    10,
		softCap:     2,
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, client.fillCalls["0xaaa"])
}

func TestRankByNetReassignsRanks(t *testing.T) {
	results := rankByNet([]WalletResult{
		{Rank: 1, Address: "a", NetPnL: 1},
		{Rank: 2, Address: "b", NetPnL: 5},
	})
	assert.Equal(t, "b", results[0].Address)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}
