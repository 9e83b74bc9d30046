package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Package errors.
var (
	ErrTestnetUnsupported = errors.New("leaderboard analytics are mainnet only")
	ErrMissingAddress     = errors.New("missing address")
	ErrBadResponse        = errors.New("unexpected leaderboard response")
)

// Breakdown details how a wallet's net PnL was assembled.
type Breakdown struct {
	FillsCount    int     `json:"fills_count"`
	FundingEvents int     `json:"funding_events"`
	Fees          float64 `json:"fees"`
	Funding       float64 `json:"funding"`
}

// WalletResult is one analyzed leaderboard wallet.
type WalletResult struct {
	Rank            int             `json:"rank"`
	Address         string          `json:"address"`
	RealizedPnL     float64         `json:"realized_pnl"`
	NetPnL          float64         `json:"net_pnl"`
	Breakdown       Breakdown       `json:"breakdown"`
	LeaderboardStat json.RawMessage `json:"leaderboard_stat"`
}

// Params bounds the analysis.
type Params struct {
	APIURL          string
	LimitAddresses  int
	Concurrency     int
	StartMs         uint64
	EndMsOverride   *uint64
	IsTestnet       bool
	MaxFillPages    int
	MaxFundingPages int
	MaxItemsSoftCap int
	PageDelay       time.Duration
}

// DefaultParams returns production limits.
func DefaultParams() Params {
	return Params{
		APIURL:          "https://api.hyperliquid.xyz/info",
		LimitAddresses:  100,
		Concurrency:     8,
		MaxFillPages:    10_000,
		MaxFundingPages: 5_000,
		MaxItemsSoftCap: 100_000,
	}
}

// FetchTopWallets pulls the leaderboard, recomputes PnL per wallet
// concurrently, and returns results ranked by net PnL descending. Wallets
// whose history cannot be fetched are dropped.
func FetchTopWallets(ctx context.Context, client InfoAPIClient, params Params) ([]WalletResult, error) {
	if params.IsTestnet {
		return nil, ErrTestnetUnsupported
	}
	endMs := uint64(time.Now().UnixMilli())
	if params.EndMsOverride != nil {
		endMs = *params.EndMsOverride
	}
	entries, err := fetchLeaderboard(ctx, client, params)
	if err != nil {
		return nil, err
	}

	concurrency := params.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []WalletResult

	for index, entry := range entries {
		wg.Add(1)
		go func(rank int, entry json.RawMessage) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			address, err := extractAddress(entry)
			if err != nil {
				return
			}
			realized, net, breakdown, err := computeRealizedAndNet(ctx, client, params, address, params.StartMs, endMs)
			if err != nil {
				return
			}
			mu.Lock()
			results = append(results, WalletResult{
				Rank:            rank,
				Address:         address,
				RealizedPnL:     realized,
				NetPnL:          net,
				Breakdown:       breakdown,
				LeaderboardStat: entry,
			})
			mu.Unlock()
		}(index+1, entry)
	}
	wg.Wait()

	return rankByNet(results), nil
}

// rankByNet sorts by net PnL descending and reassigns ranks.
func rankByNet(results []WalletResult) []WalletResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].NetPnL > results[j].NetPnL
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func fetchLeaderboard(ctx context.Context, client InfoAPIClient, params Params) ([]json.RawMessage, error) {
	response, err := client.Post(ctx, map[string]any{"type": "leaderboard"})
	if err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(response, &entries); err != nil {
		return nil, ErrBadResponse
	}
	if params.LimitAddresses > 0 && len(entries) > params.LimitAddresses {
		entries = entries[:params.LimitAddresses]
	}
	return entries, nil
}

func computeRealizedAndNet(ctx context.Context, client InfoAPIClient, params Params, address string, startMs, endMs uint64) (float64, float64, Breakdown, error) {
	fills, err := fetchPaginated(ctx, client, paginationQuery{
		requestType: "userFillsByTime",
		address:     address,
		startMs:     startMs,
		endMs:       endMs,
		maxPages:    params.MaxFillPages,
		softCap:     params.MaxItemsSoftCap,
		pageDelay:   params.PageDelay,
	})
	if err != nil {
		return 0, 0, Breakdown{}, err
	}
	var realized, fees float64
	for _, fill := range fills {
		realized += numField(fill, "closedPnl")
		fees += numField(fill, "fee")
		fees += numField(fill, "builderFee")
	}

	fundingEvents, err := fetchPaginated(ctx, client, paginationQuery{
		requestType: "userFunding",
		address:     address,
		startMs:     startMs,
		endMs:       endMs,
		maxPages:    params.MaxFundingPages,
		softCap:     params.MaxItemsSoftCap,
		pageDelay:   params.PageDelay,
	})
	if err != nil {
		return 0, 0, Breakdown{}, err
	}
	var funding float64
	for _, event := range fundingEvents {
		funding += firstNumField(event, "funding", "amount", "value")
	}

	net := realized - fees + funding
	return realized, net, Breakdown{
		FillsCount:    len(fills),
		FundingEvents: len(fundingEvents),
		Fees:          fees,
		Funding:       funding,
	}, nil
}

type paginationQuery struct {
	requestType string
	address     string
	startMs     uint64
	endMs       uint64
	maxPages    int
	softCap     int
	pageDelay   time.Duration
}

// fetchPaginated walks a time-windowed history endpoint. The cursor
// advances past the newest timestamp of each page; an empty page, a stuck
// cursor, or the soft cap ends the walk.
func fetchPaginated(ctx context.Context, client InfoAPIClient, q paginationQuery) ([]map[string]any, error) {
	var out []map[string]any
	cursor := q.startMs
	for page := 0; page < q.maxPages; page++ {
		body := map[string]any{
			"type":      q.requestType,
			"user":      q.address,
			"startTime": cursor,
			"endTime":   q.endMs,
		}
		chunk, err := client.Post(ctx, body)
		if err != nil {
			return nil, err
		}
		var items []map[string]any
		if err := json.Unmarshal(chunk, &items); err != nil {
			items = nil
		}
		if len(items) == 0 {
			break
		}
		maxTs := cursor
		for _, item := range items {
			if ts := timeField(item); ts > maxTs {
				maxTs = ts
			}
		}
		out = append(out, items...)
		if len(out) >= q.softCap {
			break
		}
		if maxTs <= cursor {
			break
		}
		cursor = maxTs + 1
		if q.pageDelay > 0 {
			jitter := time.Duration(page%10) * 5 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(q.pageDelay + jitter):
			}
		}
	}
	return out, nil
}

func extractAddress(entry json.RawMessage) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal(entry, &obj); err != nil {
		return "", fmt.Errorf("decode leaderboard entry: %w", err)
	}
	for _, key := range []string{"address", "user", "wallet"} {
		if addr, ok := obj[key].(string); ok && addr != "" {
			return addr, nil
		}
	}
	return "", ErrMissingAddress
}

func timeField(item map[string]any) uint64 {
	switch v := item["time"].(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return uint64(n)
		}
	}
	return 0
}

// numField reads a numeric field that the venue serializes either as a
// number or a string.
func numField(item map[string]any, key string) float64 {
	switch v := item[key].(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func firstNumField(item map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if _, ok := item[key]; ok {
			return numField(item, key)
		}
	}
	return 0
}
