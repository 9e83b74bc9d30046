package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hyperliquid-grid-bot/internal/leaderboard"
)

func main() {
	limit := flag.Int("limit", 100, "Maximum number of wallets to analyze")
	concurrency := flag.Int("concurrency", 8, "Concurrent wallet fetches")
	startMs := flag.Uint64("start-ms", 0, "History window start (ms since epoch)")
	endMs := flag.Uint64("end-ms", 0, "History window end (ms since epoch, 0 = now)")
	pageDelay := flag.Duration("page-delay", 0, "Delay between history pages")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[leaderboard] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting...", sig)
		cancel()
	}()

	params := leaderboard.DefaultParams()
	params.LimitAddresses = *limit
	params.Concurrency = *concurrency
	params.StartMs = *startMs
	params.PageDelay = *pageDelay
	if *endMs != 0 {
		params.EndMsOverride = endMs
	}

	client := leaderboard.NewHTTPInfoClient(params.APIURL)

	logger.Printf("Analyzing top %d wallets", *limit)
	started := time.Now()
	results, err := leaderboard.FetchTopWallets(ctx, client, params)
	if err != nil {
		logger.Fatalf("fetch leaderboard: %v", err)
	}
	logger.Printf("Analyzed %d wallets in %s", len(results), time.Since(started).Round(time.Millisecond))

	if *outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("%-5s %-44s %16s %16s %10s %8s\n",
		"RANK", "ADDRESS", "REALIZED PNL", "NET PNL", "FILLS", "FUNDING")
	for _, r := range results {
		fmt.Printf("%-5d %-44s %16.2f %16.2f %10d %8d\n",
			r.Rank, r.Address, r.RealizedPnL, r.NetPnL,
			r.Breakdown.FillsCount, r.Breakdown.FundingEvents)
	}
}
