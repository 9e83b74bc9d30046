package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"hyperliquid-grid-bot/internal/backtest"
	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/observability"
	"hyperliquid-grid-bot/internal/reporting"
	"hyperliquid-grid-bot/internal/storage"
	chstore "hyperliquid-grid-bot/internal/storage/clickhouse"
	"hyperliquid-grid-bot/internal/storage/memory"
	"hyperliquid-grid-bot/internal/storage/migrations"
	pgstore "hyperliquid-grid-bot/internal/storage/postgres"
)

func main() {
	// Inputs
	configPath := flag.String("config", "", "Bot configuration file (required)")
	samplesPath := flag.String("samples", "", "CSV file of timestamp_ms,price rows")
	initialCash := flag.Float64("cash", 10000, "Initial cash in USD")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for run persistence")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for price samples")
	fromMs := flag.Int64("from-ms", 0, "Load samples from ClickHouse starting at this timestamp (ms)")
	toMs := flag.Int64("to-ms", 0, "Load samples from ClickHouse up to this timestamp (ms)")
	persistResult := flag.Bool("persist", false, "Persist run summary and trades")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	outputCSV := flag.Bool("csv", false, "Output trade log as CSV")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}
	if *samplesPath == "" && *clickhouseDSN == "" {
		logger.Fatal("either --samples or --clickhouse-dsn is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load configuration: %v", err)
	}

	ctx := context.Background()

	samples, err := loadSamples(ctx, logger, cfg.Grid.Symbol, *samplesPath, *clickhouseDSN, *fromMs, *toMs)
	if err != nil {
		logger.Fatalf("load samples: %v", err)
	}

	logger.Printf("Running backtest: config=%s symbol=%s samples=%d cash=%.2f",
		cfg.Name, cfg.Grid.Symbol, len(samples), *initialCash)

	started := time.Now().UTC()
	result, err := backtest.Run(cfg, *initialCash, samples)
	finished := time.Now().UTC()
	if err != nil {
		observability.RecordBacktestRun("error", finished.Sub(started).Seconds(), 0)
		logger.Fatalf("backtest failed: %v", err)
	}
	observability.RecordBacktestRun("ok", finished.Sub(started).Seconds(), len(result.Trades))

	report := reporting.NewGenerator().Generate(cfg, *initialCash, samples, result)

	if *persistResult {
		if err := persistRun(ctx, logger, *postgresDSN, report, result, started, finished); err != nil {
			logger.Fatalf("persist run: %v", err)
		}
		logger.Printf("Persisted run %s", report.Summary.RunID)
	}

	switch {
	case *outputJSON:
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	case *outputCSV:
		fmt.Print(reporting.RenderCSV(report.Trades))
	default:
		fmt.Print(reporting.RenderMarkdown(report))
	}
}

// loadSamples reads the price series from a CSV file or from ClickHouse.
func loadSamples(ctx context.Context, logger *log.Logger, symbol, path, dsn string, fromMs, toMs int64) ([]domain.PriceSample, error) {
	if path != "" {
		return readSamplesCSV(path)
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	store := chstore.NewPricePointStore(conn)
	var points []*domain.PricePoint
	if fromMs != 0 || toMs != 0 {
		points, err = store.GetByTimeRange(ctx, symbol, fromMs, toMs)
	} else {
		points, err = store.GetBySymbol(ctx, symbol)
	}
	if err != nil {
		return nil, err
	}

	logger.Printf("Loaded %d points for %s from ClickHouse", len(points), symbol)
	samples := make([]domain.PriceSample, 0, len(points))
	for _, p := range points {
		samples = append(samples, p.Sample())
	}
	return samples, nil
}

// readSamplesCSV parses timestamp_ms,price rows. A header line is skipped.
func readSamplesCSV(path string) ([]domain.PriceSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples file: %w", err)
	}
	defer f.Close()

	var samples []domain.PriceSample
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected timestamp_ms,price", line)
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: parse timestamp: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse price: %w", line, err)
		}
		samples = append(samples, domain.NewPriceSample(time.UnixMilli(ts).UTC(), price))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read samples file: %w", err)
	}
	return samples, nil
}

// persistRun stores the run summary and its trades. Without a Postgres DSN
// the run is kept in memory only, which is useful for dry runs.
func persistRun(ctx context.Context, logger *log.Logger, dsn string, report *reporting.Report, result *backtest.Result, started, finished time.Time) error {
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()
	var tradeStore storage.RunTradeStore = memory.NewRunTradeStore()

	if dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		runStore = pgstore.NewBacktestRunStore(pool)
		tradeStore = pgstore.NewRunTradeStore(pool)
	} else {
		logger.Print("No --postgres-dsn given, persisting to memory only")
	}

	run := reporting.ToRun(report, started, finished)
	if err := runStore.Insert(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Printf("Run %s already persisted, skipping", run.RunID)
			return nil
		}
		return err
	}
	return tradeStore.InsertBulk(ctx, reporting.ToRunTrades(run.RunID, result.Trades))
}
