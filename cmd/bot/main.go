package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/engine"
	"hyperliquid-grid-bot/internal/events"
	"hyperliquid-grid-bot/internal/exchange"
	"hyperliquid-grid-bot/internal/keys"
	"hyperliquid-grid-bot/internal/marketdata"
	"hyperliquid-grid-bot/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "Bot configuration file (required)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	flag.Parse()

	logger := log.New(os.Stderr, "[bot] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load configuration: %v", err)
	}
	if !cfg.Active {
		logger.Fatalf("bot %q is not active", cfg.Name)
	}

	testnet := cfg.Exchange.IsTestnet()
	network := "mainnet"
	if testnet {
		network = "testnet"
	}
	logger.Printf("Starting bot %s: symbol=%s network=%s", cfg.Name, cfg.Grid.Symbol, network)

	// Key resolution is reported but not required for paper trading.
	keyInfo := keys.NewManager().KeyInfo(testnet, nil)
	if keyInfo.KeyFound {
		logger.Printf("Private key resolved from %s", keyInfo.KeySource)
	} else {
		logger.Printf("No private key found (%s), running in paper mode", keyInfo.Error)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Venue prices come from the info API; fills are simulated locally.
	info := exchange.NewInfoClient(testnet)
	adapter := exchange.NewPaperAdapter(info, testnet)

	endpoints := exchange.NewEndpoints(testnet)
	provider := marketdata.NewWSProvider(endpoints.WebSocket, nil)

	e, err := engine.New(engine.Options{
		Config:   cfg,
		Adapter:  adapter,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("build engine: %v", err)
	}

	wireMetrics(e.EventBus())

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		logger.Printf("Metrics listening on %s", *metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server: %v", err)
		}
	}()

	if err := e.Initialize(ctx); err != nil {
		logger.Fatalf("initialize engine: %v", err)
	}
	if err := e.Start(ctx); err != nil {
		logger.Fatalf("start engine: %v", err)
	}
	logger.Print("Engine running")

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Stop(shutdownCtx); err != nil {
		logger.Printf("stop engine: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("stop metrics server: %v", err)
	}
	logger.Print("Shutdown complete")
}

// wireMetrics forwards engine events to Prometheus counters.
func wireMetrics(bus *events.Bus) {
	bus.Subscribe(events.OrderPlaced, func(ev events.Event) {
		side, _ := ev.Data["side"].(string)
		observability.RecordOrderPlaced(side)
	})
	bus.Subscribe(events.System, func(ev events.Event) {
		rule, _ := ev.Data["rule"].(string)
		action, _ := ev.Data["action"].(string)
		if rule != "" {
			observability.RecordRiskEvent(rule, action)
		}
	})
	bus.Subscribe(events.Error, func(events.Event) {
		observability.DefaultMetrics.TickErrors.Inc()
	})
}
