// Package engine wires strategy, risk, market data and the venue adapter
// into the live trading loop.
package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/events"
	"hyperliquid-grid-bot/internal/exchange"
	"hyperliquid-grid-bot/internal/marketdata"
	"hyperliquid-grid-bot/internal/risk"
	"hyperliquid-grid-bot/internal/strategy"
)

// stats tracks execution counters behind one mutex.
type stats struct {
	mu             sync.Mutex
	executedTrades int
	totalPnL       float64
	pendingOrders  map[string]domain.Order
}

// TradingEngine runs one bot: it subscribes to price updates, evaluates
// risk, and routes strategy signals to the venue.
type TradingEngine struct {
	cfg      *config.BotConfig
	strategy strategy.Strategy
	adapter  exchange.Adapter
	provider marketdata.Provider
	risks    *risk.Manager
	bus      *events.Bus
	logger   *log.Logger

	strategyMu sync.Mutex
	stats      stats
	running    atomic.Bool
}

// Options bundles the engine's collaborators.
type Options struct {
	Config   *config.BotConfig
	Adapter  exchange.Adapter
	Provider marketdata.Provider
	Bus      *events.Bus
	Logger   *log.Logger
}

// New creates an engine from options. The strategy and risk manager are
// built from the configuration.
func New(opts Options) (*TradingEngine, error) {
	strat, err := strategy.FromConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	e := &TradingEngine{
		cfg:      opts.Config,
		strategy: strat,
		adapter:  opts.Adapter,
		provider: opts.Provider,
		risks:    risk.NewManager(opts.Config),
		bus:      bus,
		logger:   logger,
	}
	e.stats.pendingOrders = make(map[string]domain.Order)
	return e, nil
}

// Initialize connects the venue adapter and the market data provider.
func (e *TradingEngine) Initialize(ctx context.Context) error {
	if err := e.adapter.Connect(ctx); err != nil {
		return err
	}
	return e.provider.Connect(ctx)
}

// Start begins processing price updates. Starting a running engine is a
// no-op.
func (e *TradingEngine) Start(ctx context.Context) error {
	if e.running.Swap(true) {
		return nil
	}
	e.strategyMu.Lock()
	e.strategy.Start()
	e.strategyMu.Unlock()

	symbol := e.cfg.Grid.Symbol
	return e.provider.Subscribe(ctx, symbol, func(md domain.MarketData) {
		if !e.running.Load() {
			return
		}
		if err := e.handlePriceUpdate(context.Background(), md); err != nil {
			e.logger.Printf("price update for %s failed: %v", md.Asset, err)
			e.bus.Emit(events.NewEvent(events.Error, "engine", map[string]any{
				"error": err.Error(),
			}))
		}
	})
}

// Stop halts processing and disconnects.
func (e *TradingEngine) Stop(ctx context.Context) error {
	e.running.Store(false)
	e.strategyMu.Lock()
	e.strategy.Stop()
	e.strategyMu.Unlock()
	if err := e.provider.Disconnect(ctx); err != nil {
		return err
	}
	return e.adapter.Disconnect(ctx)
}

// handlePriceUpdate runs one tick: snapshot account state, generate
// signals, evaluate risk, act on risk events, then execute signals.
func (e *TradingEngine) handlePriceUpdate(ctx context.Context, md domain.MarketData) error {
	positions, err := e.adapter.Positions(ctx)
	if err != nil {
		return err
	}
	balance, err := e.adapter.Balance(ctx, "USD")
	if err != nil {
		return err
	}

	e.strategyMu.Lock()
	signals, err := e.strategy.GenerateSignals(&md, positions, balance.Available)
	e.strategyMu.Unlock()
	if err != nil {
		return err
	}

	metricsMap, err := e.adapter.AccountMetrics(ctx)
	if err != nil {
		return err
	}
	metrics := risk.MetricsFromMap(metricsMap)
	riskEvents := e.risks.Evaluate(positions, &md, &metrics)
	for _, event := range riskEvents {
		if err := e.executeRiskAction(ctx, event); err != nil {
			return err
		}
	}

	for _, signal := range signals {
		if err := e.executeSignal(ctx, signal); err != nil {
			return err
		}
	}
	return nil
}

// executeRiskAction applies one risk mitigation against the venue.
// PauseTrading only latches the manager flag; the event is still
// published.
func (e *TradingEngine) executeRiskAction(ctx context.Context, event risk.Event) error {
	switch event.Action {
	case risk.ActionClosePosition:
		if _, err := e.adapter.ClosePosition(ctx, event.Asset, nil); err != nil {
			return err
		}
	case risk.ActionReducePosition:
		half := 0.5
		if _, err := e.adapter.ClosePosition(ctx, event.Asset, &half); err != nil {
			return err
		}
	case risk.ActionCancelOrders:
		if _, err := e.adapter.CancelAllOrders(ctx); err != nil {
			return err
		}
	case risk.ActionEmergencyExit:
		if _, err := e.adapter.CancelAllOrders(ctx); err != nil {
			return err
		}
		positions, err := e.adapter.Positions(ctx)
		if err != nil {
			return err
		}
		for _, position := range positions {
			if _, err := e.adapter.ClosePosition(ctx, position.Asset, nil); err != nil {
				return err
			}
		}
	case risk.ActionPauseTrading, risk.ActionNone:
	}

	e.logger.Printf("risk rule %s fired: %s", event.RuleName, event.Reason)
	e.bus.Emit(events.NewEvent(events.System, "risk", map[string]any{
		"rule":   event.RuleName,
		"action": string(event.Action),
		"reason": event.Reason,
	}))
	return nil
}

// executeSignal routes one strategy signal to the venue.
func (e *TradingEngine) executeSignal(ctx context.Context, signal domain.TradingSignal) error {
	switch signal.Type {
	case domain.SignalBuy, domain.SignalSell:
		side := domain.SideBuy
		if signal.Type == domain.SignalSell {
			side = domain.SideSell
		}
		orderType := domain.OrderMarket
		if signal.Price != nil {
			orderType = domain.OrderLimit
		}
		order := domain.NewLocalOrder(signal.Asset, side, signal.Size, orderType, signal.Price)
		placed, err := e.adapter.PlaceOrder(ctx, order)
		if err != nil {
			return err
		}

		e.strategyMu.Lock()
		err = e.strategy.OnTradeExecuted(&signal, placed.AverageFillPrice, placed.FilledSize)
		e.strategyMu.Unlock()
		if err != nil {
			return err
		}

		e.stats.mu.Lock()
		e.stats.executedTrades++
		e.stats.pendingOrders[placed.ID] = placed
		e.stats.mu.Unlock()

		e.bus.Emit(events.NewEvent(events.OrderPlaced, "engine", map[string]any{
			"order_id": placed.ID,
			"asset":    placed.Asset,
			"side":     string(placed.Side),
			"size":     placed.Size,
			"price":    placed.AverageFillPrice,
		}))
	case domain.SignalClose:
		if signal.IsCancelAll() {
			if _, err := e.adapter.CancelAllOrders(ctx); err != nil {
				return err
			}
		}
	case domain.SignalHold:
	}
	return nil
}

// Status returns a snapshot of the engine and strategy state.
func (e *TradingEngine) Status() map[string]any {
	e.strategyMu.Lock()
	strategyStatus := e.strategy.Status()
	e.strategyMu.Unlock()

	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	return map[string]any{
		"running":         e.running.Load(),
		"strategy":        strategyStatus,
		"executed_trades": e.stats.executedTrades,
		"pending_orders":  len(e.stats.pendingOrders),
		"total_pnl":       e.stats.totalPnL,
	}
}

// EventBus exposes the engine's bus for external subscribers.
func (e *TradingEngine) EventBus() *events.Bus { return e.bus }

// TradingPaused reports whether risk evaluation has paused trading.
func (e *TradingEngine) TradingPaused() bool { return e.risks.TradingPaused() }
