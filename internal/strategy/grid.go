package strategy

import (
	"fmt"
	"math"
	"time"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
)

// gridState is the lifecycle phase of the grid.
type gridState int

const (
	stateInitializing gridState = iota
	stateActive
	stateRebalancing
	stateStopped
)

func (s gridState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateActive:
		return "active"
	case stateRebalancing:
		return "rebalancing"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// GridLevel is one rung of the ladder.
type GridLevel struct {
	Price  float64
	Size   float64
	Index  int
	IsBuy  bool
	Filled bool
}

// BasicGridStrategy places a geometric ladder of limit orders around the
// first observed price and re-centers it when price escapes the configured
// threshold. It is purely price driven; positions and balance inputs are
// ignored.
type BasicGridStrategy struct {
	symbol               string
	levels               int
	rangePct             float64
	totalAllocation      float64
	manualMin, manualMax *float64
	rebalanceThreshold   float64

	state         gridState
	centerPrice   *float64
	gridLevels    []GridLevel
	lastRebalance *time.Time
	totalTrades   int
	totalProfit   float64
	active        bool

	now func() time.Time
}

var _ Strategy = (*BasicGridStrategy)(nil)

// NewBasicGridStrategy derives ladder parameters from the bot configuration.
// In manual range mode the range percentage is the manual span relative to
// its midpoint; in auto mode the configured range_pct is used as-is.
func NewBasicGridStrategy(cfg *config.BotConfig) *BasicGridStrategy {
	grid := cfg.Grid
	var rangePct float64
	var manualMin, manualMax *float64
	switch grid.PriceRange.Mode {
	case config.RangeManual:
		min, max := grid.PriceRange.Manual.Min, grid.PriceRange.Manual.Max
		rangePct = ((max - min) / ((max + min) / 2.0)) * 100.0
		manualMin, manualMax = &min, &max
	default:
		rangePct = grid.PriceRange.Auto.RangePct
	}

	var allocation float64
	switch grid.PositionSizing.Mode {
	case config.SizingManual:
		allocation = grid.PositionSizing.Manual.SizePerLevel * float64(grid.Levels)
	default:
		allocation = grid.PositionSizing.Auto.MinPositionSizeUSD * float64(grid.Levels)
	}

	return &BasicGridStrategy{
		symbol:             grid.Symbol,
		levels:             grid.Levels,
		rangePct:           rangePct,
		totalAllocation:    allocation,
		manualMin:          manualMin,
		manualMax:          manualMax,
		rebalanceThreshold: cfg.RiskManagement.Rebalance.PriceMoveThresholdPct,
		state:              stateInitializing,
		active:             true,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// GenerateSignals implements Strategy. The first tick initializes the grid
// and emits the full ladder; subsequent ticks emit nothing until the price
// leaves the rebalance band, at which point a cancel-all signal followed by
// a fresh ladder is returned.
func (g *BasicGridStrategy) GenerateSignals(md *domain.MarketData, _ []domain.Position, _ float64) ([]domain.TradingSignal, error) {
	if !g.active {
		return nil, nil
	}
	switch g.state {
	case stateInitializing:
		return g.initializeGrid(md.Price), nil
	case stateActive:
		if g.shouldRebalance(md.Price) {
			return g.rebalanceGrid(md.Price), nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// initializeGrid builds the ladder around current price and emits one limit
// signal per level strictly below (buy) or above (sell) the current price.
// A level landing exactly on the current price produces no signal.
func (g *BasicGridStrategy) initializeGrid(currentPrice float64) []domain.TradingSignal {
	g.centerPrice = &currentPrice
	var minPrice, maxPrice float64
	if g.manualMin != nil && g.manualMax != nil {
		minPrice, maxPrice = *g.manualMin, *g.manualMax
	} else {
		span := currentPrice * (g.rangePct / 100.0)
		minPrice, maxPrice = currentPrice-span, currentPrice+span
	}
	g.gridLevels = g.createLevels(minPrice, maxPrice, currentPrice)

	var signals []domain.TradingSignal
	for i := range g.gridLevels {
		level := &g.gridLevels[i]
		switch {
		case level.IsBuy && level.Price < currentPrice:
			signals = append(signals, g.buildSignal(domain.SignalBuy, level))
		case !level.IsBuy && level.Price > currentPrice:
			signals = append(signals, g.buildSignal(domain.SignalSell, level))
		}
	}
	g.state = stateActive
	return signals
}

// createLevels produces the geometric ladder. Prices follow
// min * ratio^i with ratio = (max/min)^(1/(levels-1)), and each level
// receives an equal quote allocation converted to base size at its price.
func (g *BasicGridStrategy) createLevels(minPrice, maxPrice, currentPrice float64) []GridLevel {
	if g.levels <= 1 {
		return nil
	}
	levels := make([]GridLevel, 0, g.levels)
	sizePerLevel := g.totalAllocation / float64(g.levels)
	ratio := math.Pow(maxPrice/minPrice, 1.0/float64(g.levels-1))
	for i := 0; i < g.levels; i++ {
		price := minPrice * math.Pow(ratio, float64(i))
		size := sizePerLevel / math.Max(price, math.SmallestNonzeroFloat64)
		levels = append(levels, GridLevel{
			Price: price,
			Size:  size,
			Index: i,
			IsBuy: price < currentPrice,
		})
	}
	return levels
}

func (g *BasicGridStrategy) buildSignal(signalType domain.SignalType, level *GridLevel) domain.TradingSignal {
	price := level.Price
	return domain.TradingSignal{
		Type:     signalType,
		Asset:    g.symbol,
		Size:     level.Size,
		Price:    &price,
		Reason:   fmt.Sprintf("grid level %d at %.2f", level.Index, level.Price),
		Metadata: domain.LevelMetadata(level.Index, domain.GridTypeInitial),
	}
}

func (g *BasicGridStrategy) shouldRebalance(currentPrice float64) bool {
	if g.centerPrice == nil {
		return false
	}
	center := *g.centerPrice
	return (math.Abs(currentPrice-center)/center)*100.0 > g.rebalanceThreshold
}

// rebalanceGrid cancels all resting orders and rebuilds the ladder around
// the current price. The cancel-all signal always precedes the new ladder.
func (g *BasicGridStrategy) rebalanceGrid(currentPrice float64) []domain.TradingSignal {
	g.state = stateRebalancing
	signals := []domain.TradingSignal{domain.CancelAllSignal(g.symbol, "rebalance")}
	g.state = stateInitializing
	signals = append(signals, g.initializeGrid(currentPrice)...)
	t := g.now()
	g.lastRebalance = &t
	return signals
}

// OnTradeExecuted marks the level filled and, for sells, books a synthetic
// profit against an assumed buy at 99% of the executed price.
func (g *BasicGridStrategy) OnTradeExecuted(signal *domain.TradingSignal, executedPrice, executedSize float64) error {
	g.totalTrades++
	index, ok := signal.LevelIndex()
	if !ok {
		return nil
	}
	for i := range g.gridLevels {
		level := &g.gridLevels[i]
		if level.Index != index {
			continue
		}
		level.Filled = true
		if signal.Type == domain.SignalSell {
			buyPrice := executedPrice * 0.99
			g.totalProfit += (executedPrice - buyPrice) * executedSize
		}
		break
	}
	return nil
}

// Name implements Strategy.
func (g *BasicGridStrategy) Name() string { return g.symbol }

// Start implements Strategy.
func (g *BasicGridStrategy) Start() { g.active = true }

// Stop implements Strategy.
func (g *BasicGridStrategy) Stop() {
	g.active = false
	g.state = stateStopped
}

// Status implements Strategy.
func (g *BasicGridStrategy) Status() map[string]any {
	activeLevels := 0
	for _, level := range g.gridLevels {
		if !level.Filled {
			activeLevels++
		}
	}
	status := map[string]any{
		"name":          g.symbol,
		"active":        g.active,
		"state":         g.state.String(),
		"total_levels":  len(g.gridLevels),
		"active_levels": activeLevels,
		"filled_levels": len(g.gridLevels) - activeLevels,
		"total_trades":  g.totalTrades,
		"total_profit":  g.totalProfit,
	}
	if g.centerPrice != nil {
		status["center_price"] = *g.centerPrice
	}
	if g.lastRebalance != nil {
		status["last_rebalance"] = g.lastRebalance.Format(time.RFC3339)
	}
	return status
}

// Levels exposes a copy of the current ladder for reporting.
func (g *BasicGridStrategy) Levels() []GridLevel {
	out := make([]GridLevel, len(g.gridLevels))
	copy(out, g.gridLevels)
	return out
}
