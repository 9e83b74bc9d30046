// Package risk evaluates account and market state against a fixed battery
// of protective rules.
package risk

import (
	"fmt"
	"math"
	"time"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
)

// Action is the mitigation a triggered rule requests.
type Action string

// Risk actions.
const (
	ActionNone           Action = "none"
	ActionClosePosition  Action = "close_position"
	ActionReducePosition Action = "reduce_position"
	ActionCancelOrders   Action = "cancel_orders"
	ActionPauseTrading   Action = "pause_trading"
	ActionEmergencyExit  Action = "emergency_exit"
)

// Severity grades how urgent a risk event is.
type Severity string

// Severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event is one triggered risk rule.
type Event struct {
	RuleName  string
	Asset     string
	Action    Action
	Reason    string
	Severity  Severity
	Metadata  map[string]any
	Timestamp time.Time
}

// AccountMetrics is the account snapshot the rules evaluate against.
type AccountMetrics struct {
	TotalValue         float64
	TotalPnL           float64
	UnrealizedPnL      float64
	RealizedPnL        float64
	DrawdownPct        float64
	PositionsCount     int
	LargestPositionPct float64
}

// MetricsFromMap builds AccountMetrics from an adapter metrics map.
// Missing or non-numeric entries stay zero.
func MetricsFromMap(m map[string]any) AccountMetrics {
	num := func(key string) float64 {
		switch v := m[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		default:
			return 0
		}
	}
	return AccountMetrics{
		TotalValue:         num("total_value"),
		TotalPnL:           num("total_pnl"),
		UnrealizedPnL:      num("unrealized_pnl"),
		RealizedPnL:        num("realized_pnl"),
		DrawdownPct:        num("drawdown_pct"),
		PositionsCount:     int(num("positions_count")),
		LargestPositionPct: num("largest_position_pct"),
	}
}

// Manager runs the rule battery. Rules execute in a fixed order: stop loss,
// take profit, drawdown, position size, rebalance. Evaluation mutates only
// the pause flag and the rebalance bookkeeping.
type Manager struct {
	cfg  config.RiskManagementConfig
	grid config.GridConfig

	lastRebalance  *time.Time
	rebalanceCount int
	tradingPaused  bool

	now func() time.Time
}

// NewManager creates a risk manager from the bot configuration.
func NewManager(cfg *config.BotConfig) *Manager {
	return &Manager{
		cfg:  cfg.RiskManagement,
		grid: cfg.Grid,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs every rule against the current snapshot and returns the
// triggered events in rule order. A PauseTrading event latches the paused
// flag until the manager is recreated.
func (m *Manager) Evaluate(positions []domain.Position, md *domain.MarketData, metrics *AccountMetrics) []Event {
	var events []Event
	events = append(events, m.checkStopLoss(positions)...)
	events = append(events, m.checkTakeProfit(positions)...)
	events = append(events, m.checkDrawdown(metrics)...)
	events = append(events, m.checkPositionSize(metrics)...)
	events = append(events, m.checkRebalance(md)...)
	for _, e := range events {
		if e.Action == ActionPauseTrading {
			m.tradingPaused = true
			break
		}
	}
	return events
}

// TradingPaused reports whether a drawdown event has latched the pause flag.
func (m *Manager) TradingPaused() bool { return m.tradingPaused }

func (m *Manager) checkStopLoss(positions []domain.Position) []Event {
	if !m.cfg.StopLossEnabled {
		return nil
	}
	var events []Event
	for i := range positions {
		p := &positions[i]
		if p.EntryPrice <= 0 || p.UnrealizedPnL >= 0 {
			continue
		}
		basis := p.Basis()
		if basis <= 0 {
			continue
		}
		lossPct := (math.Abs(p.UnrealizedPnL) / basis) * 100.0
		if lossPct >= m.cfg.StopLossPct {
			events = append(events, m.event("stop_loss", p.Asset, ActionClosePosition, SeverityHigh,
				fmt.Sprintf("loss %.2f%% exceeds %.2f%%", lossPct, m.cfg.StopLossPct),
				map[string]any{"asset": p.Asset, "loss_pct": lossPct}))
		}
	}
	return events
}

func (m *Manager) checkTakeProfit(positions []domain.Position) []Event {
	if !m.cfg.TakeProfitEnabled {
		return nil
	}
	var events []Event
	for i := range positions {
		p := &positions[i]
		if p.EntryPrice <= 0 || p.UnrealizedPnL <= 0 {
			continue
		}
		basis := p.Basis()
		if basis <= 0 {
			continue
		}
		profitPct := (p.UnrealizedPnL / basis) * 100.0
		if profitPct >= m.cfg.TakeProfitPct {
			events = append(events, m.event("take_profit", p.Asset, ActionClosePosition, SeverityMedium,
				fmt.Sprintf("profit %.2f%% exceeds %.2f%%", profitPct, m.cfg.TakeProfitPct),
				map[string]any{"asset": p.Asset, "profit_pct": profitPct}))
		}
	}
	return events
}

func (m *Manager) checkDrawdown(metrics *AccountMetrics) []Event {
	if metrics.DrawdownPct < m.cfg.MaxDrawdownPct {
		return nil
	}
	return []Event{m.event("drawdown", m.grid.Symbol, ActionPauseTrading, SeverityCritical,
		fmt.Sprintf("drawdown %.2f%% exceeds %.2f%%", metrics.DrawdownPct, m.cfg.MaxDrawdownPct),
		map[string]any{"drawdown_pct": metrics.DrawdownPct})}
}

func (m *Manager) checkPositionSize(metrics *AccountMetrics) []Event {
	if metrics.LargestPositionPct <= m.cfg.MaxPositionSizePct {
		return nil
	}
	return []Event{m.event("position_size", m.grid.Symbol, ActionReducePosition, SeverityHigh,
		fmt.Sprintf("position %.2f%% exceeds %.2f%%", metrics.LargestPositionPct, m.cfg.MaxPositionSizePct),
		map[string]any{"largest_position_pct": metrics.LargestPositionPct})}
}

// checkRebalance fires when price leaves the grid band widened by the
// threshold. In auto range mode the band is centered on the current price,
// so the rule only ever triggers with manual bounds.
func (m *Manager) checkRebalance(md *domain.MarketData) []Event {
	threshold := m.cfg.Rebalance.PriceMoveThresholdPct
	var lower, upper float64
	switch m.grid.PriceRange.Mode {
	case config.RangeManual:
		min, max := m.grid.PriceRange.Manual.Min, m.grid.PriceRange.Manual.Max
		if min <= 0 || max <= min {
			return nil
		}
		lower, upper = min, max
	default:
		span := md.Price * (m.grid.PriceRange.Auto.RangePct / 100.0)
		lower, upper = md.Price-span, md.Price+span
	}
	upperTrigger := upper * (1.0 + threshold/100.0)
	lowerTrigger := lower * (1.0 - threshold/100.0)
	if (md.Price >= upperTrigger || md.Price <= lowerTrigger) && m.canRebalance() {
		t := m.now()
		m.lastRebalance = &t
		m.rebalanceCount++
		return []Event{m.event("rebalance", md.Asset, ActionCancelOrders, SeverityMedium,
			fmt.Sprintf("price %.2f outside [%.2f, %.2f] with threshold %.2f%%", md.Price, lower, upper, threshold),
			map[string]any{"price": md.Price, "lower": lower, "upper": upper})}
	}
	return nil
}

// canRebalance enforces the cooldown and the daily cap. The counter is
// never reset, so the cap bounds rebalances for the manager's lifetime.
func (m *Manager) canRebalance() bool {
	if m.lastRebalance != nil {
		cooldown := m.cfg.Rebalance.Cooldown()
		if m.now().Sub(*m.lastRebalance) < cooldown {
			return false
		}
	}
	return m.rebalanceCount < m.cfg.Rebalance.MaxRebalancesPerDay
}

func (m *Manager) event(rule, asset string, action Action, severity Severity, reason string, metadata map[string]any) Event {
	return Event{
		RuleName:  rule,
		Asset:     asset,
		Action:    action,
		Reason:    reason,
		Severity:  severity,
		Metadata:  metadata,
		Timestamp: m.now(),
	}
}
