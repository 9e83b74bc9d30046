package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
)

func riskConfig(t *testing.T, extra string) *config.BotConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(`
name: risk-test
active: true
grid:
  symbol: BTC
  levels: 15
` + extra))
	require.NoError(t, err)
	return cfg
}

func market(price float64) *domain.MarketData {
	return &domain.MarketData{
		Asset:     "BTC",
		Price:     price,
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	}
}

func position(pnl float64) domain.Position {
	return domain.Position{
		Asset:         "BTC",
		Size:          0.1,
		EntryPrice:    100_000,
		CurrentValue:  100_000*0.1 + pnl,
		UnrealizedPnL: pnl,
	}
}

func zeroMetrics() *AccountMetrics { return &AccountMetrics{} }

func TestStopLossTriggers(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  stop_loss_enabled: true
  stop_loss_pct: 5
`)
	m := NewManager(cfg)

	// 1500 loss on a 10000 basis is 15%, above the 5% limit.
	events := m.Evaluate([]domain.Position{position(-1500)}, market(90_000), zeroMetrics())

	require.NotEmpty(t, events)
	var hit *Event
	for i := range events {
		if events[i].RuleName == "stop_loss" {
			hit = &events[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, ActionClosePosition, hit.Action)
	assert.Equal(t, SeverityHigh, hit.Severity)
	assert.Equal(t, "BTC", hit.Asset)
}

func TestStopLossDisabledByDefault(t *testing.T) {
	m := NewManager(riskConfig(t, ""))
	events := m.Evaluate([]domain.Position{position(-1500)}, market(90_000), zeroMetrics())
	for _, e := range events {
		assert.NotEqual(t, "stop_loss", e.RuleName)
	}
}

func TestStopLossIgnoresProfitableAndZeroBasis(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  stop_loss_enabled: true
  stop_loss_pct: 5
`)
	m := NewManager(cfg)

	profitable := position(500)
	noEntry := position(-1500)
	noEntry.EntryPrice = 0

	events := m.Evaluate([]domain.Position{profitable, noEntry}, market(90_000), zeroMetrics())
	for _, e := range events {
		assert.NotEqual(t, "stop_loss", e.RuleName)
	}
}

func TestTakeProfitTriggers(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  take_profit_enabled: true
  take_profit_pct: 20
`)
	m := NewManager(cfg)

	// 2500 profit on a 10000 basis is 25%.
	events := m.Evaluate([]domain.Position{position(2500)}, market(120_000), zeroMetrics())

	var hit *Event
	for i := range events {
		if events[i].RuleName == "take_profit" {
			hit = &events[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, ActionClosePosition, hit.Action)
	assert.Equal(t, SeverityMedium, hit.Severity)
}

func TestDrawdownPausesTrading(t *testing.T) {
	m := NewManager(riskConfig(t, ""))
	require.False(t, m.TradingPaused())

	metrics := &AccountMetrics{DrawdownPct: 20.0}
	events := m.Evaluate(nil, market(100_000), metrics)

	var hit *Event
	for i := range events {
		if events[i].Action == ActionPauseTrading {
			hit = &events[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, "drawdown", hit.RuleName)
	assert.Equal(t, SeverityCritical, hit.Severity)
	assert.True(t, m.TradingPaused())

	// The pause flag latches across later clean evaluations.
	m.Evaluate(nil, market(100_000), zeroMetrics())
	assert.True(t, m.TradingPaused())
}

func TestPositionSizeReduces(t *testing.T) {
	m := NewManager(riskConfig(t, ""))

	metrics := &AccountMetrics{LargestPositionPct: 45.0}
	events := m.Evaluate(nil, market(100_000), metrics)

	var hit *Event
	for i := range events {
		if events[i].RuleName == "position_size" {
			hit = &events[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, ActionReducePosition, hit.Action)
	assert.Equal(t, SeverityHigh, hit.Severity)
}

func TestManualRangeRebalance(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  rebalance:
    price_move_threshold_pct: 10
`)
	cfg.Grid.PriceRange.Mode = config.RangeManual
	cfg.Grid.PriceRange.Manual = config.ManualRangeConfig{Min: 95_000, Max: 105_000}
	m := NewManager(cfg)

	// Inside the band, no rebalance.
	events := m.Evaluate(nil, market(100_000), zeroMetrics())
	for _, e := range events {
		assert.NotEqual(t, "rebalance", e.RuleName)
	}

	// Far outside the widened band.
	events = m.Evaluate(nil, market(140_000), zeroMetrics())
	var hit *Event
	for i := range events {
		if events[i].RuleName == "rebalance" {
			hit = &events[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, ActionCancelOrders, hit.Action)
	assert.Equal(t, SeverityMedium, hit.Severity)
}

func TestAutoRangeNeverRebalances(t *testing.T) {
	m := NewManager(riskConfig(t, ""))

	// The auto band follows the price, so no excursion can escape it.
	for _, price := range []float64{100, 10_000, 1_000_000} {
		events := m.Evaluate(nil, market(price), zeroMetrics())
		for _, e := range events {
			assert.NotEqual(t, "rebalance", e.RuleName)
		}
	}
}

func TestRebalanceCooldownAndDailyCap(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  rebalance:
    price_move_threshold_pct: 10
    cooldown_minutes: 30
    max_rebalances_per_day: 2
`)
	cfg.Grid.PriceRange.Mode = config.RangeManual
	cfg.Grid.PriceRange.Manual = config.ManualRangeConfig{Min: 95_000, Max: 105_000}
	m := NewManager(cfg)

	clock := time.Unix(1_700_000_000, 0).UTC()
	m.now = func() time.Time { return clock }

	rebalances := func() int {
		n := 0
		for _, e := range m.Evaluate(nil, market(140_000), zeroMetrics()) {
			if e.RuleName == "rebalance" {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, rebalances())

	// Within the cooldown window nothing fires.
	clock = clock.Add(10 * time.Minute)
	assert.Equal(t, 0, rebalances())

	// Past the cooldown the second (and last allowed) rebalance fires.
	clock = clock.Add(25 * time.Minute)
	assert.Equal(t, 1, rebalances())

	// The daily cap is reached and the counter never resets.
	clock = clock.Add(48 * time.Hour)
	assert.Equal(t, 0, rebalances())
}

func TestEvaluateIsPureOnInputs(t *testing.T) {
	cfg := riskConfig(t, `
risk_management:
  stop_loss_enabled: true
  stop_loss_pct: 5
`)
	m := NewManager(cfg)

	positions := []domain.Position{position(-1500)}
	md := market(90_000)
	metrics := &AccountMetrics{DrawdownPct: 1.0}

	m.Evaluate(positions, md, metrics)

	assert.InDelta(t, -1500.0, positions[0].UnrealizedPnL, 1e-12)
	assert.InDelta(t, 90_000.0, md.Price, 1e-12)
	assert.InDelta(t, 1.0, metrics.DrawdownPct, 1e-12)
}

func TestMetricsFromMap(t *testing.T) {
	m := MetricsFromMap(map[string]any{
		"total_value":          10_000.0,
		"drawdown_pct":         7.5,
		"positions_count":      2,
		"largest_position_pct": 12.0,
		"unexpected":           "ignored",
	})
	assert.InDelta(t, 10_000.0, m.TotalValue, 1e-12)
	assert.InDelta(t, 7.5, m.DrawdownPct, 1e-12)
	assert.Equal(t, 2, m.PositionsCount)
	assert.InDelta(t, 12.0, m.LargestPositionPct, 1e-12)
	assert.InDelta(t, 0.0, m.RealizedPnL, 1e-12)
}
