package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/events"
	"hyperliquid-grid-bot/internal/exchange"
	"hyperliquid-grid-bot/internal/marketdata"
)

func engineConfig(t *testing.T) *config.BotConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(`
name: engine-test
active: true
grid:
  symbol: BTC
  levels: 3
  price_range:
    mode: manual
    manual:
      min: 90
      max: 110
  position_sizing:
    mode: manual
    manual:
      size_per_level: 1000
risk_management:
  rebalance:
    price_move_threshold_pct: 12
`))
	require.NoError(t, err)
	return cfg
}

func series(prices ...float64) []domain.PriceSample {
	epoch := time.Unix(1_700_000_000, 0).UTC()
	samples := make([]domain.PriceSample, len(prices))
	for i, p := range prices {
		samples[i] = domain.NewPriceSample(epoch.Add(time.Duration(i)*time.Minute), p)
	}
	return samples
}

func paperVenue(mid float64) *exchange.PaperAdapter {
	return exchange.NewPaperAdapter(exchange.PriceSourceFunc(
		func(context.Context) (map[string]float64, error) {
			return map[string]float64{"BTC": mid}, nil
		}), true)
}

func newTestEngine(t *testing.T, provider *marketdata.ReplayProvider, adapter exchange.Adapter) *TradingEngine {
	t.Helper()
	e, err := New(Options{
		Config:   engineConfig(t),
		Adapter:  adapter,
		Provider: provider,
	})
	require.NoError(t, err)
	return e
}

func TestEngineExecutesGridSignals(t *testing.T) {
	provider := marketdata.NewReplayProvider("BTC", series(100))
	adapter := paperVenue(100)
	e := newTestEngine(t, provider, adapter)
	ctx := context.Background()

	var placed []events.Event
	e.EventBus().Subscribe(events.OrderPlaced, func(ev events.Event) {
		placed = append(placed, ev)
	})

	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, provider.Run(ctx))

	// The first tick seeds the ladder: two buys below 100, one sell above.
	status := e.Status()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, 3, status["executed_trades"])
	assert.Equal(t, 3, status["pending_orders"])
	assert.Len(t, placed, 3)

	orders, err := adapter.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 3)

	require.NoError(t, e.Stop(ctx))
	assert.Equal(t, false, e.Status()["running"])
}

func TestEngineIgnoresTicksWhenStopped(t *testing.T) {
	provider := marketdata.NewReplayProvider("BTC", series(100, 95))
	adapter := paperVenue(100)
	e := newTestEngine(t, provider, adapter)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Stop(ctx))

	require.NoError(t, provider.Connect(ctx))
	require.NoError(t, provider.Run(ctx))
	assert.Equal(t, 0, e.Status()["executed_trades"])
}

func TestEngineStartIsIdempotent(t *testing.T) {
	provider := marketdata.NewReplayProvider("BTC", series(100))
	e := newTestEngine(t, provider, paperVenue(100))
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, provider.Run(ctx))

	// A second Start must not double-subscribe the handler.
	assert.Equal(t, 3, e.Status()["executed_trades"])
}

func TestEngineRebalanceCancelsVenueOrders(t *testing.T) {
	// Second tick escapes both the strategy band around the center at 100
	// and the widened manual risk band (110 * 1.12 = 123.2).
	provider := marketdata.NewReplayProvider("BTC", series(100, 125))
	adapter := paperVenue(100)
	e := newTestEngine(t, provider, adapter)
	ctx := context.Background()

	var systemEvents []events.Event
	e.EventBus().Subscribe(events.System, func(ev events.Event) {
		systemEvents = append(systemEvents, ev)
	})

	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, provider.Run(ctx))

	// At 125 the manual ladder is entirely below price: three fresh buys.
	orders, err := adapter.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
	assert.Equal(t, 6, e.Status()["executed_trades"])

	// The risk manager also saw 115 above the widened manual band and
	// published a rebalance event.
	found := false
	for _, ev := range systemEvents {
		if ev.Data["rule"] == "rebalance" {
			found = true
		}
	}
	assert.True(t, found)
}
