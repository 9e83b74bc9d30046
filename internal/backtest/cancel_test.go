package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-grid-bot/internal/domain"
)

// scriptedStrategy records executed trades and emits nothing on its own.
type scriptedStrategy struct {
	executed []domain.TradeExecution
}

func (s *scriptedStrategy) GenerateSignals(*domain.MarketData, []domain.Position, float64) ([]domain.TradingSignal, error) {
	return nil, nil
}

func (s *scriptedStrategy) OnTradeExecuted(_ *domain.TradingSignal, price, size float64) error {
	s.executed = append(s.executed, domain.TradeExecution{Price: price, Size: size})
	return nil
}

func (s *scriptedStrategy) Name() string           { return "scripted" }
func (s *scriptedStrategy) Start()                 {}
func (s *scriptedStrategy) Stop()                  {}
func (s *scriptedStrategy) Status() map[string]any { return nil }

func limitSignal(signalType domain.SignalType, price, size float64) domain.TradingSignal {
	p := price
	return domain.TradingSignal{
		Type:  signalType,
		Asset: "BTC",
		Size:  size,
		Price: &p,
	}
}

func TestCancelAllClearsRestingOrders(t *testing.T) {
	strat := &scriptedStrategy{}
	st := newState(10_000)
	sample := domain.NewPriceSample(time.Unix(0, 0).UTC(), 100)
	md := domain.MarketData{Asset: "BTC", Price: 100, Timestamp: sample.Timestamp}

	var orders []openOrder
	signals := []domain.TradingSignal{
		limitSignal(domain.SignalBuy, 95, 1),
		limitSignal(domain.SignalBuy, 90, 1),
		limitSignal(domain.SignalSell, 110, 1),
	}
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, signals))
	require.Len(t, orders, 3)

	cancel := domain.CancelAllSignal("BTC", "rebalance")
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, []domain.TradingSignal{cancel}))
	assert.Empty(t, orders)

	// Later ticks that would have crossed every cancelled order fill
	// nothing and leave the account untouched.
	for _, price := range []float64{80, 120} {
		tick := domain.NewPriceSample(sample.Timestamp.Add(time.Minute), price)
		require.NoError(t, fillOrders(tick, &orders, st, strat))
	}
	assert.Empty(t, strat.executed)
	assert.InDelta(t, 10_000.0, st.cash, 1e-12)
	assert.InDelta(t, 0.0, st.position, 1e-12)
}

func TestPlainCloseDoesNotClearBook(t *testing.T) {
	strat := &scriptedStrategy{}
	st := newState(10_000)
	sample := domain.NewPriceSample(time.Unix(0, 0).UTC(), 100)
	md := domain.MarketData{Asset: "BTC", Price: 100, Timestamp: sample.Timestamp}

	var orders []openOrder
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, []domain.TradingSignal{
		limitSignal(domain.SignalBuy, 95, 1),
	}))
	require.Len(t, orders, 1)

	plain := domain.TradingSignal{Type: domain.SignalClose, Asset: "BTC", Reason: "close"}
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, []domain.TradingSignal{plain}))
	assert.Len(t, orders, 1)
}

func TestMarketSignalFillsImmediately(t *testing.T) {
	strat := &scriptedStrategy{}
	st := newState(10_000)
	sample := domain.NewPriceSample(time.Unix(0, 0).UTC(), 100)
	md := domain.MarketData{Asset: "BTC", Price: 100, Timestamp: sample.Timestamp}

	var orders []openOrder
	marketBuy := domain.TradingSignal{Type: domain.SignalBuy, Asset: "BTC", Size: 2}
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, []domain.TradingSignal{marketBuy}))

	assert.Empty(t, orders)
	require.Len(t, strat.executed, 1)
	assert.InDelta(t, 100.0, strat.executed[0].Price, 1e-12)
	assert.InDelta(t, 9800.0, st.cash, 1e-12)
	assert.InDelta(t, 2.0, st.position, 1e-12)
	assert.InDelta(t, 100.0, st.averagePrice, 1e-12)
}

func TestZeroSizeAndNonPositivePriceSignalsIgnored(t *testing.T) {
	strat := &scriptedStrategy{}
	st := newState(10_000)
	sample := domain.NewPriceSample(time.Unix(0, 0).UTC(), 100)
	md := domain.MarketData{Asset: "BTC", Price: 100, Timestamp: sample.Timestamp}

	var orders []openOrder
	require.NoError(t, processSignals(sample, &orders, st, strat, &md, []domain.TradingSignal{
		limitSignal(domain.SignalBuy, 95, 0),
		limitSignal(domain.SignalBuy, -5, 1),
		{Type: domain.SignalHold, Asset: "BTC"},
	}))
	assert.Empty(t, orders)
	assert.Empty(t, strat.executed)
}

func TestSellResetsAveragePriceWhenFlat(t *testing.T) {
	strat := &scriptedStrategy{}
	st := newState(1000)
	sample := domain.NewPriceSample(time.Unix(0, 0).UTC(), 100)

	sig := limitSignal(domain.SignalBuy, 100, 2)
	require.NoError(t, executeFill(domain.SideBuy, 100, 2, sample, st, &sig, strat))
	assert.InDelta(t, 100.0, st.averagePrice, 1e-12)

	require.NoError(t, executeFill(domain.SideSell, 105, 2, sample, st, &sig, strat))
	assert.InDelta(t, 0.0, st.position, 1e-12)
	assert.InDelta(t, 0.0, st.averagePrice, 1e-12)

	// Buy cost above available cash clamps at zero instead of overdrawing.
	require.NoError(t, executeFill(domain.SideBuy, 100_000, 1, sample, st, &sig, strat))
	assert.InDelta(t, 0.0, st.cash, 1e-12)
}
