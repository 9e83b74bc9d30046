// Package backtest replays a price series through a strategy with a
// deterministic in-memory execution model.
package backtest

import (
	"errors"
	"math"

	"hyperliquid-grid-bot/internal/config"
	"hyperliquid-grid-bot/internal/domain"
	"hyperliquid-grid-bot/internal/strategy"
)

// Fill tolerance and affordability slack.
const fillEpsilon = 1e-9

// epsilon is the machine epsilon for float64, used for flatness checks.
const epsilon = 2.220446049250313e-16

// Executor errors.
var (
	ErrNoSamples           = errors.New("price samples required")
	ErrEmptyAfterNormalize = errors.New("no price samples after normalization")
)

// Result is the outcome of one backtest run.
type Result struct {
	FinalValue float64
	Cash       float64
	Position   float64
	Trades     []domain.TradeExecution
}

// state is the single-asset account the replay maintains. Cash never goes
// negative: a buy that would overdraw clamps cash to zero after spending.
type state struct {
	cash         float64
	position     float64
	averagePrice float64
	trades       []domain.TradeExecution
}

func newState(initialCash float64) *state {
	return &state{cash: initialCash}
}

// positions derives the position snapshot handed to the strategy. An
// absolute position at or below machine epsilon reports as flat.
func (s *state) positions(symbol string, sample domain.PriceSample) []domain.Position {
	if math.Abs(s.position) <= epsilon {
		return nil
	}
	return []domain.Position{{
		Asset:         symbol,
		Size:          s.position,
		EntryPrice:    s.averagePrice,
		CurrentValue:  math.Abs(s.position) * sample.Price,
		UnrealizedPnL: (sample.Price - s.averagePrice) * s.position,
		Timestamp:     sample.Timestamp,
	}}
}

// openOrder is a resting limit order in the replay book.
type openOrder struct {
	signal    domain.TradingSignal
	price     float64
	remaining float64
	side      domain.OrderSide
}

// Run replays the sample series through the strategy the configuration
// describes. Each tick first attempts fills against the resting book, then
// snapshots positions, then asks the strategy for signals and processes
// them. Limit signals placed on a tick never fill on that same tick.
func Run(cfg *config.BotConfig, initialCash float64, samples []domain.PriceSample) (*Result, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	normalized, err := NormalizeSamples(samples)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, ErrEmptyAfterNormalize
	}

	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	strat.Start()
	defer strat.Stop()

	st := newState(initialCash)
	var orders []openOrder
	symbol := cfg.Grid.Symbol
	lastPrice := normalized[0].Price

	for _, sample := range normalized {
		lastPrice = sample.Price
		if err := fillOrders(sample, &orders, st, strat); err != nil {
			return nil, err
		}
		positions := st.positions(symbol, sample)
		price := sample.Price
		md := domain.MarketData{
			Asset:     symbol,
			Price:     sample.Price,
			Timestamp: sample.Timestamp,
			Bid:       &price,
			Ask:       &price,
		}
		signals, err := strat.GenerateSignals(&md, positions, st.cash)
		if err != nil {
			return nil, err
		}
		if err := processSignals(sample, &orders, st, strat, &md, signals); err != nil {
			return nil, err
		}
	}

	return &Result{
		FinalValue: st.cash + st.position*lastPrice,
		Cash:       st.cash,
		Position:   st.position,
		Trades:     st.trades,
	}, nil
}

// fillOrders sweeps the book in insertion order. A crossed order that the
// account cannot afford stays resting for a later tick. Fills happen at the
// order price, not the tick price.
func fillOrders(sample domain.PriceSample, orders *[]openOrder, st *state, strat strategy.Strategy) error {
	book := *orders
	i := 0
	for i < len(book) {
		order := &book[i]
		var crossed bool
		switch order.side {
		case domain.SideBuy:
			crossed = sample.Price <= order.price+fillEpsilon
		case domain.SideSell:
			crossed = sample.Price+fillEpsilon >= order.price
		}
		if !crossed {
			i++
			continue
		}
		var affordable bool
		switch order.side {
		case domain.SideBuy:
			affordable = st.cash+fillEpsilon >= order.price*order.remaining
		case domain.SideSell:
			affordable = st.position+fillEpsilon >= order.remaining
		}
		if !affordable {
			i++
			continue
		}
		if err := executeFill(order.side, order.price, order.remaining, sample, st, &order.signal, strat); err != nil {
			return err
		}
		book = append(book[:i], book[i+1:]...)
	}
	*orders = book
	return nil
}

// processSignals turns strategy signals into book or account mutations.
// Limit signals rest, market signals fill immediately at the tick price,
// and a cancel-all close clears the book without touching the account.
func processSignals(sample domain.PriceSample, orders *[]openOrder, st *state, strat strategy.Strategy, md *domain.MarketData, signals []domain.TradingSignal) error {
	for _, signal := range signals {
		switch signal.Type {
		case domain.SignalBuy, domain.SignalSell:
			side := domain.SideBuy
			if signal.Type == domain.SignalSell {
				side = domain.SideSell
			}
			if signal.Size <= epsilon {
				continue
			}
			if signal.Price != nil {
				if *signal.Price <= 0 {
					continue
				}
				*orders = append(*orders, openOrder{
					signal:    signal,
					price:     *signal.Price,
					remaining: signal.Size,
					side:      side,
				})
			} else {
				if err := executeFill(side, md.Price, signal.Size, sample, st, &signal, strat); err != nil {
					return err
				}
			}
		case domain.SignalClose:
			if signal.IsCancelAll() {
				*orders = (*orders)[:0]
			}
		case domain.SignalHold:
		}
	}
	return nil
}

// executeFill applies one fill to the account, records the trade, and
// notifies the strategy. Buys clamp cash at zero after spending; sells
// reset the average price once the position empties.
func executeFill(side domain.OrderSide, price, size float64, sample domain.PriceSample, st *state, signal *domain.TradingSignal, strat strategy.Strategy) error {
	switch side {
	case domain.SideBuy:
		cost := price * size
		st.cash -= cost
		if st.cash < 0 {
			st.cash = 0
		}
		previousValue := st.averagePrice * math.Max(st.position, 0)
		st.position += size
		if st.position > epsilon {
			st.averagePrice = (previousValue + cost) / st.position
		} else {
			st.averagePrice = 0
		}
	case domain.SideSell:
		st.cash += price * size
		st.position -= size
		if st.position <= epsilon {
			st.position = math.Max(st.position, 0)
			st.averagePrice = 0
		}
	}
	st.trades = append(st.trades, domain.TradeExecution{
		Timestamp: sample.Timestamp,
		Price:     price,
		Size:      size,
		Side:      side,
	})
	return strat.OnTradeExecuted(signal, price, size)
}
