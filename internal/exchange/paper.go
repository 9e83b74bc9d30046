package exchange

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"hyperliquid-grid-bot/internal/domain"
)

const defaultPaperCashUSD = 10_000.0

// epsilon is the machine epsilon for float64.
const epsilon = 2.220446049250313e-16

// PriceSource supplies mid prices to the paper adapter.
type PriceSource interface {
	// AllMids returns the current mid price per asset.
	AllMids(ctx context.Context) (map[string]float64, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context) (map[string]float64, error)

// AllMids implements PriceSource.
func (f PriceSourceFunc) AllMids(ctx context.Context) (map[string]float64, error) {
	return f(ctx)
}

// PaperAdapter simulates a venue in memory. Every order fills immediately
// at its limit price, or at the current mid for market orders. The USD
// balance starts at 10000 and is adjusted on each fill.
type PaperAdapter struct {
	prices    PriceSource
	testnet   bool
	connected atomic.Bool

	mu         sync.Mutex
	balances   map[string]domain.Balance
	positions  map[string]domain.Position
	openOrders map[string]domain.Order
	markets    map[string]MarketInfo
}

var _ Adapter = (*PaperAdapter)(nil)

// NewPaperAdapter creates a paper venue backed by the given price source.
func NewPaperAdapter(prices PriceSource, testnet bool) *PaperAdapter {
	return &PaperAdapter{
		prices:     prices,
		testnet:    testnet,
		balances:   make(map[string]domain.Balance),
		positions:  make(map[string]domain.Position),
		openOrders: make(map[string]domain.Order),
		markets:    make(map[string]MarketInfo),
	}
}

// RegisterMarket adds instrument metadata served by MarketInfo.
func (a *PaperAdapter) RegisterMarket(info MarketInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markets[info.Symbol] = info
}

// Connect implements Adapter.
func (a *PaperAdapter) Connect(context.Context) error {
	a.connected.Store(true)
	return nil
}

// Disconnect implements Adapter.
func (a *PaperAdapter) Disconnect(context.Context) error {
	a.connected.Store(false)
	return nil
}

// Balance implements Adapter.
func (a *PaperAdapter) Balance(_ context.Context, asset string) (domain.Balance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.balances[asset]; ok {
		return b, nil
	}
	b := domain.Balance{Asset: asset}
	a.balances[asset] = b
	return b, nil
}

// MarketPrice implements Adapter.
func (a *PaperAdapter) MarketPrice(ctx context.Context, asset string) (float64, error) {
	mids, err := a.prices.AllMids(ctx)
	if err != nil {
		return 0, err
	}
	price, ok := mids[asset]
	if !ok {
		return 0, ErrPriceNotFound
	}
	return price, nil
}

// PlaceOrder implements Adapter. Orders fill immediately: limit orders at
// their limit price, market orders at the current mid.
func (a *PaperAdapter) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var price float64
	if order.Price != nil {
		price = *order.Price
	} else {
		p, err := a.MarketPrice(ctx, order.Asset)
		if err != nil {
			return domain.Order{}, err
		}
		price = p
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyFill(order.Side, price, math.Abs(order.Size), order.Asset)
	if mids, err := a.prices.AllMids(ctx); err == nil {
		a.refreshPositionValues(mids)
	}
	order.Status = domain.StatusFilled
	order.FilledSize = order.Size
	order.AverageFillPrice = price
	order.ExchangeOrderID = order.ID
	a.openOrders[order.ID] = order
	return order, nil
}

// applyFill mutates the USD balance and the asset position. Callers hold
// the mutex.
func (a *PaperAdapter) applyFill(side domain.OrderSide, price, size float64, asset string) {
	usd, ok := a.balances["USD"]
	if !ok {
		usd = domain.Balance{Asset: "USD", Available: defaultPaperCashUSD, Total: defaultPaperCashUSD}
	}
	notional := price * size
	switch side {
	case domain.SideBuy:
		usd.Available -= notional
		usd.Total -= notional
	case domain.SideSell:
		usd.Available += notional
		usd.Total += notional
	}
	a.balances["USD"] = usd

	pos, ok := a.positions[asset]
	if !ok {
		pos = domain.Position{Asset: asset, EntryPrice: price, Timestamp: time.Now().UTC()}
	}
	switch side {
	case domain.SideBuy:
		totalSize := pos.Size + size
		costBasis := pos.EntryPrice*math.Abs(pos.Size) + notional
		pos.Size = totalSize
		if math.Abs(totalSize) > epsilon {
			pos.EntryPrice = costBasis / math.Abs(totalSize)
		} else {
			pos.EntryPrice = price
		}
		a.positions[asset] = pos
	case domain.SideSell:
		pos.Size -= size
		if math.Abs(pos.Size) <= epsilon {
			delete(a.positions, asset)
		} else {
			a.positions[asset] = pos
		}
	}
}

// refreshPositionValues recomputes mark values. Callers hold the mutex.
func (a *PaperAdapter) refreshPositionValues(mids map[string]float64) {
	for asset, pos := range a.positions {
		if price, ok := mids[asset]; ok {
			pos.CurrentValue = math.Abs(pos.Size) * price
			pos.UnrealizedPnL = (price - pos.EntryPrice) * pos.Size
			pos.Timestamp = time.Now().UTC()
			a.positions[asset] = pos
		}
	}
}

// CancelOrder implements Adapter.
func (a *PaperAdapter) CancelOrder(_ context.Context, orderID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.openOrders[orderID]; !ok {
		return false, nil
	}
	delete(a.openOrders, orderID)
	return true, nil
}

// OrderStatus implements Adapter.
func (a *PaperAdapter) OrderStatus(_ context.Context, orderID string) (domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	order, ok := a.openOrders[orderID]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// MarketInfo implements Adapter.
func (a *PaperAdapter) MarketInfo(_ context.Context, asset string) (MarketInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.markets[asset]
	if !ok {
		return MarketInfo{}, ErrAssetNotFound
	}
	return info, nil
}

// Positions implements Adapter.
func (a *PaperAdapter) Positions(context.Context) ([]domain.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	positions := make([]domain.Position, 0, len(a.positions))
	for _, pos := range a.positions {
		positions = append(positions, pos)
	}
	return positions, nil
}

// ClosePosition implements Adapter.
func (a *PaperAdapter) ClosePosition(_ context.Context, asset string, size *float64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.positions[asset]
	if !ok {
		return false, nil
	}
	closeSize := math.Abs(pos.Size)
	if size != nil {
		closeSize = *size
	}
	pos.Size -= math.Copysign(closeSize, pos.Size)
	if math.Abs(pos.Size) <= epsilon {
		delete(a.positions, asset)
	} else {
		a.positions[asset] = pos
	}
	return true, nil
}

// AccountMetrics implements Adapter. Total value sums balances only;
// PnL and drawdown stay zero in paper mode.
func (a *PaperAdapter) AccountMetrics(context.Context) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	totalValue := 0.0
	for _, b := range a.balances {
		totalValue += b.Available + b.Locked
	}
	largest := 0.0
	if totalValue > 0 {
		for _, pos := range a.positions {
			pct := (math.Abs(pos.CurrentValue) / totalValue) * 100.0
			largest = math.Max(largest, pct)
		}
	}
	return map[string]any{
		"total_value":          totalValue,
		"total_pnl":            0.0,
		"unrealized_pnl":       0.0,
		"realized_pnl":         0.0,
		"drawdown_pct":         0.0,
		"positions_count":      len(a.positions),
		"largest_position_pct": largest,
	}, nil
}

// OpenOrders implements Adapter.
func (a *PaperAdapter) OpenOrders(context.Context) ([]domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	orders := make([]domain.Order, 0, len(a.openOrders))
	for _, order := range a.openOrders {
		orders = append(orders, order)
	}
	return orders, nil
}

// CancelAllOrders implements Adapter.
func (a *PaperAdapter) CancelAllOrders(context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := len(a.openOrders)
	a.openOrders = make(map[string]domain.Order)
	return count, nil
}

// Status implements Adapter.
func (a *PaperAdapter) Status() map[string]any {
	return map[string]any{
		"connected": a.connected.Load(),
		"testnet":   a.testnet,
	}
}

// HealthCheck implements Adapter.
func (a *PaperAdapter) HealthCheck(ctx context.Context) (bool, error) {
	_, err := a.prices.AllMids(ctx)
	return err == nil, nil
}
