// Package exchange defines the venue adapter surface and the paper
// implementation used for dry runs.
package exchange

import (
	"context"
	"errors"

	"hyperliquid-grid-bot/internal/domain"
)

// Adapter errors.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrPriceNotFound = errors.New("market price not found")
	ErrAssetNotFound = errors.New("asset not found")
)

// MarketInfo describes one tradable instrument.
type MarketInfo struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	MinOrderSize   float64
	PricePrecision int
	SizePrecision  int
	IsActive       bool
}

// Endpoints holds the venue URLs for one network.
type Endpoints struct {
	Info      string
	Exchange  string
	WebSocket string
}

// NewEndpoints returns the mainnet or testnet endpoint set.
func NewEndpoints(testnet bool) Endpoints {
	if testnet {
		return Endpoints{
			Info:      "https://api.hyperliquid-testnet.xyz/info",
			Exchange:  "https://api.hyperliquid-testnet.xyz/exchange",
			WebSocket: "wss://api.hyperliquid-testnet.xyz/ws",
		}
	}
	return Endpoints{
		Info:      "https://api.hyperliquid.xyz/info",
		Exchange:  "https://api.hyperliquid.xyz/exchange",
		WebSocket: "wss://api.hyperliquid.xyz/ws",
	}
}

// Adapter is the venue interface the live engine drives. Implementations
// must be safe for concurrent use.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Balance returns the balance for one asset, zero-valued if the
	// account holds none.
	Balance(ctx context.Context, asset string) (domain.Balance, error)

	// MarketPrice returns the current mid price for one asset.
	MarketPrice(ctx context.Context, asset string) (float64, error)

	// PlaceOrder submits an order and returns it with venue fields set.
	PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// CancelOrder cancels one order; reports whether it existed.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// OrderStatus returns the tracked state of one order.
	OrderStatus(ctx context.Context, orderID string) (domain.Order, error)

	// MarketInfo returns instrument metadata for one asset.
	MarketInfo(ctx context.Context, asset string) (MarketInfo, error)

	// Positions returns all open positions.
	Positions(ctx context.Context) ([]domain.Position, error)

	// ClosePosition closes size of the position, or all of it when size
	// is nil; reports whether a position existed.
	ClosePosition(ctx context.Context, asset string, size *float64) (bool, error)

	// AccountMetrics returns the account snapshot used by risk checks.
	AccountMetrics(ctx context.Context) (map[string]any, error)

	// OpenOrders returns all tracked orders.
	OpenOrders(ctx context.Context) ([]domain.Order, error)

	// CancelAllOrders removes every tracked order and returns the count.
	CancelAllOrders(ctx context.Context) (int, error)

	// Status returns a connection state snapshot.
	Status() map[string]any

	// HealthCheck reports whether the venue is reachable.
	HealthCheck(ctx context.Context) (bool, error)
}
