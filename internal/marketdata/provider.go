// Package marketdata delivers price updates to asset subscribers, either
// from the venue websocket or from a recorded series.
package marketdata

import (
	"context"
	"errors"

	"hyperliquid-grid-bot/internal/domain"
)

// Provider errors.
var (
	ErrNotConnected = errors.New("provider not connected")
	ErrClosed       = errors.New("provider closed")
)

// Handler receives market data updates for one asset. Handlers run on the
// provider's dispatch goroutine and must not block.
type Handler func(domain.MarketData)

// Provider streams market data per asset.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Subscribe registers a handler for one asset's updates.
	Subscribe(ctx context.Context, asset string, handler Handler) error

	// Unsubscribe removes all handlers for one asset.
	Unsubscribe(ctx context.Context, asset string) error
}
