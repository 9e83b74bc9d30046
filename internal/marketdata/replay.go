package marketdata

import (
	"context"
	"sync"

	"hyperliquid-grid-bot/internal/domain"
)

// ReplayProvider feeds a recorded price series to subscribers. Samples are
// delivered synchronously in order when Run is called, which makes the
// provider suitable for dry runs and engine tests.
type ReplayProvider struct {
	asset   string
	samples []domain.PriceSample

	mu        sync.Mutex
	handlers  map[string][]Handler
	connected bool
}

var _ Provider = (*ReplayProvider)(nil)

// NewReplayProvider creates a provider replaying samples for one asset.
func NewReplayProvider(asset string, samples []domain.PriceSample) *ReplayProvider {
	return &ReplayProvider{
		asset:    asset,
		samples:  samples,
		handlers: make(map[string][]Handler),
	}
}

// Connect implements Provider.
func (p *ReplayProvider) Connect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

// Disconnect implements Provider.
func (p *ReplayProvider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Subscribe implements Provider.
func (p *ReplayProvider) Subscribe(_ context.Context, asset string, handler Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[asset] = append(p.handlers[asset], handler)
	return nil
}

// Unsubscribe implements Provider.
func (p *ReplayProvider) Unsubscribe(_ context.Context, asset string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handlers, asset)
	return nil
}

// Run replays every sample to the asset's handlers in order. It stops
// early when the context is cancelled.
func (p *ReplayProvider) Run(ctx context.Context) error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return ErrNotConnected
	}
	handlers := append([]Handler(nil), p.handlers[p.asset]...)
	p.mu.Unlock()

	for _, sample := range p.samples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		price := sample.Price
		md := domain.MarketData{
			Asset:     p.asset,
			Price:     sample.Price,
			Timestamp: sample.Timestamp,
			Bid:       &price,
			Ask:       &price,
		}
		for _, handler := range handlers {
			handler(md)
		}
	}
	return nil
}
