package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hyperliquid-grid-bot/internal/domain"
)

// WSConfig configures websocket provider behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSProvider streams mid prices over the venue websocket. It subscribes to
// the allMids feed once and fans updates out to per-asset handlers.
// Reconnects use exponential backoff and resubscribe automatically.
type WSProvider struct {
	endpoint string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	handlers   map[string][]Handler
	handlersMu sync.RWMutex

	connected    atomic.Bool
	reconnecting atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

var _ Provider = (*WSProvider)(nil)

// NewWSProvider creates a provider for the given websocket URL.
func NewWSProvider(endpoint string, config *WSConfig) *WSProvider {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSProvider{
		endpoint: endpoint,
		config:   cfg,
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
}

// Connect implements Provider. It dials the endpoint, subscribes to the
// allMids feed, and starts the reader and ping loops.
func (p *WSProvider) Connect(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.dial(ctx); err != nil {
		return err
	}
	if err := p.subscribeAllMids(); err != nil {
		return err
	}
	p.connected.Store(true)

	p.wg.Add(2)
	go p.readLoop()
	go p.pingLoop()
	return nil
}

func (p *WSProvider) dial(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	p.conn = conn
	return nil
}

// subscribeAllMids sends the feed subscription on the current connection.
func (p *WSProvider) subscribeAllMids() error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.conn == nil {
		return ErrNotConnected
	}
	req := wsSubscribeRequest{
		Method:       "subscribe",
		Subscription: wsSubscription{Type: "allMids"},
	}
	p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	if err := p.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Disconnect implements Provider.
func (p *WSProvider) Disconnect(context.Context) error {
	if p.closed.Swap(true) {
		return nil
	}
	p.connected.Store(false)
	close(p.done)

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.conn.Close()
	}
	p.connMu.Unlock()

	p.wg.Wait()
	return nil
}

// Subscribe implements Provider. The allMids feed covers every asset, so
// subscribing only registers the handler locally.
func (p *WSProvider) Subscribe(_ context.Context, asset string, handler Handler) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.handlersMu.Lock()
	p.handlers[asset] = append(p.handlers[asset], handler)
	p.handlersMu.Unlock()
	return nil
}

// Unsubscribe implements Provider.
func (p *WSProvider) Unsubscribe(_ context.Context, asset string) error {
	p.handlersMu.Lock()
	delete(p.handlers, asset)
	p.handlersMu.Unlock()
	return nil
}

// readLoop reads messages and dispatches mid updates. Read errors trigger
// reconnection with exponential backoff.
func (p *WSProvider) readLoop() {
	defer p.wg.Done()

	reconnectDelay := p.config.ReconnectDelay

	for !p.closed.Load() {
		p.connMu.Lock()
		conn := p.conn
		p.connMu.Unlock()

		if conn == nil {
			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if p.closed.Load() {
				return
			}
			p.connected.Store(false)
			if !p.reconnecting.Swap(true) {
				go p.reconnect(reconnectDelay)
			}
			reconnectDelay *= 2
			if reconnectDelay > p.config.MaxReconnectDelay {
				reconnectDelay = p.config.MaxReconnectDelay
			}
			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = p.config.ReconnectDelay
		p.handleMessage(message)
	}
}

// reconnect redials and resubscribes to the feed.
func (p *WSProvider) reconnect(delay time.Duration) {
	defer p.reconnecting.Store(false)

	if p.closed.Load() {
		return
	}
	select {
	case <-p.done:
		return
	case <-time.After(delay):
	}

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.dial(ctx); err != nil {
		return
	}
	if err := p.subscribeAllMids(); err != nil {
		return
	}
	p.connected.Store(true)
}

// handleMessage parses one feed message and fans mids out to handlers.
func (p *WSProvider) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Channel != "allMids" {
		return
	}
	now := time.Now().UTC()

	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()
	for asset, raw := range msg.Data.Mids {
		handlers := p.handlers[asset]
		if len(handlers) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		bid, ask := price, price
		md := domain.MarketData{
			Asset:     asset,
			Price:     price,
			Timestamp: now,
			Bid:       &bid,
			Ask:       &ask,
		}
		for _, handler := range handlers {
			handler(md)
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (p *WSProvider) pingLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.connMu.Lock()
			if p.conn != nil {
				p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
				if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Reader handles reconnect on failure.
				}
			}
			p.connMu.Unlock()
		}
	}
}

// Connected reports whether the feed is live.
func (p *WSProvider) Connected() bool { return p.connected.Load() }

// Websocket message types.

type wsSubscribeRequest struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Type string `json:"type"`
}

type wsMessage struct {
	Channel string `json:"channel"`
	Data    wsData `json:"data"`
}

type wsData struct {
	Mids map[string]string `json:"mids"`
}
