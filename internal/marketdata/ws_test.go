package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-grid-bot/internal/domain"
)

// midsServer upgrades connections, waits for the subscribe request, then
// pushes the given mid maps and keeps the connection open.
func midsServer(t *testing.T, batches []map[string]string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub wsSubscribeRequest
		require.NoError(t, conn.ReadJSON(&sub))
		require.Equal(t, "subscribe", sub.Method)
		require.Equal(t, "allMids", sub.Subscription.Type)

		for _, mids := range batches {
			msg, err := json.Marshal(wsMessage{Channel: "allMids", Data: wsData{Mids: mids}})
			require.NoError(t, err)
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}

		// Hold the connection until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSProviderDeliversMids(t *testing.T) {
	server := midsServer(t, []map[string]string{
		{"BTC": "50000.5", "ETH": "3000"},
		{"BTC": "50100", "JUNK": "bad"},
	})
	defer server.Close()

	provider := NewWSProvider(wsURL(server), nil)
	ctx := context.Background()

	updates := make(chan domain.MarketData, 8)
	require.NoError(t, provider.Subscribe(ctx, "BTC", func(md domain.MarketData) {
		updates <- md
	}))
	require.NoError(t, provider.Connect(ctx))
	defer provider.Disconnect(ctx)

	first := receive(t, updates)
	assert.Equal(t, "BTC", first.Asset)
	assert.InDelta(t, 50000.5, first.Price, 1e-9)
	require.NotNil(t, first.Bid)
	assert.InDelta(t, 50000.5, *first.Bid, 1e-9)

	second := receive(t, updates)
	assert.InDelta(t, 50100.0, second.Price, 1e-9)
	assert.True(t, provider.Connected())
}

func TestWSProviderIgnoresUnsubscribedAssets(t *testing.T) {
	server := midsServer(t, []map[string]string{
		{"ETH": "3000"},
		{"BTC": "50000"},
	})
	defer server.Close()

	provider := NewWSProvider(wsURL(server), nil)
	ctx := context.Background()

	updates := make(chan domain.MarketData, 8)
	require.NoError(t, provider.Subscribe(ctx, "BTC", func(md domain.MarketData) {
		updates <- md
	}))
	require.NoError(t, provider.Connect(ctx))
	defer provider.Disconnect(ctx)

	// Only the BTC update arrives.
	got := receive(t, updates)
	assert.Equal(t, "BTC", got.Asset)
	select {
	case md := <-updates:
		t.Fatalf("unexpected update for %s", md.Asset)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWSProviderClosedAfterDisconnect(t *testing.T) {
	server := midsServer(t, nil)
	defer server.Close()

	provider := NewWSProvider(wsURL(server), nil)
	ctx := context.Background()
	require.NoError(t, provider.Connect(ctx))
	require.NoError(t, provider.Disconnect(ctx))

	err := provider.Subscribe(ctx, "BTC", func(domain.MarketData) {})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, provider.Connect(ctx), ErrClosed)

	// Disconnect is idempotent.
	require.NoError(t, provider.Disconnect(ctx))
}

func receive(t *testing.T, ch <-chan domain.MarketData) domain.MarketData {
	t.Helper()
	select {
	case md := <-ch:
		return md
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
		return domain.MarketData{}
	}
}
