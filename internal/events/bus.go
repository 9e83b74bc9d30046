// Package events provides a small synchronous pub/sub bus for bot
// lifecycle and trading events.
package events

import (
	"sync"
	"time"
)

// Type classifies an event.
type Type string

// Event types.
const (
	OrderFilled     Type = "order_filled"
	OrderCancelled  Type = "order_cancelled"
	OrderPlaced     Type = "order_placed"
	PositionOpened  Type = "position_opened"
	PositionClosed  Type = "position_closed"
	PositionUpdated Type = "position_updated"
	PriceUpdate     Type = "price_update"
	StrategyStart   Type = "strategy_start"
	StrategyStop    Type = "strategy_stop"
	StrategyUpdate  Type = "strategy_update"
	Error           Type = "error"
	System          Type = "system"
	EmergencyStop   Type = "emergency_stop"
)

// Event is one bus message.
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
	Source    string
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType Type, source string, data map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Source:    source,
	}
}

// Listener receives events. Listeners run synchronously on the emitting
// goroutine and must not block.
type Listener func(Event)

// Bus dispatches events to listeners by type. Safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Type][]Listener)}
}

// Subscribe registers a listener for one event type.
func (b *Bus) Subscribe(eventType Type, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// UnsubscribeAll removes every listener for one event type.
func (b *Bus) UnsubscribeAll(eventType Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, eventType)
}

// Emit delivers the event to all listeners registered for its type, in
// subscription order.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners[event.Type]))
	copy(listeners, b.listeners[event.Type])
	b.mu.RUnlock()
	for _, listener := range listeners {
		listener(event)
	}
}
