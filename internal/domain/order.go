package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderSide is the direction of an order or execution.
type OrderSide string

// Order side constants.
const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType distinguishes market and limit orders.
type OrderType string

// Order type constants.
const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// OrderStatus tracks the lifecycle of an order on the venue.
type OrderStatus string

// Order status constants.
const (
	StatusPending         OrderStatus = "pending"
	StatusSubmitted       OrderStatus = "submitted"
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// Order is a venue order tracked by the live engine. Price is nil for
// market orders.
type Order struct {
	ID               string
	Asset            string
	Side             OrderSide
	Size             float64
	Type             OrderType
	Price            *float64
	Status           OrderStatus
	FilledSize       float64
	AverageFillPrice float64
	ExchangeOrderID  string
	CreatedAt        time.Time
}

// NewLocalOrder creates a pending order with a fresh local ID.
func NewLocalOrder(asset string, side OrderSide, size float64, orderType OrderType, price *float64) Order {
	return Order{
		ID:        uuid.NewString(),
		Asset:     asset,
		Side:      side,
		Size:      size,
		Type:      orderType,
		Price:     price,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// TradeExecution is one fill recorded by the backtest executor or the
// paper adapter.
type TradeExecution struct {
	Timestamp time.Time
	Price     float64
	Size      float64
	Side      OrderSide
}
