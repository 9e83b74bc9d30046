package domain

import "time"

// PriceSample is a single (timestamp, price) observation of an asset.
// Samples are produced externally and consumed in arrival order.
type PriceSample struct {
	Timestamp time.Time
	Price     float64
}

// NewPriceSample creates a price sample.
func NewPriceSample(ts time.Time, price float64) PriceSample {
	return PriceSample{Timestamp: ts, Price: price}
}

// PricePoint is a persisted price observation tagged with its symbol.
// Corresponds to the price_points table.
type PricePoint struct {
	Symbol      string
	TimestampMs int64
	Price       float64
}

// Sample converts a stored point back into the in-memory form consumed by
// the backtest executor.
func (p PricePoint) Sample() PriceSample {
	return PriceSample{Timestamp: time.UnixMilli(p.TimestampMs).UTC(), Price: p.Price}
}

// MarketData is one tick of market state delivered to strategies and the
// risk manager. Bid/Ask are nil when the venue reports only a mid price.
type MarketData struct {
	Asset      string
	Price      float64
	Volume24h  float64
	Timestamp  time.Time
	Bid        *float64
	Ask        *float64
	Volatility *float64
}
