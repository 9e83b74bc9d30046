package domain

import "time"

// Position is a derived snapshot of exposure in one asset. It is computed
// per tick from account state and never persisted.
type Position struct {
	Asset         string
	Size          float64
	EntryPrice    float64
	CurrentValue  float64
	UnrealizedPnL float64
	Timestamp     time.Time
}

// Basis returns the cost basis |size| * entry_price of the position.
func (p *Position) Basis() float64 {
	size := p.Size
	if size < 0 {
		size = -size
	}
	return p.EntryPrice * size
}

// Balance is the account balance of one asset on the venue.
type Balance struct {
	Asset     string
	Available float64
	Locked    float64
	Total     float64
}
