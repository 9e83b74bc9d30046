package domain

import "fmt"

// SignalType identifies the intent of a trading signal.
type SignalType string

// Signal type constants.
const (
	SignalBuy   SignalType = "buy"
	SignalSell  SignalType = "sell"
	SignalHold  SignalType = "hold"
	SignalClose SignalType = "close"
)

// Metadata keys the executor and engine understand. Everything else in a
// signal's metadata is opaque strategy state.
const (
	MetaAction     = "action"
	MetaLevelIndex = "level_index"
	MetaGridType   = "grid_type"

	ActionCancelAll = "cancel_all"

	GridTypeInitial = "initial"
)

// TradingSignal is an immutable instruction emitted by a strategy.
// A nil Price means a market order filled at the current sample price;
// a non-nil Price is a resting limit order.
type TradingSignal struct {
	Type     SignalType
	Asset    string
	Size     float64
	Price    *float64
	Reason   string
	Metadata map[string]any
}

// IsCancelAll reports whether the signal carries the cancel-all directive.
// Only Close signals can cancel; any other Close is a no-op.
func (s *TradingSignal) IsCancelAll() bool {
	if s.Type != SignalClose {
		return false
	}
	action, _ := s.Metadata[MetaAction].(string)
	return action == ActionCancelAll
}

// LevelIndex returns the grid level index attached to the signal, if any.
// Accepts int and float64 values so metadata survives a JSON round trip.
func (s *TradingSignal) LevelIndex() (int, bool) {
	v, ok := s.Metadata[MetaLevelIndex]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// CancelAllSignal builds the cancel-all directive for an asset.
func CancelAllSignal(asset, reason string) TradingSignal {
	return TradingSignal{
		Type:     SignalClose,
		Asset:    asset,
		Reason:   reason,
		Metadata: map[string]any{MetaAction: ActionCancelAll},
	}
}

// LevelMetadata builds the level attribution map for grid order signals.
func LevelMetadata(index int, gridType string) map[string]any {
	return map[string]any{
		MetaLevelIndex: index,
		MetaGridType:   gridType,
	}
}

// String implements fmt.Stringer for logging.
func (s *TradingSignal) String() string {
	if s.Price != nil {
		return fmt.Sprintf("%s %s size=%.8f limit=%.8f", s.Type, s.Asset, s.Size, *s.Price)
	}
	return fmt.Sprintf("%s %s size=%.8f market", s.Type, s.Asset, s.Size)
}
