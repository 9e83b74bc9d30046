package strategy

import (
	"errors"

	"hyperliquid-grid-bot/internal/config"
)

// Factory errors
var (
	ErrNilConfig = errors.New("strategy requires a configuration")
)

// FromConfig creates the strategy described by a bot configuration. Only
// the grid strategy exists today, so the factory mostly guards inputs and
// leaves room for further strategy types.
func FromConfig(cfg *config.BotConfig) (Strategy, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return NewBasicGridStrategy(cfg), nil
}
