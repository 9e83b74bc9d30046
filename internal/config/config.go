// Package config loads and validates the bot configuration tree.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config errors.
var (
	// ErrInvalid is returned when a configuration value is out of range.
	ErrInvalid = errors.New("invalid configuration")
)

// RiskLevel is the coarse account risk preset.
type RiskLevel string

// Risk level constants.
const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
)

// RangeMode selects how grid price bounds are derived.
type RangeMode string

// Range mode constants.
const (
	RangeAuto   RangeMode = "auto"
	RangeManual RangeMode = "manual"
)

// SizingMode selects how per-level order sizes are derived.
type SizingMode string

// Sizing mode constants.
const (
	SizingAuto   SizingMode = "auto"
	SizingManual SizingMode = "manual"
)

// GridSpacing selects the spacing strategy for auto sizing.
type GridSpacing string

// Grid spacing constants.
const (
	SpacingPercentage GridSpacing = "percentage"
	SpacingFixed      GridSpacing = "fixed"
)

// LogLevel is the monitoring log level.
type LogLevel string

// Log level constants (uppercase on the wire, per the config format).
const (
	LogDebug   LogLevel = "DEBUG"
	LogInfo    LogLevel = "INFO"
	LogWarning LogLevel = "WARNING"
	LogError   LogLevel = "ERROR"
)

// ExchangeConfig identifies the venue.
type ExchangeConfig struct {
	Type    string `yaml:"type"`
	Testnet *bool  `yaml:"testnet"`
}

// IsTestnet reports the testnet flag, defaulting to true.
func (c *ExchangeConfig) IsTestnet() bool {
	if c.Testnet == nil {
		return true
	}
	return *c.Testnet
}

// AccountConfig holds account-level limits.
type AccountConfig struct {
	MaxAllocationPct float64   `yaml:"max_allocation_pct"`
	RiskLevel        RiskLevel `yaml:"risk_level"`
}

// AutoRangeConfig derives grid bounds from the first observed price.
type AutoRangeConfig struct {
	RangePct             float64 `yaml:"range_pct"`
	VolatilityAdjustment *bool   `yaml:"volatility_adjustment"`
	MinRangePct          float64 `yaml:"min_range_pct"`
	MaxRangePct          float64 `yaml:"max_range_pct"`
	VolatilityMultiplier float64 `yaml:"volatility_multiplier"`
}

// ManualRangeConfig fixes grid bounds explicitly.
type ManualRangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// PriceRangeConfig selects and parameterises the grid bound mode.
type PriceRangeConfig struct {
	Mode   RangeMode         `yaml:"mode"`
	Auto   AutoRangeConfig   `yaml:"auto"`
	Manual ManualRangeConfig `yaml:"manual"`
}

// AutoSizingConfig derives per-level sizes from account balance.
type AutoSizingConfig struct {
	BalanceReservePct            float64     `yaml:"balance_reserve_pct"`
	MaxSinglePositionPct         float64     `yaml:"max_single_position_pct"`
	GridSpacingStrategy          GridSpacing `yaml:"grid_spacing_strategy"`
	VolatilityPositionAdjustment *bool       `yaml:"volatility_position_adjustment"`
	MinPositionSizeUSD           float64     `yaml:"min_position_size_usd"`
}

// ManualSizingConfig fixes the quote size per grid level.
type ManualSizingConfig struct {
	SizePerLevel float64 `yaml:"size_per_level"`
}

// PositionSizingConfig selects and parameterises the sizing mode.
type PositionSizingConfig struct {
	Mode   SizingMode         `yaml:"mode"`
	Auto   AutoSizingConfig   `yaml:"auto"`
	Manual ManualSizingConfig `yaml:"manual"`
}

// GridConfig parameterises the grid strategy.
type GridConfig struct {
	Symbol         string               `yaml:"symbol"`
	Levels         int                  `yaml:"levels"`
	PriceRange     PriceRangeConfig     `yaml:"price_range"`
	PositionSizing PositionSizingConfig `yaml:"position_sizing"`
}

// RebalanceConfig bounds how often the grid may re-center.
type RebalanceConfig struct {
	PriceMoveThresholdPct float64 `yaml:"price_move_threshold_pct"`
	TimeBased             bool    `yaml:"time_based"`
	CooldownMinutes       int     `yaml:"cooldown_minutes"`
	MaxRebalancesPerDay   int     `yaml:"max_rebalances_per_day"`
}

// Cooldown returns the rebalance cooldown as a duration.
func (c *RebalanceConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// RiskManagementConfig parameterises the risk rule battery.
type RiskManagementConfig struct {
	MaxDrawdownPct     float64         `yaml:"max_drawdown_pct"`
	MaxPositionSizePct float64         `yaml:"max_position_size_pct"`
	StopLossEnabled    bool            `yaml:"stop_loss_enabled"`
	StopLossPct        float64         `yaml:"stop_loss_pct"`
	TakeProfitEnabled  bool            `yaml:"take_profit_enabled"`
	TakeProfitPct      float64         `yaml:"take_profit_pct"`
	Rebalance          RebalanceConfig `yaml:"rebalance"`
}

// MonitoringConfig holds observability settings.
type MonitoringConfig struct {
	LogLevel LogLevel `yaml:"log_level"`
}

// BotConfig is the root configuration tree for one bot instance.
type BotConfig struct {
	Name           string               `yaml:"name"`
	Active         bool                 `yaml:"active"`
	Exchange       ExchangeConfig       `yaml:"exchange"`
	Account        AccountConfig        `yaml:"account"`
	Grid           GridConfig           `yaml:"grid"`
	RiskManagement RiskManagementConfig `yaml:"risk_management"`
	Monitoring     MonitoringConfig     `yaml:"monitoring"`

	LoadedAt time.Time `yaml:"-"`
}

// Load reads and validates a bot configuration file.
func Load(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration document. Defaults are
// applied before validation, so a sparse document only needs name, active
// and the grid symbol/levels.
func Parse(data []byte) (*BotConfig, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LoadedAt = time.Now().UTC()
	return cfg, nil
}

// defaultConfig returns the configuration skeleton with all defaults set.
func defaultConfig() *BotConfig {
	return &BotConfig{
		Exchange: ExchangeConfig{Type: "hyperliquid"},
		Account: AccountConfig{
			MaxAllocationPct: 20.0,
			RiskLevel:        RiskModerate,
		},
		Grid: GridConfig{
			Symbol: "BTC",
			Levels: 15,
			PriceRange: PriceRangeConfig{
				Mode: RangeAuto,
				Auto: AutoRangeConfig{
					RangePct:             10.0,
					MinRangePct:          5.0,
					MaxRangePct:          25.0,
					VolatilityMultiplier: 2.0,
				},
				Manual: ManualRangeConfig{Min: 90_000.0, Max: 120_000.0},
			},
			PositionSizing: PositionSizingConfig{
				Mode: SizingAuto,
				Auto: AutoSizingConfig{
					BalanceReservePct:    50.0,
					MaxSinglePositionPct: 10.0,
					GridSpacingStrategy:  SpacingPercentage,
					MinPositionSizeUSD:   10.0,
				},
				Manual: ManualSizingConfig{SizePerLevel: 0.0001},
			},
		},
		RiskManagement: RiskManagementConfig{
			MaxDrawdownPct:     15.0,
			MaxPositionSizePct: 30.0,
			StopLossPct:        5.0,
			TakeProfitPct:      20.0,
			Rebalance: RebalanceConfig{
				PriceMoveThresholdPct: 15.0,
				CooldownMinutes:       30,
				MaxRebalancesPerDay:   10,
			},
		},
		Monitoring: MonitoringConfig{LogLevel: LogInfo},
	}
}

// applyDefaults fills zero values that YAML unmarshalling may have
// clobbered in nested sections a document only partially specifies.
func (c *BotConfig) applyDefaults() {
	if c.Exchange.Type == "" {
		c.Exchange.Type = "hyperliquid"
	}
	if c.Account.RiskLevel == "" {
		c.Account.RiskLevel = RiskModerate
	}
	if c.Grid.PriceRange.Mode == "" {
		c.Grid.PriceRange.Mode = RangeAuto
	}
	if c.Grid.PositionSizing.Mode == "" {
		c.Grid.PositionSizing.Mode = SizingAuto
	}
	if c.Grid.PositionSizing.Auto.GridSpacingStrategy == "" {
		c.Grid.PositionSizing.Auto.GridSpacingStrategy = SpacingPercentage
	}
	if c.Monitoring.LogLevel == "" {
		c.Monitoring.LogLevel = LogInfo
	}
	d := defaultConfig()
	if c.Grid.PriceRange.Auto.RangePct == 0 {
		c.Grid.PriceRange.Auto = d.Grid.PriceRange.Auto
	}
	if c.Grid.PriceRange.Manual.Min == 0 && c.Grid.PriceRange.Manual.Max == 0 {
		c.Grid.PriceRange.Manual = d.Grid.PriceRange.Manual
	}
	if c.Grid.PositionSizing.Auto.MinPositionSizeUSD == 0 {
		auto := d.Grid.PositionSizing.Auto
		auto.GridSpacingStrategy = c.Grid.PositionSizing.Auto.GridSpacingStrategy
		c.Grid.PositionSizing.Auto = auto
	}
	if c.Grid.PositionSizing.Manual.SizePerLevel == 0 {
		c.Grid.PositionSizing.Manual = d.Grid.PositionSizing.Manual
	}
	if c.RiskManagement.MaxDrawdownPct == 0 {
		c.RiskManagement.MaxDrawdownPct = d.RiskManagement.MaxDrawdownPct
	}
	if c.RiskManagement.MaxPositionSizePct == 0 {
		c.RiskManagement.MaxPositionSizePct = d.RiskManagement.MaxPositionSizePct
	}
	if c.RiskManagement.StopLossPct == 0 {
		c.RiskManagement.StopLossPct = d.RiskManagement.StopLossPct
	}
	if c.RiskManagement.TakeProfitPct == 0 {
		c.RiskManagement.TakeProfitPct = d.RiskManagement.TakeProfitPct
	}
	if c.RiskManagement.Rebalance.PriceMoveThresholdPct == 0 {
		c.RiskManagement.Rebalance.PriceMoveThresholdPct = d.RiskManagement.Rebalance.PriceMoveThresholdPct
	}
	if c.RiskManagement.Rebalance.CooldownMinutes == 0 {
		c.RiskManagement.Rebalance.CooldownMinutes = d.RiskManagement.Rebalance.CooldownMinutes
	}
	if c.RiskManagement.Rebalance.MaxRebalancesPerDay == 0 {
		c.RiskManagement.Rebalance.MaxRebalancesPerDay = d.RiskManagement.Rebalance.MaxRebalancesPerDay
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks every section against its documented ranges.
func (c *BotConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalidf("name must be provided")
	}
	if strings.TrimSpace(c.Exchange.Type) == "" {
		return invalidf("exchange type must be provided")
	}
	if c.Account.MaxAllocationPct < 1 || c.Account.MaxAllocationPct > 100 {
		return invalidf("max_allocation_pct must be between 1 and 100")
	}
	switch c.Account.RiskLevel {
	case RiskConservative, RiskModerate, RiskAggressive:
	default:
		return invalidf("risk_level must be conservative, moderate or aggressive")
	}
	if err := c.Grid.validate(); err != nil {
		return err
	}
	if err := c.RiskManagement.validate(); err != nil {
		return err
	}
	switch c.Monitoring.LogLevel {
	case LogDebug, LogInfo, LogWarning, LogError:
	default:
		return invalidf("log_level must be DEBUG, INFO, WARNING or ERROR")
	}
	return nil
}

func (g *GridConfig) validate() error {
	if strings.TrimSpace(g.Symbol) == "" {
		return invalidf("symbol must be provided")
	}
	if g.Levels < 3 || g.Levels > 50 {
		return invalidf("levels must be between 3 and 50")
	}
	switch g.PriceRange.Mode {
	case RangeAuto, RangeManual:
	default:
		return invalidf("price_range mode must be auto or manual")
	}
	auto := g.PriceRange.Auto
	if auto.RangePct < 1 || auto.RangePct > 50 {
		return invalidf("range_pct must be within 1 and 50")
	}
	if auto.MinRangePct < 1 || auto.MinRangePct > 50 {
		return invalidf("min_range_pct must be within 1 and 50")
	}
	if auto.MaxRangePct < 1 || auto.MaxRangePct > 50 {
		return invalidf("max_range_pct must be within 1 and 50")
	}
	if auto.MinRangePct > auto.MaxRangePct {
		return invalidf("min_range_pct must not exceed max_range_pct")
	}
	if auto.RangePct < auto.MinRangePct || auto.RangePct > auto.MaxRangePct {
		return invalidf("range_pct must fall between min_range_pct and max_range_pct")
	}
	manual := g.PriceRange.Manual
	if manual.Min <= 0 || manual.Max <= 0 {
		return invalidf("manual price bounds must be positive")
	}
	if manual.Min >= manual.Max {
		return invalidf("manual min must be less than max")
	}
	switch g.PositionSizing.Mode {
	case SizingAuto, SizingManual:
	default:
		return invalidf("position_sizing mode must be auto or manual")
	}
	sizing := g.PositionSizing.Auto
	if sizing.BalanceReservePct < 10 || sizing.BalanceReservePct > 90 {
		return invalidf("balance_reserve_pct must be between 10 and 90")
	}
	if sizing.MaxSinglePositionPct < 1 || sizing.MaxSinglePositionPct > 50 {
		return invalidf("max_single_position_pct must be between 1 and 50")
	}
	switch sizing.GridSpacingStrategy {
	case SpacingPercentage, SpacingFixed:
	default:
		return invalidf("grid_spacing_strategy must be percentage or fixed")
	}
	if sizing.MinPositionSizeUSD <= 0 {
		return invalidf("min_position_size_usd must be positive")
	}
	if g.PositionSizing.Manual.SizePerLevel <= 0 {
		return invalidf("size_per_level must be positive")
	}
	return nil
}

func (r *RiskManagementConfig) validate() error {
	if r.MaxDrawdownPct < 5 || r.MaxDrawdownPct > 50 {
		return invalidf("max_drawdown_pct must be between 5 and 50")
	}
	if r.MaxPositionSizePct < 10 || r.MaxPositionSizePct > 100 {
		return invalidf("max_position_size_pct must be between 10 and 100")
	}
	if r.StopLossEnabled && (r.StopLossPct < 1 || r.StopLossPct > 20) {
		return invalidf("stop_loss_pct must be between 1 and 20")
	}
	if r.TakeProfitEnabled && (r.TakeProfitPct < 5 || r.TakeProfitPct > 100) {
		return invalidf("take_profit_pct must be between 5 and 100")
	}
	reb := r.Rebalance
	if reb.PriceMoveThresholdPct < 5 || reb.PriceMoveThresholdPct > 50 {
		return invalidf("price_move_threshold_pct must be between 5 and 50")
	}
	if reb.CooldownMinutes < 1 {
		return invalidf("cooldown_minutes must be at least 1")
	}
	if reb.MaxRebalancesPerDay < 1 {
		return invalidf("max_rebalances_per_day must be at least 1")
	}
	return nil
}
