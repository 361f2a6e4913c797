package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // trading windows need zone data on hosts without it

	"github.com/rustyeddy/atlas/logger"
	"github.com/rustyeddy/atlas/market"
	"gopkg.in/yaml.v3"
)

// StrategyVersion is the parameter set Default reproduces.
const StrategyVersion = "v4.4j"

// Config represents the complete trader configuration
type Config struct {
	Broker   BrokerConfig    `json:"broker" yaml:"broker"`
	Strategy StrategyConfig  `json:"strategy" yaml:"strategy"`
	Symbols  []market.Symbol `json:"symbols" yaml:"symbols"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Log      logger.Config   `json:"log" yaml:"log"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// BrokerConfig selects the venue. Token and AccountID fall back to
// OANDA_TOKEN and OANDA_ACCOUNT_ID.
type BrokerConfig struct {
	Environment  string        `json:"environment" yaml:"environment"` // practice|live
	AccountID    string        `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	Token        string        `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Paper        bool          `json:"paper" yaml:"paper"`
	PaperBalance float64       `json:"paper_balance,omitempty" yaml:"paper_balance,omitempty"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Version  string `json:"version" yaml:"version"`
	Timezone string `json:"timezone" yaml:"timezone"`

	EMAPeriod     int `json:"ema_period" yaml:"ema_period"`
	ATRPeriod     int `json:"atr_period" yaml:"atr_period"`
	ADXPeriod     int `json:"adx_period" yaml:"adx_period"`
	ADRWindowDays int `json:"adr_window_days" yaml:"adr_window_days"`

	ReserveFraction float64 `json:"reserve_fraction" yaml:"reserve_fraction"`
	RiskHigh        float64 `json:"risk_high" yaml:"risk_high"`
	RiskMedium      float64 `json:"risk_medium" yaml:"risk_medium"`
	StopATRMult     float64 `json:"stop_atr_mult" yaml:"stop_atr_mult"`
	TargetATRMult   float64 `json:"target_atr_mult" yaml:"target_atr_mult"`
	MinUnits        int64   `json:"min_units" yaml:"min_units"`
	MinBuyingPower  float64 `json:"min_buying_power" yaml:"min_buying_power"`
	VolatilityRatio float64 `json:"volatility_ratio" yaml:"volatility_ratio"`

	CycleInterval time.Duration `json:"cycle_interval" yaml:"cycle_interval"`
	Cooldown      time.Duration `json:"cooldown" yaml:"cooldown"`
}

// Location loads the reference timezone for trading windows.
func (s StrategyConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	BracketsFile string `json:"brackets_file,omitempty" yaml:"brackets_file,omitempty"`
	EquityFile   string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // empty disables /metrics
}

// LoadFromFile loads configuration from a file (YAML, or JSON as a
// fallback), applies environment overrides and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv fills unset broker credentials from the environment.
func (c *Config) ApplyEnv() {
	if c.Broker.Token == "" {
		c.Broker.Token = os.Getenv("OANDA_TOKEN")
	}
	if c.Broker.AccountID == "" {
		c.Broker.AccountID = os.Getenv("OANDA_ACCOUNT_ID")
	}
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON
// otherwise). Credentials are not written.
func (c *Config) SaveToFile(path string) error {
	out := *c
	out.Broker.Token = ""

	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(&out)
	} else {
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Strategy
	if s.Version != StrategyVersion {
		return fmt.Errorf("strategy.version %q not supported (want %s)", s.Version, StrategyVersion)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("strategy.timezone: %w", err)
	}
	if s.EMAPeriod <= 0 || s.ATRPeriod <= 0 || s.ADXPeriod <= 0 {
		return fmt.Errorf("strategy indicator periods must be positive")
	}
	if s.ADRWindowDays <= 0 {
		return fmt.Errorf("strategy.adr_window_days must be positive")
	}
	if s.ReserveFraction < 0 || s.ReserveFraction >= 1 {
		return fmt.Errorf("strategy.reserve_fraction must be in [0,1)")
	}
	if s.RiskMedium <= 0 || s.RiskMedium > 1 || s.RiskHigh <= 0 || s.RiskHigh > 1 {
		return fmt.Errorf("strategy risk percentages must be between 0 and 1")
	}
	if s.RiskHigh < s.RiskMedium {
		return fmt.Errorf("strategy.risk_high must not be below risk_medium")
	}
	if s.StopATRMult <= 0 || s.TargetATRMult <= 0 {
		return fmt.Errorf("strategy ATR multipliers must be positive")
	}
	if s.MinUnits <= 0 {
		return fmt.Errorf("strategy.min_units must be positive")
	}
	if s.MinBuyingPower < 0 {
		return fmt.Errorf("strategy.min_buying_power must not be negative")
	}
	if s.VolatilityRatio < 0 {
		return fmt.Errorf("strategy.volatility_ratio must not be negative")
	}
	if s.CycleInterval < time.Second {
		return fmt.Errorf("strategy.cycle_interval must be at least 1s")
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("strategy.cooldown must not be negative")
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := map[string]bool{}
	for _, sym := range c.Symbols {
		if err := sym.Validate(); err != nil {
			return err
		}
		if seen[sym.Name] {
			return fmt.Errorf("duplicate symbol %s", sym.Name)
		}
		seen[sym.Name] = true
	}

	if !c.Broker.Paper {
		if c.Broker.Environment == "" {
			return fmt.Errorf("broker.environment is required")
		}
	} else if c.Broker.PaperBalance <= 0 {
		return fmt.Errorf("broker.paper_balance must be positive")
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.BracketsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal brackets_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Symbol looks up a configured symbol by name.
func (c *Config) Symbol(name string) (market.Symbol, bool) {
	for _, s := range c.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return market.Symbol{}, false
}

func w(start, end int) market.Window { return market.Window{Start: start, End: end} }

// DefaultSymbols is the v4.4j pair table.
func DefaultSymbols() []market.Symbol {
	return []market.Symbol{
		{Name: "EURUSD", EntryADX: 18, HighADX: 30, ADXLookbackDays: 7, Windows: []market.Window{w(8, 12)}},
		{Name: "GBPUSD", EntryADX: 18, HighADX: 32, ADXLookbackDays: 7, Windows: []market.Window{w(3, 6)}},
		{Name: "USDJPY", EntryADX: 15, HighADX: 28, ADXLookbackDays: 7, Windows: []market.Window{w(19, 24)}},
		{Name: "AUDUSD", EntryADX: 18, HighADX: 30, ADXLookbackDays: 14, Windows: []market.Window{w(0, 4)}},
		{Name: "EURJPY", EntryADX: 15, HighADX: 28, ADXLookbackDays: 7, Windows: []market.Window{w(3, 6), w(8, 12)}},
		{Name: "USDCHF", EntryADX: 18, HighADX: 30, ADXLookbackDays: 14, Windows: []market.Window{w(8, 12)}},
		{Name: "NZDUSD", EntryADX: 18, HighADX: 30, ADXLookbackDays: 14, Windows: []market.Window{w(19, 24), w(0, 4), w(8, 12)}},
		{Name: "EURGBP", EntryADX: 18, HighADX: 32, ADXLookbackDays: 14, Windows: []market.Window{w(3, 6)}},
		{Name: "USDCAD", EntryADX: 18, HighADX: 30, ADXLookbackDays: 14, Windows: []market.Window{w(8, 12)}},
	}
}

// Default returns the v4.4j configuration against the OANDA practice
// environment with a SQLite journal.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Environment:  "practice",
			Timeout:      30 * time.Second,
			PaperBalance: 10000,
		},
		Strategy: StrategyConfig{
			Version:         StrategyVersion,
			Timezone:        "America/New_York",
			EMAPeriod:       50,
			ATRPeriod:       14,
			ADXPeriod:       14,
			ADRWindowDays:   14,
			ReserveFraction: 0.25,
			RiskHigh:        0.025,
			RiskMedium:      0.01,
			StopATRMult:     1.3,
			TargetATRMult:   2.2,
			MinUnits:        1000,
			VolatilityRatio: 0.5,
			CycleInterval:   300 * time.Second,
			Cooldown:        time.Hour,
		},
		Symbols: DefaultSymbols(),
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./atlas.db",
		},
		Log: logger.Config{Level: "info", Encoding: "json"},
	}
}
