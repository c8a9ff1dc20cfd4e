package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaidenAngle/TomKingTrading-sub001/logging"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/breaker"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/concentration"
	"github.com/KaidenAngle/TomKingTrading-sub001/risk/correlation"
)

// Config is the complete risk-engine configuration.
type Config struct {
	Account       AccountConfig       `json:"account" yaml:"account"`
	Breaker       BreakerConfig       `json:"breaker" yaml:"breaker"`
	Correlation   CorrelationConfig   `json:"correlation" yaml:"correlation"`
	Concentration ConcentrationConfig `json:"concentration" yaml:"concentration"`
	Journal       JournalConfig       `json:"journal" yaml:"journal"`
	Logging       logging.Config      `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID      string  `json:"id" yaml:"id"`
	Balance float64 `json:"balance" yaml:"balance"`
	// Phase pins the growth phase (1-4); zero derives it from account value.
	Phase int `json:"phase,omitempty" yaml:"phase,omitempty"`
}

// BreakerConfig contains circuit-breaker thresholds. Percentages are
// fractions (0.05 = 5%).
type BreakerConfig struct {
	DailyLossPct        float64 `json:"daily_loss_pct" yaml:"daily_loss_pct"`
	WeeklyLossPct       float64 `json:"weekly_loss_pct" yaml:"weekly_loss_pct"`
	MonthlyLossPct      float64 `json:"monthly_loss_pct" yaml:"monthly_loss_pct"`
	IntradayDrawdownPct float64 `json:"intraday_drawdown_pct" yaml:"intraday_drawdown_pct"`
	ConsecutiveLosses   int     `json:"consecutive_losses" yaml:"consecutive_losses"`
	RecoveryHours       int     `json:"recovery_hours" yaml:"recovery_hours"`
	RecoveryPct         float64 `json:"recovery_pct" yaml:"recovery_pct"`
}

// CorrelationConfig contains correlation-plugin tuning.
type CorrelationConfig struct {
	DeltaConflictTolerance float64 `json:"delta_conflict_tolerance" yaml:"delta_conflict_tolerance"`
	ReconcileGraceMinutes  int     `json:"reconcile_grace_minutes" yaml:"reconcile_grace_minutes"`
}

// FamilyLimit is the cap set for one concentration family.
type FamilyLimit struct {
	Family         string   `json:"family" yaml:"family"`
	Symbols        []string `json:"symbols" yaml:"symbols"`
	MaxDelta       float64  `json:"max_delta" yaml:"max_delta"`
	MaxStrategies  int      `json:"max_strategies" yaml:"max_strategies"`
	MaxNotionalPct float64  `json:"max_notional_pct" yaml:"max_notional_pct"`
}

// ConcentrationConfig lists family limits; empty means the defaults.
type ConcentrationConfig struct {
	Families []FamilyLimit `json:"families,omitempty" yaml:"families,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv" or "sqlite"
	EventsFile    string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.Phase < 0 || c.Account.Phase > 4 {
		return fmt.Errorf("account.phase must be between 0 (auto) and 4")
	}
	if c.Breaker.DailyLossPct <= 0 || c.Breaker.DailyLossPct >= 1 {
		return fmt.Errorf("breaker.daily_loss_pct must be between 0 and 1")
	}
	if c.Breaker.WeeklyLossPct < c.Breaker.DailyLossPct {
		return fmt.Errorf("breaker.weekly_loss_pct must not be below daily_loss_pct")
	}
	if c.Breaker.MonthlyLossPct < c.Breaker.WeeklyLossPct {
		return fmt.Errorf("breaker.monthly_loss_pct must not be below weekly_loss_pct")
	}
	if c.Breaker.IntradayDrawdownPct <= 0 || c.Breaker.IntradayDrawdownPct >= 1 {
		return fmt.Errorf("breaker.intraday_drawdown_pct must be between 0 and 1")
	}
	if c.Breaker.ConsecutiveLosses <= 0 {
		return fmt.Errorf("breaker.consecutive_losses must be positive")
	}
	if c.Breaker.RecoveryPct <= 0 || c.Breaker.RecoveryPct > 1 {
		return fmt.Errorf("breaker.recovery_pct must be between 0 and 1")
	}
	for _, f := range c.Concentration.Families {
		if f.Family == "" {
			return fmt.Errorf("concentration family requires a name")
		}
		if len(f.Symbols) == 0 {
			return fmt.Errorf("concentration family %s requires symbols", f.Family)
		}
		if f.MaxDelta <= 0 || f.MaxStrategies <= 0 {
			return fmt.Errorf("concentration family %s requires positive caps", f.Family)
		}
		if f.MaxNotionalPct <= 0 || f.MaxNotionalPct > 1 {
			return fmt.Errorf("concentration family %s max_notional_pct must be between 0 and 1", f.Family)
		}
	}
	if c.Journal.Type != "" && c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && (c.Journal.EventsFile == "" || c.Journal.DecisionsFile == "") {
		return fmt.Errorf("journal events_file and decisions_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	return nil
}

// BreakerSettings converts the thresholds into the breaker package's form.
func (c *Config) BreakerSettings() breaker.Config {
	out := breaker.DefaultConfig()
	out.MaxDailyLossPct = c.Breaker.DailyLossPct
	out.MaxWeeklyLossPct = c.Breaker.WeeklyLossPct
	out.MaxMonthlyLossPct = c.Breaker.MonthlyLossPct
	out.MaxIntradayDrawdownPct = c.Breaker.IntradayDrawdownPct
	out.MaxConsecutiveLosses = c.Breaker.ConsecutiveLosses
	if c.Breaker.RecoveryHours > 0 {
		out.RecoveryWait = time.Duration(c.Breaker.RecoveryHours) * time.Hour
	}
	out.RecoveryThresholdPct = c.Breaker.RecoveryPct
	return out
}

// CorrelationSettings converts tuning into the correlation package's form.
func (c *Config) CorrelationSettings() correlation.Config {
	out := correlation.Config{
		FixedPhase:             risk.Phase(c.Account.Phase),
		DeltaConflictTolerance: c.Correlation.DeltaConflictTolerance,
	}
	if c.Correlation.ReconcileGraceMinutes > 0 {
		out.ReconcileGrace = time.Duration(c.Correlation.ReconcileGraceMinutes) * time.Minute
	}
	return out
}

// Families converts family limits, defaulting when none are configured.
func (c *Config) Families() []concentration.FamilyConfig {
	if len(c.Concentration.Families) == 0 {
		return concentration.DefaultFamilies()
	}
	out := make([]concentration.FamilyConfig, 0, len(c.Concentration.Families))
	for _, f := range c.Concentration.Families {
		out = append(out, concentration.FamilyConfig{
			Family:         concentration.FamilyID(f.Family),
			Symbols:        f.Symbols,
			MaxDelta:       f.MaxDelta,
			MaxStrategies:  f.MaxStrategies,
			MaxNotionalPct: f.MaxNotionalPct,
		})
	}
	return out
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:      "RISK-001",
			Balance: 100000,
		},
		Breaker: BreakerConfig{
			DailyLossPct:        0.05,
			WeeklyLossPct:       0.10,
			MonthlyLossPct:      0.15,
			IntradayDrawdownPct: 0.03,
			ConsecutiveLosses:   3,
			RecoveryHours:       24,
			RecoveryPct:         0.98,
		},
		Correlation: CorrelationConfig{
			DeltaConflictTolerance: 5,
			ReconcileGraceMinutes:  15,
		},
		Journal: JournalConfig{
			Type:          "csv",
			EventsFile:    "./risk_events.csv",
			DecisionsFile: "./risk_decisions.csv",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
