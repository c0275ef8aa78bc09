// Package config loads the bondmmd daemon's runtime configuration from a
// YAML file, the same decoding pattern the lending service daemon uses for
// its own listen address and TLS settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Schrodinger-Labs/BondMM-A/internal/fixedpoint"
	"github.com/Schrodinger-Labs/BondMM-A/native/bondmm"
)

func parseFixed(s string) (fixedpoint.Fixed, error) { return fixedpoint.FromString(s) }

// Config is the bondmmd daemon's top-level configuration.
type Config struct {
	ListenAddress string       `yaml:"listen"`
	MetricsAddr   string       `yaml:"metrics_listen"`
	Pool          PoolConfig   `yaml:"pool"`
	Oracle        OracleConfig `yaml:"oracle"`
}

// PoolConfig seeds the pool's initial reserves and risk parameters.
type PoolConfig struct {
	InitialCash        string `yaml:"initial_cash"`
	InitialBonds       string `yaml:"initial_bonds"`
	MinMaturityDays    int64  `yaml:"min_maturity_days"`
	MaxMaturityDays    int64  `yaml:"max_maturity_days"`
	CollateralRatio    string `yaml:"collateral_ratio"`
	SolvencyThreshold  string `yaml:"solvency_threshold"`
	GracePeriodHours   int64  `yaml:"grace_period_hours"`
	LiquidationPenalty string `yaml:"liquidation_penalty"`
}

// OracleConfig configures the anchor rate feed's fallback rate. It carries
// no staleness setting; staleness is the rate source's own verdict.
type OracleConfig struct {
	FallbackRate string `yaml:"fallback_rate"`
}

// Load reads and decodes a YAML config file, applying the daemon's defaults
// for any field the file omits.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8551",
		MetricsAddr:   ":9551",
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8551"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9551"
	}
	return cfg, nil
}

// Params converts the YAML pool section into a bondmm.Params, falling back
// to bondmm.DefaultParams for any zero-valued field.
func (c PoolConfig) Params() (bondmm.Params, error) {
	p := bondmm.DefaultParams()
	if c.MinMaturityDays > 0 {
		p.MinMaturity = c.MinMaturityDays * 86400
	}
	if c.MaxMaturityDays > 0 {
		p.MaxMaturity = c.MaxMaturityDays * 86400
	}
	if c.CollateralRatio != "" {
		v, err := parseFixed(c.CollateralRatio)
		if err != nil {
			return bondmm.Params{}, fmt.Errorf("collateral_ratio: %w", err)
		}
		p.CollateralRatio = v
	}
	if c.SolvencyThreshold != "" {
		v, err := parseFixed(c.SolvencyThreshold)
		if err != nil {
			return bondmm.Params{}, fmt.Errorf("solvency_threshold: %w", err)
		}
		p.SolvencyThreshold = v
	}
	if c.GracePeriodHours > 0 {
		p.GracePeriod = c.GracePeriodHours * 3600
	}
	if c.LiquidationPenalty != "" {
		v, err := parseFixed(c.LiquidationPenalty)
		if err != nil {
			return bondmm.Params{}, fmt.Errorf("liquidation_penalty: %w", err)
		}
		p.LiquidationPenalty = v
	}
	if err := p.Validate(); err != nil {
		return bondmm.Params{}, err
	}
	return p, nil
}
