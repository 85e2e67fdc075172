package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/quantsim/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
strategy:
  signal_feature: "volatility_21d"
  long_pct: 0.2
  short_pct: 0.2
  lag_days: 2

engine:
  initial_capital: 250000
  seed: 7

data:
  bars_path: "/tmp/quantsim/bars.parquet"

archive:
  enabled: true
  type: localfs
  path: "/tmp/quantsim/archive"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Strategy.SignalFeature != "volatility_21d" {
		t.Errorf("expected volatility_21d, got %s", cfg.Strategy.SignalFeature)
	}
	if cfg.Strategy.LagDays != 2 {
		t.Errorf("expected lag_days 2, got %d", cfg.Strategy.LagDays)
	}
	if cfg.Engine.InitialCapital != 250000 {
		t.Errorf("expected initial_capital 250000, got %f", cfg.Engine.InitialCapital)
	}

	// Unset fields keep their defaults.
	if cfg.Strategy.RebalanceFreq != 1 {
		t.Errorf("expected default rebalance_freq 1, got %d", cfg.Strategy.RebalanceFreq)
	}
	if len(cfg.Costs.SpreadTiers) != 3 {
		t.Errorf("expected default spread tiers, got %d", len(cfg.Costs.SpreadTiers))
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("QUANTSIM_TEST_BARS", "/data/bars.parquet")

	content := []byte(`
data:
  bars_path: "${QUANTSIM_TEST_BARS}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Data.BarsPath != "/data/bars.parquet" {
		t.Errorf("env var not expanded: %s", cfg.Data.BarsPath)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Strategy.SignalFeature != "momentum_60d" {
		t.Errorf("expected default feature momentum_60d, got %s", cfg.Strategy.SignalFeature)
	}
	if cfg.Engine.InitialCapital != 1_000_000 {
		t.Errorf("expected default capital 1000000, got %f", cfg.Engine.InitialCapital)
	}
	if cfg.Engine.Seed != 42 {
		t.Errorf("expected default seed 42, got %d", cfg.Engine.Seed)
	}
	if cfg.Costs.ImpactK != 0.7 || cfg.Costs.ImpactAlpha != 0.6 {
		t.Errorf("expected impact defaults 0.7/0.6, got %f/%f", cfg.Costs.ImpactK, cfg.Costs.ImpactAlpha)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{"valid defaults", func(c *Config) {}, nil},
		{"missing feature", func(c *Config) { c.Strategy.SignalFeature = "" }, core.ErrConfigMissing},
		{"long_pct zero", func(c *Config) { c.Strategy.LongPct = 0 }, core.ErrConfigInvalid},
		{"long_pct too large", func(c *Config) { c.Strategy.LongPct = 0.6 }, core.ErrConfigInvalid},
		{"short_pct negative", func(c *Config) { c.Strategy.ShortPct = -0.1 }, core.ErrConfigInvalid},
		{"buckets overlap", func(c *Config) {
			c.Strategy.LongPct = 0.5
			c.Strategy.ShortPct = 0.51
		}, core.ErrConfigInvalid},
		{"gross exposure zero", func(c *Config) { c.Strategy.GrossExposure = 0 }, core.ErrConfigInvalid},
		{"rebalance_freq zero", func(c *Config) { c.Strategy.RebalanceFreq = 0 }, core.ErrConfigInvalid},
		{"lag_days zero", func(c *Config) { c.Strategy.LagDays = 0 }, core.ErrConfigInvalid},
		{"max_null_rate above one", func(c *Config) { c.Strategy.MaxNullRate = 1.5 }, core.ErrConfigInvalid},
		{"capital zero", func(c *Config) { c.Engine.InitialCapital = 0 }, core.ErrConfigInvalid},
		{"no spread tiers", func(c *Config) { c.Costs.SpreadTiers = nil }, core.ErrConfigMissing},
		{"tiers out of order", func(c *Config) {
			c.Costs.SpreadTiers = []SpreadTier{{MinMarketCap: 0, Bps: 10}, {MinMarketCap: 10e9, Bps: 5}}
		}, core.ErrConfigInvalid},
		{"negative tier bps", func(c *Config) {
			c.Costs.SpreadTiers = []SpreadTier{{MinMarketCap: 0, Bps: -1}}
		}, core.ErrConfigInvalid},
		{"negative impact_k", func(c *Config) { c.Costs.ImpactK = -0.1 }, core.ErrConfigInvalid},
		{"zero impact_alpha", func(c *Config) { c.Costs.ImpactAlpha = 0 }, core.ErrConfigInvalid},
		{"negative fee", func(c *Config) { c.Costs.FeeMin = -1 }, core.ErrConfigInvalid},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"bad archive type", func(c *Config) { c.Archive.Type = "ftp" }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}, core.ErrConfigMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want code %s", err, tt.wantErr.Code)
			}
		})
	}
}
