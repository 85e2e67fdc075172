package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration: strategy parameters, cost model
// calibration, engine settings, and the serving/storage surfaces around the
// simulation core.
type Config struct {
	Strategy StrategyConfig `mapstructure:"strategy"`
	Costs    CostConfig     `mapstructure:"costs"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Data     DataConfig     `mapstructure:"data"`
	Server   ServerConfig   `mapstructure:"server"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// StrategyConfig holds cross-sectional signal and rebalance parameters.
type StrategyConfig struct {
	// SignalFeature names the precomputed, pre-lagged feature column used
	// to rank the universe.
	SignalFeature string  `mapstructure:"signal_feature"`
	LongPct       float64 `mapstructure:"long_pct"`
	ShortPct      float64 `mapstructure:"short_pct"`
	// GrossExposure is the requested gross notional as a multiple of
	// available capital. Values above 1 are clipped back to 1 at sizing
	// time (the capital-constraint path) since margin is not modeled.
	GrossExposure float64 `mapstructure:"gross_exposure"`
	// RebalanceFreq is in trading days; 1 means rebalance every day.
	RebalanceFreq int `mapstructure:"rebalance_freq"`
	// LagDays is the number of trading days a feature observation must age
	// before signal generation may see it.
	LagDays int `mapstructure:"lag_days"`
	// MaxNullRate rejects a feature system-wide when its null rate over the
	// whole input exceeds this fraction.
	MaxNullRate float64 `mapstructure:"max_null_rate"`
}

// SpreadTier maps a minimum market cap to a flat spread charge in bps.
type SpreadTier struct {
	MinMarketCap float64 `mapstructure:"min_market_cap"`
	Bps          float64 `mapstructure:"bps"`
}

// CostConfig calibrates the execution cost model.
type CostConfig struct {
	// SpreadTiers must be ordered by descending MinMarketCap; the first tier
	// whose threshold the ticker's market cap reaches applies.
	SpreadTiers []SpreadTier `mapstructure:"spread_tiers"`
	// ImpactK and ImpactAlpha parameterize the square-root law:
	// impact_bps = k * participation^alpha * volatility * 10000.
	ImpactK     float64 `mapstructure:"impact_k"`
	ImpactAlpha float64 `mapstructure:"impact_alpha"`
	FeeMin      float64 `mapstructure:"fee_min"`
	FeePerShare float64 `mapstructure:"fee_per_share"`
	FeeCapPct   float64 `mapstructure:"fee_cap_pct"`
	// CommissionBps and SlippageBps are optional linear add-ons applied to
	// traded notional, folded into the fee and spread components.
	CommissionBps float64 `mapstructure:"commission_bps"`
	SlippageBps   float64 `mapstructure:"slippage_bps"`
}

// EngineConfig holds backtest run settings.
type EngineConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	// Seed drives all randomness in a run (synthetic data, degenerate
	// tie-breaks). Identical inputs and seed produce bit-identical output.
	Seed int64 `mapstructure:"seed"`
}

// DataConfig locates the input bar/feature table.
type DataConfig struct {
	// BarsPath is a Parquet file with one row per (date, ticker).
	BarsPath string `mapstructure:"bars_path"`
}

// ServerConfig holds HTTP API settings for serve mode.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// ArchiveConfig holds run-artifact archive settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

// S3Config holds S3-compatible backend settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with the calibrated default cost model and
// strategy parameters.
func Defaults() *Config {
	return &Config{
		Strategy: StrategyConfig{
			SignalFeature: "momentum_60d",
			LongPct:       0.30,
			ShortPct:      0.30,
			GrossExposure: 1.0,
			RebalanceFreq: 1,
			LagDays:       1,
			MaxNullRate:   0.25,
		},
		Costs: CostConfig{
			SpreadTiers: []SpreadTier{
				{MinMarketCap: 100e9, Bps: 2},
				{MinMarketCap: 10e9, Bps: 5},
				{MinMarketCap: 0, Bps: 10},
			},
			ImpactK:     0.7,
			ImpactAlpha: 0.6,
			FeeMin:      1.0,
			FeePerShare: 0.005,
			FeeCapPct:   0.01,
		},
		Engine: EngineConfig{
			InitialCapital: 1_000_000,
			Seed:           42,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors. Invalid configuration is
// rejected here, before the first simulated date; no partial run is produced.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.SignalFeature == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("signal_feature is required"))
	}
	if s.LongPct <= 0 || s.LongPct > 0.5 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("long_pct must be in (0, 0.5], got %f", s.LongPct))
	}
	if s.ShortPct <= 0 || s.ShortPct > 0.5 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("short_pct must be in (0, 0.5], got %f", s.ShortPct))
	}
	if s.LongPct+s.ShortPct > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("long_pct + short_pct must not exceed 1, got %f", s.LongPct+s.ShortPct))
	}
	if s.GrossExposure <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("gross_exposure must be positive, got %f", s.GrossExposure))
	}
	if s.RebalanceFreq < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rebalance_freq must be >= 1 trading day, got %d", s.RebalanceFreq))
	}
	if s.LagDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lag_days must be >= 1, got %d", s.LagDays))
	}
	if s.MaxNullRate < 0 || s.MaxNullRate > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_null_rate must be in [0, 1], got %f", s.MaxNullRate))
	}

	if c.Engine.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Engine.InitialCapital))
	}

	co := c.Costs
	if len(co.SpreadTiers) == 0 {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("at least one spread tier is required"))
	}
	for i, tier := range co.SpreadTiers {
		if tier.Bps < 0 || tier.MinMarketCap < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("spread tier %d has negative threshold or bps", i))
		}
		if i > 0 && tier.MinMarketCap >= co.SpreadTiers[i-1].MinMarketCap {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("spread tiers must be ordered by descending min_market_cap"))
		}
	}
	if co.ImpactK < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("impact_k cannot be negative, got %f", co.ImpactK))
	}
	if co.ImpactAlpha <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("impact_alpha must be positive, got %f", co.ImpactAlpha))
	}
	if co.FeeMin < 0 || co.FeePerShare < 0 || co.FeeCapPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fee parameters cannot be negative"))
	}
	if co.CommissionBps < 0 || co.SlippageBps < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_bps and slippage_bps cannot be negative"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Archive.Type {
	case "", "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
	}
	if c.Archive.Enabled && c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when archive type is s3"))
	}

	return nil
}
