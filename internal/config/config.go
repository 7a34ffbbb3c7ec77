// Package config handles configuration loading for regimefolio.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/regimefolio/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	FRED       FREDConfig       `mapstructure:"fred"       yaml:"fred"`
	Market     MarketConfig     `mapstructure:"market"     yaml:"market"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"  yaml:"optimizer"`
	Backtest   BacktestConfig   `mapstructure:"backtest"   yaml:"backtest"`
	Files      FilesConfig      `mapstructure:"files"      yaml:"files"`
	HTTP       HTTPConfig       `mapstructure:"http"       yaml:"http"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// FREDConfig holds the macro data source settings.
type FREDConfig struct {
	APIKey  string       `mapstructure:"api_key"  yaml:"api_key"`
	BaseURL string       `mapstructure:"base_url" yaml:"base_url"`
	Series  SeriesConfig `mapstructure:"series"   yaml:"series"`
}

// SeriesConfig maps each indicator to its FRED series code.
type SeriesConfig struct {
	Growth     string `mapstructure:"growth"      yaml:"growth"`      // real GDP
	Inflation  string `mapstructure:"inflation"   yaml:"inflation"`   // CPI
	YieldLong  string `mapstructure:"yield_long"  yaml:"yield_long"`  // 10y treasury
	YieldShort string `mapstructure:"yield_short" yaml:"yield_short"` // 3m treasury
	Money      string `mapstructure:"money"       yaml:"money"`       // M2
	Velocity   string `mapstructure:"velocity"    yaml:"velocity"`    // M2 velocity
}

// MarketConfig holds the price history settings.
type MarketConfig struct {
	BaseURL string            `mapstructure:"base_url" yaml:"base_url"`
	Start   string            `mapstructure:"start"    yaml:"start"`
	End     string            `mapstructure:"end"      yaml:"end"`
	Symbols map[string]string `mapstructure:"symbols"  yaml:"symbols"` // asset → ticker
}

// ClassifierConfig holds regime classification settings.
type ClassifierConfig struct {
	TrendWindow int                           `mapstructure:"trend_window" yaml:"trend_window"`
	MinSignals  int                           `mapstructure:"min_signals"  yaml:"min_signals"`
	ReportSince string                        `mapstructure:"report_since" yaml:"report_since"`
	Allocations map[string]map[string]float64 `mapstructure:"allocations"  yaml:"allocations"` // suggested static weights
}

// OptimizerConfig holds allocation optimizer settings.
type OptimizerConfig struct {
	MinCash         float64 `mapstructure:"min_cash"         yaml:"min_cash"`
	RiskFree        float64 `mapstructure:"risk_free"        yaml:"risk_free"`
	MinObservations int     `mapstructure:"min_observations" yaml:"min_observations"`
	MaxIterations   int     `mapstructure:"max_iterations"   yaml:"max_iterations"`
}

// BacktestConfig holds backtest settings.
type BacktestConfig struct {
	CashAPY       float64 `mapstructure:"cash_apy"       yaml:"cash_apy"`
	StablecoinAPY float64 `mapstructure:"stablecoin_apy" yaml:"stablecoin_apy"`
	TradingDays   int     `mapstructure:"trading_days"   yaml:"trading_days"`
	DefaultCash   float64 `mapstructure:"default_cash"   yaml:"default_cash"`
}

// FilesConfig holds the flat-file contract between stages.
type FilesConfig struct {
	Labels          string `mapstructure:"labels"           yaml:"labels"`
	Returns         string `mapstructure:"returns"          yaml:"returns"`
	Allocations     string `mapstructure:"allocations"      yaml:"allocations"`
	Backtest        string `mapstructure:"backtest"         yaml:"backtest"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile"`
}

// HTTPConfig holds outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSec      int     `mapstructure:"timeout_sec"      yaml:"timeout_sec"`
	RequestsPerSec  float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	MaxRetrySec     int     `mapstructure:"max_retry_sec"    yaml:"max_retry_sec"`
	BreakerFailures int     `mapstructure:"breaker_failures" yaml:"breaker_failures"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "auto", "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.regimefolio/config.yaml (home directory)
//  3. /etc/regimefolio/config.yaml (system)
//
// A .env file in the working directory is loaded first. Environment
// variables override config file values.
// Format: REGIMEFOLIO_<SECTION>_<KEY>, e.g., REGIMEFOLIO_OPTIMIZER_MIN_CASH
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".regimefolio"))
	v.AddConfigPath("/etc/regimefolio")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("REGIMEFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults mirrors the constants of the original study.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.series.growth", "GDPC1")
	v.SetDefault("fred.series.inflation", "CPIAUCSL")
	v.SetDefault("fred.series.yield_long", "GS10")
	v.SetDefault("fred.series.yield_short", "GS3M")
	v.SetDefault("fred.series.money", "M2SL")
	v.SetDefault("fred.series.velocity", "M2V")

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.start", "2010-01-01")
	v.SetDefault("market.end", "2024-12-31")
	v.SetDefault("market.symbols", map[string]string{
		"stocks":      "SPY",
		"crypto":      "BTC-USD",
		"commodities": "GLD",
	})

	v.SetDefault("classifier.trend_window", 12)
	v.SetDefault("classifier.min_signals", 2)
	v.SetDefault("classifier.report_since", "2020-01-01")
	v.SetDefault("classifier.allocations", DefaultSuggestedAllocations())

	v.SetDefault("optimizer.min_cash", 0.10)
	v.SetDefault("optimizer.risk_free", 0.0)
	v.SetDefault("optimizer.min_observations", 2)
	v.SetDefault("optimizer.max_iterations", 5000)

	v.SetDefault("backtest.cash_apy", 0.045)
	v.SetDefault("backtest.stablecoin_apy", 0.05)
	v.SetDefault("backtest.trading_days", 252)
	v.SetDefault("backtest.default_cash", 0.10)

	v.SetDefault("files.labels", "regime_labels_expanded.csv")
	v.SetDefault("files.returns", "asset_returns_monthly.csv")
	v.SetDefault("files.allocations", "optimal_allocations.csv")
	v.SetDefault("files.backtest", "backtest_returns.csv")
	v.SetDefault("files.metrics_textfile", "")

	v.SetDefault("http.timeout_sec", 30)
	v.SetDefault("http.requests_per_sec", 2.0)
	v.SetDefault("http.max_retry_sec", 30)
	v.SetDefault("http.breaker_failures", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")
}

// DefaultSuggestedAllocations returns the static per-regime weights shown
// next to the latest classification.
func DefaultSuggestedAllocations() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"overheating": {"stocks": 0.39747521865407315, "crypto": 0.07001253172847896, "commodities": 0.1802910736997232, "stablecoins": 0.35222117591},
		"recovery":    {"stocks": 0.3928068906738552, "crypto": 0.029166000138361462, "commodities": 0.47369716493452413, "stablecoins": 0.10432994425},
		"stagflation": {"stocks": 0.5441181588630634, "crypto": 0.08262672206168974, "commodities": 0, "stablecoins": 0.37325511907},
		"contraction": {"stocks": 0.0, "crypto": 0.020920205293443395, "commodities": 0.6603384678663021, "stablecoins": 0.31874132684},
	}
}

// overrideFromEnv honours the conventional FRED_API_KEY variable.
func overrideFromEnv(cfg *Config) {
	if cfg.FRED.APIKey != "" {
		return
	}
	if key := os.Getenv("FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
	}
}

// Validate checks value ranges that would otherwise surface as numeric nonsense.
func (c *Config) Validate() error {
	if c.Optimizer.MinCash < 0 || c.Optimizer.MinCash >= 1 {
		return fmt.Errorf("optimizer.min_cash must be in [0,1), got %g", c.Optimizer.MinCash)
	}
	if c.Optimizer.MinObservations < 2 {
		return fmt.Errorf("optimizer.min_observations must be at least 2, got %d", c.Optimizer.MinObservations)
	}
	if c.Classifier.TrendWindow < 1 {
		return fmt.Errorf("classifier.trend_window must be positive, got %d", c.Classifier.TrendWindow)
	}
	if c.Backtest.TradingDays < 1 {
		return fmt.Errorf("backtest.trading_days must be positive, got %d", c.Backtest.TradingDays)
	}
	for asset := range c.Market.Symbols {
		a, err := models.ParseAsset(asset)
		if err != nil {
			return fmt.Errorf("market.symbols: %w", err)
		}
		if a.IsSynthetic() {
			return fmt.Errorf("market.symbols: %s is synthetic and cannot carry a ticker", a)
		}
	}
	return nil
}

// SuggestedAllocations converts the configured static weights into a typed table.
func (c *Config) SuggestedAllocations() (models.AllocationTable, error) {
	table := make(models.AllocationTable, len(c.Classifier.Allocations))
	for label, weights := range c.Classifier.Allocations {
		r, err := models.ParseRegime(label)
		if err != nil {
			return nil, fmt.Errorf("classifier.allocations: %w", err)
		}
		al, err := models.NewAllocation(weights)
		if err != nil {
			return nil, fmt.Errorf("classifier.allocations.%s: %w", label, err)
		}
		table[r] = al
	}
	return table, nil
}

// MarketSymbols returns the typed asset → ticker mapping.
func (c *Config) MarketSymbols() (map[models.Asset]string, error) {
	out := make(map[models.Asset]string, len(c.Market.Symbols))
	for asset, sym := range c.Market.Symbols {
		a, err := models.ParseAsset(asset)
		if err != nil {
			return nil, fmt.Errorf("market.symbols: %w", err)
		}
		out[a] = sym
	}
	return out, nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// loadDotEnv loads ./.env when present; a missing file is not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}
