package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Platform identifiers accepted by PLATFORM.
const (
	PlatformPolymarket = "polymarket"
	PlatformKalshi     = "kalshi"
	PlatformLimitless  = "limitless"
)

// Config holds the immutable per-run parameters. Loaded once before the
// loop starts; never mutated during operation.
type Config struct {
	Platform    string
	MarketQuery string
	MarketIndex int

	TargetSpread              float64
	MinSpread                 float64
	OrderSize                 int
	MaxInventory              int
	RebalanceThreshold        int
	InventoryAdjustmentFactor float64
	UpdateInterval            time.Duration

	DryRun      bool
	JournalPath string // empty disables the session journal

	// Polymarket credentials
	PolyAPIKey     string
	PolyAPISecret  string
	PolyPassphrase string
	PolyAddress    string

	// Kalshi credentials
	KalshiAPIKeyID    string
	KalshiPrivKeyPath string
	KalshiEnv         string // "prod" or "demo"

	// Limitless credentials
	LimitlessAPIKey string
}

func (c *Config) KalshiBaseURL() string {
	if c.KalshiEnv == "demo" {
		return "https://demo-api.kalshi.co/trade-api/v2"
	}
	return "https://api.elections.kalshi.com/trade-api/v2"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Platform:    getEnvDefault("PLATFORM", PlatformPolymarket),
		MarketQuery: os.Getenv("MARKET_QUERY"),

		DryRun:      true,
		JournalPath: getEnvDefault("JOURNAL_PATH", "./data/journal.db"),

		PolyAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolyAPISecret:  os.Getenv("POLYMARKET_API_SECRET"),
		PolyPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
		PolyAddress:    os.Getenv("POLYMARKET_ADDRESS"),

		KalshiAPIKeyID:    os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivKeyPath: getEnvDefault("KALSHI_PRIV_KEY_PATH", "./kalshi_private_key.pem"),
		KalshiEnv:         getEnvDefault("KALSHI_ENV", "prod"),

		LimitlessAPIKey: os.Getenv("LIMITLESS_API_KEY"),
	}

	var err error
	if cfg.MarketIndex, err = intEnv("MARKET_INDEX", 0); err != nil {
		return nil, err
	}
	if cfg.TargetSpread, err = floatEnv("TARGET_SPREAD", 0.04); err != nil {
		return nil, err
	}
	if cfg.MinSpread, err = floatEnv("MIN_SPREAD", 0.02); err != nil {
		return nil, err
	}
	if cfg.OrderSize, err = intEnv("ORDER_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.MaxInventory, err = intEnv("MAX_INVENTORY", 100); err != nil {
		return nil, err
	}
	if cfg.RebalanceThreshold, err = intEnv("REBALANCE_THRESHOLD", 50); err != nil {
		return nil, err
	}
	if cfg.InventoryAdjustmentFactor, err = floatEnv("INVENTORY_ADJUSTMENT_FACTOR", 0.01); err != nil {
		return nil, err
	}

	interval, err := intEnv("UPDATE_INTERVAL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.UpdateInterval = time.Duration(interval) * time.Second

	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("DRY_RUN must be a boolean, got %q", v)
		}
		cfg.DryRun = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parameter ranges and, for live runs, the presence of
// the selected venue's credentials. Any error here is fatal at startup.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformPolymarket, PlatformKalshi, PlatformLimitless:
	default:
		return fmt.Errorf("unsupported platform: %q", c.Platform)
	}

	if c.MarketQuery == "" {
		return fmt.Errorf("MARKET_QUERY is required")
	}
	if c.MarketIndex < 0 {
		return fmt.Errorf("MARKET_INDEX must be >= 0, got %d", c.MarketIndex)
	}
	if c.TargetSpread <= 0 || c.TargetSpread >= 1 {
		return fmt.Errorf("TARGET_SPREAD must be in (0, 1), got %g", c.TargetSpread)
	}
	if c.MinSpread <= 0 || c.MinSpread >= 1 {
		return fmt.Errorf("MIN_SPREAD must be in (0, 1), got %g", c.MinSpread)
	}
	if c.MinSpread > c.TargetSpread {
		return fmt.Errorf("MIN_SPREAD (%g) must not exceed TARGET_SPREAD (%g)", c.MinSpread, c.TargetSpread)
	}
	if c.OrderSize <= 0 {
		return fmt.Errorf("ORDER_SIZE must be positive, got %d", c.OrderSize)
	}
	if c.MaxInventory <= 0 {
		return fmt.Errorf("MAX_INVENTORY must be positive, got %d", c.MaxInventory)
	}
	if c.RebalanceThreshold < 0 {
		return fmt.Errorf("REBALANCE_THRESHOLD must be >= 0, got %d", c.RebalanceThreshold)
	}
	if c.InventoryAdjustmentFactor < 0 {
		return fmt.Errorf("INVENTORY_ADJUSTMENT_FACTOR must be >= 0, got %g", c.InventoryAdjustmentFactor)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL_SECONDS must be positive")
	}
	if c.KalshiEnv != "prod" && c.KalshiEnv != "demo" {
		return fmt.Errorf("KALSHI_ENV must be 'prod' or 'demo', got %q", c.KalshiEnv)
	}

	// Live trading needs the selected venue's credentials. Dry run does not.
	if !c.DryRun {
		switch c.Platform {
		case PlatformPolymarket:
			if c.PolyAPIKey == "" || c.PolyAPISecret == "" || c.PolyPassphrase == "" {
				return fmt.Errorf("POLYMARKET_API_KEY, POLYMARKET_API_SECRET and POLYMARKET_PASSPHRASE are required for live trading")
			}
		case PlatformKalshi:
			if c.KalshiAPIKeyID == "" {
				return fmt.Errorf("KALSHI_API_KEY_ID is required for live trading")
			}
		case PlatformLimitless:
			if c.LimitlessAPIKey == "" {
				return fmt.Errorf("LIMITLESS_API_KEY is required for live trading")
			}
		}
	}

	return nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}
