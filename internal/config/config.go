package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the scoring pipeline.
type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	ReportsDir   string `json:"reports_dir"`
	HistoryDB    string `json:"history_db"`
	RosterPath   string `json:"roster_path"`

	FinnhubAPIKey string `json:"finnhub_api_key"`
	CacheEnabled  bool   `json:"cache_enabled"`

	// Market context symbols used by the sector and macro agents.
	MarketIndexSymbol string `json:"market_index_symbol"`
	VolatilitySymbol  string `json:"volatility_symbol"`
	RateSymbol        string `json:"rate_symbol"`
	FXSymbol          string `json:"fx_symbol"`

	MaxConcurrentSymbols int `json:"max_concurrent_symbols"`

	LogLevel  string `json:"log_level"`
	LogPretty bool   `json:"log_pretty"`
	Debug     bool   `json:"debug"`
}

// DefaultConfig returns the default configuration rooted at the working directory.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	return &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		ReportsDir:   filepath.Join(currentDir, "reports"),
		HistoryDB:    filepath.Join(currentDir, "data", "history.db"),
		RosterPath:   filepath.Join(currentDir, "config", "agent_roster.yaml"),

		FinnhubAPIKey: "",
		CacheEnabled:  true,

		MarketIndexSymbol: "^KS11",
		VolatilitySymbol:  "^VIX",
		RateSymbol:        "^TNX",
		FXSymbol:          "KRW=X",

		MaxConcurrentSymbols: 4,

		LogLevel:  "info",
		LogPretty: true,
		Debug:     false,
	}
}

// LoadConfig builds the configuration from defaults plus .env / environment overrides.
func LoadConfig() *Config {
	// Missing .env is fine, environment variables still apply.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("KSTOCK_FINNHUB_API_KEY"); v != "" {
		cfg.FinnhubAPIKey = v
	}
	if v := os.Getenv("KSTOCK_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("KSTOCK_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.DataCacheDir = filepath.Join(v, "cache")
		cfg.HistoryDB = filepath.Join(v, "history.db")
	}
	if v := os.Getenv("KSTOCK_ROSTER_PATH"); v != "" {
		cfg.RosterPath = v
	}
	if v := os.Getenv("KSTOCK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KSTOCK_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CacheEnabled = b
		}
	}
	if v := os.Getenv("KSTOCK_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentSymbols = n
		}
	}
	if v := os.Getenv("KSTOCK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	return cfg
}

// EnsureDirectories creates all directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.ResultsDir,
		filepath.Join(c.ResultsDir, "agent_results"),
		c.DataDir,
		c.DataCacheDir,
		c.ReportsDir,
		filepath.Dir(c.HistoryDB),
		filepath.Dir(c.RosterPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
