package store

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode           string         `yaml:"mode"`
	Symbol         string         `yaml:"symbol"`
	AllowedSymbols []string       `yaml:"allowed_symbols"`
	Exchange       ExchangeConfig `yaml:"exchange"`
	LLM            LLMConfig      `yaml:"llm"`
	Candles        CandleConfig   `yaml:"candles"`
	Risk           RiskConfig     `yaml:"risk"`
	Order          OrderConfig    `yaml:"order"`
	Runner         RunnerConfig   `yaml:"runner"`
	Timeouts       TimeoutConfig  `yaml:"timeouts"`
	News           NewsConfig     `yaml:"news"`
	Metrics        MetricsConfig  `yaml:"metrics"`
}

type ExchangeConfig struct {
	BaseURL            string  `yaml:"base_url"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	Burst              int     `yaml:"burst"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	QuoteCoin          string  `yaml:"quote_coin"`
	Locale             string  `yaml:"locale"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	ModelLabel  string  `yaml:"model_label"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	HistorySize int     `yaml:"history_size"` // agent trader memory; negative disables
	MaxRetries  int     `yaml:"max_retries"`
}

type CandleConfig struct {
	Granularity string `yaml:"granularity"`
	Limit       int    `yaml:"limit"`
}

type RiskConfig struct {
	MaxPositionSize float64 `yaml:"max_position_size"`
	MaxRiskPct      float64 `yaml:"max_risk_pct"`
	MinConfidence   float64 `yaml:"min_confidence"`
}

// MaxSize is the position cap as a decimal, so order sizes never pick up float noise.
func (r RiskConfig) MaxSize() decimal.Decimal {
	return decimal.NewFromFloat(r.MaxPositionSize)
}

type OrderConfig struct {
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

type RunnerConfig struct {
	Mode               string  `yaml:"mode"`
	IntervalSeconds    int     `yaml:"interval_seconds"`
	HFTCycles          int     `yaml:"hft_cycles"`
	HFTIntervalSeconds float64 `yaml:"hft_interval_seconds"`
}

func (r RunnerConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

func (r RunnerConfig) HFTInterval() time.Duration {
	return time.Duration(r.HFTIntervalSeconds * float64(time.Second))
}

type TimeoutConfig struct {
	MarketDataSeconds int `yaml:"market_data_seconds"`
	AccountSeconds    int `yaml:"account_seconds"`
	AnalysisSeconds   int `yaml:"analysis_seconds"`
	OrderSeconds      int `yaml:"order_seconds"`
	ComplianceSeconds int `yaml:"compliance_seconds"`
}

func (t TimeoutConfig) MarketData() time.Duration { return seconds(t.MarketDataSeconds) }
func (t TimeoutConfig) Account() time.Duration    { return seconds(t.AccountSeconds) }
func (t TimeoutConfig) Analysis() time.Duration   { return seconds(t.AnalysisSeconds) }
func (t TimeoutConfig) Order() time.Duration      { return seconds(t.OrderSeconds) }
func (t TimeoutConfig) Compliance() time.Duration { return seconds(t.ComplianceSeconds) }

type NewsConfig struct {
	Enabled        bool         `yaml:"enabled"`
	MaxHeadlines   int          `yaml:"max_headlines"`
	CacheMinutes   int          `yaml:"cache_minutes"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	Sources        []NewsSource `yaml:"sources"`
}

// NewsSource is a page listing headlines. {coin} in SearchPath is replaced with
// the base coin of the traded symbol, e.g. "btc".
type NewsSource struct {
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"base_url"`
	SearchPath string `yaml:"search_path"`
	Item       string `yaml:"item"`
	Title      string `yaml:"title"`
	Link       string `yaml:"link"`
	Published  string `yaml:"published"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultAllowedSymbols are the contracts the bot may trade.
var DefaultAllowedSymbols = []string{
	"cmt_btcusdt",
	"cmt_ethusdt",
	"cmt_solusdt",
	"cmt_dogeusdt",
	"cmt_xrpusdt",
	"cmt_adausdt",
	"cmt_bnbusdt",
	"cmt_ltcusdt",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Symbol == "" {
		c.Symbol = "cmt_btcusdt"
	}
	c.Symbol = strings.ToLower(c.Symbol)
	if len(c.AllowedSymbols) == 0 {
		c.AllowedSymbols = slices.Clone(DefaultAllowedSymbols)
	}

	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://api-contract.weex.com"
	}
	if c.Exchange.RateLimitPerSecond == 0 {
		c.Exchange.RateLimitPerSecond = 10
	}
	if c.Exchange.Burst == 0 {
		c.Exchange.Burst = 5
	}
	if c.Exchange.TimeoutSeconds == 0 {
		c.Exchange.TimeoutSeconds = 15
	}
	if c.Exchange.QuoteCoin == "" {
		c.Exchange.QuoteCoin = "USDT"
	}
	if c.Exchange.Locale == "" {
		c.Exchange.Locale = "en-US"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-5.2"
	}
	if c.LLM.ModelLabel == "" {
		c.LLM.ModelLabel = c.LLM.Model
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.HistorySize == 0 {
		c.LLM.HistorySize = 20
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}

	if c.Candles.Granularity == "" {
		c.Candles.Granularity = "1h"
	}
	if c.Candles.Limit == 0 {
		c.Candles.Limit = 50
	}

	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = 0.0002
	}
	if c.Risk.MaxRiskPct == 0 {
		c.Risk.MaxRiskPct = 0.02
	}

	if c.Order.ClientIDPrefix == "" {
		c.Order.ClientIDPrefix = "fenyr_multi"
	}

	if c.Runner.Mode == "" {
		c.Runner.Mode = "single"
	}
	if c.Runner.IntervalSeconds == 0 {
		c.Runner.IntervalSeconds = 300
	}
	if c.Runner.HFTCycles == 0 {
		c.Runner.HFTCycles = 5
	}
	if c.Runner.HFTIntervalSeconds == 0 {
		c.Runner.HFTIntervalSeconds = 30
	}

	if c.Timeouts.MarketDataSeconds == 0 {
		c.Timeouts.MarketDataSeconds = 10
	}
	if c.Timeouts.AccountSeconds == 0 {
		c.Timeouts.AccountSeconds = 10
	}
	if c.Timeouts.AnalysisSeconds == 0 {
		c.Timeouts.AnalysisSeconds = 60
	}
	if c.Timeouts.OrderSeconds == 0 {
		c.Timeouts.OrderSeconds = 15
	}
	if c.Timeouts.ComplianceSeconds == 0 {
		c.Timeouts.ComplianceSeconds = 10
	}

	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 5
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 30
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 15
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.AllowedSymbols) == 0 {
		return errors.New("allowed_symbols cannot be empty")
	}
	if !c.SymbolAllowed(c.Symbol) {
		return fmt.Errorf("symbol '%s' is not in allowed_symbols", c.Symbol)
	}
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("llm.provider must be 'OPENAI', 'CLAUDE', or 'NOOP', got '%s'", c.LLM.Provider)
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive, got %v", c.Risk.MaxPositionSize)
	}
	if c.Risk.MaxRiskPct <= 0 || c.Risk.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be in (0, 1], got %.4f", c.Risk.MaxRiskPct)
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be in [0, 1], got %.2f", c.Risk.MinConfidence)
	}
	if c.Candles.Limit <= 0 {
		return fmt.Errorf("candles.limit must be positive, got %d", c.Candles.Limit)
	}
	switch c.Runner.Mode {
	case "single", "continuous", "hft":
	default:
		return fmt.Errorf("runner.mode must be 'single', 'continuous', or 'hft', got '%s'", c.Runner.Mode)
	}
	if c.Runner.IntervalSeconds < 0 || c.Runner.HFTCycles < 0 || c.Runner.HFTIntervalSeconds < 0 {
		return errors.New("runner intervals and cycle counts cannot be negative")
	}
	if c.Exchange.RateLimitPerSecond < 0 {
		return fmt.Errorf("exchange.rate_limit_per_second cannot be negative, got %v", c.Exchange.RateLimitPerSecond)
	}
	return nil
}

// SymbolAllowed reports whether symbol is on the allow-list.
func (c *Config) SymbolAllowed(symbol string) bool {
	return slices.Contains(c.AllowedSymbols, strings.ToLower(symbol))
}

// IsLive reports whether orders and compliance logs reach the exchange.
func (c *Config) IsLive() bool {
	return c.Mode == "LIVE"
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
