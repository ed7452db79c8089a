package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "mode: DRY_RUN\n"))
	require.NoError(t, err)

	assert.Equal(t, "cmt_btcusdt", cfg.Symbol)
	assert.Len(t, cfg.AllowedSymbols, 8)
	assert.Equal(t, "NOOP", cfg.LLM.Provider)
	assert.Equal(t, "gpt-5.2", cfg.LLM.ModelLabel)
	assert.Equal(t, 20, cfg.LLM.HistorySize)
	assert.Equal(t, "1h", cfg.Candles.Granularity)
	assert.Equal(t, 50, cfg.Candles.Limit)
	assert.Equal(t, "0.0002", cfg.Risk.MaxSize().String())
	assert.Equal(t, 0.02, cfg.Risk.MaxRiskPct)
	assert.Equal(t, "fenyr_multi", cfg.Order.ClientIDPrefix)
	assert.Equal(t, "single", cfg.Runner.Mode)
	assert.Equal(t, 300*time.Second, cfg.Runner.Interval())
	assert.Equal(t, 30*time.Second, cfg.Runner.HFTInterval())
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Analysis())
	assert.False(t, cfg.IsLive())
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
mode: LIVE
symbol: CMT_ETHUSDT
llm:
  provider: openai
  model: gpt-4o-mini
  model_label: GPT-4o
risk:
  max_position_size: 0.001
  min_confidence: 0.6
runner:
  mode: hft
  hft_cycles: 3
  hft_interval_seconds: 1.5
news:
  enabled: true
  sources:
    - name: Example
      base_url: https://news.example.com
      search_path: /tag/{coin}
      item: article
      title: h2
      link: a
`))
	require.NoError(t, err)
	assert.True(t, cfg.IsLive())
	assert.Equal(t, "cmt_ethusdt", cfg.Symbol)
	assert.Equal(t, "OPENAI", cfg.LLM.Provider)
	assert.Equal(t, "GPT-4o", cfg.LLM.ModelLabel)
	assert.Equal(t, "0.001", cfg.Risk.MaxSize().String())
	assert.Equal(t, 1500*time.Millisecond, cfg.Runner.HFTInterval())
	require.Len(t, cfg.News.Sources, 1)
	assert.Equal(t, "/tag/{coin}", cfg.News.Sources[0].SearchPath)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"mode":           func(c *Config) { c.Mode = "PAPER" },
		"symbol":         func(c *Config) { c.Symbol = "cmt_pepeusdt" },
		"provider":       func(c *Config) { c.LLM.Provider = "LLAMA" },
		"max size":       func(c *Config) { c.Risk.MaxPositionSize = -1 },
		"risk pct":       func(c *Config) { c.Risk.MaxRiskPct = 2 },
		"min confidence": func(c *Config) { c.Risk.MinConfidence = 1.5 },
		"runner":         func(c *Config) { c.Runner.Mode = "daemon" },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
