package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/store"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["agent"])
	assert.True(t, names["indicators"])
	assert.True(t, names["summary"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestApplyRunFlagsOnlyOverridesChangedFlags(t *testing.T) {
	configPath := "config.yaml"
	cmd := newRunCmd(&configPath)
	require.NoError(t, cmd.Flags().Parse([]string{"--mode", "hft", "--cycles", "3"}))

	a := &app{cfg: store.Default()}
	applyRunFlags(cmd, a, runFlags{mode: "hft", cycles: 3})

	assert.Equal(t, "hft", a.cfg.Runner.Mode)
	assert.Equal(t, 3, a.cfg.Runner.HFTCycles)
	assert.Equal(t, "cmt_btcusdt", a.cfg.Symbol)
	assert.Equal(t, 300, a.cfg.Runner.IntervalSeconds)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := loadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "DRY_RUN", cfg.Mode)
	assert.False(t, cfg.IsLive())
}

func TestApplyAgentFlags(t *testing.T) {
	configPath := "config.yaml"
	cmd := newAgentCmd(&configPath)
	require.NoError(t, cmd.Flags().Parse([]string{"--symbol", "CMT_ETHUSDT", "--interval", "90"}))

	a := &app{cfg: store.Default()}
	applyAgentFlags(cmd, a, agentFlags{symbol: "CMT_ETHUSDT", interval: 90})

	assert.Equal(t, "cmt_ethusdt", a.cfg.Symbol)
	assert.Equal(t, 90, a.cfg.Runner.IntervalSeconds)
	mode, err := cmd.Flags().GetString("mode")
	require.NoError(t, err)
	assert.Equal(t, "single", mode)
}
