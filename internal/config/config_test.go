package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	assert.Equal(t, defaultMarketCacheTTL, cfg.Market.CacheTTLSeconds)
	assert.Equal(t, defaultLedgerPath, cfg.Ledger.Path)
	assert.Equal(t, defaultFeeTier, cfg.Ledger.DefaultFeeTier)
	assert.Equal(t, defaultAlertCooldown, cfg.Advisor.AlertCooldownSeconds)
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
app:
  http_addr: ":7000"
  log_level: debug
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
app:
  http_addr: ":9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	// 主文件覆盖被 include 的文件，未覆盖的键保留。
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	path := writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoadMarketSources(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
market:
  sources:
    - name: settrade
      enabled: true
      app_id: abc
      app_secret: xyz
    - name: binance
      enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	active := cfg.Market.ResolveActiveSource()
	assert.Equal(t, "settrade", active.Name)
	assert.Equal(t, ".BK", active.Suffix)
	assert.Equal(t, defaultMarketDepth, active.DepthLevels)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "bad_fee.yaml", `
ledger:
  default_fee_tier: vip
`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeFile(t, dir, "bad_source.yaml", `
market:
  sources:
    - name: bloomberg
      enabled: true
`)
	_, err = Load(path)
	assert.Error(t, err)

	path = writeFile(t, dir, "bad_tg.yaml", `
notify:
  telegram:
    enabled: true
`)
	_, err = Load(path)
	assert.Error(t, err)
}
