package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gbcfg "github.com/Maxnito501/geminibo/internal/config"
	"github.com/Maxnito501/geminibo/internal/market"
	"github.com/Maxnito501/geminibo/internal/notifier"
)

type emptySource struct{}

func (emptySource) Name() string { return "empty" }

func (emptySource) FetchBars(ctx context.Context, symbol, interval string, lookback int) ([]market.Bar, error) {
	return nil, market.ErrNoData
}

func (emptySource) FetchSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	return market.Snapshot{}, market.ErrNoData
}

func testConfig(t *testing.T) *gbcfg.Config {
	t.Helper()
	dir := t.TempDir()
	return &gbcfg.Config{
		App: gbcfg.AppConfig{
			Env: "test", LogLevel: "error", HTTPAddr: ":0",
			DataDir: dir,
		},
		Market:    gbcfg.MarketConfig{CacheTTLSeconds: 30},
		Indicator: gbcfg.IndicatorConfig{Interval: "1d", Lookback: 30},
		Regime:    gbcfg.RegimeConfig{RulesPath: filepath.Join(dir, "rules.yaml")},
		Ledger: gbcfg.LedgerConfig{
			Path:            filepath.Join(dir, "ledger.json"),
			AdvisoryLogPath: filepath.Join(dir, "advisory.db"),
			DefaultFeeTier:  "streaming",
		},
		Plans:   gbcfg.PlansConfig{DBPath: filepath.Join(dir, "plans.db")},
		Goal:    gbcfg.GoalConfig{Target: 1000},
		Advisor: gbcfg.AdvisorConfig{AlertCooldownSeconds: 60},
	}
}

func TestBuildWiresApp(t *testing.T) {
	b := NewAppBuilder(testConfig(t),
		WithMarketSource(func(gbcfg.MarketConfig) (market.Source, error) {
			return emptySource{}, nil
		}),
		WithNotifier(notifier.Noop{}),
	)
	a, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.shutdown()

	assert.NotNil(t, a.httpServer)
	assert.NotNil(t, a.registry)
	assert.NotNil(t, a.book)
}

func TestBuildRejectsNilConfig(t *testing.T) {
	b := NewAppBuilder(nil)
	_, err := b.Build(context.Background())
	assert.Error(t, err)
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Market.Sources = []gbcfg.MarketSource{{Name: "bloomberg", Enabled: true}}
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)
}
