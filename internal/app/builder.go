package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Maxnito501/geminibo/internal/advisor"
	gbcfg "github.com/Maxnito501/geminibo/internal/config"
	"github.com/Maxnito501/geminibo/internal/indicator"
	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/logger"
	"github.com/Maxnito501/geminibo/internal/market"
	binancesrc "github.com/Maxnito501/geminibo/internal/market/binance"
	settradesrc "github.com/Maxnito501/geminibo/internal/market/settrade"
	"github.com/Maxnito501/geminibo/internal/notifier"
	"github.com/Maxnito501/geminibo/internal/regime"
	"github.com/Maxnito501/geminibo/internal/store/advisorylog"
	"github.com/Maxnito501/geminibo/internal/store/gormstore"
	"github.com/Maxnito501/geminibo/internal/store/ledgerfile"
	apihttp "github.com/Maxnito501/geminibo/internal/transport/http/api"
)

// AppBuilder 把配置装配成可运行的 App。各构造步骤可被测试替换。
type AppBuilder struct {
	cfg *gbcfg.Config

	marketSourceFn func(gbcfg.MarketConfig) (market.Source, error)
	httpServerFn   func(gbcfg.AppConfig, *apihttp.Router) (*apihttp.Server, error)

	notifierOverride notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *gbcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		marketSourceFn: buildMarketSource,
		httpServerFn:   buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	rawSource, err := b.marketSourceFn(cfg.Market)
	if err != nil {
		return nil, err
	}
	source := market.NewCachedSource(rawSource, time.Duration(cfg.Market.CacheTTLSeconds)*time.Second)
	logger.Infof("✓ 行情源就绪: %s (cache ttl %ds)", source.Name(), cfg.Market.CacheTTLSeconds)

	engine := indicator.NewEngine(indicator.Settings{
		RSIPeriod:   cfg.Indicator.RSIPeriod,
		RVOLWindow:  cfg.Indicator.RVOLWindow,
		DriftWindow: cfg.Indicator.DriftWindow,
	})
	classifier := regime.NewClassifier(regime.DefaultThresholds())

	registry, err := regime.NewRegistry(cfg.Regime.RulesPath, classifier)
	if err != nil {
		return nil, fmt.Errorf("加载规则配置失败: %w", err)
	}

	book := ledger.NewBook()
	ledgerStore, err := ledgerfile.NewStore(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化账本文件失败: %w", err)
	}
	if err := ledgerStore.Load(book); err != nil {
		return nil, fmt.Errorf("恢复账本失败 (%s): %w", cfg.Ledger.Path, err)
	}
	logger.Infof("✓ 账本已恢复: %d 条历史 / %d 个自选", len(book.History()), len(book.Watchlist()))

	advisoryLog, err := advisorylog.NewStore(cfg.Ledger.AdvisoryLogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化建议日志失败: %w", err)
	}

	planStore, err := gormstore.NewStore(cfg.Plans.DBPath)
	if err != nil {
		return nil, fmt.Errorf("初始化计划库失败: %w", err)
	}

	textNotifier := b.notifierOverride
	if textNotifier == nil {
		textNotifier = buildTelegram(cfg.Notify)
	}

	advisorSvc := advisor.NewService(source, engine, classifier, advisoryLog, textNotifier, advisor.Options{
		Interval:      cfg.Indicator.Interval,
		Lookback:      cfg.Indicator.Lookback,
		AlertCooldown: time.Duration(cfg.Advisor.AlertCooldownSeconds) * time.Second,
	})

	defaultTier, err := ledger.ParseFeeTier(cfg.Ledger.DefaultFeeTier)
	if err != nil {
		return nil, err
	}

	router := &apihttp.Router{
		Advisor:        advisorSvc,
		Book:           book,
		LedgerFile:     ledgerStore,
		Plans:          planStore,
		AdvisoryLog:    advisoryLog,
		Source:         source,
		GoalTarget:     cfg.Goal.Target,
		DefaultFeeTier: defaultTier,
		Interval:       cfg.Indicator.Interval,
		Lookback:       cfg.Indicator.Lookback,
	}
	httpServer, err := b.httpServerFn(cfg.App, router)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:         cfg,
		httpServer:  httpServer,
		registry:    registry,
		book:        book,
		ledgerStore: ledgerStore,
		advisoryLog: advisoryLog,
		planStore:   planStore,
	}, nil
}

func buildMarketSource(cfg gbcfg.MarketConfig) (market.Source, error) {
	active := cfg.ResolveActiveSource()
	switch strings.ToLower(strings.TrimSpace(active.Name)) {
	case "settrade":
		return settradesrc.New(settradesrc.Config{
			BaseURL:     active.RESTBaseURL,
			AppID:       active.AppID,
			AppSecret:   active.AppSecret,
			Suffix:      active.Suffix,
			DepthLevels: active.DepthLevels,
		})
	case "binance":
		return binancesrc.New(binancesrc.Config{
			RESTBaseURL: active.RESTBaseURL,
			DepthLevels: active.DepthLevels,
		}), nil
	default:
		return nil, fmt.Errorf("未知行情源: %s", active.Name)
	}
}

func buildTelegram(cfg gbcfg.NotifyConfig) notifier.TextNotifier {
	tg := cfg.Telegram
	if !tg.Enabled || strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return notifier.Noop{}
	}
	logger.Infof("✓ Telegram 通知已启用 chat_id=%s", tg.ChatID)
	return notifier.NewTelegram(tg.BotToken, tg.ChatID)
}

func buildHTTPServer(cfg gbcfg.AppConfig, router *apihttp.Router) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{Addr: cfg.HTTPAddr, Router: router})
}

func WithMarketSource(fn func(gbcfg.MarketConfig) (market.Source, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.marketSourceFn = fn
		}
	}
}

func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		if n != nil {
			b.notifierOverride = n
		}
	}
}

func WithHTTPServer(fn func(gbcfg.AppConfig, *apihttp.Router) (*apihttp.Server, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.httpServerFn = fn
		}
	}
}
