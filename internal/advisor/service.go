package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Maxnito501/geminibo/internal/indicator"
	"github.com/Maxnito501/geminibo/internal/logger"
	"github.com/Maxnito501/geminibo/internal/market"
	"github.com/Maxnito501/geminibo/internal/notifier"
	"github.com/Maxnito501/geminibo/internal/pkg/symbol"
	"github.com/Maxnito501/geminibo/internal/regime"
	"github.com/Maxnito501/geminibo/internal/store/advisorylog"
)

// 中文说明：
// 建议服务：一次 Advise 调用 = 并发拉取 K 线 + 盘口 → 计算指标 → 规则分类，
// 顺带落建议日志、按需推送高风险告警。行情缺失降级为「等待数据」输出，
// 只有行情源真正报错才向上返回 error。

const (
	defaultInterval = "1d"
	defaultLookback = 60
	defaultCooldown = 15 * time.Minute
)

// Advice 是一次完整的建议输出。
type Advice struct {
	Indicators  indicator.Indicators `json:"indicators"`
	Signal      regime.Signal        `json:"signal"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Options 控制建议服务的可调参数，零值取默认。
type Options struct {
	Interval      string
	Lookback      int
	AlertCooldown time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval == "" {
		o.Interval = defaultInterval
	}
	if o.Lookback <= 0 {
		o.Lookback = defaultLookback
	}
	if o.AlertCooldown <= 0 {
		o.AlertCooldown = defaultCooldown
	}
	return o
}

// Service 组合行情源、指标引擎与分类器。并发安全。
type Service struct {
	source     market.Source
	engine     *indicator.Engine
	classifier *regime.Classifier
	log        *advisorylog.Store
	notify     notifier.TextNotifier
	opts       Options

	mu        sync.Mutex
	lastAlert map[string]time.Time
	now       func() time.Time
}

// NewService 创建建议服务。log 可为 nil（不落日志），notify 可为 nil（不推送）。
func NewService(src market.Source, engine *indicator.Engine, classifier *regime.Classifier,
	log *advisorylog.Store, notify notifier.TextNotifier, opts Options) *Service {
	if notify == nil {
		notify = notifier.Noop{}
	}
	return &Service{
		source:     src,
		engine:     engine,
		classifier: classifier,
		log:        log,
		notify:     notify,
		opts:       opts.withDefaults(),
		lastAlert:  map[string]time.Time{},
		now:        time.Now,
	}
}

// Advise 为单个 symbol 产出一份建议。
func (s *Service) Advise(ctx context.Context, sym string) (Advice, error) {
	sym = symbol.Normalize(sym)
	if sym == "" {
		return Advice{}, fmt.Errorf("advisor: symbol 不能为空")
	}

	var (
		bars []market.Bar
		snap market.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		got, err := s.source.FetchBars(gctx, sym, s.opts.Interval, s.opts.Lookback)
		if errors.Is(err, market.ErrNoData) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch bars %s: %w", sym, err)
		}
		bars = got
		return nil
	})
	g.Go(func() error {
		got, err := s.source.FetchSnapshot(gctx, sym)
		if errors.Is(err, market.ErrNoData) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch snapshot %s: %w", sym, err)
		}
		snap = got
		return nil
	})
	if err := g.Wait(); err != nil {
		return Advice{}, err
	}
	if snap.Symbol == "" {
		snap.Symbol = sym
	}

	ind := s.engine.Compute(bars, snap)
	sig := s.classifier.Classify(ind)
	advice := Advice{Indicators: ind, Signal: sig, GeneratedAt: s.now()}

	if s.log != nil {
		if _, err := s.log.Append(ctx, ind, sig); err != nil {
			logger.Warnf("advisory log append failed for %s: %v", sym, err)
		}
	}
	s.maybeAlert(sym, advice)
	return advice, nil
}

// AdviseAll 批量产出建议，单个 symbol 失败不拖垮整批。
func (s *Service) AdviseAll(ctx context.Context, symbols []string) map[string]Advice {
	out := make(map[string]Advice, len(symbols))
	var outMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, raw := range symbols {
		sym := raw
		g.Go(func() error {
			advice, err := s.Advise(gctx, sym)
			if err != nil {
				logger.Warnf("advise %s failed: %v", sym, err)
				return nil
			}
			outMu.Lock()
			out[symbol.Normalize(sym)] = advice
			outMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// maybeAlert 对高置信度的风险状态（压盘 / 出货）推送一条文本告警。
// 同一 symbol 在冷却窗口内只推一次；推送失败只记日志，不影响建议结果。
func (s *Service) maybeAlert(sym string, advice Advice) {
	if advice.Signal.Confidence != regime.ConfidenceHigh {
		return
	}
	switch advice.Signal.Regime {
	case regime.RegimeWallBlock, regime.RegimeDumping:
	default:
		return
	}

	s.mu.Lock()
	last, seen := s.lastAlert[sym]
	now := s.now()
	if seen && now.Sub(last) < s.opts.AlertCooldown {
		s.mu.Unlock()
		return
	}
	s.lastAlert[sym] = now
	s.mu.Unlock()

	text := fmt.Sprintf("[%s] %s (%s)\nprice %.4f | rsi %.1f | rvol %.2f | wall %.2f\n%s",
		sym, advice.Signal.Regime, advice.Signal.Confidence,
		advice.Indicators.LastPrice, advice.Indicators.RSI, advice.Indicators.RVOL,
		advice.Indicators.WallRatio, advice.Signal.Advisory)
	if err := s.notify.SendText(text); err != nil {
		logger.Warnf("alert push failed for %s: %v", sym, err)
	}
}
