package regime

import (
	"math"
	"sync"

	"github.com/Maxnito501/geminibo/internal/indicator"
)

// 中文说明：
// 规则分类器：把指标输出映射为离散行情状态（regime）。
// 规则表按优先级排序、自上而下求值，第一条命中即返回——
// 所有阈值集中在一张表里，避免散落在各调用点的 if/else 漂移。

// Regime 是离散的行情状态标签。
type Regime string

const (
	RegimeWallBlock    Regime = "wall_block"
	RegimeDumping      Regime = "dumping"
	RegimeChurning     Regime = "churning"
	RegimeBreakout     Regime = "breakout"
	RegimeAccumulation Regime = "accumulation"
	RegimeClearPath    Regime = "clear_path"
	RegimeNormal       Regime = "normal"
)

// Confidence 表示信号强度。
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Signal 是分类结果。同样的 Indicators 输入必然得到同样的 Signal。
type Signal struct {
	Regime     Regime     `json:"regime"`
	Rule       string     `json:"rule"`
	Advisory   string     `json:"advisory"`
	Confidence Confidence `json:"confidence"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// Thresholds 汇总规则表用到的全部阈值，零值字段取默认。
type Thresholds struct {
	WallBlockRatio   float64 `mapstructure:"wall_block_ratio" yaml:"wall_block_ratio"`
	WallBlockRSI     float64 `mapstructure:"wall_block_rsi" yaml:"wall_block_rsi"`
	DumpingRVOL      float64 `mapstructure:"dumping_rvol" yaml:"dumping_rvol"`
	ChurningRVOL     float64 `mapstructure:"churning_rvol" yaml:"churning_rvol"`
	FlatEpsilon      float64 `mapstructure:"flat_epsilon" yaml:"flat_epsilon"`
	BreakoutRVOL     float64 `mapstructure:"breakout_rvol" yaml:"breakout_rvol"`
	AccumulationRSI  float64 `mapstructure:"accumulation_rsi" yaml:"accumulation_rsi"`
	AccumulationRVOL float64 `mapstructure:"accumulation_rvol" yaml:"accumulation_rvol"`
	ClearPathRatio   float64 `mapstructure:"clear_path_ratio" yaml:"clear_path_ratio"`
	ExtremeRSI       float64 `mapstructure:"extreme_rsi" yaml:"extreme_rsi"`
}

// DefaultThresholds 是规则表的标准阈值。
func DefaultThresholds() Thresholds {
	return Thresholds{
		WallBlockRatio:   4.0,
		WallBlockRSI:     60,
		DumpingRVOL:      1.5,
		ChurningRVOL:     2.5,
		FlatEpsilon:      0.01,
		BreakoutRVOL:     2.0,
		AccumulationRSI:  35,
		AccumulationRVOL: 1.2,
		ClearPathRatio:   0.5,
		ExtremeRSI:       90,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.WallBlockRatio <= 0 {
		t.WallBlockRatio = def.WallBlockRatio
	}
	if t.WallBlockRSI <= 0 {
		t.WallBlockRSI = def.WallBlockRSI
	}
	if t.DumpingRVOL <= 0 {
		t.DumpingRVOL = def.DumpingRVOL
	}
	if t.ChurningRVOL <= 0 {
		t.ChurningRVOL = def.ChurningRVOL
	}
	if t.FlatEpsilon <= 0 {
		t.FlatEpsilon = def.FlatEpsilon
	}
	if t.BreakoutRVOL <= 0 {
		t.BreakoutRVOL = def.BreakoutRVOL
	}
	if t.AccumulationRSI <= 0 {
		t.AccumulationRSI = def.AccumulationRSI
	}
	if t.AccumulationRVOL <= 0 {
		t.AccumulationRVOL = def.AccumulationRVOL
	}
	if t.ClearPathRatio <= 0 {
		t.ClearPathRatio = def.ClearPathRatio
	}
	if t.ExtremeRSI <= 0 {
		t.ExtremeRSI = def.ExtremeRSI
	}
	return t
}

// Rule 是规则表的一行：谓词 + 标签 + 建议文案。
type Rule struct {
	Name       string
	Regime     Regime
	Confidence Confidence
	Advisory   string
	Match      func(indicator.Indicators, Thresholds) bool
}

// Classifier 持有有序规则表。Classify 与热加载写入可以并发，
// 阈值与文案由读写锁保护；规则表本身构造后不再变化。
type Classifier struct {
	mu         sync.RWMutex
	thresholds Thresholds
	rules      []Rule
	advisories map[Regime]string
}

// NewClassifier 构建标准规则表。
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{
		thresholds: th.withDefaults(),
		rules:      canonicalRules(),
		advisories: map[Regime]string{},
	}
}

// SetAdvisory 覆盖某个 regime 的建议文案（registry 热加载用）。
func (c *Classifier) SetAdvisory(r Regime, text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	c.advisories[r] = text
	c.mu.Unlock()
}

// SetThresholds 整体替换阈值表（registry 热加载用）。
// 表按原样安装：零值同样生效，调用方需提供完整的阈值表。
func (c *Classifier) SetThresholds(th Thresholds) {
	c.mu.Lock()
	c.thresholds = th
	c.mu.Unlock()
}

// Classify 自上而下扫描规则表，第一条命中即返回。
func (c *Classifier) Classify(ind indicator.Indicators) Signal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	th := c.thresholds
	for _, rule := range c.rules {
		if !rule.Match(ind, th) {
			continue
		}
		sig := Signal{
			Regime:     rule.Regime,
			Rule:       rule.Name,
			Advisory:   c.advisoryFor(rule),
			Confidence: rule.Confidence,
		}
		return withWarnings(sig, ind, th)
	}
	// canonicalRules 以恒真的 normal 规则收尾，不会走到这里。
	sig := Signal{Regime: RegimeNormal, Rule: "normal", Advisory: advisoryNormal, Confidence: ConfidenceLow}
	return withWarnings(sig, ind, th)
}

// advisoryFor 需要调用方已持有 c.mu。
func (c *Classifier) advisoryFor(rule Rule) string {
	if text, ok := c.advisories[rule.Regime]; ok {
		return text
	}
	return rule.Advisory
}

func withWarnings(sig Signal, ind indicator.Indicators, th Thresholds) Signal {
	if !ind.DataAvailable {
		sig.Warnings = append(sig.Warnings, "waiting for market data")
	}
	if ind.RSI > th.ExtremeRSI {
		sig.Warnings = append(sig.Warnings, advisoryExtremeRSI)
	}
	return sig
}

const (
	advisoryWallBlock    = "resistance wall ahead; do not chase, set a limit sell just below the wall"
	advisoryDumping      = "price falling on above-average volume; retreat and reduce exposure"
	advisoryChurning     = "heavy volume with a flat price; distribution in progress, take what the market gives"
	advisoryBreakout     = "volume-confirmed advance; let the position run"
	advisoryAccumulation = "oversold with volume support; favorable entry zone"
	advisoryClearPath    = "offer side is thin; upside unobstructed"
	advisoryNormal       = "no strong signal; hold and observe"
	advisoryExtremeRSI   = "extreme overbought: more holders need to sell than buyers need to buy"
)

// canonicalRules 返回标准规则表（优先级从高到低）。
func canonicalRules() []Rule {
	return []Rule{
		{
			Name:       "wall_block",
			Regime:     RegimeWallBlock,
			Confidence: ConfidenceHigh,
			Advisory:   advisoryWallBlock,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.WallRatio > th.WallBlockRatio && ind.RSI > th.WallBlockRSI
			},
		},
		{
			Name:       "dumping",
			Regime:     RegimeDumping,
			Confidence: ConfidenceHigh,
			Advisory:   advisoryDumping,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.ChangePct < 0 && ind.RVOL > th.DumpingRVOL
			},
		},
		{
			Name:       "churning",
			Regime:     RegimeChurning,
			Confidence: ConfidenceHigh,
			Advisory:   advisoryChurning,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.RVOL > th.ChurningRVOL && math.Abs(ind.PriceDrift) < th.FlatEpsilon
			},
		},
		{
			Name:       "breakout",
			Regime:     RegimeBreakout,
			Confidence: ConfidenceHigh,
			Advisory:   advisoryBreakout,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.RVOL > th.BreakoutRVOL && ind.ChangePct > 0
			},
		},
		{
			Name:       "accumulation",
			Regime:     RegimeAccumulation,
			Confidence: ConfidenceMedium,
			Advisory:   advisoryAccumulation,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.RSI < th.AccumulationRSI && ind.RVOL > th.AccumulationRVOL
			},
		},
		{
			Name:       "clear_path",
			Regime:     RegimeClearPath,
			Confidence: ConfidenceMedium,
			Advisory:   advisoryClearPath,
			Match: func(ind indicator.Indicators, th Thresholds) bool {
				return ind.WallRatio > 0 && ind.WallRatio < th.ClearPathRatio
			},
		},
		{
			Name:       "normal",
			Regime:     RegimeNormal,
			Confidence: ConfidenceLow,
			Advisory:   advisoryNormal,
			Match: func(indicator.Indicators, Thresholds) bool {
				return true
			},
		},
	}
}
