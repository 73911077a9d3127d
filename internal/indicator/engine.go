package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/Maxnito501/geminibo/internal/market"
)

// 中文说明：
// 指标引擎：从 K 线序列 + 盘口快照计算 RSI / RVOL / Wall Ratio 等衍生指标。
// 缺数据一律降级为中性值并标记 DataAvailable=false，绝不向上抛错，
// 调用方据此渲染「等待数据」状态。

const (
	defaultRSIPeriod   = 14
	defaultRVOLWindow  = 5
	defaultDriftWindow = 5

	// avgLoss 为 0 时的替代值，让 RSI 逼近 100 而不是除零。
	lossEpsilon = 1e-9
)

// Settings 控制各指标窗口，零值字段取默认。
type Settings struct {
	RSIPeriod   int
	RVOLWindow  int
	DriftWindow int
}

func (s Settings) withDefaults() Settings {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = defaultRSIPeriod
	}
	if s.RVOLWindow <= 0 {
		s.RVOLWindow = defaultRVOLWindow
	}
	if s.DriftWindow <= 0 {
		s.DriftWindow = defaultDriftWindow
	}
	return s
}

// Indicators 是一次计算的全部输出。派生值，不落盘。
type Indicators struct {
	Symbol           string   `json:"symbol"`
	LastPrice        float64  `json:"last_price"`
	RSI              float64  `json:"rsi"`
	RVOL             float64  `json:"rvol"`
	WallRatio        float64  `json:"wall_ratio"`
	ChangePct        float64  `json:"change_pct"`
	PriceDrift       float64  `json:"price_drift"`
	RecentVolatility float64  `json:"recent_volatility"`
	DataAvailable    bool     `json:"data_available"`
	RSIEstimated     bool     `json:"rsi_estimated"`
	Notes            []string `json:"notes,omitempty"`
}

// Engine 无状态，可并发使用。
type Engine struct {
	cfg Settings
}

func NewEngine(cfg Settings) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Compute 汇总所有指标。bars 需按时间升序；bars 为空时返回中性输出。
func (e *Engine) Compute(bars []market.Bar, snap market.Snapshot) Indicators {
	out := Indicators{
		Symbol:    snap.Symbol,
		LastPrice: snap.LastPrice,
		RSI:       50,
		RVOL:      1.0,
		WallRatio: WallRatio(snap),
		ChangePct: snap.ChangePct(),
	}
	if len(bars) == 0 {
		out.DataAvailable = false
		out.Notes = append(out.Notes, "no bar history")
		return out
	}
	out.DataAvailable = true
	if out.LastPrice <= 0 {
		out.LastPrice = bars[len(bars)-1].Close
	}

	closes := market.Closes(bars)
	rsi, estimated := RSI(closes, e.cfg.RSIPeriod)
	out.RSI = rsi
	out.RSIEstimated = estimated
	if estimated {
		out.Notes = append(out.Notes, "rsi: insufficient data, neutral 50")
	}

	out.RVOL = RVOL(market.Volumes(bars), e.cfg.RVOLWindow)
	out.PriceDrift = priceDrift(closes, e.cfg.DriftWindow)
	out.RecentVolatility = recentVolatility(closes, e.cfg.DriftWindow)
	return out
}

// RSI 按 Wilder 口径计算：对最近 period 个涨跌幅取简单均值。
// 数据不足 period+1 根时返回中性 50，第二个返回值标记该情况。
// 输出恒落在 [0,100]。
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = defaultRSIPeriod
	}
	if len(closes) < period+1 {
		return 50, true
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss <= 0 {
		avgLoss = lossEpsilon
	}
	rs := avgGain / avgLoss
	rsi := 100 - 100/(1+rs)
	return clamp(rsi, 0, 100), false
}

// RVOL = 最近一根的成交量 / 之前 window 根的平均量。
// 历史均量为 0 或不可得时返回中性 1.0；结果非负、有限。
func RVOL(volumes []float64, window int) float64 {
	if window <= 0 {
		window = defaultRVOLWindow
	}
	n := len(volumes)
	if n < 2 {
		return 1.0
	}
	hist := volumes[:n-1]
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	avg := lastValid(talib.Sma(hist, len(hist)))
	if avg <= 0 || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 1.0
	}
	rv := volumes[n-1] / avg
	if rv < 0 || math.IsNaN(rv) || math.IsInf(rv, 0) {
		return 1.0
	}
	return rv
}

// WallRatio = Σ卖方挂单量 / Σ买方挂单量。
// 买方总量为 0 时定义为 0（「无阻力数据」，而非无穷大的挤压信号）。
func WallRatio(snap market.Snapshot) float64 {
	bid := snap.BidVolume()
	if bid <= 0 {
		return 0
	}
	ratio := snap.OfferVolume() / bid
	if ratio < 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ratio
}

// priceDrift 返回最近 window 根内的价格净位移（量价背离判断用）。
func priceDrift(closes []float64, window int) float64 {
	n := len(closes)
	if n == 0 {
		return 0
	}
	if n <= window {
		return closes[n-1] - closes[0]
	}
	return closes[n-1] - closes[n-1-window]
}

// recentVolatility 为最近 window 根收盘价的标准差。
func recentVolatility(closes []float64, window int) float64 {
	if window <= 1 || len(closes) < window {
		return 0
	}
	tail := closes[len(closes)-window:]
	sd := lastValid(talib.StdDev(tail, window, 1.0))
	if math.IsNaN(sd) || math.IsInf(sd, 0) || sd < 0 {
		return 0
	}
	return sd
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
