package regime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Maxnito501/geminibo/internal/indicator"
)

func TestClassifyRuleTable(t *testing.T) {
	c := NewClassifier(Thresholds{})

	cases := []struct {
		name string
		in   indicator.Indicators
		want Regime
		conf Confidence
	}{
		{
			name: "wall block",
			in:   indicator.Indicators{DataAvailable: true, WallRatio: 5.0, RSI: 70, RVOL: 1.0},
			want: RegimeWallBlock,
			conf: ConfidenceHigh,
		},
		{
			name: "dumping",
			in:   indicator.Indicators{DataAvailable: true, ChangePct: -1.2, RVOL: 2.0, RSI: 50, WallRatio: 1},
			want: RegimeDumping,
			conf: ConfidenceHigh,
		},
		{
			name: "churning on flat price with heavy volume",
			in:   indicator.Indicators{DataAvailable: true, RVOL: 3.0, PriceDrift: 0.001, ChangePct: 0, RSI: 55, WallRatio: 1},
			want: RegimeChurning,
			conf: ConfidenceHigh,
		},
		{
			name: "breakout",
			in:   indicator.Indicators{DataAvailable: true, RVOL: 2.2, ChangePct: 1.5, PriceDrift: 0.05, RSI: 65, WallRatio: 1},
			want: RegimeBreakout,
			conf: ConfidenceHigh,
		},
		{
			name: "accumulation",
			in:   indicator.Indicators{DataAvailable: true, RSI: 30, RVOL: 1.3, ChangePct: 0.2, PriceDrift: 0.05, WallRatio: 1},
			want: RegimeAccumulation,
			conf: ConfidenceMedium,
		},
		{
			name: "clear path",
			in:   indicator.Indicators{DataAvailable: true, WallRatio: 0.3, RSI: 50, RVOL: 1.0},
			want: RegimeClearPath,
			conf: ConfidenceMedium,
		},
		{
			name: "fallthrough to normal",
			in:   indicator.Indicators{DataAvailable: true, RVOL: 0.3, WallRatio: 3.0, RSI: 50},
			want: RegimeNormal,
			conf: ConfidenceLow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := c.Classify(tc.in)
			assert.Equal(t, tc.want, sig.Regime)
			assert.Equal(t, tc.conf, sig.Confidence)
			assert.NotEmpty(t, sig.Advisory)
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewClassifier(Thresholds{})

	// 同时满足 wall_block（规则1）与 breakout（规则4）：必须取优先级更高的 wall_block。
	in := indicator.Indicators{
		DataAvailable: true,
		WallRatio:     5.0,
		RSI:           70,
		RVOL:          2.5,
		ChangePct:     1.0,
		PriceDrift:    0.10,
	}
	sig := c.Classify(in)
	assert.Equal(t, RegimeWallBlock, sig.Regime)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(Thresholds{})
	in := indicator.Indicators{DataAvailable: true, RVOL: 3.0, PriceDrift: 0.0, RSI: 58, WallRatio: 1.2}
	first := c.Classify(in)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify(in))
	}
}

func TestClassifyWarnings(t *testing.T) {
	c := NewClassifier(Thresholds{})

	t.Run("extreme overbought appended", func(t *testing.T) {
		in := indicator.Indicators{DataAvailable: true, RSI: 95, RVOL: 2.2, ChangePct: 0.5, PriceDrift: 0.05, WallRatio: 1}
		sig := c.Classify(in)
		assert.Equal(t, RegimeBreakout, sig.Regime)
		assert.Contains(t, sig.Warnings, advisoryExtremeRSI)
	})

	t.Run("no data warning", func(t *testing.T) {
		sig := c.Classify(indicator.Indicators{DataAvailable: false, RSI: 50, RVOL: 1})
		assert.Equal(t, RegimeNormal, sig.Regime)
		assert.Contains(t, sig.Warnings, "waiting for market data")
	})
}

// 热加载写入与请求路径的 Classify 并发发生（Registry.Watch 是独立 goroutine），
// -race 下跑这组必须干净。
func TestClassifyConcurrentWithHotReload(t *testing.T) {
	c := NewClassifier(Thresholds{})
	in := indicator.Indicators{DataAvailable: true, RVOL: 2.2, ChangePct: 0.5, PriceDrift: 0.05, RSI: 60, WallRatio: 1}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		th := DefaultThresholds()
		for i := 0; i < 2000; i++ {
			th.BreakoutRVOL = 1.5 + float64(i%10)*0.1
			c.SetThresholds(th)
			c.SetAdvisory(RegimeBreakout, "updated text")
		}
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				sig := c.Classify(in)
				assert.NotEmpty(t, sig.Regime)
			}
		}()
	}

	wg.Wait()
}

func TestSetThresholdsHonorsZero(t *testing.T) {
	c := NewClassifier(Thresholds{})
	th := DefaultThresholds()
	th.ClearPathRatio = 0
	c.SetThresholds(th)

	// clear_path 被关掉：WallRatio 落在原默认区间内也只能是 normal。
	sig := c.Classify(indicator.Indicators{DataAvailable: true, WallRatio: 0.3, RSI: 50, RVOL: 1.0})
	assert.Equal(t, RegimeNormal, sig.Regime)
}

func TestClassifyZeroWallRatioIsNotClearPath(t *testing.T) {
	// bid 总量为 0 时 WallRatio 被定义为 0（无阻力数据），不应误判为 clear_path。
	c := NewClassifier(Thresholds{})
	sig := c.Classify(indicator.Indicators{DataAvailable: true, WallRatio: 0, RSI: 50, RVOL: 1.0})
	assert.Equal(t, RegimeNormal, sig.Regime)
}
