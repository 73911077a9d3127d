package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxnito501/geminibo/internal/market"
)

func barsFromCloses(closes []float64, volume float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    volume,
		}
	}
	return bars
}

func TestRSI(t *testing.T) {
	t.Run("known window", func(t *testing.T) {
		// 14 个涨跌幅：7 次 +0.6、7 次 -0.2 → avgGain=0.3, avgLoss=0.1 → RSI=75
		closes := []float64{10}
		v := 10.0
		for i := 0; i < 7; i++ {
			v += 0.6
			closes = append(closes, v)
			v -= 0.2
			closes = append(closes, v)
		}
		require.Len(t, closes, 15)
		rsi, estimated := RSI(closes, 14)
		assert.False(t, estimated)
		assert.InDelta(t, 75.0, rsi, 1e-9)
	})

	t.Run("insufficient bars returns neutral", func(t *testing.T) {
		closes := []float64{10, 10.5, 10.3, 10.8}
		rsi, estimated := RSI(closes, 14)
		assert.True(t, estimated)
		assert.Equal(t, 50.0, rsi)
	})

	t.Run("all gains saturates near 100", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 10 + float64(i)
		}
		rsi, estimated := RSI(closes, 14)
		assert.False(t, estimated)
		assert.Greater(t, rsi, 99.0)
		assert.LessOrEqual(t, rsi, 100.0)
	})

	t.Run("all losses near 0", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 100 - float64(i)
		}
		rsi, _ := RSI(closes, 14)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.Less(t, rsi, 1.0)
	})

	t.Run("bounded for arbitrary series", func(t *testing.T) {
		closes := []float64{5, 9, 2, 14, 3, 3, 3, 8, 1, 12, 6, 6, 7, 2, 9, 11, 4}
		rsi, _ := RSI(closes, 14)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	})
}

func TestRVOL(t *testing.T) {
	t.Run("double volume", func(t *testing.T) {
		vols := []float64{100, 100, 100, 100, 100, 200}
		assert.InDelta(t, 2.0, RVOL(vols, 5), 1e-9)
	})

	t.Run("zero history defaults neutral", func(t *testing.T) {
		vols := []float64{0, 0, 0, 0, 0, 500}
		assert.Equal(t, 1.0, RVOL(vols, 5))
	})

	t.Run("too short defaults neutral", func(t *testing.T) {
		assert.Equal(t, 1.0, RVOL([]float64{42}, 5))
		assert.Equal(t, 1.0, RVOL(nil, 5))
	})

	t.Run("never negative or NaN", func(t *testing.T) {
		vols := []float64{100, 100, 100, 0}
		rv := RVOL(vols, 3)
		assert.False(t, math.IsNaN(rv))
		assert.GreaterOrEqual(t, rv, 0.0)
	})
}

func TestWallRatio(t *testing.T) {
	t.Run("aggregates levels", func(t *testing.T) {
		snap := market.Snapshot{
			Bids:   []market.DepthLevel{{Price: 1.60, Volume: 100}, {Price: 1.59, Volume: 100}},
			Offers: []market.DepthLevel{{Price: 1.61, Volume: 500}, {Price: 1.62, Volume: 300}},
		}
		assert.InDelta(t, 4.0, WallRatio(snap), 1e-9)
	})

	t.Run("zero bid volume means no resistance data", func(t *testing.T) {
		snap := market.Snapshot{Offers: []market.DepthLevel{{Price: 1.61, Volume: 500}}}
		assert.Equal(t, 0.0, WallRatio(snap))
	})
}

func TestEngineCompute(t *testing.T) {
	engine := NewEngine(Settings{})

	t.Run("empty bars degrade to neutral", func(t *testing.T) {
		out := engine.Compute(nil, market.Snapshot{Symbol: "SIRI", LastPrice: 1.62})
		assert.False(t, out.DataAvailable)
		assert.Equal(t, 50.0, out.RSI)
		assert.Equal(t, 1.0, out.RVOL)
		assert.NotEmpty(t, out.Notes)
	})

	t.Run("full computation", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 1.50 + 0.01*float64(i)
		}
		bars := barsFromCloses(closes, 1000)
		bars[len(bars)-1].Volume = 3000
		snap := market.Snapshot{
			Symbol:    "SIRI",
			LastPrice: closes[len(closes)-1],
			PrevClose: 1.50,
			Bids:      []market.DepthLevel{{Price: 1.78, Volume: 100}},
			Offers:    []market.DepthLevel{{Price: 1.79, Volume: 50}},
		}
		out := engine.Compute(bars, snap)
		assert.True(t, out.DataAvailable)
		assert.False(t, out.RSIEstimated)
		assert.Greater(t, out.RSI, 90.0)
		assert.InDelta(t, 3.0, out.RVOL, 1e-9)
		assert.InDelta(t, 0.5, out.WallRatio, 1e-9)
		assert.Greater(t, out.ChangePct, 0.0)
	})
}
