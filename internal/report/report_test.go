package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxnito501/geminibo/internal/indicator"
	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/market"
	"github.com/Maxnito501/geminibo/internal/regime"
)

func sampleBars(n int) []market.Bar {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 0, n)
	price := 1.50
	for i := 0; i < n; i++ {
		bars = append(bars, market.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 0.03,
			Low:       price - 0.02,
			Close:     price + 0.01,
			Volume:    10000 + float64(i)*100,
		})
		price += 0.01
	}
	return bars
}

func TestRenderProducesHTML(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Input{
		Symbol:     "siri",
		Bars:       sampleBars(30),
		Indicators: indicator.Indicators{Symbol: "SIRI", RSI: 55, RVOL: 1.2, WallRatio: 0.8},
		Signal:     regime.Signal{Regime: regime.RegimeNormal, Advisory: "hold and observe"},
		History: []ledger.TradeRecord{
			{ID: "a", Symbol: "SIRI", NetProfit: 100, ClosedAt: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)},
			{ID: "b", Symbol: "SIRI", NetProfit: -30, ClosedAt: time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)},
		},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"))
	assert.Contains(t, html, "SIRI")
	assert.Contains(t, html, "Realized PnL")
}

func TestRenderWithoutHistorySkipsProfitChart(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Input{
		Symbol:     "GULF",
		Bars:       sampleBars(10),
		Indicators: indicator.Indicators{Symbol: "GULF", RSI: 40},
		Signal:     regime.Signal{Regime: regime.RegimeAccumulation},
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Realized PnL")
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, Input{Symbol: "", Bars: sampleBars(5)}))
	assert.Error(t, Render(&buf, Input{Symbol: "SIRI"}))
}
