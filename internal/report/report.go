package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/Maxnito501/geminibo/internal/indicator"
	"github.com/Maxnito501/geminibo/internal/ledger"
	"github.com/Maxnito501/geminibo/internal/market"
	"github.com/Maxnito501/geminibo/internal/regime"
)

// 中文说明：
// 报表：把 K 线 + 成交量 + 已实现盈亏曲线渲染成单页 HTML，浏览器直接打开。
// 只出 HTML，不做截图。

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorProfit        = "#3b82f6"

	chartWidthPx   = 1400
	klineHeightPx  = 520
	volumeHeightPx = 220
	profitHeightPx = 300
)

// Input 汇总一页报表需要的全部素材。History 为空时省略盈亏曲线。
type Input struct {
	Symbol     string
	Bars       []market.Bar
	Indicators indicator.Indicators
	Signal     regime.Signal
	History    []ledger.TradeRecord
}

// Render 渲染报表 HTML 到 w。
func Render(w io.Writer, in Input) error {
	if in.Symbol == "" {
		return fmt.Errorf("report: symbol required")
	}
	if len(in.Bars) == 0 {
		return fmt.Errorf("report: no bars for %s", in.Symbol)
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s report", strings.ToUpper(in.Symbol))

	xAxis := buildXAxis(in.Bars)
	page.AddCharts(
		buildKlineChart(in, xAxis),
		buildVolumeChart(in.Bars, xAxis),
	)
	if profit := buildProfitChart(in.History); profit != nil {
		page.AddCharts(profit)
	}
	return page.Render(w)
}

func buildKlineChart(in Input, xAxis []string) *charts.Kline {
	minPrice, maxPrice := priceBounds(in.Bars)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(0.01, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s — %s", strings.ToUpper(in.Symbol), in.Signal.Regime),
			Subtitle:      subtitle(in),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	data := make([]opts.KlineData, 0, len(in.Bars))
	for _, b := range in.Bars {
		data = append(data, opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}})
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)
	return kline
}

func subtitle(in Input) string {
	parts := []string{
		fmt.Sprintf("RSI %.1f", in.Indicators.RSI),
		fmt.Sprintf("RVOL %.2f", in.Indicators.RVOL),
		fmt.Sprintf("Wall %.2f", in.Indicators.WallRatio),
	}
	if in.Signal.Advisory != "" {
		parts = append(parts, in.Signal.Advisory)
	}
	return strings.Join(parts, " | ")
}

func buildVolumeChart(bars []market.Bar, xAxis []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", volumeHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 6,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, len(bars))
	for i, b := range bars {
		color := colorBear
		if b.Close >= b.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value:     b.Volume,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

// buildProfitChart 画按平仓时间累计的已实现盈亏曲线；没有已平仓记录时返回 nil。
func buildProfitChart(history []ledger.TradeRecord) *charts.Line {
	closed := make([]ledger.TradeRecord, 0, len(history))
	for _, rec := range history {
		if !rec.ClosedAt.IsZero() {
			closed = append(closed, rec)
		}
	}
	if len(closed) == 0 {
		return nil
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ClosedAt.Before(closed[j].ClosedAt) })

	xAxis := make([]string, len(closed))
	points := make([]opts.LineData, len(closed))
	running := 0.0
	for i, rec := range closed {
		running += rec.NetProfit
		xAxis[i] = rec.ClosedAt.UTC().Format("01-02")
		points[i] = opts.LineData{Value: round(running, 2)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", profitHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("Realized PnL (cumulative %.2f)", running),
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorProfit, Width: 2}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("PnL", points)
	return line
}

func buildXAxis(bars []market.Bar) []string {
	x := make([]string, len(bars))
	for i, b := range bars {
		x[i] = b.Timestamp.UTC().Format("01-02")
	}
	return x
}

func priceBounds(bars []market.Bar) (minVal, maxVal float64) {
	minVal = bars[0].Low
	maxVal = bars[0].High
	for _, b := range bars {
		if b.Low < minVal {
			minVal = b.Low
		}
		if b.High > maxVal {
			maxVal = b.High
		}
	}
	return minVal, maxVal
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
