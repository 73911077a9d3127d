package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/Maxnito501/geminibo/internal/market"
	symbolpkg "github.com/Maxnito501/geminibo/internal/pkg/symbol"
)

const maxHistoryLimit = 1000

// Config 描述币安现货行情参数。
type Config struct {
	RESTBaseURL string
	DepthLevels int
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DepthLevels <= 0 || c.DepthLevels > 20 {
		c.DepthLevels = 5
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Source 基于 go-binance SDK 实现 market.Source（加密货币 symbol 用）。
type Source struct {
	cfg    Config
	client *binance.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := binance.NewClient("", "")
	if url := strings.TrimSpace(final.RESTBaseURL); url != "" {
		client.BaseURL = url
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

func (s *Source) Name() string { return "binance" }

// FetchBars 拉取现货 K 线。
func (s *Source) FetchBars(ctx context.Context, symbol, interval string, lookback int) ([]market.Bar, error) {
	sym := symbolpkg.ToBinance(symbol)
	if sym == "" {
		return nil, fmt.Errorf("binance: symbol 不能为空")
	}
	if lookback <= 0 {
		lookback = 100
	}
	if lookback > maxHistoryLimit {
		lookback = maxHistoryLimit
	}
	if interval == "" {
		interval = "1d"
	}
	klines, err := s.client.NewKlinesService().Symbol(sym).Interval(interval).Limit(lookback).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	if len(klines) == 0 {
		return nil, market.ErrNoData
	}
	bars := make([]market.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, market.Bar{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}
	return bars, nil
}

// FetchSnapshot 组合 24h 统计与盘口深度。
func (s *Source) FetchSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	sym := symbolpkg.ToBinance(symbol)
	if sym == "" {
		return market.Snapshot{}, fmt.Errorf("binance: symbol 不能为空")
	}
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(sym).Do(ctx)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("binance ticker: %w", err)
	}
	if len(stats) == 0 {
		return market.Snapshot{}, market.ErrNoData
	}
	st := stats[0]

	snap := market.Snapshot{
		Symbol:      symbolpkg.Normalize(symbol),
		LastPrice:   parseFloat(st.LastPrice),
		OpenPrice:   parseFloat(st.OpenPrice),
		PrevClose:   parseFloat(st.PrevClosePrice),
		SessionHigh: parseFloat(st.HighPrice),
		SessionLow:  parseFloat(st.LowPrice),
		UpdatedAt:   time.Now().Unix(),
	}
	if snap.LastPrice <= 0 {
		return market.Snapshot{}, market.ErrNoData
	}

	depth, err := s.client.NewDepthService().Symbol(sym).Limit(s.cfg.DepthLevels).Do(ctx)
	if err != nil {
		// 盘口失败不致命：墙比指标会退化为「无阻力数据」。
		return snap, nil
	}
	for _, bid := range depth.Bids {
		snap.Bids = append(snap.Bids, market.DepthLevel{Price: parseFloat(bid.Price), Volume: parseFloat(bid.Quantity)})
	}
	for _, ask := range depth.Asks {
		snap.Offers = append(snap.Offers, market.DepthLevel{Price: parseFloat(ask.Price), Volume: parseFloat(ask.Quantity)})
	}
	return snap, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
