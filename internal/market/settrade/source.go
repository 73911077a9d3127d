package settrade

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Maxnito501/geminibo/internal/market"
	symbolpkg "github.com/Maxnito501/geminibo/internal/pkg/symbol"
)

// 中文说明：
// Settrade 行情源：REST 拉取泰股报价（含 5 档 Bid/Offer）与日内 K 线。
// 接口返回的字段命名松散，这里用 gjson 读取后立即收紧为强类型 Snapshot，
// 上层不再接触原始 payload。

const (
	defaultBaseURL    = "https://open-api.settrade.com"
	defaultDepthLevel = 5
	maxLookback       = 500
)

// Config 描述 Settrade 接入参数。
type Config struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	Suffix      string
	DepthLevels int
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.DepthLevels <= 0 || c.DepthLevels > 10 {
		c.DepthLevels = defaultDepthLevel
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// Source 实现 market.Source。
type Source struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.AppID) == "" || strings.TrimSpace(final.AppSecret) == "" {
		return nil, fmt.Errorf("settrade: app_id/app_secret 不能为空")
	}
	return &Source{
		cfg:    final,
		client: &http.Client{Timeout: final.HTTPTimeout},
	}, nil
}

func (s *Source) Name() string { return "settrade" }

// FetchSnapshot 拉取报价并展开 5 档盘口。
func (s *Source) FetchSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	sym := symbolpkg.Normalize(symbol)
	if sym == "" {
		return market.Snapshot{}, fmt.Errorf("settrade: symbol 不能为空")
	}
	raw, err := s.get(ctx, "/api/market/v2/quote/"+url.PathEscape(symbolpkg.WithSuffix(sym, s.cfg.Suffix)), nil)
	if err != nil {
		return market.Snapshot{}, err
	}
	doc := gjson.ParseBytes(raw)
	if !doc.Get("last").Exists() || doc.Get("last").Float() <= 0 {
		return market.Snapshot{}, market.ErrNoData
	}

	snap := market.Snapshot{
		Symbol:      sym,
		LastPrice:   doc.Get("last").Float(),
		OpenPrice:   doc.Get("open").Float(),
		PrevClose:   doc.Get("prior_close").Float(),
		SessionHigh: doc.Get("high").Float(),
		SessionLow:  doc.Get("low").Float(),
		UpdatedAt:   time.Now().Unix(),
	}
	for i := 1; i <= s.cfg.DepthLevels; i++ {
		bidVol := doc.Get("bid_volume" + strconv.Itoa(i))
		bidPrc := doc.Get("bid_price" + strconv.Itoa(i))
		if bidVol.Exists() && bidVol.Float() > 0 {
			snap.Bids = append(snap.Bids, market.DepthLevel{Price: bidPrc.Float(), Volume: bidVol.Float()})
		}
		offVol := doc.Get("offer_volume" + strconv.Itoa(i))
		offPrc := doc.Get("offer_price" + strconv.Itoa(i))
		if offVol.Exists() && offVol.Float() > 0 {
			snap.Offers = append(snap.Offers, market.DepthLevel{Price: offPrc.Float(), Volume: offVol.Float()})
		}
	}
	return snap, nil
}

// FetchBars 拉取 K 线（时间升序）。
func (s *Source) FetchBars(ctx context.Context, symbol, interval string, lookback int) ([]market.Bar, error) {
	sym := symbolpkg.Normalize(symbol)
	if sym == "" {
		return nil, fmt.Errorf("settrade: symbol 不能为空")
	}
	if lookback <= 0 {
		lookback = 100
	}
	if lookback > maxLookback {
		lookback = maxLookback
	}
	if interval == "" {
		interval = "1d"
	}
	query := url.Values{}
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(lookback))
	raw, err := s.get(ctx, "/api/market/v2/candles/"+url.PathEscape(symbolpkg.WithSuffix(sym, s.cfg.Suffix)), query)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(raw)
	candles := doc.Get("candles")
	if !candles.Exists() || !candles.IsArray() || len(candles.Array()) == 0 {
		return nil, market.ErrNoData
	}

	var bars []market.Bar
	candles.ForEach(func(_, item gjson.Result) bool {
		bar := market.Bar{
			Timestamp: time.Unix(item.Get("time").Int(), 0).UTC(),
			Open:      item.Get("open").Float(),
			High:      item.Get("high").Float(),
			Low:       item.Get("low").Float(),
			Close:     item.Get("close").Float(),
			Volume:    item.Get("volume").Float(),
		}
		if bar.Close > 0 {
			bars = append(bars, bar)
		}
		return true
	})
	if len(bars) == 0 {
		return nil, market.ErrNoData
	}
	return bars, nil
}

func (s *Source) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-App-Id", s.cfg.AppID)
	req.Header.Set("X-App-Secret", s.cfg.AppSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settrade: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, market.ErrNoData
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("settrade: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return body, nil
}
