package settrade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxnito501/geminibo/internal/market"
)

const quoteFixture = `{
  "last": 1.62, "open": 1.58, "prior_close": 1.59, "high": 1.63, "low": 1.57,
  "total_volume": 125000000,
  "bid_price1": 1.61, "bid_volume1": 800000,
  "bid_price2": 1.60, "bid_volume2": 1200000,
  "offer_price1": 1.62, "offer_volume1": 5400000,
  "offer_price2": 1.63, "offer_volume2": 2100000,
  "offer_price3": 0, "offer_volume3": 0
}`

const candlesFixture = `{
  "candles": [
    {"time": 1751356800, "open": 1.55, "high": 1.60, "low": 1.54, "close": 1.58, "volume": 90000000},
    {"time": 1751443200, "open": 1.58, "high": 1.63, "low": 1.57, "close": 1.62, "volume": 125000000}
  ]
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	src, err := New(Config{BaseURL: server.URL, AppID: "app", AppSecret: "secret"})
	require.NoError(t, err)
	return src
}

func TestFetchSnapshot(t *testing.T) {
	var gotAppID string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppID = r.Header.Get("X-App-Id")
		w.Write([]byte(quoteFixture))
	})

	snap, err := src.FetchSnapshot(context.Background(), "siri.bk")
	require.NoError(t, err)
	assert.Equal(t, "app", gotAppID)
	assert.Equal(t, "SIRI", snap.Symbol)
	assert.Equal(t, 1.62, snap.LastPrice)
	assert.Equal(t, 1.59, snap.PrevClose)
	require.Len(t, snap.Bids, 2)
	require.Len(t, snap.Offers, 2, "zero-volume levels must be skipped")
	assert.InDelta(t, 2000000.0, snap.BidVolume(), 1e-6)
	assert.InDelta(t, 7500000.0, snap.OfferVolume(), 1e-6)
}

func TestFetchSnapshotNoData(t *testing.T) {
	t.Run("empty payload", func(t *testing.T) {
		src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})
		_, err := src.FetchSnapshot(context.Background(), "SIRI")
		assert.ErrorIs(t, err, market.ErrNoData)
	})

	t.Run("http 404", func(t *testing.T) {
		src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := src.FetchSnapshot(context.Background(), "SIRI")
		assert.ErrorIs(t, err, market.ErrNoData)
	})
}

func TestFetchBars(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(candlesFixture))
	})

	bars, err := src.FetchBars(context.Background(), "SIRI", "1d", 100)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.58, bars[0].Close)
	assert.Equal(t, 1.62, bars[1].Close)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
}

func TestFetchBarsNoData(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candles": []}`))
	})
	_, err := src.FetchBars(context.Background(), "SIRI", "1d", 100)
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestSuffixAppendedToRequestPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(quoteFixture))
	}))
	t.Cleanup(server.Close)
	src, err := New(Config{BaseURL: server.URL, AppID: "app", AppSecret: "secret", Suffix: "BK"})
	require.NoError(t, err)

	snap, err := src.FetchSnapshot(context.Background(), "siri")
	require.NoError(t, err)
	assert.Equal(t, "/api/market/v2/quote/SIRI.BK", gotPath)
	assert.Equal(t, "SIRI", snap.Symbol, "snapshot symbol stays suffix-free")
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "http://example.com"})
	assert.Error(t, err)
}
