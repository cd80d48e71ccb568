package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	httpClient := httputil.New(logger.Nop(), time.Second).DisableRetry()
	return NewClient(httpClient, logger.Nop(), server.URL+"/", true)
}

func TestSymbolAndTradeURL(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Symbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", Symbol("eth/usdt"))
	assert.Equal(t, "https://www.binance.com/en/trade/BTC_USDT", TradeURL("BTC/USDT"))
}

func TestFetchTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"64000.50","priceChangePercent":"-3.250","quoteVolume":"1234567.89"}`))
	})

	ticker, err := client.FetchTicker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", ticker.Pair)
	assert.True(t, ticker.Last.Equal(decimal.RequireFromString("64000.50")))
	assert.Equal(t, -3.25, ticker.PercentageChange)
	assert.True(t, ticker.QuoteVolume.Equal(decimal.RequireFromString("1234567.89")))
}

func TestFetchTicker_BadNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"n/a","priceChangePercent":"1","quoteVolume":"1"}`))
	})

	_, err := client.FetchTicker(context.Background(), "BTC/USDT")
	assert.Error(t, err)
}

func TestFetchCandles(t *testing.T) {
	since := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "ETHUSDT", q.Get("symbol"))
		assert.Equal(t, "15m", q.Get("interval"))
		assert.Equal(t, "1792058400000", q.Get("startTime"))
		assert.Equal(t, "2", q.Get("limit"))
		_, _ = w.Write([]byte(`[
			[1792058400000,"2500.00","2510.00","2495.00","2505.00","100.5",1792059299999,"0",10,"0","0","0"],
			[1792059300000,"2505.00","2508.00","2490.00","2491.00","80.0",1792060199999,"0",8,"0","0","0"]
		]`))
	})

	candles, err := client.FetchCandles(context.Background(), "ETH/USDT", "15m", since, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, since, candles[0].OpenTime)
	assert.True(t, candles[0].Green())
	assert.False(t, candles[1].Green())
	assert.True(t, candles[1].High.Equal(decimal.RequireFromString("2508")))
}

func TestFetchCandles_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := client.FetchCandles(context.Background(), "XXX/USDT", "15m", time.Now(), 1)
	var statusErr *httputil.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestDisabled(t *testing.T) {
	client := NewClient(httputil.New(logger.Nop(), time.Second), logger.Nop(), "http://unused", false)

	_, err := client.FetchTicker(context.Background(), "BTC/USDT")
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)

	_, err = client.FetchCandles(context.Background(), "BTC/USDT", "15m", time.Now(), 1)
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
}

func TestParseKlines(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]interface{}
		want    int
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"numeric values", [][]interface{}{{1.0e12, 1.0, 2.0, 0.5, 1.5, 10.0}}, 1, false},
		{"short row", [][]interface{}{{1.0e12, "1"}}, 0, true},
		{"bad time", [][]interface{}{{"x", "1", "1", "1", "1", "1"}}, 0, true},
		{"bad price", [][]interface{}{{1.0e12, "abc", "1", "1", "1", "1"}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKlines(tt.rows)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}
