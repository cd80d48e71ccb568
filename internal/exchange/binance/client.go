package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
)

// Client reads public market data from the Binance spot REST API
// ⭐ SSOT: Binance 시세 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	enabled    bool
}

// NewClient creates a Binance client. A disabled client answers every call
// with contracts.ErrSourceUnavailable.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string, enabled bool) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("binance"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		enabled:    enabled,
	}
}

var _ contracts.MarketData = (*Client)(nil)

// ticker24hr is the subset of /api/v3/ticker/24hr we read
type ticker24hr struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Symbol converts "BTC/USDT" into Binance's "BTCUSDT"
func Symbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// TradeURL is the public chart page used as resolution proof
func TradeURL(pair string) string {
	return "https://www.binance.com/en/trade/" + strings.ReplaceAll(pair, "/", "_")
}

// FetchTicker returns the 24h rolling ticker of pair
func (c *Client) FetchTicker(ctx context.Context, pair string) (contracts.Ticker, error) {
	if !c.enabled {
		return contracts.Ticker{}, contracts.ErrSourceUnavailable
	}

	params := url.Values{}
	params.Set("symbol", Symbol(pair))

	var raw ticker24hr
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/api/v3/ticker/24hr?"+params.Encode(), &raw); err != nil {
		return contracts.Ticker{}, fmt.Errorf("fetch ticker %s: %w", pair, err)
	}

	return parseTicker(pair, raw)
}

func parseTicker(pair string, raw ticker24hr) (contracts.Ticker, error) {
	last, err := decimal.NewFromString(raw.LastPrice)
	if err != nil {
		return contracts.Ticker{}, fmt.Errorf("parse lastPrice %q: %w", raw.LastPrice, err)
	}
	pct, err := strconv.ParseFloat(raw.PriceChangePercent, 64)
	if err != nil {
		return contracts.Ticker{}, fmt.Errorf("parse priceChangePercent %q: %w", raw.PriceChangePercent, err)
	}
	vol, err := decimal.NewFromString(raw.QuoteVolume)
	if err != nil {
		return contracts.Ticker{}, fmt.Errorf("parse quoteVolume %q: %w", raw.QuoteVolume, err)
	}

	return contracts.Ticker{
		Pair:             pair,
		Last:             last,
		PercentageChange: pct,
		QuoteVolume:      vol,
	}, nil
}

// FetchCandles returns up to limit klines of interval starting at since
func (c *Client) FetchCandles(ctx context.Context, pair, interval string, since time.Time, limit int) ([]contracts.Candle, error) {
	if !c.enabled {
		return nil, contracts.ErrSourceUnavailable
	}

	params := url.Values{}
	params.Set("symbol", Symbol(pair))
	params.Set("interval", interval)
	params.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]interface{}
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/api/v3/klines?"+params.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", pair, interval, err)
	}

	candles, err := parseKlines(raw)
	if err != nil {
		return nil, fmt.Errorf("parse klines %s: %w", pair, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"pair":     pair,
		"interval": interval,
		"since":    since,
		"count":    len(candles),
	}).Debug("Fetched candles")

	return candles, nil
}

// parseKlines decodes rows of [openTime, open, high, low, close, volume, ...]
func parseKlines(rows [][]interface{}) ([]contracts.Candle, error) {
	candles := make([]contracts.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected at least 6 columns, got %d", i, len(row))
		}

		openMs, ok := row[0].(float64)
		if !ok {
			return nil, fmt.Errorf("row %d: open time is %T", i, row[0])
		}

		var values [5]decimal.Decimal
		for j := 0; j < 5; j++ {
			d, err := toDecimal(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j+1, err)
			}
			values[j] = d
		}

		candles = append(candles, contracts.Candle{
			OpenTime: time.UnixMilli(int64(openMs)).UTC(),
			Open:     values[0],
			High:     values[1],
			Low:      values[2],
			Close:    values[3],
			Volume:   values[4],
		})
	}
	return candles, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case string:
		return decimal.NewFromString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected value type %T", v)
	}
}
