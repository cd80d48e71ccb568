package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a 24h rolling summary of a trading pair
type Ticker struct {
	Pair             string          `json:"pair"`
	Last             decimal.Decimal `json:"last"`
	PercentageChange float64         `json:"percentage_change"`
	QuoteVolume      decimal.Decimal `json:"quote_volume"`
}

// Candle is one OHLCV bar
type Candle struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// Green reports a candle that closed above its open
func (c Candle) Green() bool {
	return c.Close.GreaterThan(c.Open)
}

// Trend is one entry of a social trend snapshot
type Trend struct {
	Topic      string  `json:"topic"`
	Mentions   int     `json:"mentions"`
	GrowthRate float64 `json:"growth_rate"`
	Platform   string  `json:"platform"`
}
