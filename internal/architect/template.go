package architect

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/exchange/binance"
)

var (
	upFactor   = decimal.RequireFromString("1.02")
	downFactor = decimal.RequireFromString("0.98")
)

// renderTemplate fills a question deterministically from the signal payload;
// ok is false for payloads that have no template
func renderTemplate(sig contracts.Signal, now time.Time) (q Question, ok bool) {
	day := now.UTC().Format("20060102")

	switch p := sig.Payload.(type) {
	case *contracts.PricePayload:
		return priceTemplate(p, day), true
	case *contracts.TrendPayload:
		return trendTemplate(p, day), true
	}
	return Question{}, false
}

func priceTemplate(p *contracts.PricePayload, day string) Question {
	direction, factor := "break above", upFactor
	if p.ChangePct <= 0 {
		direction, factor = "fall below", downFactor
	}
	threshold := p.Price.Mul(factor).Round(0)

	pair := p.Pair
	if pair == "" {
		pair = p.Asset + "/USDT"
	}

	return Question{
		Question:         fmt.Sprintf("Will %s %s $%s within 24 hours?", p.Asset, direction, threshold.StringFixed(0)),
		OptionA:          "YES",
		OptionB:          "NO",
		DurationHours:    24,
		ResolutionSource: binance.TradeURL(pair),
		SubTag:           "Crypto Volatility",
		BatchID:          fmt.Sprintf("%s_PREDICT_%s, %s_DIRECTIONAL", p.Asset, day, p.Asset),
		ImagePrompt:      fmt.Sprintf("3D render of %s coin with price chart, dramatic lighting", p.Asset),
	}
}

func trendTemplate(p *contracts.TrendPayload, day string) Question {
	target := p.Mentions * 2
	platform := p.Platform
	if platform == "" {
		platform = "social media"
	}
	tag := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p.Topic), " ", "_"))

	return Question{
		Question:         fmt.Sprintf("Will \"%s\" pass %d mentions on %s within 24 hours?", p.Topic, target, platform),
		OptionA:          "YES",
		OptionB:          "NO",
		DurationHours:    24,
		ResolutionSource: "https://trends.google.com/trends/explore?q=" + url.QueryEscape(p.Topic),
		SubTag:           "Trending",
		BatchID:          fmt.Sprintf("%s_TREND_%s", tag, day),
		ImagePrompt:      fmt.Sprintf("Viral social feed collage about %s, neon glow", p.Topic),
	}
}
