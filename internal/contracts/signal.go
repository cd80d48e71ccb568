package contracts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SignalType identifies what kind of observation a Signal carries
type SignalType string

const (
	SignalPriceMovement SignalType = "PRICE_MOVEMENT"
	SignalSocialTrend   SignalType = "SOCIAL_TREND"
	SignalBreakingNews  SignalType = "BREAKING_NEWS"
	SignalVolumeSpike   SignalType = "VOLUME_SPIKE"
	SignalWhaleTransfer SignalType = "WHALE_TRANSFER"
)

// Category is the market category a signal (and its draft) belongs to
type Category string

const (
	CategoryCrypto  Category = "CRYPTO"
	CategoryFinance Category = "FINANCE"
	CategorySports  Category = "SPORTS"
	CategoryHype    Category = "HYPE"
	CategoryGlobal  Category = "GLOBAL"
)

// Categories lists every known category in display order
var Categories = []Category{CategoryCrypto, CategoryFinance, CategorySports, CategoryHype, CategoryGlobal}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Payload is the typed body of a Signal. Each variant belongs to exactly one SignalType.
type Payload interface {
	Type() SignalType
	Attributes() map[string]interface{}
}

// PricePayload describes a 24h price move on a trading pair
type PricePayload struct {
	Asset     string          `json:"asset"` // base symbol, e.g. BTC
	Pair      string          `json:"pair"`  // e.g. BTC/USDT
	Price     decimal.Decimal `json:"price"`
	ChangePct float64         `json:"change_pct"`
	Volume    decimal.Decimal `json:"volume"` // quote volume
}

func (p *PricePayload) Type() SignalType { return SignalPriceMovement }

func (p *PricePayload) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"asset":      p.Asset,
		"pair":       p.Pair,
		"price":      p.Price.InexactFloat64(),
		"change_pct": p.ChangePct,
		"volume":     p.Volume.InexactFloat64(),
	}
}

// TrendPayload describes a trending social topic
type TrendPayload struct {
	Topic      string  `json:"topic"`
	Mentions   int     `json:"mentions"`
	GrowthRate float64 `json:"growth_rate"`
	Platform   string  `json:"platform"`
}

func (p *TrendPayload) Type() SignalType { return SignalSocialTrend }

func (p *TrendPayload) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"topic":       p.Topic,
		"mentions":    p.Mentions,
		"growth_rate": p.GrowthRate,
		"platform":    p.Platform,
	}
}

// RawPayload carries a signal type with no dedicated schema.
// The architect has no template for these and rejects them.
type RawPayload struct {
	Kind SignalType
	Data map[string]interface{}
}

func (p *RawPayload) Type() SignalType { return p.Kind }

func (p *RawPayload) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}

// Signal is an immutable observation emitted by the watchtower
// ⭐ SSOT: Watchtower → Architect 전달 단위
type Signal struct {
	Category   Category
	Payload    Payload
	Confidence float64 // 0.0 ~ 1.0
	Source     string
	Timestamp  time.Time
}

// Type returns the signal type of the payload
func (s Signal) Type() SignalType {
	if s.Payload == nil {
		return ""
	}
	return s.Payload.Type()
}

// Attributes returns the raw attribute map for audit logging
func (s Signal) Attributes() map[string]interface{} {
	if s.Payload == nil {
		return map[string]interface{}{}
	}
	return s.Payload.Attributes()
}

// MarshalJSON renders the signal with its payload flattened into "data"
func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SignalType SignalType             `json:"signal_type"`
		Category   Category               `json:"category"`
		Data       map[string]interface{} `json:"data"`
		Confidence float64                `json:"confidence"`
		Source     string                 `json:"source"`
		Timestamp  time.Time              `json:"timestamp"`
	}{
		SignalType: s.Type(),
		Category:   s.Category,
		Data:       s.Attributes(),
		Confidence: s.Confidence,
		Source:     s.Source,
		Timestamp:  s.Timestamp,
	})
}
