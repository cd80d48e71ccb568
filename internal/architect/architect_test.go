package architect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
)

type fakeGenerator struct {
	text   string
	err    error
	calls  int
	system string
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system, f.prompt = system, prompt
	return f.text, f.err
}

var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newTestArchitect(gen Generator) *Architect {
	a := New(gen, 0, logger.Nop())
	a.now = func() time.Time { return fixedNow }
	a.newID = func() string { return "draft-1" }
	return a
}

func priceSignal(change float64, volume int64) contracts.Signal {
	return contracts.Signal{
		Category: contracts.CategoryCrypto,
		Payload: &contracts.PricePayload{
			Asset:     "BTC",
			Pair:      "BTC/USDT",
			Price:     decimal.NewFromInt(64000),
			ChangePct: change,
			Volume:    decimal.NewFromInt(volume),
		},
		Confidence: 0.8,
		Source:     "Binance",
		Timestamp:  fixedNow,
	}
}

func TestPropose_UnrecognisedTypeRejected(t *testing.T) {
	gen := &fakeGenerator{}
	a := newTestArchitect(gen)

	sig := contracts.Signal{
		Category: contracts.CategoryGlobal,
		Payload:  &contracts.RawPayload{Kind: contracts.SignalBreakingNews, Data: map[string]interface{}{"headline": "Summit ends"}},
	}
	draft, err := a.Propose(context.Background(), sig)
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.Zero(t, gen.calls)
}

func TestPropose_LowLiquidityRejected(t *testing.T) {
	gen := &fakeGenerator{}
	a := newTestArchitect(gen)

	draft, err := a.Propose(context.Background(), priceSignal(4.5, 49999))
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.Zero(t, gen.calls)
}

func TestPropose_TemplateWithoutGenerator(t *testing.T) {
	a := newTestArchitect(nil)

	t.Run("upward move", func(t *testing.T) {
		draft, err := a.Propose(context.Background(), priceSignal(4.5, 1_000_000))
		require.NoError(t, err)
		require.NotNil(t, draft)

		assert.Equal(t, "Will BTC break above $65280 within 24 hours?", draft.Question)
		assert.Equal(t, "YES", draft.OutcomeA)
		assert.Equal(t, "NO", draft.OutcomeB)
		assert.Equal(t, 24, draft.DurationHours)
		assert.Equal(t, "https://www.binance.com/en/trade/BTC_USDT", draft.ResolutionSource)
		assert.Equal(t, "Crypto Volatility", draft.SubTag)
		assert.Equal(t, "BTC_PREDICT_20261015, BTC_DIRECTIONAL", draft.BatchID)
		assert.Equal(t, contracts.CategoryCrypto, draft.Category)
		assert.Equal(t, contracts.BadgeHot, draft.Badge)
		assert.Equal(t, 0.8, draft.Confidence)
		assert.Equal(t, contracts.DraftPendingApproval, draft.Status)
		assert.False(t, draft.Generated)
		assert.Equal(t, "draft-1", draft.ID)
		assert.NoError(t, draft.Validate())
	})

	t.Run("downward move", func(t *testing.T) {
		draft, err := a.Propose(context.Background(), priceSignal(-5, 1_000_000))
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, "Will BTC fall below $62720 within 24 hours?", draft.Question)
	})
}

func TestPropose_SocialTrend(t *testing.T) {
	a := newTestArchitect(nil)

	sig := contracts.Signal{
		Category: contracts.CategoryHype,
		Payload: &contracts.TrendPayload{
			Topic:      "Bitcoin ETF",
			Mentions:   15000,
			GrowthRate: 3.5,
			Platform:   "Twitter",
		},
		Confidence: 0.6,
		Source:     "Twitter API",
	}
	draft, err := a.Propose(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, draft)

	assert.Equal(t, contracts.CategoryHype, draft.Category)
	assert.Equal(t, contracts.BadgeViral, draft.Badge)
	assert.Contains(t, draft.Question, "Bitcoin ETF")
	assert.Equal(t, "BITCOIN_ETF_TREND_20261015", draft.BatchID)
	assert.Equal(t, 0.6, draft.Confidence)
	assert.Equal(t, "Bitcoin ETF", draft.TriggerData["topic"])
	assert.NoError(t, draft.Validate())
}

func TestPropose_GeneratedQuestion(t *testing.T) {
	gen := &fakeGenerator{text: "Sure! ```json\n" + `{"question":"Will BTC close above $66,000 today?","option_a":"YES","option_b":"NO","duration_hours":12,"resolution_source":"https://www.coingecko.com/en/coins/bitcoin","sub_tag":"Crypto","batch_id":"BTC_PREDICT_20261015","image_prompt":"Golden coin"}` + "\n```"}
	a := newTestArchitect(gen)

	draft, err := a.Propose(context.Background(), priceSignal(4.5, 1_000_000))
	require.NoError(t, err)
	require.NotNil(t, draft)

	assert.True(t, draft.Generated)
	assert.Equal(t, "Will BTC close above $66,000 today?", draft.Question)
	assert.Equal(t, 12, draft.DurationHours)
	assert.Equal(t, "https://www.coingecko.com/en/coins/bitcoin", draft.ResolutionSource)

	assert.Equal(t, systemInstruction, gen.system)
	assert.Contains(t, gen.prompt, "Signal Type: PRICE_MOVEMENT")
	assert.Contains(t, gen.prompt, "Category: CRYPTO")
	assert.Contains(t, gen.prompt, "Confidence: 0.80")
}

func TestPropose_FallsBackOnBadGeneration(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"provider error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"no json", &fakeGenerator{text: "I cannot help with that"}},
		{"malformed json", &fakeGenerator{text: `{"question": "Will it?",`}},
		{"duration too long", &fakeGenerator{text: `{"question":"Q?","option_a":"YES","option_b":"NO","duration_hours":48,"resolution_source":"https://x.com"}`}},
		{"bad source", &fakeGenerator{text: `{"question":"Q?","option_a":"YES","option_b":"NO","duration_hours":6,"resolution_source":"not a url"}`}},
		{"missing option", &fakeGenerator{text: `{"question":"Q?","option_a":"YES","duration_hours":6,"resolution_source":"https://x.com"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestArchitect(tt.gen)
			draft, err := a.Propose(context.Background(), priceSignal(4.5, 1_000_000))
			require.NoError(t, err)
			require.NotNil(t, draft)
			assert.False(t, draft.Generated)
			assert.Equal(t, "Will BTC break above $65280 within 24 hours?", draft.Question)
			assert.Equal(t, 1, tt.gen.calls)
		})
	}
}

func TestPropose_CancelledContext(t *testing.T) {
	a := newTestArchitect(&fakeGenerator{err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	draft, err := a.Propose(ctx, priceSignal(4.5, 1_000_000))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, draft)
}

func TestParseQuestion_DefaultsDuration(t *testing.T) {
	q, err := parseQuestion(`{"question":"Q?","option_a":"UP","option_b":"DOWN","resolution_source":"https://www.reuters.com"}`)
	require.NoError(t, err)
	assert.Equal(t, 24, q.DurationHours)
}

func TestRenderTemplate_OnlyPriceAndTrend(t *testing.T) {
	_, ok := renderTemplate(contracts.Signal{Payload: &contracts.PricePayload{Asset: "BTC", Price: decimal.NewFromInt(64000), ChangePct: 3}}, fixedNow)
	assert.True(t, ok)
	_, ok = renderTemplate(contracts.Signal{Payload: &contracts.TrendPayload{Topic: "Crypto Trading", Mentions: 10}}, fixedNow)
	assert.True(t, ok)

	_, ok = renderTemplate(contracts.Signal{Payload: &contracts.RawPayload{Kind: contracts.SignalBreakingNews}}, fixedNow)
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		sig       contracts.Signal
		wantCat   contracts.Category
		wantBadge contracts.Badge
	}{
		{"price", contracts.Signal{Category: contracts.CategoryCrypto, Payload: &contracts.PricePayload{}}, contracts.CategoryCrypto, contracts.BadgeHot},
		{"trend", contracts.Signal{Category: contracts.CategoryHype, Payload: &contracts.TrendPayload{}}, contracts.CategoryHype, contracts.BadgeViral},
		{"news carries no badge", contracts.Signal{Category: contracts.CategoryGlobal, Payload: &contracts.RawPayload{Kind: contracts.SignalBreakingNews}}, contracts.CategoryGlobal, contracts.BadgeNone},
		{"unknown category", contracts.Signal{Category: "WEATHER", Payload: &contracts.RawPayload{Kind: contracts.SignalWhaleTransfer}}, contracts.CategoryCrypto, contracts.BadgeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, badge := classify(tt.sig)
			assert.Equal(t, tt.wantCat, cat)
			assert.Equal(t, tt.wantBadge, badge)
		})
	}
}
