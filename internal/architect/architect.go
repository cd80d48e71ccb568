package architect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

// DefaultMinLiquidity is the quote-volume floor for price markets
const DefaultMinLiquidity = 50000

const systemInstruction = `You are the Market Curator for Streak, a prediction market platform.

Convert the signal into a binary prediction market using this EXACT JSON format:
{"question": "Clear binary question with timeframe","option_a": "YES or specific option","option_b": "NO or opposite option","duration_hours": 24,"resolution_source": "https://verifiable-source.com","sub_tag": "Category chip","batch_id": "ASSET_PREDICT_DATE, ASSET_DIRECTIONAL","image_prompt": "Visual description for market banner"}

Rules: 1. Question must be resolvable within 24 hours max 2. Must be binary (2 options only) 3. Must have verifiable proof source 4. Avoid subjective outcomes 5. Use measurable metrics only`

var errNoGenerator = errors.New("no generative provider configured")

// Generator produces raw text for a system instruction and user prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Architect turns signals into market drafts
// ⭐ SSOT: 시그널 → 마켓 초안 변환은 여기서만
type Architect struct {
	gen          Generator
	minLiquidity decimal.Decimal
	logger       *logger.Logger
	now          func() time.Time
	newID        func() string
}

// New creates an architect. gen may be nil, in which case every question
// comes from the template renderer.
func New(gen Generator, minLiquidity float64, log *logger.Logger) *Architect {
	if minLiquidity <= 0 {
		minLiquidity = DefaultMinLiquidity
	}
	return &Architect{
		gen:          gen,
		minLiquidity: decimal.NewFromFloat(minLiquidity),
		logger:       log.WithComponent("architect"),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Propose builds a draft for sig. A nil draft with nil error means the
// signal was rejected. Errors are returned only when ctx is done.
func (a *Architect) Propose(ctx context.Context, sig contracts.Signal) (*contracts.MarketDraft, error) {
	if !eligible(sig) {
		a.logger.WithField("signal_type", sig.Type()).Debug("Signal type has no template, skipping")
		return nil, nil
	}

	if p, ok := sig.Payload.(*contracts.PricePayload); ok && p.Volume.LessThan(a.minLiquidity) {
		a.logger.WithFields(map[string]interface{}{
			"asset":  p.Asset,
			"volume": p.Volume.String(),
		}).Info("Signal rejected: liquidity below floor")
		return nil, nil
	}

	now := a.now().UTC()
	res := a.synthesize(ctx, sig)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, generated := res.Question, true
	if res.Err != nil {
		if !errors.Is(res.Err, errNoGenerator) {
			a.logger.WithError(res.Err).Warn("Generative synthesis failed, using template")
		}
		var ok bool
		if q, ok = renderTemplate(sig, now); !ok {
			return nil, nil
		}
		generated = false
	}

	category, badge := classify(sig)
	draft := &contracts.MarketDraft{
		ID:               a.newID(),
		Question:         q.Question,
		Category:         category,
		SubTag:           q.SubTag,
		Badge:            badge,
		OutcomeA:         q.OptionA,
		OutcomeB:         q.OptionB,
		DurationHours:    q.DurationHours,
		ResolutionSource: q.ResolutionSource,
		BatchID:          q.BatchID,
		ImagePrompt:      q.ImagePrompt,
		Confidence:       sig.Confidence,
		TriggerData:      sig.Attributes(),
		CreatedAt:        now,
		Status:           contracts.DraftPendingApproval,
		Generated:        generated,
	}

	metrics.DraftsTotal.WithLabelValues("created").Inc()
	a.logger.WithFields(map[string]interface{}{
		"draft_id":  draft.ID,
		"category":  draft.Category,
		"generated": generated,
	}).Info("Draft created")

	return draft, nil
}

// synthesize asks the generator for a question; any failure lands in Err
func (a *Architect) synthesize(ctx context.Context, sig contracts.Signal) Synthesis {
	if a.gen == nil {
		return Synthesis{Err: errNoGenerator}
	}

	text, err := a.gen.Generate(ctx, systemInstruction, userPrompt(sig))
	if err != nil {
		return Synthesis{Err: fmt.Errorf("generate: %w", err)}
	}

	q, err := parseQuestion(text)
	if err != nil {
		return Synthesis{Err: err}
	}
	return Synthesis{Question: q}
}

func eligible(sig contracts.Signal) bool {
	switch sig.Payload.(type) {
	case *contracts.PricePayload, *contracts.TrendPayload:
		return true
	default:
		return false
	}
}

func userPrompt(sig contracts.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Signal Type: %s\n", sig.Type())
	fmt.Fprintf(&b, "Category: %s\n", sig.Category)
	fmt.Fprintf(&b, "Source: %s\n", sig.Source)
	fmt.Fprintf(&b, "Data: %v\n", sig.Attributes())
	fmt.Fprintf(&b, "Confidence: %.2f\n\n", sig.Confidence)
	b.WriteString("Generate a binary prediction market for this signal.")
	return b.String()
}
