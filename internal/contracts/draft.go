package contracts

import (
	"fmt"
	"net/url"
	"time"
)

// Badge is the promotional tag shown on a market card
type Badge string

const (
	BadgeNone     Badge = "NONE"
	BadgeHot      Badge = "🔥 HOT"
	BadgeGem      Badge = "💎 GEM"
	BadgeBreaking Badge = "🚨 BREAKING"
	BadgeWhale    Badge = "🐳 WHALE"
	BadgeViral    Badge = "🔥 VIRAL"
	BadgeVerdict  Badge = "⚖️ VERDICT"
	BadgeRivalry  Badge = "⚔️ RIVALRY"
	BadgeFlash    Badge = "⚡ FLASH"
	BadgeFinal    Badge = "🏆 FINAL"
)

// DraftStatus is the review state of a draft
type DraftStatus string

const (
	DraftPendingApproval DraftStatus = "PENDING_APPROVAL"
	DraftApproved        DraftStatus = "APPROVED"
	DraftRejected        DraftStatus = "REJECTED"
)

// Duration bounds for a drafted market
const (
	MinDurationHours = 1
	MaxDurationHours = 24
)

// MarketDraft is an unpublished market proposed by the architect
// ⭐ SSOT: Architect → Engine 전달 단위
type MarketDraft struct {
	ID               string                 `json:"draft_id"`
	Question         string                 `json:"question"`
	Category         Category               `json:"category"`
	SubTag           string                 `json:"sub_tag"`
	Badge            Badge                  `json:"badge"`
	OutcomeA         string                 `json:"outcome_a_label"`
	OutcomeB         string                 `json:"outcome_b_label"`
	DurationHours    int                    `json:"duration_hours"`
	ResolutionSource string                 `json:"resolution_source"`
	BatchID          string                 `json:"batch_id"`
	ImagePrompt      string                 `json:"image_prompt"`
	Confidence       float64                `json:"confidence_score"`
	TriggerData      map[string]interface{} `json:"trigger_data"`
	CreatedAt        time.Time              `json:"created_at"`
	Status           DraftStatus            `json:"status"`
	Generated        bool                   `json:"generated"` // true when the question came from the generative provider
	MarketID         string                 `json:"market_id,omitempty"`
}

// Validate checks the fields a settlement authority relies on
func (d *MarketDraft) Validate() error {
	if d.Question == "" {
		return fmt.Errorf("question is empty")
	}
	if d.OutcomeA == "" || d.OutcomeB == "" {
		return fmt.Errorf("both outcome labels are required")
	}
	if d.DurationHours < MinDurationHours || d.DurationHours > MaxDurationHours {
		return fmt.Errorf("duration_hours %d outside %d..%d", d.DurationHours, MinDurationHours, MaxDurationHours)
	}
	return ValidateSourceURL(d.ResolutionSource)
}

// ValidateSourceURL requires an absolute http(s) URL
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("resolution_source: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("resolution_source %q is not an absolute http(s) URL", raw)
	}
	return nil
}

// DraftModifications are optional reviewer overrides applied before publishing
type DraftModifications struct {
	Question         *string   `json:"question,omitempty"`
	OutcomeA         *string   `json:"outcome_a_label,omitempty"`
	OutcomeB         *string   `json:"outcome_b_label,omitempty"`
	DurationHours    *int      `json:"duration_hours,omitempty"`
	ResolutionSource *string   `json:"resolution_source,omitempty"`
	SubTag           *string   `json:"sub_tag,omitempty"`
	Badge            *Badge    `json:"badge,omitempty"`
	Category         *Category `json:"category,omitempty"`
	BatchID          *string   `json:"batch_id,omitempty"`
	ImagePrompt      *string   `json:"image_prompt,omitempty"`
}

// Apply returns a copy of d with the overrides applied, validated
func (m *DraftModifications) Apply(d MarketDraft) (MarketDraft, error) {
	if m == nil {
		return d, nil
	}
	if m.Question != nil {
		d.Question = *m.Question
	}
	if m.OutcomeA != nil {
		d.OutcomeA = *m.OutcomeA
	}
	if m.OutcomeB != nil {
		d.OutcomeB = *m.OutcomeB
	}
	if m.DurationHours != nil {
		d.DurationHours = *m.DurationHours
	}
	if m.ResolutionSource != nil {
		d.ResolutionSource = *m.ResolutionSource
	}
	if m.SubTag != nil {
		d.SubTag = *m.SubTag
	}
	if m.Badge != nil {
		d.Badge = *m.Badge
	}
	if m.Category != nil {
		if !m.Category.Valid() {
			return d, fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, *m.Category)
		}
		d.Category = *m.Category
	}
	if m.BatchID != nil {
		d.BatchID = *m.BatchID
	}
	if m.ImagePrompt != nil {
		d.ImagePrompt = *m.ImagePrompt
	}
	if err := d.Validate(); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return d, nil
}
