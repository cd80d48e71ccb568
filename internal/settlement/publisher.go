package settlement

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
)

// HTTPPublisher hands drafts and verdicts to the settlement authority over HTTP
// ⭐ SSOT: 발행/정산 요청은 이 퍼블리셔에서만
type HTTPPublisher struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewHTTPPublisher creates a publisher posting to baseURL; token, when set,
// is sent as a bearer credential.
func NewHTTPPublisher(httpClient *httputil.Client, log *logger.Logger, baseURL, token string) *HTTPPublisher {
	if token != "" {
		httpClient = httpClient.WithHeader("Authorization", "Bearer "+token)
	}
	return &HTTPPublisher{
		httpClient: httpClient,
		logger:     log.WithComponent("settlement"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

var _ contracts.Publisher = (*HTTPPublisher)(nil)

type publishResponse struct {
	MarketID string `json:"market_id"`
}

type resolutionRequest struct {
	InstanceID string                 `json:"instance_id"`
	Kind       contracts.MarketKind   `json:"kind"`
	Assets     []string               `json:"assets,omitempty"`
	Outcome    contracts.Outcome      `json:"outcome"`
	Evidence   map[string]interface{} `json:"evidence"`
	ProofURL   string                 `json:"proof_url"`
	CheckedAt  string                 `json:"checked_at"`
}

// DraftIdempotencyKey is the Idempotency-Key sent with a draft's create request.
// Every retry and every later attempt for the same draft reuses it.
func DraftIdempotencyKey(draftID string) string { return "draft:" + draftID }

// ResolutionIdempotencyKey is the Idempotency-Key of an instance's verdict
func ResolutionIdempotencyKey(instanceID string) string { return "resolution:" + instanceID }

// PublishDraft creates the market and returns the authority's market id
func (p *HTTPPublisher) PublishDraft(ctx context.Context, draft contracts.MarketDraft) (string, error) {
	var resp publishResponse
	key := DraftIdempotencyKey(draft.ID)
	if err := p.httpClient.PostJSONIdempotent(ctx, p.baseURL+"/markets", key, draft, &resp); err != nil {
		return "", fmt.Errorf("%w: draft %s: %v", contracts.ErrPublishFailed, draft.ID, err)
	}
	if resp.MarketID == "" {
		return "", fmt.Errorf("%w: draft %s: empty market_id", contracts.ErrPublishFailed, draft.ID)
	}

	p.logger.WithFields(map[string]interface{}{
		"draft_id":  draft.ID,
		"market_id": resp.MarketID,
	}).Info("Draft published")
	return resp.MarketID, nil
}

// PublishResolution submits the verdict of a settled instance
func (p *HTTPPublisher) PublishResolution(ctx context.Context, inst contracts.MarketInstance, res contracts.Resolution) error {
	body := resolutionRequest{
		InstanceID: inst.ID,
		Kind:       inst.Kind,
		Assets:     inst.Assets,
		Outcome:    res.Outcome,
		Evidence:   res.Evidence,
		ProofURL:   res.ProofURL,
		CheckedAt:  res.CheckedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	target := fmt.Sprintf("%s/markets/%s/resolve", p.baseURL, url.PathEscape(inst.ID))
	key := ResolutionIdempotencyKey(inst.ID)
	if err := p.httpClient.PostJSONIdempotent(ctx, target, key, body, nil); err != nil {
		return fmt.Errorf("%w: resolution %s: %v", contracts.ErrPublishFailed, inst.ID, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"instance_id": inst.ID,
		"outcome":     res.Outcome,
	}).Info("Resolution published")
	return nil
}

// LogPublisher only logs; used when no settlement authority is configured
type LogPublisher struct {
	logger *logger.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log.WithComponent("settlement")}
}

var _ contracts.Publisher = (*LogPublisher)(nil)

// PublishDraft logs the draft and returns a local market id
func (p *LogPublisher) PublishDraft(_ context.Context, draft contracts.MarketDraft) (string, error) {
	marketID := "local_" + draft.ID
	p.logger.WithFields(map[string]interface{}{
		"draft_id":  draft.ID,
		"market_id": marketID,
		"question":  draft.Question,
	}).Info("Draft published (no settlement authority configured)")
	return marketID, nil
}

// PublishResolution logs the verdict
func (p *LogPublisher) PublishResolution(_ context.Context, inst contracts.MarketInstance, res contracts.Resolution) error {
	p.logger.WithFields(map[string]interface{}{
		"instance_id": inst.ID,
		"outcome":     res.Outcome,
	}).Info("Resolution published (no settlement authority configured)")
	return nil
}
