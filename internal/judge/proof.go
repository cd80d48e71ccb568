package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/streakhq/curator/internal/contracts"
)

var errNoProofFetcher = errors.New("no proof fetcher configured")

// resolveExternal checks that the declared resolution source answers and
// accepts the recorded expected outcome.
// TODO: parse the proof page for the actual result instead of trusting ExpectedOutcome.
func (j *Judge) resolveExternal(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	if inst.ProofURL == "" {
		return contracts.Resolution{}, fmt.Errorf("%s has no resolution source: %w", inst.ID, contracts.ErrProofUnverified)
	}
	if inst.ExpectedOutcome == "" {
		return contracts.Resolution{}, contracts.ErrAwaitingProof
	}
	if j.proof == nil {
		return contracts.Resolution{}, errNoProofFetcher
	}

	status, body, err := j.proof.Fetch(ctx, inst.ProofURL)
	if err != nil {
		return contracts.Resolution{}, fmt.Errorf("fetch proof: %w", err)
	}
	// only a plain 200 counts as a reachable source
	if status != http.StatusOK {
		return contracts.Resolution{}, fmt.Errorf("%s answered %d: %w", inst.ProofURL, status, contracts.ErrProofUnverified)
	}

	return contracts.Resolution{
		Outcome: contracts.Outcome(inst.ExpectedOutcome),
		Evidence: map[string]interface{}{
			"verified":         true,
			"page_title":       pageTitle(body),
			"expected_outcome": inst.ExpectedOutcome,
		},
		ProofURL: inst.ProofURL,
	}, nil
}

func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
