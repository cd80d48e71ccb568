package curator

import (
	"context"
	"fmt"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/metrics"
)

// PendingDrafts returns a copy of the review queue in creation order
func (e *Engine) PendingDrafts() []contracts.MarketDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]contracts.MarketDraft(nil), e.pending...)
}

// Approve applies mods and publishes the draft. ok is false when no such
// draft is pending. On any error the draft stays pending unchanged.
func (e *Engine) Approve(ctx context.Context, draftID string, mods *contracts.DraftModifications) (bool, error) {
	draft, pos, found := e.claim(draftID)
	if !found {
		return false, nil
	}

	updated, err := mods.Apply(draft)
	if err != nil {
		e.restore(draft, pos)
		return false, err
	}

	published, err := e.publish(ctx, updated)
	if err != nil {
		e.restore(draft, pos)
		return false, fmt.Errorf("approve %s: %w", draftID, err)
	}

	e.mu.Lock()
	e.stats.Approved++
	e.mu.Unlock()
	metrics.DraftsTotal.WithLabelValues("approved").Inc()
	e.logger.WithFields(map[string]interface{}{
		"draft_id":  draftID,
		"market_id": published.MarketID,
	}).Info("Draft approved")
	return true, nil
}

// Reject drops a pending draft. Rejecting an unknown draft is not an error.
func (e *Engine) Reject(draftID string) bool {
	draft, _, found := e.claim(draftID)
	if !found {
		return true
	}

	e.mu.Lock()
	e.stats.Rejected++
	e.mu.Unlock()
	metrics.DraftsTotal.WithLabelValues("rejected").Inc()

	draft.Status = contracts.DraftRejected
	e.emit(EventDraftRejected, draft)
	e.logger.WithField("draft_id", draftID).Info("Draft rejected")
	return true
}

// claim removes a draft from the queue so concurrent reviewers cannot both act on it
func (e *Engine) claim(draftID string) (contracts.MarketDraft, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, d := range e.pending {
		if d.ID == draftID {
			e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
			e.updatePendingLocked()
			return d, i, true
		}
	}
	return contracts.MarketDraft{}, 0, false
}

func (e *Engine) restore(draft contracts.MarketDraft, pos int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pos > len(e.pending) {
		pos = len(e.pending)
	}
	e.pending = append(e.pending[:pos:pos], append([]contracts.MarketDraft{draft}, e.pending[pos:]...)...)
	e.updatePendingLocked()
}
