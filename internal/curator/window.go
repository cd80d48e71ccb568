package curator

import (
	"context"
	"sync"
	"time"
)

// CreationWindow counts drafts created within a trailing span.
// *redis.Window satisfies it for multi-replica deployments.
type CreationWindow interface {
	// Record adds member at now only while fewer than limit entries are inside
	// the span; ok is false when the window was already full.
	Record(ctx context.Context, member string, now time.Time, limit int) (count int, ok bool, err error)
	Count(ctx context.Context, now time.Time) (int, error)
}

// memoryWindow is the single-process CreationWindow
type memoryWindow struct {
	mu      sync.Mutex
	span    time.Duration
	entries []time.Time
}

func newMemoryWindow(span time.Duration) *memoryWindow {
	return &memoryWindow{span: span}
}

func (w *memoryWindow) Record(_ context.Context, _ string, now time.Time, limit int) (int, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	if len(w.entries) >= limit {
		return len(w.entries), false, nil
	}
	w.entries = append(w.entries, now)
	return len(w.entries), true, nil
}

func (w *memoryWindow) Count(_ context.Context, now time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.entries), nil
}

// prune drops entries at or before now-span; entries are appended in time order
func (w *memoryWindow) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.entries) && !w.entries[i].After(cutoff) {
		i++
	}
	w.entries = w.entries[i:]
}
