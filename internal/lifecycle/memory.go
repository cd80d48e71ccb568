package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/streakhq/curator/internal/contracts"
)

// MemoryRegistry keeps instances in process memory. Used when no database
// is configured and in tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	instances map[string]contracts.MarketInstance
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{instances: make(map[string]contracts.MarketInstance)}
}

func (r *MemoryRegistry) Create(_ context.Context, inst contracts.MarketInstance) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[inst.ID]; exists {
		return false, nil
	}
	r.instances[inst.ID] = clone(inst)
	return true, nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (contracts.MarketInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return contracts.MarketInstance{}, fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	return clone(inst), nil
}

// List returns instances ordered by start time; an empty status matches all
func (r *MemoryRegistry) List(_ context.Context, status contracts.InstanceStatus) ([]contracts.MarketInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contracts.MarketInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		if status == "" || inst.Status == status {
			out = append(out, clone(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (r *MemoryRegistry) Due(_ context.Context, cutoff time.Time) ([]contracts.MarketInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []contracts.MarketInstance
	for _, inst := range r.instances {
		if inst.Status == contracts.InstanceOpen && !inst.EndTime.After(cutoff) {
			out = append(out, clone(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime.Equal(out[j].EndTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndTime.Before(out[j].EndTime)
	})
	return out, nil
}

func (r *MemoryRegistry) MarkResolving(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return false, fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	if inst.Status != contracts.InstanceOpen {
		return false, nil
	}
	at = at.UTC()
	inst.Status = contracts.InstanceResolving
	inst.ResolvingAt = &at
	r.instances[id] = inst
	return true, nil
}

func (r *MemoryRegistry) Reopen(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	if inst.Status == contracts.InstanceResolving {
		inst.Status = contracts.InstanceOpen
		inst.ResolvingAt = nil
		r.instances[id] = inst
	}
	return nil
}

func (r *MemoryRegistry) ReopenStale(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, inst := range r.instances {
		if inst.Status != contracts.InstanceResolving || inst.ResolvingAt == nil || !inst.ResolvingAt.Before(before) {
			continue
		}
		inst.Status = contracts.InstanceOpen
		inst.ResolvingAt = nil
		r.instances[id] = inst
		n++
	}
	return n, nil
}

// Settle stores the verdict. Settling a final instance again is a no-op.
func (r *MemoryRegistry) Settle(_ context.Context, id string, res contracts.Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	if inst.Status.Final() {
		return nil
	}
	inst.Status = contracts.SettledStatus(res.Outcome)
	inst.Resolution = cloneResolution(&res)
	inst.ResolvingAt = nil
	r.instances[id] = inst
	return nil
}

// Unpublished returns final instances not yet marked published, oldest end first
func (r *MemoryRegistry) Unpublished(_ context.Context) ([]contracts.MarketInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []contracts.MarketInstance
	for _, inst := range r.instances {
		if inst.Status.Final() && !inst.Published {
			out = append(out, clone(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndTime.Equal(out[j].EndTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndTime.Before(out[j].EndTime)
	})
	return out, nil
}

func (r *MemoryRegistry) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	inst.Published = true
	r.instances[id] = inst
	return nil
}

func (r *MemoryRegistry) SetExpectedOutcome(_ context.Context, id, outcome string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	inst.ExpectedOutcome = outcome
	r.instances[id] = inst
	return nil
}

func clone(inst contracts.MarketInstance) contracts.MarketInstance {
	inst.Assets = append([]string{}, inst.Assets...)
	if inst.Outcomes != nil {
		inst.Outcomes = append([]string(nil), inst.Outcomes...)
	}
	if inst.ResolvingAt != nil {
		at := *inst.ResolvingAt
		inst.ResolvingAt = &at
	}
	inst.Resolution = cloneResolution(inst.Resolution)
	return inst
}

func cloneResolution(res *contracts.Resolution) *contracts.Resolution {
	if res == nil {
		return nil
	}
	out := *res
	out.Evidence = make(map[string]interface{}, len(res.Evidence))
	for k, v := range res.Evidence {
		out.Evidence[k] = v
	}
	return &out
}
