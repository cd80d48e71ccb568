package curator

import (
	"context"
	"fmt"
	"time"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/scheduler"
)

// JobStat is a job's run statistics plus its next scheduled run
type JobStat struct {
	scheduler.JobStats
	NextRun time.Time `json:"next_run"`
}

func newStats(since time.Time) contracts.GenerationStats {
	return contracts.GenerationStats{
		Since:      since.UTC(),
		ByCategory: make(map[contracts.Category]int),
		ByGameMode: make(map[contracts.GameMode]int),
		ByOutcome:  make(map[contracts.MarketKind]contracts.OutcomeMap),
	}
}

// Config returns a copy of the live config
func (e *Engine) Config() contracts.CuratorConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// UpdateConfig replaces the live config; the next cycle picks it up
func (e *Engine) UpdateConfig(cfg contracts.CuratorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg.Clone()
	e.mu.Unlock()

	e.logger.WithFields(map[string]interface{}{
		"mode":                 cfg.Mode,
		"enabled":              cfg.Enabled,
		"interval_seconds":     cfg.IntervalSeconds,
		"max_markets_per_hour": cfg.MaxMarketsPerHour,
	}).Info("Curator config updated")
	e.emit(EventConfigUpdated, cfg)
	return nil
}

// SetMode switches between HUMAN_REVIEW and FULL_CONTROL
func (e *Engine) SetMode(mode contracts.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: mode %q", contracts.ErrInvalidConfig, mode)
	}
	cfg := e.Config()
	cfg.Mode = mode
	return e.UpdateConfig(cfg)
}

// Status returns a snapshot for the admin panel
func (e *Engine) Status(ctx context.Context) contracts.EngineStatus {
	inWindow, err := e.window.Count(ctx, e.now().UTC())
	if err != nil {
		e.logger.WithError(err).Warn("Counting creation window failed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return contracts.EngineStatus{
		Enabled:                e.cfg.Enabled,
		Mode:                   e.cfg.Mode,
		Running:                e.started && !e.stopped,
		LastExecution:          copyTime(e.lastExecution),
		NextExecution:          copyTime(e.nextExecution),
		MarketsCreatedInWindow: inWindow,
		MarketsPendingApproval: len(e.pending),
		MarketsPublishedTotal:  e.publishedTotal,
	}
}

// Stats returns a deep copy of the generation counters
func (e *Engine) Stats() contracts.GenerationStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.stats
	out.PendingReview = len(e.pending)
	out.ByCategory = make(map[contracts.Category]int, len(e.stats.ByCategory))
	for k, v := range e.stats.ByCategory {
		out.ByCategory[k] = v
	}
	out.ByGameMode = make(map[contracts.GameMode]int, len(e.stats.ByGameMode))
	for k, v := range e.stats.ByGameMode {
		out.ByGameMode[k] = v
	}
	out.ByOutcome = make(map[contracts.MarketKind]contracts.OutcomeMap, len(e.stats.ByOutcome))
	for kind, outcomes := range e.stats.ByOutcome {
		m := make(contracts.OutcomeMap, len(outcomes))
		for k, v := range outcomes {
			m[k] = v
		}
		out.ByOutcome[kind] = m
	}
	return out
}

// Thresholds returns the detection thresholds in effect
func (e *Engine) Thresholds() contracts.TriggerThresholds {
	return e.thresholds
}

// DataSources lists the upstream collaborators and their state
func (e *Engine) DataSources() []contracts.DataSource {
	return append([]contracts.DataSource(nil), e.dataSources...)
}

// JobStats exposes the job scheduler's run statistics; nil without a scheduler
func (e *Engine) JobStats() map[string]JobStat {
	if e.jobs == nil {
		return nil
	}
	out := make(map[string]JobStat)
	for name, st := range e.jobs.GetJobStats() {
		out[name] = JobStat{JobStats: st, NextRun: e.jobs.NextRun(name)}
	}
	return out
}

// JobHistory returns the latest limit runs of a job, oldest first
func (e *Engine) JobHistory(name string, limit int) ([]scheduler.JobResult, error) {
	if e.jobs == nil {
		return nil, fmt.Errorf("job %s: %w", name, contracts.ErrNotFound)
	}
	history, err := e.jobs.GetJobHistory(name)
	if err != nil {
		return nil, err
	}
	return history.GetLatestResults(limit), nil
}

// RunJob triggers a registered job immediately
func (e *Engine) RunJob(name string) error {
	if e.jobs == nil {
		return fmt.Errorf("job %s: %w", name, contracts.ErrNotFound)
	}
	return e.jobs.RunJob(name)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
