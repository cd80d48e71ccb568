package jobs

import (
	"context"
	"fmt"
	"time"
)

// Settler resolves instances whose window has closed
type Settler interface {
	SettleDue(ctx context.Context, now time.Time) (int, error)
}

// SettlementJob sweeps due instances every minute, offset from the boundary job
type SettlementJob struct {
	settler Settler
	now     func() time.Time
}

// NewSettlementJob creates the settlement sweep job
func NewSettlementJob(s Settler) *SettlementJob {
	return &SettlementJob{settler: s, now: time.Now}
}

// Name returns the job name
func (j *SettlementJob) Name() string {
	return "settlement_sweep"
}

// Schedule returns the cron schedule (every minute at second 30)
func (j *SettlementJob) Schedule() string {
	return "30 * * * * *"
}

// Run settles everything due now
func (j *SettlementJob) Run(ctx context.Context) error {
	if _, err := j.settler.SettleDue(ctx, j.now()); err != nil {
		return fmt.Errorf("settle due: %w", err)
	}
	return nil
}
