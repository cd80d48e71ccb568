package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/streakhq/curator/internal/contracts"
)

// BoundaryChecker opens market instances at clock boundaries
type BoundaryChecker interface {
	CheckBoundaries(ctx context.Context, now time.Time) ([]contracts.MarketInstance, error)
}

// BoundaryJob runs the lifecycle boundary check at second 0 of every minute
// ⭐ SSOT: 게임 시장 개설 주기는 이 Job에서만
type BoundaryJob struct {
	checker BoundaryChecker
	now     func() time.Time
}

// NewBoundaryJob creates the per-minute boundary job
func NewBoundaryJob(c BoundaryChecker) *BoundaryJob {
	return &BoundaryJob{checker: c, now: time.Now}
}

// Name returns the job name
func (j *BoundaryJob) Name() string {
	return "lifecycle_boundaries"
}

// Schedule returns the cron schedule (every minute, with seconds)
func (j *BoundaryJob) Schedule() string {
	return "0 * * * * *"
}

// Run checks the current minute
func (j *BoundaryJob) Run(ctx context.Context) error {
	if _, err := j.checker.CheckBoundaries(ctx, j.now()); err != nil {
		return fmt.Errorf("check boundaries: %w", err)
	}
	return nil
}
