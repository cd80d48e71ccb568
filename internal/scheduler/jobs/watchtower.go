package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
)

// Poller polls one signal category
type Poller interface {
	Poll(ctx context.Context, category contracts.Category) ([]contracts.Signal, error)
}

// MonitorJob polls one watchtower category on a fixed cadence
// ⭐ SSOT: Watchtower 폴링 주기는 이 Job에서만
type MonitorJob struct {
	poller   Poller
	category contracts.Category
	schedule string
	logger   *logger.Logger
}

// NewCryptoMonitorJob polls CRYPTO every 15 minutes
func NewCryptoMonitorJob(p Poller, log *logger.Logger) *MonitorJob {
	return &MonitorJob{poller: p, category: contracts.CategoryCrypto, schedule: "@every 15m", logger: log}
}

// NewSocialMonitorJob polls HYPE every 5 minutes
func NewSocialMonitorJob(p Poller, log *logger.Logger) *MonitorJob {
	return &MonitorJob{poller: p, category: contracts.CategoryHype, schedule: "@every 5m", logger: log}
}

// Name returns the job name
func (j *MonitorJob) Name() string {
	return "monitor_" + strings.ToLower(string(j.category))
}

// Schedule returns the poll cadence
func (j *MonitorJob) Schedule() string {
	return j.schedule
}

// Run performs one poll
func (j *MonitorJob) Run(ctx context.Context) error {
	signals, err := j.poller.Poll(ctx, j.category)
	if err != nil {
		return fmt.Errorf("poll %s: %w", j.category, err)
	}
	if len(signals) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"category": j.category,
			"signals":  len(signals),
		}).Info("Signals detected")
	}
	return nil
}
