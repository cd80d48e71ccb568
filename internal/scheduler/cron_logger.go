package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/streakhq/curator/pkg/logger"
)

// CronLogger routes robfig/cron's internal logging through our logger
type CronLogger struct {
	logger *logger.Logger
}

// NewCronLogger wraps log for cron.WithLogger
func NewCronLogger(log *logger.Logger) *CronLogger {
	return &CronLogger{logger: log.WithComponent("cron")}
}

var _ cron.Logger = (*CronLogger)(nil)

// Info logs cron's routine messages at debug level
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithKeyvals(keysAndValues...).Debug(msg)
}

// Error logs cron failures such as recovered panics
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithKeyvals(keysAndValues...).WithError(err).Error(msg)
}
