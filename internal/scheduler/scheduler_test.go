package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
)

// funcJob adapts a plain function into a Job
type funcJob struct {
	name string
	spec string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Schedule() string              { return j.spec }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func noop(context.Context) error { return nil }

func jobNames(s *Scheduler) []string {
	var names []string
	for name := range s.GetJobStats() {
		names = append(names, name)
	}
	return names
}

func TestAddJob_Duplicate(t *testing.T) {
	s := New(logger.Nop(), time.Second)
	defer s.Stop()

	job := funcJob{name: "tick", spec: "@every 1m", fn: noop}
	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Equal(t, []string{"tick"}, jobNames(s))
}

func TestAddJob_BadSchedule(t *testing.T) {
	s := New(logger.Nop(), time.Second)
	defer s.Stop()

	err := s.AddJob(funcJob{name: "bad", spec: "not a cron", fn: noop})
	assert.Error(t, err)
	assert.Empty(t, jobNames(s))
}

func TestRunJob_RecordsHistory(t *testing.T) {
	s := New(logger.Nop(), time.Second)
	defer s.Stop()

	var calls int32
	require.NoError(t, s.AddJob(funcJob{name: "flaky", spec: "@every 1h", fn: func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("upstream timeout")
		}
		return nil
	}}))

	assert.Error(t, s.RunJob("flaky"))
	assert.NoError(t, s.RunJob("flaky"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "a failure is not retried in place")

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 2)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "upstream timeout", history.Results[0].Error)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.5, stats.SuccessRate)
	assert.Empty(t, stats.LastError)

	assert.Error(t, s.RunJob("missing"))
	_, err = s.GetJobHistory("missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRunJob_Timeout(t *testing.T) {
	s := New(logger.Nop(), 20*time.Millisecond)
	defer s.Stop()

	require.NoError(t, s.AddJob(funcJob{name: "slow", spec: "@every 1h", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	assert.ErrorIs(t, s.RunJob("slow"), context.DeadlineExceeded)
}

func TestStop_CancelsInFlight(t *testing.T) {
	s := New(logger.Nop(), time.Minute)

	started := make(chan struct{}, 1)
	returned := make(chan error, 1)
	require.NoError(t, s.AddJob(funcJob{name: "blocking", spec: "* * * * * *", fn: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case returned <- ctx.Err():
		default:
		}
		return ctx.Err()
	}}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, <-returned, context.Canceled)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, h.GetLatestResults(0))
	assert.Equal(t, 0.5, h.GetSuccessRate())
	assert.Equal(t, 0.0, (&JobHistory{}).GetSuccessRate())
}
