package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window counts events inside a sliding time window stored in a sorted set.
// Several curator replicas sharing one Redis see the same count.
// ⭐ SSOT: 시간당 생성 한도 카운트는 여기서만
type Window struct {
	client *Client
	key    string
	span   time.Duration
}

// NewWindow creates a window named key spanning span
func NewWindow(client *Client, prefix, key string, span time.Duration) *Window {
	return &Window{
		client: client,
		key:    fmt.Sprintf("%s:window:%s", prefix, key),
		span:   span,
	}
}

// recordScript prunes, checks the cap and adds in one atomic step.
// A full window returns the negated count and adds nothing.
var recordScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local member = ARGV[3]
	local span_ms = tonumber(ARGV[4])
	local limit = tonumber(ARGV[5])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return -count
	end
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, span_ms)
	return count + 1
`)

// Record adds one event identified by member at now unless limit events are
// already inside the span. ok reports whether the event was added; a disabled
// client records nothing and never refuses.
func (w *Window) Record(ctx context.Context, member string, now time.Time, limit int) (int, bool, error) {
	if !w.client.Enabled() {
		return 0, true, nil
	}

	nowMs := now.UnixMilli()
	n, err := recordScript.Run(ctx, w.client.Redis(), []string{w.key},
		nowMs,
		nowMs-w.span.Milliseconds(),
		member,
		w.span.Milliseconds(),
		limit,
	).Int()
	if err != nil {
		return 0, false, fmt.Errorf("window record failed: %w", err)
	}
	if n < 0 || (n == 0 && limit <= 0) {
		return -n, false, nil
	}
	return n, true, nil
}

// Count returns how many events fall inside (now-span, now]
func (w *Window) Count(ctx context.Context, now time.Time) (int, error) {
	if !w.client.Enabled() {
		return 0, nil
	}

	start := now.Add(-w.span).UnixMilli()
	n, err := w.client.Redis().ZCount(ctx, w.key,
		fmt.Sprintf("(%d", start),
		fmt.Sprintf("%d", now.UnixMilli()),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("window count failed: %w", err)
	}
	return int(n), nil
}
