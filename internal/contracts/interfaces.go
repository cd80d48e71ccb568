package contracts

import (
	"context"
	"time"
)

// MarketData is the signal source adapter for prices and candles
// ⭐ SSOT: 시세 조회 인터페이스 (Watchtower, Judge 공용)
type MarketData interface {
	FetchTicker(ctx context.Context, pair string) (Ticker, error)
	FetchCandles(ctx context.Context, pair, interval string, since time.Time, limit int) ([]Candle, error)
}

// TrendSource supplies social trend snapshots
type TrendSource interface {
	FetchTrends(ctx context.Context, topics []string) ([]Trend, error)
}

// SourceRegistry supplies the enabled assets and topics, re-read on every poll
type SourceRegistry interface {
	Assets(ctx context.Context) []string
	Topics(ctx context.Context) []string
}

// Publisher is the settlement authority boundary
// ⭐ SSOT: 발행/정산 실행은 외부 권한자에게 위임
type Publisher interface {
	PublishDraft(ctx context.Context, draft MarketDraft) (string, error)
	PublishResolution(ctx context.Context, instance MarketInstance, resolution Resolution) error
}

// InstanceRegistry stores market instances keyed by their deterministic id
type InstanceRegistry interface {
	// Create stores inst unless its id exists; created is false for duplicates
	Create(ctx context.Context, inst MarketInstance) (created bool, err error)
	Get(ctx context.Context, id string) (MarketInstance, error)
	List(ctx context.Context, status InstanceStatus) ([]MarketInstance, error)
	// Due returns OPEN instances whose end time is at or before cutoff
	Due(ctx context.Context, cutoff time.Time) ([]MarketInstance, error)
	// MarkResolving moves OPEN to RESOLVING stamped with at; ok is false if it was not OPEN
	MarkResolving(ctx context.Context, id string, at time.Time) (ok bool, err error)
	// Reopen moves RESOLVING back to OPEN after a failed attempt
	Reopen(ctx context.Context, id string) error
	// ReopenStale moves instances stuck in RESOLVING since before back to OPEN
	ReopenStale(ctx context.Context, before time.Time) (int, error)
	Settle(ctx context.Context, id string, resolution Resolution) error
	// Unpublished returns settled instances whose resolution was not delivered yet
	Unpublished(ctx context.Context) ([]MarketInstance, error)
	MarkPublished(ctx context.Context, id string) error
	SetExpectedOutcome(ctx context.Context, id, outcome string) error
}

// SettledStatus maps a verdict to the final instance status
func SettledStatus(outcome Outcome) InstanceStatus {
	if outcome == OutcomeVoid {
		return InstanceVoid
	}
	return InstanceResolved
}
