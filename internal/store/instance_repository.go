package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streakhq/curator/internal/contracts"
)

// Schema creates the instance table. Safe to run on every start.
const Schema = `
CREATE SCHEMA IF NOT EXISTS curator;

CREATE TABLE IF NOT EXISTS curator.market_instances (
	id               TEXT PRIMARY KEY,
	kind             TEXT        NOT NULL,
	assets           TEXT[]      NOT NULL DEFAULT '{}',
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ NOT NULL,
	status           TEXT        NOT NULL,
	proof_url        TEXT        NOT NULL DEFAULT '',
	expected_outcome TEXT        NOT NULL DEFAULT '',
	draft_id         TEXT        NOT NULL DEFAULT '',
	resolution       JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE curator.market_instances
	ADD COLUMN IF NOT EXISTS outcomes     TEXT[]      NOT NULL DEFAULT '{}',
	ADD COLUMN IF NOT EXISTS published    BOOLEAN     NOT NULL DEFAULT false,
	ADD COLUMN IF NOT EXISTS resolving_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS idx_market_instances_due
	ON curator.market_instances (status, end_time);
`

const selectColumns = `
	SELECT id, kind, assets, start_time, end_time, status, proof_url,
		   expected_outcome, outcomes, draft_id, resolution, published,
		   resolving_at, created_at
	FROM curator.market_instances`

// InstanceRepository 마켓 인스턴스 저장소 (PostgreSQL)
// ⭐ SSOT: 인스턴스 영속화는 여기서만
type InstanceRepository struct {
	pool *pgxpool.Pool
}

// NewInstanceRepository 새 저장소 생성
func NewInstanceRepository(pool *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{pool: pool}
}

// Migrate applies Schema
func (r *InstanceRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate instances: %w", err)
	}
	return nil
}

// Create 인스턴스 저장 (이미 있으면 무시)
func (r *InstanceRepository) Create(ctx context.Context, inst contracts.MarketInstance) (bool, error) {
	resolution, err := encodeResolution(inst.Resolution)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO curator.market_instances
			(id, kind, assets, start_time, end_time, status, proof_url, expected_outcome,
			 outcomes, draft_id, resolution, published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`

	// TEXT[] NOT NULL rejects a nil slice
	tag, err := r.pool.Exec(ctx, query,
		inst.ID, string(inst.Kind), nonNil(inst.Assets), inst.StartTime, inst.EndTime,
		string(inst.Status), inst.ProofURL, inst.ExpectedOutcome, nonNil(inst.Outcomes),
		inst.DraftID, resolution, inst.Published, inst.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert instance %s: %w", inst.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get 인스턴스 조회
func (r *InstanceRepository) Get(ctx context.Context, id string) (contracts.MarketInstance, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.MarketInstance{}, fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	return inst, err
}

// List 상태별 인스턴스 조회 (빈 상태는 전체)
func (r *InstanceRepository) List(ctx context.Context, status contracts.InstanceStatus) ([]contracts.MarketInstance, error) {
	query := selectColumns + `
		WHERE ($1 = '' OR status = $1)
		ORDER BY start_time, id`
	return r.query(ctx, query, string(status))
}

// Due 정산 대상 인스턴스 조회
func (r *InstanceRepository) Due(ctx context.Context, cutoff time.Time) ([]contracts.MarketInstance, error) {
	query := selectColumns + `
		WHERE status = 'OPEN' AND end_time <= $1
		ORDER BY end_time, id`
	return r.query(ctx, query, cutoff)
}

// MarkResolving OPEN → RESOLVING (선점)
func (r *InstanceRepository) MarkResolving(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.transition(ctx, id, `
		UPDATE curator.market_instances SET status = 'RESOLVING', resolving_at = $2
		WHERE id = $1 AND status = 'OPEN'`, at)
}

// Reopen RESOLVING → OPEN (정산 실패 시)
func (r *InstanceRepository) Reopen(ctx context.Context, id string) error {
	_, err := r.transition(ctx, id, `
		UPDATE curator.market_instances SET status = 'OPEN', resolving_at = NULL
		WHERE id = $1 AND status = 'RESOLVING'`)
	return err
}

// ReopenStale 오래 RESOLVING에 머문 인스턴스 복구 (프로세스 중단 대비)
func (r *InstanceRepository) ReopenStale(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE curator.market_instances SET status = 'OPEN', resolving_at = NULL
		WHERE status = 'RESOLVING' AND resolving_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("reopen stale instances: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Settle 판정 결과 저장 (최종 상태면 무시)
func (r *InstanceRepository) Settle(ctx context.Context, id string, res contracts.Resolution) error {
	resolution, err := encodeResolution(&res)
	if err != nil {
		return err
	}
	_, err = r.transition(ctx, id, `
		UPDATE curator.market_instances SET status = $2, resolution = $3, resolving_at = NULL
		WHERE id = $1 AND status NOT IN ('RESOLVED', 'VOID')`,
		string(contracts.SettledStatus(res.Outcome)), resolution)
	return err
}

// Unpublished 정산됐지만 발행되지 않은 인스턴스 조회
func (r *InstanceRepository) Unpublished(ctx context.Context) ([]contracts.MarketInstance, error) {
	query := selectColumns + `
		WHERE status IN ('RESOLVED', 'VOID') AND NOT published
		ORDER BY end_time, id`
	return r.query(ctx, query)
}

// MarkPublished 발행 완료 표시
func (r *InstanceRepository) MarkPublished(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE curator.market_instances SET published = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark published %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// SetExpectedOutcome 외부 증빙 마켓의 기대 결과 기록
func (r *InstanceRepository) SetExpectedOutcome(ctx context.Context, id, outcome string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE curator.market_instances SET expected_outcome = $2 WHERE id = $1`, id, outcome)
	if err != nil {
		return fmt.Errorf("set expected outcome %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// transition runs a guarded UPDATE. ok is false when the guard did not match;
// a missing row is ErrNotFound.
func (r *InstanceRepository) transition(ctx context.Context, id, query string, args ...interface{}) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return false, fmt.Errorf("update instance %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM curator.market_instances WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check instance %s: %w", id, err)
	}
	if !exists {
		return false, fmt.Errorf("instance %s: %w", id, contracts.ErrNotFound)
	}
	return false, nil
}

func (r *InstanceRepository) query(ctx context.Context, query string, args ...interface{}) ([]contracts.MarketInstance, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var out []contracts.MarketInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func scanInstance(row pgx.Row) (contracts.MarketInstance, error) {
	var (
		inst       contracts.MarketInstance
		kind       string
		status     string
		resolution []byte
	)
	if err := row.Scan(
		&inst.ID, &kind, &inst.Assets, &inst.StartTime, &inst.EndTime, &status,
		&inst.ProofURL, &inst.ExpectedOutcome, &inst.Outcomes, &inst.DraftID, &resolution,
		&inst.Published, &inst.ResolvingAt, &inst.CreatedAt,
	); err != nil {
		return contracts.MarketInstance{}, err
	}

	inst.Kind = contracts.MarketKind(kind)
	inst.Status = contracts.InstanceStatus(status)
	inst.StartTime = inst.StartTime.UTC()
	inst.EndTime = inst.EndTime.UTC()
	inst.CreatedAt = inst.CreatedAt.UTC()
	if inst.ResolvingAt != nil {
		at := inst.ResolvingAt.UTC()
		inst.ResolvingAt = &at
	}
	if len(inst.Outcomes) == 0 {
		inst.Outcomes = nil
	}

	if len(resolution) > 0 {
		var res contracts.Resolution
		if err := json.Unmarshal(resolution, &res); err != nil {
			return contracts.MarketInstance{}, fmt.Errorf("decode resolution of %s: %w", inst.ID, err)
		}
		inst.Resolution = &res
	}
	return inst, nil
}

func encodeResolution(res *contracts.Resolution) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode resolution: %w", err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
