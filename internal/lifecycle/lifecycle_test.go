package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2026, 10, 15, hour, minute, second, 0, time.UTC)
}

func kindsOf(insts []contracts.MarketInstance) map[string]contracts.MarketInstance {
	out := make(map[string]contracts.MarketInstance, len(insts))
	for _, inst := range insts {
		out[inst.ID] = inst
	}
	return out
}

func TestCandidates(t *testing.T) {
	t.Run("top of hour", func(t *testing.T) {
		insts, err := Candidates(at(10, 0, 42))
		require.NoError(t, err)
		byID := kindsOf(insts)

		assert.Len(t, insts, 5)
		assert.Contains(t, byID, "flash_BTC_USDT_20261015_1000")
		assert.Contains(t, byID, "flash_ETH_USDT_20261015_1000")
		assert.Contains(t, byID, "high_jump_BTC_USDT_ETH_USDT_20261015_1000")
		assert.Contains(t, byID, "climax_BTC_USDT_20261015_1000")
		assert.Contains(t, byID, "duo_ETH_USDT_20261015_1000")

		climax := byID["climax_BTC_USDT_20261015_1000"]
		assert.Equal(t, at(10, 0, 0), climax.StartTime)
		assert.Equal(t, at(10, 30, 0), climax.EndTime)
		assert.Equal(t, at(10, 15, 0), byID["flash_BTC_USDT_20261015_1000"].EndTime)
	})

	t.Run("quarter past", func(t *testing.T) {
		insts, err := Candidates(at(10, 15, 0))
		require.NoError(t, err)
		byID := kindsOf(insts)

		assert.Len(t, insts, 3)
		marathon, ok := byID["marathon_BTC_USDT_ETH_USDT_20261015_1015"]
		require.True(t, ok)
		assert.Equal(t, at(10, 30, 0), marathon.EndTime)
	})

	t.Run("half past swaps climax and duo", func(t *testing.T) {
		insts, err := Candidates(at(10, 30, 0))
		require.NoError(t, err)
		byID := kindsOf(insts)

		assert.Contains(t, byID, "climax_ETH_USDT_20261015_1030")
		assert.Contains(t, byID, "duo_BTC_USDT_20261015_1030")
		assert.Contains(t, byID, "high_jump_BTC_USDT_ETH_USDT_20261015_1030")
	})

	t.Run("off boundary", func(t *testing.T) {
		insts, err := Candidates(at(10, 7, 0))
		require.NoError(t, err)
		assert.Empty(t, insts)
	})
}

func TestCheckBoundaries_Idempotent(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	s := NewScheduler(reg, nil, logger.Nop())

	opened, err := s.CheckBoundaries(ctx, at(10, 0, 0))
	require.NoError(t, err)
	assert.Len(t, opened, 5)

	opened, err = s.CheckBoundaries(ctx, at(10, 0, 30))
	require.NoError(t, err)
	assert.Empty(t, opened)

	all, err := reg.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCheckBoundaries_GameModeGate(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	cfg := contracts.CuratorConfig{GameModes: map[contracts.GameMode]bool{
		contracts.GameFlash15M: false,
		contracts.GameDuo30M:   false,
	}}
	s := NewScheduler(reg, cfg.GameModeEnabled, logger.Nop())

	opened, err := s.CheckBoundaries(ctx, at(10, 0, 0))
	require.NoError(t, err)

	var kinds []contracts.MarketKind
	for _, inst := range opened {
		kinds = append(kinds, inst.Kind)
	}
	assert.ElementsMatch(t, []contracts.MarketKind{contracts.KindHighJump, contracts.KindClimax}, kinds)
}

type failingRegistry struct {
	*MemoryRegistry
}

func (f failingRegistry) Create(context.Context, contracts.MarketInstance) (bool, error) {
	return false, errors.New("connection refused")
}

func TestCheckBoundaries_RegistryError(t *testing.T) {
	s := NewScheduler(failingRegistry{NewMemoryRegistry()}, nil, logger.Nop())

	opened, err := s.CheckBoundaries(context.Background(), at(10, 15, 0))
	assert.Error(t, err)
	assert.Empty(t, opened)
}

func TestMemoryRegistry_Lifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	inst, err := contracts.NewInstance(contracts.KindFlash, []string{PairBTC}, at(10, 0, 0))
	require.NoError(t, err)

	created, err := reg.Create(ctx, inst)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = reg.Create(ctx, inst)
	require.NoError(t, err)
	assert.False(t, created)

	due, err := reg.Due(ctx, at(10, 14, 59))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = reg.Due(ctx, at(10, 15, 0))
	require.NoError(t, err)
	require.Len(t, due, 1)

	ok, err := reg.MarkResolving(ctx, inst.ID, at(10, 15, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.MarkResolving(ctx, inst.ID, at(10, 15, 0))
	require.NoError(t, err)
	assert.False(t, ok, "second claim must fail")

	due, err = reg.Due(ctx, at(11, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, due, "resolving instances are not due")

	require.NoError(t, reg.Reopen(ctx, inst.ID))
	got, err := reg.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.InstanceOpen, got.Status)

	res := contracts.Resolution{InstanceID: inst.ID, Outcome: contracts.OutcomeVoid, Evidence: map[string]interface{}{"open": 100.0}}
	require.NoError(t, reg.Settle(ctx, inst.ID, res))

	got, err = reg.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.InstanceVoid, got.Status)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, contracts.OutcomeVoid, got.Resolution.Outcome)

	// a second verdict never overwrites the first
	require.NoError(t, reg.Settle(ctx, inst.ID, contracts.Resolution{Outcome: contracts.OutcomeGreen}))
	got, _ = reg.Get(ctx, inst.ID)
	assert.Equal(t, contracts.OutcomeVoid, got.Resolution.Outcome)

	// returned copies are detached from storage
	got.Resolution.Evidence["open"] = 1.0
	again, _ := reg.Get(ctx, inst.ID)
	assert.Equal(t, 100.0, again.Resolution.Evidence["open"])

	pending, err := reg.Unpublished(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, reg.MarkPublished(ctx, inst.ID))
	pending, err = reg.Unpublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryRegistry_ReopenStale(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	inst, err := contracts.NewInstance(contracts.KindFlash, []string{PairBTC}, at(10, 0, 0))
	require.NoError(t, err)
	_, err = reg.Create(ctx, inst)
	require.NoError(t, err)

	ok, err := reg.MarkResolving(ctx, inst.ID, at(10, 15, 0))
	require.NoError(t, err)
	require.True(t, ok)

	n, err := reg.ReopenStale(ctx, at(10, 15, 0))
	require.NoError(t, err)
	assert.Zero(t, n, "a claim made exactly at the cutoff is still fresh")

	n, err = reg.ReopenStale(ctx, at(10, 20, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := reg.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.InstanceOpen, got.Status)
	assert.Nil(t, got.ResolvingAt)
}

func TestMemoryRegistry_NotFound(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	_, err := reg.Get(ctx, "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	_, err = reg.MarkResolving(ctx, "missing", at(10, 0, 0))
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	assert.ErrorIs(t, reg.MarkPublished(ctx, "missing"), contracts.ErrNotFound)
	assert.ErrorIs(t, reg.Settle(ctx, "missing", contracts.Resolution{}), contracts.ErrNotFound)
	assert.ErrorIs(t, reg.SetExpectedOutcome(ctx, "missing", "YES"), contracts.ErrNotFound)
}

func TestMemoryRegistry_ListFilter(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()
	s := NewScheduler(reg, nil, logger.Nop())

	_, err := s.CheckBoundaries(ctx, at(10, 15, 0))
	require.NoError(t, err)
	_, err = reg.MarkResolving(ctx, "flash_BTC_USDT_20261015_1015", at(10, 30, 0))
	require.NoError(t, err)

	open, err := reg.List(ctx, contracts.InstanceOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	resolving, err := reg.List(ctx, contracts.InstanceResolving)
	require.NoError(t, err)
	require.Len(t, resolving, 1)
	assert.Equal(t, "flash_BTC_USDT_20261015_1015", resolving[0].ID)
}
