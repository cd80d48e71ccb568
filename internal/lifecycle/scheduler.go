package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

// Pairs traded by the scheduled game formats
const (
	PairBTC = "BTC/USDT"
	PairETH = "ETH/USDT"
)

// FlashAssets get one FLASH instance each per quarter hour
var FlashAssets = []string{PairBTC, PairETH}

// ModeGate reports whether a game mode is currently enabled
type ModeGate func(contracts.GameMode) bool

// Scheduler opens market instances at wall-clock boundaries
// ⭐ SSOT: 게임 인스턴스 생성 시점은 여기서만 결정
type Scheduler struct {
	registry contracts.InstanceRegistry
	gate     ModeGate
	logger   *logger.Logger
}

// NewScheduler creates a boundary scheduler. A nil gate enables every mode.
func NewScheduler(registry contracts.InstanceRegistry, gate ModeGate, log *logger.Logger) *Scheduler {
	if gate == nil {
		gate = func(contracts.GameMode) bool { return true }
	}
	return &Scheduler{
		registry: registry,
		gate:     gate,
		logger:   log.WithComponent("lifecycle"),
	}
}

type candidate struct {
	kind   contracts.MarketKind
	assets []string
}

// Candidates lists the instances due to open at the boundary minute of now
func Candidates(now time.Time) ([]contracts.MarketInstance, error) {
	start := now.UTC().Truncate(time.Minute)
	minute := start.Minute()

	var cands []candidate
	if minute%15 == 0 {
		for _, pair := range FlashAssets {
			cands = append(cands, candidate{contracts.KindFlash, []string{pair}})
		}
	}
	switch minute % 30 {
	case 0:
		cands = append(cands, candidate{contracts.KindHighJump, []string{PairBTC, PairETH}})

		climax, duo := PairETH, PairBTC
		if minute == 0 {
			climax, duo = PairBTC, PairETH
		}
		cands = append(cands,
			candidate{contracts.KindClimax, []string{climax}},
			candidate{contracts.KindDuo, []string{duo}},
		)
	case 15:
		cands = append(cands, candidate{contracts.KindMarathon, []string{PairBTC, PairETH}})
	}

	out := make([]contracts.MarketInstance, 0, len(cands))
	for _, c := range cands {
		inst, err := contracts.NewInstance(c.kind, c.assets, start)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// CheckBoundaries opens every enabled instance due at now. Instances that
// already exist are left untouched, so repeated calls are harmless.
func (s *Scheduler) CheckBoundaries(ctx context.Context, now time.Time) ([]contracts.MarketInstance, error) {
	var (
		opened []contracts.MarketInstance
		errs   []error
	)

	cands, err := Candidates(now)
	if err != nil {
		return nil, err
	}

	for _, inst := range cands {
		spec, _ := inst.Kind.Spec()
		if !s.gate(spec.Mode) {
			continue
		}

		created, err := s.registry.Create(ctx, inst)
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", inst.ID, err))
			continue
		}
		if !created {
			continue
		}

		metrics.InstancesOpenedTotal.WithLabelValues(string(inst.Kind)).Inc()
		s.logger.WithFields(map[string]interface{}{
			"instance_id": inst.ID,
			"kind":        inst.Kind,
			"end_time":    inst.EndTime,
		}).Info("Market instance opened")
		opened = append(opened, inst)
	}

	return opened, errors.Join(errs...)
}
