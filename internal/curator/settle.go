package curator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streakhq/curator/internal/contracts"
)

// SettleDue resolves every OPEN instance whose end plus the settle delay has
// passed. Instances the judge cannot decide yet go back to OPEN for the next
// sweep. Claims older than the stale timeout are released first and verdicts
// the settlement API has not acknowledged are published again.
func (e *Engine) SettleDue(ctx context.Context, now time.Time) (int, error) {
	if e.judge == nil {
		return 0, nil
	}

	var errs []error
	if n, err := e.registry.ReopenStale(ctx, now.Add(-e.staleAfter)); err != nil {
		errs = append(errs, err)
	} else if n > 0 {
		e.logger.WithField("reopened", n).Warn("Released stale resolving instances")
	}

	errs = append(errs, e.republish(ctx)...)

	due, err := e.registry.Due(ctx, now.Add(-e.settleDelay))
	if err != nil {
		errs = append(errs, fmt.Errorf("list due instances: %w", err))
		return 0, errors.Join(errs...)
	}

	settled := 0
	for _, inst := range due {
		if ctx.Err() != nil {
			break
		}
		claimed, err := e.registry.MarkResolving(ctx, inst.ID, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		_, err = e.settle(ctx, inst)
		switch {
		case errors.Is(err, errJudge):
			continue
		case err == nil:
		case errors.Is(err, contracts.ErrPublishFailed):
			errs = append(errs, err)
		default:
			errs = append(errs, err)
			continue
		}
		settled++
	}

	if settled > 0 {
		e.logger.WithField("settled", settled).Info("Settlement sweep complete")
	}
	return settled, errors.Join(errs...)
}

// republish retries delivery of stored verdicts whose publish failed
func (e *Engine) republish(ctx context.Context) []error {
	pending, err := e.registry.Unpublished(ctx)
	if err != nil {
		return []error{fmt.Errorf("list unpublished instances: %w", err)}
	}

	var errs []error
	for _, inst := range pending {
		if ctx.Err() != nil {
			break
		}
		if inst.Resolution == nil {
			continue
		}
		if err := e.deliverResolution(ctx, inst, *inst.Resolution); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ResolveInstance runs the judge on one instance now. A non-empty expected
// outcome must be one of the instance's outcome labels and is recorded first,
// which is how external-proof markets get decided. Instances that have not
// ended yet are refused with ErrNotEnded.
func (e *Engine) ResolveInstance(ctx context.Context, id, expectedOutcome string) (contracts.Resolution, error) {
	if e.judge == nil {
		return contracts.Resolution{}, contracts.ErrSourceUnavailable
	}

	inst, err := e.registry.Get(ctx, id)
	if err != nil {
		return contracts.Resolution{}, err
	}
	if inst.Status.Final() && inst.Resolution != nil {
		return *inst.Resolution, nil
	}

	now := e.now().UTC()
	if endsAt := e.settleableAt(inst); now.Before(endsAt) {
		return contracts.Resolution{}, fmt.Errorf("instance %s settles at %s: %w",
			id, endsAt.Format(time.RFC3339), contracts.ErrNotEnded)
	}

	if expectedOutcome != "" {
		label, ok := inst.MatchOutcome(expectedOutcome)
		if !ok {
			return contracts.Resolution{}, fmt.Errorf("%w: %q is not an outcome of %s (allowed %v)",
				contracts.ErrInvalidDraft, expectedOutcome, id, inst.Outcomes)
		}
		if err := e.registry.SetExpectedOutcome(ctx, id, label); err != nil {
			return contracts.Resolution{}, err
		}
		inst.ExpectedOutcome = label
	}

	claimed, err := e.registry.MarkResolving(ctx, id, now)
	if err != nil {
		return contracts.Resolution{}, err
	}
	if !claimed {
		return contracts.Resolution{}, fmt.Errorf("instance %s is already resolving: %w", id, contracts.ErrAlreadyExists)
	}

	res, err := e.settle(ctx, inst)
	if errors.Is(err, errJudge) {
		return contracts.Resolution{}, errors.Unwrap(err)
	}
	return res, err
}

// settleableAt is the earliest time inst may be judged. Candle kinds also
// wait the settle delay so the closing candle is final.
func (e *Engine) settleableAt(inst contracts.MarketInstance) time.Time {
	if spec, ok := inst.Kind.Spec(); ok && spec.External {
		return inst.EndTime
	}
	return inst.EndTime.Add(e.settleDelay)
}

// errJudge marks a judge failure that reopened the instance
var errJudge = errors.New("judge failed")

type judgeError struct{ err error }

func (j judgeError) Error() string        { return j.err.Error() }
func (j judgeError) Unwrap() error        { return j.err }
func (j judgeError) Is(target error) bool { return target == errJudge }

// settle judges a claimed (RESOLVING) instance, stores the verdict and
// publishes it. A failed publish returns the stored verdict together with
// ErrPublishFailed; the next sweep publishes it again.
func (e *Engine) settle(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	log := e.logger.WithField("instance_id", inst.ID)

	res, err := e.judge.Resolve(ctx, inst)
	if err != nil {
		if rerr := e.registry.Reopen(context.WithoutCancel(ctx), inst.ID); rerr != nil {
			log.WithError(rerr).Error("Reopening instance failed")
		}
		if errors.Is(err, contracts.ErrAwaitingProof) {
			log.Debug("Awaiting expected outcome for external proof")
		} else {
			log.WithError(err).Warn("Judge could not resolve instance, retrying next sweep")
		}
		return contracts.Resolution{}, judgeError{err}
	}

	if err := e.registry.Settle(ctx, inst.ID, res); err != nil {
		if rerr := e.registry.Reopen(context.WithoutCancel(ctx), inst.ID); rerr != nil {
			log.WithError(rerr).Error("Reopening instance failed")
		}
		return contracts.Resolution{}, fmt.Errorf("store verdict of %s: %w", inst.ID, err)
	}

	inst.Status = contracts.SettledStatus(res.Outcome)
	inst.Resolution = &res
	inst.ResolvingAt = nil

	e.mu.Lock()
	byKind, ok := e.stats.ByOutcome[inst.Kind]
	if !ok {
		byKind = make(contracts.OutcomeMap)
		e.stats.ByOutcome[inst.Kind] = byKind
	}
	byKind[res.Outcome]++
	e.mu.Unlock()

	e.emit(EventInstanceResolved, inst)
	return res, e.deliverResolution(ctx, inst, res)
}

// deliverResolution publishes a stored verdict and marks it published
func (e *Engine) deliverResolution(ctx context.Context, inst contracts.MarketInstance, res contracts.Resolution) error {
	log := e.logger.WithField("instance_id", inst.ID)

	if err := e.publisher.PublishResolution(ctx, inst, res); err != nil {
		log.WithError(err).Error("Publishing resolution failed, retrying next sweep")
		if errors.Is(err, contracts.ErrPublishFailed) {
			return err
		}
		return fmt.Errorf("%w: resolution of %s: %w", contracts.ErrPublishFailed, inst.ID, err)
	}
	if err := e.registry.MarkPublished(context.WithoutCancel(ctx), inst.ID); err != nil {
		log.WithError(err).Error("Marking resolution published failed")
		return fmt.Errorf("mark %s published: %w", inst.ID, err)
	}
	return nil
}

// Instances lists registered instances; an empty status lists all
func (e *Engine) Instances(ctx context.Context, status contracts.InstanceStatus) ([]contracts.MarketInstance, error) {
	return e.registry.List(ctx, status)
}

// Instance returns one registered instance
func (e *Engine) Instance(ctx context.Context, id string) (contracts.MarketInstance, error) {
	return e.registry.Get(ctx, id)
}
