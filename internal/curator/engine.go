package curator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/scheduler"
	"github.com/streakhq/curator/internal/scheduler/jobs"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

const (
	// BatchSize caps how many drained signals one cycle proposes
	BatchSize = 5
	// ErrorBackoff replaces the interval after a failed or panicking cycle
	ErrorBackoff = 60 * time.Second
	// WindowSpan is the trailing span MaxMarketsPerHour applies to
	WindowSpan = time.Hour
	// DefaultStaleAfter is how long an instance may stay RESOLVING before a sweep reopens it
	DefaultStaleAfter = 5 * time.Minute
)

// SignalBuffer is the watchtower as seen by the engine
type SignalBuffer interface {
	jobs.Poller
	Drain() []contracts.Signal
}

// Proposer turns a signal into a draft; nil means rejected
type Proposer interface {
	Propose(ctx context.Context, sig contracts.Signal) (*contracts.MarketDraft, error)
}

// Resolver produces verdicts for ended instances
type Resolver interface {
	Resolve(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error)
}

// Options wires the engine's collaborators
type Options struct {
	Config      contracts.CuratorConfig
	Signals     SignalBuffer
	Architect   Proposer
	Lifecycle   jobs.BoundaryChecker
	Judge       Resolver
	Registry    contracts.InstanceRegistry
	Publisher   contracts.Publisher
	Window      CreationWindow     // nil: in-process window
	Jobs        *scheduler.Scheduler // nil: periodic jobs are not registered
	Events      EventSink
	SettleDelay time.Duration
	StaleAfter  time.Duration // zero: DefaultStaleAfter
	Thresholds  contracts.TriggerThresholds
	DataSources []contracts.DataSource
	Logger      *logger.Logger
}

// Engine owns the curator aggregate: config, pending drafts, creation
// window and counters, all behind one mutex.
// ⭐ SSOT: 큐레이터 상태는 Engine만 소유
type Engine struct {
	signals     SignalBuffer
	architect   Proposer
	lifecycle   jobs.BoundaryChecker
	judge       Resolver
	registry    contracts.InstanceRegistry
	publisher   contracts.Publisher
	window      CreationWindow
	jobs        *scheduler.Scheduler
	events      EventSink
	settleDelay time.Duration
	staleAfter  time.Duration
	thresholds  contracts.TriggerThresholds
	dataSources []contracts.DataSource
	logger      *logger.Logger
	now         func() time.Time
	backoff     time.Duration

	mu             sync.Mutex
	cfg            contracts.CuratorConfig
	pending        []contracts.MarketDraft
	stats          contracts.GenerationStats
	publishedTotal int
	lastExecution  *time.Time
	nextExecution  *time.Time
	started        bool
	stopped        bool
	cancel         context.CancelFunc
	done           chan struct{}
}

// New validates the config and builds an engine. When opts.Jobs is set the
// watchtower, lifecycle and settlement jobs are registered on it.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Signals == nil || opts.Architect == nil || opts.Registry == nil || opts.Publisher == nil {
		return nil, errors.New("curator: signals, architect, registry and publisher are required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	window := opts.Window
	if window == nil {
		window = newMemoryWindow(WindowSpan)
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	e := &Engine{
		signals:     opts.Signals,
		architect:   opts.Architect,
		lifecycle:   opts.Lifecycle,
		judge:       opts.Judge,
		registry:    opts.Registry,
		publisher:   opts.Publisher,
		window:      window,
		jobs:        opts.Jobs,
		events:      opts.Events,
		settleDelay: opts.SettleDelay,
		staleAfter:  staleAfter,
		thresholds:  opts.Thresholds,
		dataSources: append([]contracts.DataSource(nil), opts.DataSources...),
		logger:      log.WithComponent("curator"),
		now:         time.Now,
		backoff:     ErrorBackoff,
		cfg:         opts.Config.Clone(),
		stats:       newStats(time.Now()),
	}

	if e.jobs != nil {
		if err := e.registerJobs(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) registerJobs() error {
	list := []scheduler.Job{
		jobs.NewCryptoMonitorJob(e.signals, e.logger),
		jobs.NewSocialMonitorJob(e.signals, e.logger),
	}
	if e.lifecycle != nil {
		list = append(list, jobs.NewBoundaryJob(e))
	}
	if e.judge != nil {
		list = append(list, jobs.NewSettlementJob(e))
	}
	for _, job := range list {
		if err := e.jobs.AddJob(job); err != nil {
			return fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}
	return nil
}

// Start launches the job scheduler and the engine loop. Calling it again,
// or after Stop, does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.started = true
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	if e.jobs != nil {
		e.jobs.Start()
	}
	go e.loop(ctx)
	e.logger.Info("Curator engine started")
}

// Stop cancels the loop and waits for it, then stops the job scheduler and
// waits for in-flight jobs.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	if e.jobs != nil {
		e.jobs.Stop()
	}
	e.logger.Info("Curator engine stopped")
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	for ctx.Err() == nil {
		wait := e.cycleSafely(ctx)

		next := e.now().Add(wait).UTC()
		e.mu.Lock()
		e.nextExecution = &next
		e.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycleSafely runs one cycle and returns how long to wait before the next.
// The interval is re-read every cycle so config changes apply on the next one.
func (e *Engine) cycleSafely(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("Curator cycle panicked")
			wait = e.backoff
		}
	}()

	if _, err := e.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return 0
		}
		e.logger.WithError(err).Error("Curator cycle failed")
		return e.backoff
	}
	return e.Config().Interval()
}

// RunCycle drains the watchtower and proposes up to BatchSize drafts,
// stopping once the creation window is full. It returns the number of drafts created.
func (e *Engine) RunCycle(ctx context.Context) (int, error) {
	cfg := e.Config()
	if !cfg.Enabled {
		return 0, nil
	}

	now := e.now().UTC()
	e.mu.Lock()
	e.lastExecution = &now
	e.mu.Unlock()

	count, err := e.window.Count(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("count creation window: %w", err)
	}
	if count >= cfg.MaxMarketsPerHour {
		e.logger.WithField("created_in_window", count).Info("Hourly market cap reached, skipping cycle")
		return 0, nil
	}

	signals := e.signals.Drain()
	if len(signals) > BatchSize {
		signals = signals[:BatchSize]
	}

	created := 0
	for _, sig := range signals {
		if count >= cfg.MaxMarketsPerHour {
			break
		}

		draft, err := e.architect.Propose(ctx, sig)
		if err != nil {
			return created, fmt.Errorf("propose: %w", err)
		}
		if draft == nil {
			continue
		}

		var ok bool
		count, ok, err = e.window.Record(ctx, draft.ID, now, cfg.MaxMarketsPerHour)
		if err != nil {
			return created, fmt.Errorf("record creation: %w", err)
		}
		if !ok {
			// another replica filled the window since the count above
			e.logger.WithField("draft_id", draft.ID).Info("Hourly market cap reached, dropping draft")
			break
		}
		created++
		e.accept(ctx, cfg, *draft)
	}

	if created > 0 {
		e.logger.WithField("drafts", created).Info("Curator cycle complete")
	}
	return created, nil
}

// accept queues a fresh draft, publishing it straight away in FULL_CONTROL with auto-publish
func (e *Engine) accept(ctx context.Context, cfg contracts.CuratorConfig, draft contracts.MarketDraft) {
	e.mu.Lock()
	e.stats.TotalGenerated++
	e.stats.ByCategory[draft.Category]++
	e.mu.Unlock()
	e.emit(EventDraftCreated, draft)

	if cfg.Mode == contracts.ModeFullControl && cfg.AutoPublish {
		if _, err := e.publish(ctx, draft); err == nil {
			e.mu.Lock()
			e.stats.AutoPublished++
			e.mu.Unlock()
			return
		}
	}

	e.mu.Lock()
	e.pending = append(e.pending, draft)
	e.updatePendingLocked()
	e.mu.Unlock()
}

// publish sends the draft to the settlement authority and, on success,
// registers an external-proof instance for it.
func (e *Engine) publish(ctx context.Context, draft contracts.MarketDraft) (contracts.MarketDraft, error) {
	marketID, err := e.publisher.PublishDraft(ctx, draft)
	if err != nil {
		metrics.DraftsTotal.WithLabelValues("publish_failed").Inc()
		e.mu.Lock()
		e.stats.PublishFailed++
		e.mu.Unlock()
		e.logger.WithError(err).WithField("draft_id", draft.ID).Warn("Draft publish failed, keeping it pending")
		return draft, err
	}

	draft.Status = contracts.DraftApproved
	draft.MarketID = marketID

	e.mu.Lock()
	e.publishedTotal++
	e.mu.Unlock()
	metrics.DraftsTotal.WithLabelValues("published").Inc()
	e.logger.WithFields(map[string]interface{}{
		"draft_id":  draft.ID,
		"market_id": marketID,
	}).Info("Draft published")

	e.registerExternal(ctx, draft)
	e.emit(EventDraftPublished, draft)
	return draft, nil
}

func (e *Engine) registerExternal(ctx context.Context, draft contracts.MarketDraft) {
	start := e.now()
	inst, err := contracts.NewInstance(contracts.CuratorKindFor(draft.DurationHours), nil, start)
	if err != nil {
		e.logger.WithError(err).Error("Building curator instance failed")
		return
	}
	inst.ID = "curator_" + draft.ID
	inst.EndTime = inst.StartTime.Add(time.Duration(draft.DurationHours) * time.Hour)
	inst.ProofURL = draft.ResolutionSource
	inst.Outcomes = []string{draft.OutcomeA, draft.OutcomeB}
	inst.DraftID = draft.ID

	if _, err := e.registry.Create(ctx, inst); err != nil {
		e.logger.WithError(err).WithField("instance_id", inst.ID).Error("Registering curator instance failed")
	}
}

func (e *Engine) updatePendingLocked() {
	e.stats.PendingReview = len(e.pending)
	metrics.PendingDrafts.Set(float64(len(e.pending)))
}

// CheckBoundaries delegates to the lifecycle scheduler and counts what it opened
func (e *Engine) CheckBoundaries(ctx context.Context, now time.Time) ([]contracts.MarketInstance, error) {
	if e.lifecycle == nil {
		return nil, nil
	}
	opened, err := e.lifecycle.CheckBoundaries(ctx, now)

	if len(opened) > 0 {
		e.mu.Lock()
		for _, inst := range opened {
			if spec, ok := inst.Kind.Spec(); ok {
				e.stats.ByGameMode[spec.Mode]++
			}
		}
		e.mu.Unlock()
	}
	return opened, err
}

// GameModeEnabled reads the live flag for mode
func (e *Engine) GameModeEnabled(mode contracts.GameMode) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.GameModeEnabled(mode)
}
