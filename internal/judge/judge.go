package judge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/exchange/binance"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
	"github.com/streakhq/curator/pkg/redis"
)

const candleInterval = "15m"

var hundred = decimal.NewFromInt(100)

// ProofFetcher downloads a resolution source page with its status code
type ProofFetcher interface {
	Fetch(ctx context.Context, url string) (int, []byte, error)
}

// ResolutionCache shares verdicts between replicas
type ResolutionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// Judge produces verdicts for ended market instances
// ⭐ SSOT: 정산 판정 로직은 여기서만
type Judge struct {
	market  contracts.MarketData
	proof   ProofFetcher
	cache   ResolutionCache
	tick    decimal.Decimal
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	resolved map[string]contracts.Resolution
}

// New creates a judge. proof and cache may be nil.
func New(market contracts.MarketData, proof ProofFetcher, cache ResolutionCache, tickSize float64, timeout time.Duration, log *logger.Logger) *Judge {
	if tickSize <= 0 {
		tickSize = 0.01
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Judge{
		market:   market,
		proof:    proof,
		cache:    cache,
		tick:     decimal.NewFromFloat(tickSize),
		timeout:  timeout,
		logger:   log.WithComponent("judge"),
		now:      time.Now,
		resolved: make(map[string]contracts.Resolution),
	}
}

// Resolve returns the verdict for inst. Resolving the same instance twice
// returns the first verdict without fetching anything.
func (j *Judge) Resolve(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	if inst.Status.Final() && inst.Resolution != nil {
		return *inst.Resolution, nil
	}
	if res, ok := j.lookup(ctx, inst.ID); ok {
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := j.decide(ctx, inst)
	if err != nil {
		return contracts.Resolution{}, fmt.Errorf("resolve %s: %w", inst.ID, err)
	}
	res.InstanceID = inst.ID
	res.CheckedAt = j.now().UTC()

	res = j.remember(ctx, res)

	metrics.ResolutionsTotal.WithLabelValues(string(inst.Kind), string(res.Outcome)).Inc()
	j.logger.WithFields(map[string]interface{}{
		"instance_id": inst.ID,
		"kind":        inst.Kind,
		"outcome":     res.Outcome,
	}).Info("Instance resolved")

	return res, nil
}

func (j *Judge) decide(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	spec, ok := inst.Kind.Spec()
	if !ok {
		return contracts.Resolution{}, fmt.Errorf("%w: %s", contracts.ErrUnsupportedKind, inst.Kind)
	}
	if spec.External {
		return j.resolveExternal(ctx, inst)
	}
	if len(inst.Assets) != spec.Assets {
		return contracts.Resolution{}, fmt.Errorf("%s needs %d assets, got %d", inst.Kind, spec.Assets, len(inst.Assets))
	}
	if j.market == nil {
		return contracts.Resolution{}, contracts.ErrSourceUnavailable
	}

	switch inst.Kind {
	case contracts.KindFlash:
		return j.resolveFlash(ctx, inst)
	case contracts.KindClimax:
		return j.resolveClimax(ctx, inst)
	case contracts.KindDuo:
		return j.resolveDuo(ctx, inst)
	case contracts.KindHighJump:
		return j.resolveRace(ctx, inst, peakPct)
	case contracts.KindMarathon:
		return j.resolveRace(ctx, inst, closePct)
	default:
		return contracts.Resolution{}, fmt.Errorf("%w: %s", contracts.ErrUnsupportedKind, inst.Kind)
	}
}

// lookup checks the in-process map first, then the shared cache
func (j *Judge) lookup(ctx context.Context, id string) (contracts.Resolution, bool) {
	j.mu.Lock()
	res, ok := j.resolved[id]
	j.mu.Unlock()
	if ok || j.cache == nil {
		return res, ok
	}

	found, err := j.cache.Get(ctx, redis.ResolutionKey(id), &res)
	if err != nil {
		j.logger.WithError(err).Warn("Resolution cache read failed")
		return contracts.Resolution{}, false
	}
	if found {
		j.store(res)
	}
	return res, found
}

// remember records res unless another writer got there first, in which
// case the earlier verdict wins.
func (j *Judge) remember(ctx context.Context, res contracts.Resolution) contracts.Resolution {
	j.mu.Lock()
	if prev, ok := j.resolved[res.InstanceID]; ok {
		j.mu.Unlock()
		return prev
	}
	j.mu.Unlock()

	if j.cache != nil {
		written, err := j.cache.SetNX(ctx, redis.ResolutionKey(res.InstanceID), res, redis.TTLResolution)
		switch {
		case err != nil:
			j.logger.WithError(err).Warn("Resolution cache write failed")
		case !written:
			var prev contracts.Resolution
			if found, err := j.cache.Get(ctx, redis.ResolutionKey(res.InstanceID), &prev); err == nil && found {
				res = prev
			}
		}
	}

	j.store(res)
	return res
}

func (j *Judge) store(res contracts.Resolution) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.resolved[res.InstanceID]; !ok {
		j.resolved[res.InstanceID] = res
	}
}

func (j *Judge) candles(ctx context.Context, pair string, since time.Time, n int) ([]contracts.Candle, error) {
	candles, err := j.market.FetchCandles(ctx, pair, candleInterval, since, n)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candles: %w", pair, err)
	}
	if len(candles) < n {
		return nil, fmt.Errorf("%s: want %d candles, got %d: %w", pair, n, len(candles), contracts.ErrInsufficientData)
	}
	return candles[:n], nil
}

// resolveFlash: one candle, VOID when the body is below one tick
func (j *Judge) resolveFlash(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	pair := inst.Assets[0]
	candles, err := j.candles(ctx, pair, inst.StartTime, 1)
	if err != nil {
		return contracts.Resolution{}, err
	}
	c := candles[0]

	diff := c.Close.Sub(c.Open)
	outcome := contracts.OutcomeRed
	switch {
	case diff.Abs().LessThan(j.tick):
		outcome = contracts.OutcomeVoid
	case diff.IsPositive():
		outcome = contracts.OutcomeGreen
	}

	return contracts.Resolution{
		Outcome: outcome,
		Evidence: map[string]interface{}{
			"open":       c.Open.InexactFloat64(),
			"close":      c.Close.InexactFloat64(),
			"change_pct": pct(diff, c.Open),
		},
		ProofURL: binance.TradeURL(pair),
	}, nil
}

// resolveClimax: which half of the window printed the higher high; ties go to the first half
func (j *Judge) resolveClimax(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	pair := inst.Assets[0]
	candles, err := j.candles(ctx, pair, inst.StartTime, 2)
	if err != nil {
		return contracts.Resolution{}, err
	}
	first, second := candles[0], candles[1]

	outcome := contracts.OutcomeSecondHalf
	if first.High.GreaterThanOrEqual(second.High) {
		outcome = contracts.OutcomeFirstHalf
	}

	return contracts.Resolution{
		Outcome: outcome,
		Evidence: map[string]interface{}{
			"first_half_high":  first.High.InexactFloat64(),
			"second_half_high": second.High.InexactFloat64(),
		},
		ProofURL: binance.TradeURL(pair),
	}, nil
}

// resolveDuo: whether both halves closed the same colour
func (j *Judge) resolveDuo(ctx context.Context, inst contracts.MarketInstance) (contracts.Resolution, error) {
	pair := inst.Assets[0]
	candles, err := j.candles(ctx, pair, inst.StartTime, 2)
	if err != nil {
		return contracts.Resolution{}, err
	}
	first, second := colour(candles[0]), colour(candles[1])

	outcome := contracts.OutcomeMixed
	if first == second {
		outcome = contracts.OutcomeSame
	}

	return contracts.Resolution{
		Outcome: outcome,
		Evidence: map[string]interface{}{
			"first_color":  string(first),
			"second_color": string(second),
		},
		ProofURL: binance.TradeURL(pair),
	}, nil
}

type metric func(c contracts.Candle) decimal.Decimal

func peakPct(c contracts.Candle) decimal.Decimal  { return ratio(c.High.Sub(c.Open), c.Open) }
func closePct(c contracts.Candle) decimal.Decimal { return ratio(c.Close.Sub(c.Open), c.Open) }

// resolveRace compares two assets over the window; the outcome names the
// winning pair and a tie is VOID.
func (j *Judge) resolveRace(ctx context.Context, inst contracts.MarketInstance, score metric) (contracts.Resolution, error) {
	scores := make([]decimal.Decimal, len(inst.Assets))

	g, gctx := errgroup.WithContext(ctx)
	for i, pair := range inst.Assets {
		g.Go(func() error {
			candles, err := j.candles(gctx, pair, inst.StartTime, 1)
			if err != nil {
				return err
			}
			scores[i] = score(candles[0])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return contracts.Resolution{}, err
	}

	a, b := inst.Assets[0], inst.Assets[1]
	evidence := map[string]interface{}{
		a + "_pct": scores[0].Round(4).InexactFloat64(),
		b + "_pct": scores[1].Round(4).InexactFloat64(),
	}

	var outcome contracts.Outcome
	switch scores[0].Cmp(scores[1]) {
	case 1:
		outcome = contracts.Outcome(a)
	case -1:
		outcome = contracts.Outcome(b)
	default:
		outcome = contracts.OutcomeVoid
	}

	return contracts.Resolution{
		Outcome:  outcome,
		Evidence: evidence,
		ProofURL: binance.TradeURL(a),
	}, nil
}

func colour(c contracts.Candle) contracts.Outcome {
	if c.Green() {
		return contracts.OutcomeGreen
	}
	return contracts.OutcomeRed
}

func ratio(diff, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return diff.Div(base).Mul(hundred)
}

func pct(diff, base decimal.Decimal) float64 {
	return ratio(diff, base).Round(4).InexactFloat64()
}
