package watchtower

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

// Detection thresholds
const (
	PriceChangeThreshold = 3.0 // absolute 24h change in percent
	PriceConfidence      = 0.8
	TrendConfidence      = 0.6
	MaxBufferedSignals   = 5 // social emission pauses at this many unread signals
)

// Watchtower polls signal sources and buffers normalized signals
// ⭐ SSOT: 시그널 수집/버퍼링은 여기서만
type Watchtower struct {
	market  contracts.MarketData
	trends  contracts.TrendSource
	sources contracts.SourceRegistry
	logger   *logger.Logger
	timeouts Timeouts
	now      func() time.Time

	mu     sync.Mutex
	buffer []contracts.Signal
}

// Timeouts bounds each upstream call per source; zero means no bound
type Timeouts struct {
	Market time.Duration
	Trends time.Duration
}

// New creates a watchtower
func New(market contracts.MarketData, trends contracts.TrendSource, sources contracts.SourceRegistry, log *logger.Logger, timeouts Timeouts) *Watchtower {
	return &Watchtower{
		market:   market,
		trends:   trends,
		sources:  sources,
		logger:   log.WithComponent("watchtower"),
		timeouts: timeouts,
		now:      time.Now,
	}
}

// Poll checks one category and buffers whatever it emits.
// Categories with no wired source return no signals.
func (w *Watchtower) Poll(ctx context.Context, category contracts.Category) ([]contracts.Signal, error) {
	var (
		emitted []contracts.Signal
		err     error
	)

	switch category {
	case contracts.CategoryCrypto:
		emitted, err = w.pollCrypto(ctx)
	case contracts.CategoryHype:
		emitted, err = w.pollSocial(ctx)
	case contracts.CategoryFinance, contracts.CategorySports, contracts.CategoryGlobal:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}

	if err != nil {
		metrics.PollFailuresTotal.WithLabelValues(string(category)).Inc()
	}
	return emitted, err
}

// Drain returns every buffered signal and empties the buffer
func (w *Watchtower) Drain() []contracts.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.buffer
	w.buffer = nil
	return out
}

// Buffered returns how many signals await draining
func (w *Watchtower) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

func (w *Watchtower) pollCrypto(ctx context.Context) ([]contracts.Signal, error) {
	if w.market == nil {
		return nil, contracts.ErrSourceUnavailable
	}

	pairs := w.sources.Assets(ctx)
	var (
		emitted []contracts.Signal
		errs    []error
	)

	for _, pair := range pairs {
		ticker, err := w.fetchTicker(ctx, pair)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if math.Abs(ticker.PercentageChange) <= PriceChangeThreshold {
			continue
		}

		sig := contracts.Signal{
			Category: contracts.CategoryCrypto,
			Payload: &contracts.PricePayload{
				Asset:     baseAsset(pair),
				Pair:      pair,
				Price:     ticker.Last,
				ChangePct: ticker.PercentageChange,
				Volume:    ticker.QuoteVolume,
			},
			Confidence: PriceConfidence,
			Source:     "Binance",
			Timestamp:  w.now().UTC(),
		}
		emitted = append(emitted, sig)

		w.logger.WithFields(map[string]interface{}{
			"pair":       pair,
			"change_pct": ticker.PercentageChange,
		}).Info("Signal detected: price movement")
	}

	w.push(emitted)

	// partial success keeps its signals; only a total outage is a failed poll
	if len(errs) > 0 && len(errs) == len(pairs) {
		return emitted, errors.Join(errs...)
	}
	for _, err := range errs {
		w.logger.WithError(err).Warn("Ticker fetch failed")
	}
	return emitted, nil
}

func (w *Watchtower) fetchTicker(ctx context.Context, pair string) (contracts.Ticker, error) {
	ctx, cancel := withTimeout(ctx, w.timeouts.Market)
	defer cancel()
	return w.market.FetchTicker(ctx, pair)
}

func (w *Watchtower) pollSocial(ctx context.Context) ([]contracts.Signal, error) {
	if w.trends == nil {
		return nil, contracts.ErrSourceUnavailable
	}

	room := MaxBufferedSignals - w.Buffered()
	if room <= 0 {
		w.logger.Debug("Signal buffer full, skipping social emission")
		return nil, nil
	}

	fetchCtx, cancel := withTimeout(ctx, w.timeouts.Trends)
	defer cancel()
	trends, err := w.trends.FetchTrends(fetchCtx, w.sources.Topics(ctx))
	if err != nil {
		return nil, err
	}

	emitted := make([]contracts.Signal, 0, room)
	for _, tr := range trends {
		if len(emitted) == room {
			break
		}
		emitted = append(emitted, contracts.Signal{
			Category: contracts.CategoryHype,
			Payload: &contracts.TrendPayload{
				Topic:      tr.Topic,
				Mentions:   tr.Mentions,
				GrowthRate: tr.GrowthRate,
				Platform:   tr.Platform,
			},
			Confidence: TrendConfidence,
			Source:     tr.Platform + " API",
			Timestamp:  w.now().UTC(),
		})
		w.logger.WithField("topic", tr.Topic).Info("Signal detected: social trend")
	}

	// the buffer may have grown meanwhile; push re-checks the cap
	return w.pushCapped(emitted), nil
}

func (w *Watchtower) push(signals []contracts.Signal) {
	if len(signals) == 0 {
		return
	}
	w.mu.Lock()
	w.buffer = append(w.buffer, signals...)
	w.mu.Unlock()
	countSignals(signals)
}

func (w *Watchtower) pushCapped(signals []contracts.Signal) []contracts.Signal {
	w.mu.Lock()
	room := MaxBufferedSignals - len(w.buffer)
	if room < 0 {
		room = 0
	}
	if len(signals) > room {
		signals = signals[:room]
	}
	w.buffer = append(w.buffer, signals...)
	w.mu.Unlock()
	countSignals(signals)
	return signals
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func countSignals(signals []contracts.Signal) {
	for _, s := range signals {
		metrics.SignalsTotal.WithLabelValues(string(s.Type())).Inc()
	}
}

// baseAsset turns "BTC/USDT" into "BTC"
func baseAsset(pair string) string {
	if i := strings.Index(pair, "/"); i > 0 {
		return pair[:i]
	}
	return pair
}
