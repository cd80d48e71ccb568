package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/streakhq/curator/internal/api"
	"github.com/streakhq/curator/internal/api/handlers"
	"github.com/streakhq/curator/internal/architect"
	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/internal/curator"
	"github.com/streakhq/curator/internal/exchange/binance"
	"github.com/streakhq/curator/internal/external/genai"
	"github.com/streakhq/curator/internal/external/social"
	"github.com/streakhq/curator/internal/judge"
	"github.com/streakhq/curator/internal/lifecycle"
	"github.com/streakhq/curator/internal/scheduler"
	"github.com/streakhq/curator/internal/settlement"
	"github.com/streakhq/curator/internal/sources"
	"github.com/streakhq/curator/internal/store"
	"github.com/streakhq/curator/internal/watchtower"
	"github.com/streakhq/curator/pkg/config"
	"github.com/streakhq/curator/pkg/database"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/redis"
)

const (
	jobTimeout  = 2 * time.Minute
	redisPrefix = "curator"
)

// app holds every wired component of one curator process
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	registry  contracts.InstanceRegistry
	lifecycle *lifecycle.Scheduler
	jobs      *scheduler.Scheduler
	hub       *handlers.Hub
	engine    *curator.Engine
}

// newApp connects the stores and builds the engine with its collaborators.
// withJobs registers the periodic jobs; one-shot commands leave it off.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, withJobs bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// 1. Instance registry: Postgres when configured, memory otherwise
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		repo := store.NewInstanceRepository(db.Pool)
		if err := repo.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate instance schema: %w", err)
		}
		a.registry = repo
		log.Info("Connected to database")
	} else {
		a.registry = lifecycle.NewMemoryRegistry()
		log.Warn("DATABASE_URL not set, instances are kept in memory")
	}

	// 2. Redis: shared creation window and verdict cache
	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	// 3. HTTP clients
	binanceHTTP := httputil.New(log, cfg.Binance.Timeout).WithRateLimit(cfg.Binance.RateLimit)
	socialHTTP := httputil.New(log, cfg.Social.Timeout)
	settlementHTTP := httputil.New(log, cfg.Settlement.Timeout)
	proofHTTP := httputil.New(log, cfg.Judge.Timeout).WithRetry(1, time.Second)

	// 4. External collaborators
	market := binance.NewClient(binanceHTTP, log, cfg.Binance.BaseURL, cfg.Binance.Enabled)
	trends := social.NewClient(socialHTTP, log, cfg.Social.TrendsURL)
	registry := sources.NewStatic(cfg.Curator.Assets, cfg.Curator.Topics)

	var gen architect.Generator
	if cfg.GenAI.APIKey != "" {
		client, err := genai.NewClient(ctx, cfg.GenAI, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		gen = client
	} else {
		log.Warn("GENAI_API_KEY not set, drafts use templates only")
	}

	var publisher contracts.Publisher
	if cfg.Settlement.URL != "" {
		publisher = settlement.NewHTTPPublisher(settlementHTTP, log, cfg.Settlement.URL, cfg.Settlement.Token)
	} else {
		publisher = settlement.NewLogPublisher(log)
		log.Warn("SETTLEMENT_URL not set, publications are only logged")
	}

	// 5. Core components
	tower := watchtower.New(market, trends, registry, log, watchtower.Timeouts{
		Market: cfg.Binance.Timeout,
		Trends: cfg.Social.Timeout,
	})
	arch := architect.New(gen, cfg.Curator.MinLiquidity, log)
	jdg := judge.New(market, proofHTTP, redis.NewCache(rc, redisPrefix), cfg.Judge.TickSize, cfg.Judge.Timeout, log)

	// the gate reads the engine's live config; it is only called after New returns
	a.lifecycle = lifecycle.NewScheduler(a.registry, func(mode contracts.GameMode) bool {
		return a.engine.GameModeEnabled(mode)
	}, log)

	a.hub = handlers.NewHub(log)

	opts := curator.Options{
		Config:      runtimeConfig(cfg.Curator),
		Signals:     tower,
		Architect:   arch,
		Lifecycle:   a.lifecycle,
		Judge:       jdg,
		Registry:    a.registry,
		Publisher:   publisher,
		Events:      a.hub,
		SettleDelay: cfg.Judge.SettleDelay,
		Thresholds:  thresholds(cfg),
		DataSources: dataSources(cfg),
		Logger:      log,
	}
	if rc.Enabled() {
		opts.Window = redis.NewWindow(rc, redisPrefix, "markets_created", curator.WindowSpan)
	}
	if withJobs {
		a.jobs = scheduler.New(log, jobTimeout)
		opts.Jobs = a.jobs
	}

	eng, err := curator.New(opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build curator engine: %w", err)
	}
	a.engine = eng

	return a, nil
}

// healthChecks lists the connected stores for /health
func (a *app) healthChecks() map[string]api.HealthCheck {
	checks := make(map[string]api.HealthCheck)
	if a.db != nil {
		checks["database"] = func(ctx context.Context) (interface{}, error) {
			return a.db.HealthCheck(ctx)
		}
	}
	if a.redis != nil && a.redis.Enabled() {
		checks["redis"] = func(ctx context.Context) (interface{}, error) {
			return nil, a.redis.Ping(ctx)
		}
	}
	return checks
}

// Close releases the store connections
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Closing redis failed")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// runtimeConfig converts the startup values into the engine's live config
func runtimeConfig(c config.CuratorConfig) contracts.CuratorConfig {
	out := contracts.CuratorConfig{
		Enabled:           c.Enabled,
		Mode:              contracts.Mode(c.Mode),
		IntervalSeconds:   c.IntervalSeconds,
		MaxMarketsPerHour: c.MaxMarketsPerHour,
		AutoPublish:       c.AutoPublish,
		GameModes:         make(map[contracts.GameMode]bool, len(c.GameModes)),
	}
	for mode, enabled := range c.GameModes {
		out.GameModes[contracts.GameMode(mode)] = enabled
	}
	return out
}

func thresholds(cfg *config.Config) contracts.TriggerThresholds {
	return contracts.TriggerThresholds{
		PriceChangePct:       watchtower.PriceChangeThreshold,
		MinLiquidity:         cfg.Curator.MinLiquidity,
		PriceConfidence:      watchtower.PriceConfidence,
		TrendConfidence:      watchtower.TrendConfidence,
		MaxBufferedTrends:    watchtower.MaxBufferedSignals,
		BatchSize:            curator.BatchSize,
		TickSize:             cfg.Judge.TickSize,
		MaxDraftDurationHour: cfg.Curator.MaxDurationHours,
	}
}

func dataSources(cfg *config.Config) []contracts.DataSource {
	return []contracts.DataSource{
		{Name: "Binance", Enabled: cfg.Binance.Enabled, PollInterval: "15m", RateLimit: cfg.Binance.RateLimit},
		{Name: "Social Trends", Enabled: true, PollInterval: "5m"},
		{Name: "Gemini", Enabled: cfg.GenAI.APIKey != ""},
		{Name: "Settlement", Enabled: cfg.Settlement.URL != ""},
	}
}
