package contracts

import (
	"fmt"
	"time"
)

// Mode is the curator operating mode
type Mode string

const (
	ModeHumanReview Mode = "HUMAN_REVIEW"
	ModeFullControl Mode = "FULL_CONTROL"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeHumanReview || m == ModeFullControl
}

// CuratorConfig is the runtime configuration read by every engine cycle
// ⭐ SSOT: 관리자 화면에서 바꾸는 런타임 설정
type CuratorConfig struct {
	Enabled           bool              `json:"enabled"`
	Mode              Mode              `json:"mode"`
	IntervalSeconds   int               `json:"interval_seconds"`
	MaxMarketsPerHour int               `json:"max_markets_per_hour"`
	AutoPublish       bool              `json:"auto_publish"`
	GameModes         map[GameMode]bool `json:"game_modes"`
}

// Validate checks the same ranges the admin form enforces
func (c CuratorConfig) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.IntervalSeconds < 60 || c.IntervalSeconds > 3600 {
		return fmt.Errorf("%w: interval_seconds %d outside 60..3600", ErrInvalidConfig, c.IntervalSeconds)
	}
	if c.MaxMarketsPerHour < 1 || c.MaxMarketsPerHour > 50 {
		return fmt.Errorf("%w: max_markets_per_hour %d outside 1..50", ErrInvalidConfig, c.MaxMarketsPerHour)
	}
	for mode := range c.GameModes {
		if !knownGameMode(mode) {
			return fmt.Errorf("%w: unknown game mode %q", ErrInvalidConfig, mode)
		}
	}
	return nil
}

// GameModeEnabled reports the flag for mode; absent flags default to enabled
func (c CuratorConfig) GameModeEnabled(mode GameMode) bool {
	enabled, ok := c.GameModes[mode]
	return !ok || enabled
}

// Interval returns the cycle cadence
func (c CuratorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Clone returns a deep copy safe to hand to callers
func (c CuratorConfig) Clone() CuratorConfig {
	out := c
	out.GameModes = make(map[GameMode]bool, len(c.GameModes))
	for k, v := range c.GameModes {
		out.GameModes[k] = v
	}
	return out
}

func knownGameMode(mode GameMode) bool {
	for _, m := range GameModes {
		if m == mode {
			return true
		}
	}
	return false
}

// EngineStatus is a read-only snapshot of the engine
type EngineStatus struct {
	Enabled                bool       `json:"enabled"`
	Mode                   Mode       `json:"mode"`
	Running                bool       `json:"is_running"`
	LastExecution          *time.Time `json:"last_execution"`
	NextExecution          *time.Time `json:"next_execution"`
	MarketsCreatedInWindow int        `json:"markets_created_in_window"`
	MarketsPendingApproval int        `json:"markets_pending_approval"`
	MarketsPublishedTotal  int        `json:"markets_published_total"`
}

// GenerationStats are cumulative counters since process start
type GenerationStats struct {
	Since          time.Time                 `json:"since"`
	TotalGenerated int                       `json:"total_generated"`
	AutoPublished  int                       `json:"auto_published"`
	Approved       int                       `json:"approved"`
	Rejected       int                       `json:"rejected"`
	PendingReview  int                       `json:"pending_approval"`
	PublishFailed  int                       `json:"publish_failed"`
	ByCategory     map[Category]int          `json:"by_category"`
	ByGameMode     map[GameMode]int          `json:"by_game_mode"`
	ByOutcome      map[MarketKind]OutcomeMap `json:"by_outcome"`
}

// OutcomeMap counts verdicts per outcome
type OutcomeMap map[Outcome]int

// TriggerThresholds are the detection thresholds applied by the watchtower and architect
type TriggerThresholds struct {
	PriceChangePct       float64 `json:"price_change_pct"`
	MinLiquidity         float64 `json:"min_liquidity"`
	PriceConfidence      float64 `json:"price_confidence"`
	TrendConfidence      float64 `json:"trend_confidence"`
	MaxBufferedTrends    int     `json:"max_buffered_trends"`
	BatchSize            int     `json:"batch_size"`
	TickSize             float64 `json:"tick_size"`
	MaxDraftDurationHour int     `json:"max_draft_duration_hours"`
}

// DataSource describes one upstream collaborator for the admin panel
type DataSource struct {
	Name         string `json:"source_name"`
	Enabled      bool   `json:"enabled"`
	PollInterval string `json:"poll_interval,omitempty"`
	RateLimit    int    `json:"rate_limit,omitempty"`
}
