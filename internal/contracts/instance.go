package contracts

import (
	"fmt"
	"strings"
	"time"
)

// MarketKind is the game format of a market instance
type MarketKind string

const (
	KindFlash      MarketKind = "FLASH"
	KindHighJump   MarketKind = "HIGH_JUMP"
	KindMarathon   MarketKind = "MARATHON"
	KindClimax     MarketKind = "CLIMAX"
	KindDuo        MarketKind = "DUO"
	KindCurator1H  MarketKind = "CURATOR_1H"
	KindCurator4H  MarketKind = "CURATOR_4H"
	KindCurator12H MarketKind = "CURATOR_12H"
	KindCurator24H MarketKind = "CURATOR_24H"
)

// GameMode is the config flag name gating a kind, e.g. FLASH_15M
type GameMode string

const (
	GameFlash15M    GameMode = "FLASH_15M"
	GameHighJump15M GameMode = "HIGH_JUMP_15M"
	GameMarathon15M GameMode = "MARATHON_15M"
	GameClimax30M   GameMode = "CLIMAX_30M"
	GameDuo30M      GameMode = "DUO_30M"
	GameCurator1H   GameMode = "CURATOR_1H"
	GameCurator4H   GameMode = "CURATOR_4H"
	GameCurator12H  GameMode = "CURATOR_12H"
	GameCurator24H  GameMode = "CURATOR_24H"
)

// GameModes lists every game mode in display order
var GameModes = []GameMode{
	GameFlash15M, GameHighJump15M, GameMarathon15M, GameClimax30M, GameDuo30M,
	GameCurator1H, GameCurator4H, GameCurator12H, GameCurator24H,
}

// KindSpec binds a kind to its duration class and game mode flag
type KindSpec struct {
	Kind     MarketKind
	Mode     GameMode
	Duration time.Duration
	Assets   int  // number of assets the kind compares
	External bool // resolved by an external proof instead of candles
}

// ⭐ SSOT: 게임 종류별 길이/자산 수
var kindSpecs = map[MarketKind]KindSpec{
	KindFlash:      {KindFlash, GameFlash15M, 15 * time.Minute, 1, false},
	KindHighJump:   {KindHighJump, GameHighJump15M, 15 * time.Minute, 2, false},
	KindMarathon:   {KindMarathon, GameMarathon15M, 15 * time.Minute, 2, false},
	KindClimax:     {KindClimax, GameClimax30M, 30 * time.Minute, 1, false},
	KindDuo:        {KindDuo, GameDuo30M, 30 * time.Minute, 1, false},
	KindCurator1H:  {KindCurator1H, GameCurator1H, time.Hour, 0, true},
	KindCurator4H:  {KindCurator4H, GameCurator4H, 4 * time.Hour, 0, true},
	KindCurator12H: {KindCurator12H, GameCurator12H, 12 * time.Hour, 0, true},
	KindCurator24H: {KindCurator24H, GameCurator24H, 24 * time.Hour, 0, true},
}

// Spec returns the kind's spec; ok is false for unknown kinds
func (k MarketKind) Spec() (KindSpec, bool) {
	s, ok := kindSpecs[k]
	return s, ok
}

// CuratorKindFor picks the shortest curator class that covers hours
func CuratorKindFor(hours int) MarketKind {
	switch {
	case hours <= 1:
		return KindCurator1H
	case hours <= 4:
		return KindCurator4H
	case hours <= 12:
		return KindCurator12H
	default:
		return KindCurator24H
	}
}

// InstanceStatus is the lifecycle state of a market instance
type InstanceStatus string

const (
	InstanceOpen      InstanceStatus = "OPEN"
	InstanceResolving InstanceStatus = "RESOLVING"
	InstanceResolved  InstanceStatus = "RESOLVED"
	InstanceVoid      InstanceStatus = "VOID"
)

// Final reports whether no further resolution will happen
func (s InstanceStatus) Final() bool {
	return s == InstanceResolved || s == InstanceVoid
}

// Outcome is a judge verdict
type Outcome string

const (
	OutcomeGreen      Outcome = "GREEN"
	OutcomeRed        Outcome = "RED"
	OutcomeVoid       Outcome = "VOID"
	OutcomeFirstHalf  Outcome = "FIRST_HALF"
	OutcomeSecondHalf Outcome = "SECOND_HALF"
	OutcomeSame       Outcome = "SAME"
	OutcomeMixed      Outcome = "MIXED"
)

// Resolution is the judge's verdict for one instance
type Resolution struct {
	InstanceID string                 `json:"instance_id"`
	Outcome    Outcome                `json:"outcome"`
	Evidence   map[string]interface{} `json:"evidence"`
	ProofURL   string                 `json:"proof_url"`
	CheckedAt  time.Time              `json:"checked_at"`
}

// MarketInstance is a concrete time-bounded market
// ⭐ SSOT: Lifecycle → Judge 전달 단위
type MarketInstance struct {
	ID              string         `json:"id"`
	Kind            MarketKind     `json:"kind"`
	Assets          []string       `json:"assets"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Status          InstanceStatus `json:"status"`
	ProofURL        string         `json:"proof_url,omitempty"`
	ExpectedOutcome string         `json:"expected_outcome,omitempty"`
	Outcomes        []string       `json:"outcomes,omitempty"` // allowed expected outcomes of external kinds
	DraftID         string         `json:"draft_id,omitempty"`
	Resolution      *Resolution    `json:"resolution,omitempty"`
	Published       bool           `json:"published"` // resolution delivered to the settlement API
	ResolvingAt     *time.Time     `json:"resolving_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// MatchOutcome returns the declared outcome label equal to value ignoring
// case; ok is false when value is not one of Outcomes.
func (m MarketInstance) MatchOutcome(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, o := range m.Outcomes {
		if strings.EqualFold(o, value) {
			return o, true
		}
	}
	return "", false
}

// InstanceID builds the deterministic id of a scheduled instance:
// lowercase kind, assets with "/" replaced by "_", and the UTC boundary minute.
func InstanceID(kind MarketKind, assets []string, start time.Time) string {
	parts := make([]string, 0, len(assets))
	for _, a := range assets {
		parts = append(parts, strings.ReplaceAll(a, "/", "_"))
	}
	return fmt.Sprintf("%s_%s_%s",
		strings.ToLower(string(kind)),
		strings.Join(parts, "_"),
		start.UTC().Format("20060102_1504"),
	)
}

// NewInstance creates an OPEN instance whose end is start plus the kind's duration
func NewInstance(kind MarketKind, assets []string, start time.Time) (MarketInstance, error) {
	spec, ok := kind.Spec()
	if !ok {
		return MarketInstance{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if spec.Assets > 0 && len(assets) != spec.Assets {
		return MarketInstance{}, fmt.Errorf("%s needs %d assets, got %d", kind, spec.Assets, len(assets))
	}
	start = start.UTC().Truncate(time.Minute)
	return MarketInstance{
		ID:        InstanceID(kind, assets, start),
		Kind:      kind,
		Assets:    append([]string{}, assets...),
		StartTime: start,
		EndTime:   start.Add(spec.Duration),
		Status:    InstanceOpen,
		CreatedAt: time.Now().UTC(),
	}, nil
}
