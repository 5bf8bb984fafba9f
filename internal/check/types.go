// Package check resolves multi-attribute dice checks and derives the
// attribute drift that follows them.
package check

import "github.com/xtding233/storycore/internal/state"

// InfluenceKind is the role an attribute plays in a check.
type InfluenceKind string

const (
	Support InfluenceKind = "support" // adds dice to the pool
	Resist  InfluenceKind = "resist"  // raises the number of successes required
)

// Valid reports whether k is a known kind.
func (k InfluenceKind) Valid() bool {
	return k == Support || k == Resist
}

// UnmarshalText rejects unknown kinds.
func (k *InfluenceKind) UnmarshalText(text []byte) error {
	v := InfluenceKind(text)
	if !v.Valid() {
		return &state.ParseError{Kind: "influence_kind", Value: string(text)}
	}
	*k = v
	return nil
}

// AttrInfluence is one attribute's contribution to a check.
type AttrInfluence struct {
	Key         string        `json:"key" validate:"required"`
	Kind        InfluenceKind `json:"kind" validate:"oneof=support resist"`
	DieSides    uint32        `json:"die_sides" validate:"gte=1"`
	CountFactor float64       `json:"count_factor"`
	Weight      *float64      `json:"weight,omitempty"`
}

// WeightOrDefault returns the influence weight, 1.0 when unset.
func (i AttrInfluence) WeightOrDefault() float64 {
	if i.Weight == nil {
		return 1.0
	}
	return *i.Weight
}

// EventCheckConfig describes one check.
type EventCheckConfig struct {
	ActorID               string          `json:"actor_id" validate:"required"`
	Influences            []AttrInfluence `json:"influences" validate:"dive"`
	BaseRequired          uint32          `json:"base_required"`
	ResistToExtraRequired float64         `json:"resist_to_extra_required"`
	SuccessThreshold      uint32          `json:"success_threshold"`
}

// MultiAttrRollLog records what one influence contributed. Resist entries
// never roll, so Rolled stays empty for them.
type MultiAttrRollLog struct {
	Key      string        `json:"key"`
	Kind     InfluenceKind `json:"kind"`
	DieSides uint32        `json:"die_sides"`
	Rolled   []uint32      `json:"rolled"`
}

// MultiAttrCheckResult is the verdict of a check with its full audit trail.
type MultiAttrCheckResult struct {
	Success           bool               `json:"success"`
	Successes         uint32             `json:"successes"`
	RequiredSuccesses uint32             `json:"required_successes"`
	Rolls             []MultiAttrRollLog `json:"rolls"`
}

// Margin is successes minus required successes.
func (r MultiAttrCheckResult) Margin() int {
	return int(r.Successes) - int(r.RequiredSuccesses)
}

// AttrUpdateRule controls how one attribute drifts after a check.
type AttrUpdateRule struct {
	Key         string   `json:"key"`
	BaseScale   float64  `json:"base_scale"`
	SuccessSign *float64 `json:"success_sign,omitempty"`
	FailureSign *float64 `json:"failure_sign,omitempty"`
}

func (r AttrUpdateRule) successSign() float64 {
	if r.SuccessSign == nil {
		return 1.0
	}
	return *r.SuccessSign
}

func (r AttrUpdateRule) failureSign() float64 {
	if r.FailureSign == nil {
		return -1.0
	}
	return *r.FailureSign
}

// AttrUpdateRuleMap indexes rules by attribute key.
type AttrUpdateRuleMap map[string]AttrUpdateRule

// AttrDelta is a signed change to one attribute after a check.
type AttrDelta = state.Delta

// EventOutcomeTier is a UI-facing band used to pick narrative text. It never
// affects deltas.
type EventOutcomeTier string

const (
	TierGreatSuccess EventOutcomeTier = "great_success"
	TierSuccess      EventOutcomeTier = "success"
	TierMixed        EventOutcomeTier = "mixed"
	TierFailure      EventOutcomeTier = "failure"
	TierDisaster     EventOutcomeTier = "disaster"
)

// EventResolutionResult bundles a check with the drift and tier it implies.
type EventResolutionResult struct {
	Check       MultiAttrCheckResult `json:"check"`
	Deltas      []AttrDelta          `json:"deltas"`
	OutcomeTier EventOutcomeTier     `json:"outcome_tier"`
}

// DiceRolled counts every die rolled across all influences.
func (r MultiAttrCheckResult) DiceRolled() int {
	n := 0
	for _, log := range r.Rolls {
		n += len(log.Rolled)
	}
	return n
}
