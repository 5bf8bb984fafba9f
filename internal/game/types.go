// types.go
package game

import "github.com/xtding233/storycore/internal/check"

// Raw check preset loaded from YAML. Pointer fields distinguish "unset" from
// zero so layers can be merged.
type RawConfig struct {
	Version string       `yaml:"version"`
	Check   CheckConfig  `yaml:"check"`
	Rules   []RuleConfig `yaml:"rules,omitempty"`
	Notes   string       `yaml:"notes,omitempty"`
}

type CheckConfig struct {
	ActorID               *string           `yaml:"actor_id"`
	BaseRequired          *int              `yaml:"base_required"`
	ResistToExtraRequired *float64          `yaml:"resist_to_extra_required"`
	SuccessThreshold      *int              `yaml:"success_threshold"`
	Influences            []InfluenceConfig `yaml:"influences,omitempty"`
}

type InfluenceConfig struct {
	Key         string   `yaml:"key"`
	Kind        string   `yaml:"kind"` // "support" | "resist"
	DieSides    int      `yaml:"die_sides"`
	CountFactor float64  `yaml:"count_factor"`
	Weight      *float64 `yaml:"weight,omitempty"`
}

type RuleConfig struct {
	Key         string   `yaml:"key"`
	BaseScale   float64  `yaml:"base_scale"`
	SuccessSign *float64 `yaml:"success_sign,omitempty"`
	FailureSign *float64 `yaml:"failure_sign,omitempty"`
}

// Preset is a resolved, ready-to-run check with its drift rules.
type Preset struct {
	Config  check.EventCheckConfig  `json:"config"`
	Rules   check.AttrUpdateRuleMap `json:"rules"`
	Version string                  `json:"version,omitempty"` // effective preset version for tracing
}
