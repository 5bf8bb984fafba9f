// resolve.go
package game

import (
	"fmt"
	"math"

	"github.com/xtding233/storycore/internal/check"
)

// Overrides carries per-request values applied on top of the merged preset.
type Overrides struct {
	ActorID               *string
	BaseRequired          *int
	ResistToExtraRequired *float64
	SuccessThreshold      *int
}

type Resolver interface {
	// Returns merged RawConfig and the normalized Preset
	Resolve(story, event string, o Overrides) (RawConfig, Preset, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve merges default → story → event → overrides, validates the result
// and normalizes it into a Preset.
func (l *Loader) Resolve(story, event string, o Overrides) (RawConfig, Preset, error) {
	raw, err := l.LoadMerged(story, event)
	if err != nil {
		return RawConfig{}, Preset{}, err
	}
	raw = applyOverrides(raw, o)
	if err := ValidateRaw(raw); err != nil {
		return raw, Preset{}, err
	}
	preset := Normalize(raw)
	if err := check.ValidateConfig(preset.Config); err != nil {
		return raw, Preset{}, fmt.Errorf("preset %s: %w", presetName(story, event), err)
	}
	return raw, preset, nil
}

func applyOverrides(raw RawConfig, o Overrides) RawConfig {
	if o.ActorID != nil {
		raw.Check.ActorID = o.ActorID
	}
	if o.BaseRequired != nil {
		raw.Check.BaseRequired = o.BaseRequired
	}
	if o.ResistToExtraRequired != nil {
		raw.Check.ResistToExtraRequired = o.ResistToExtraRequired
	}
	if o.SuccessThreshold != nil {
		raw.Check.SuccessThreshold = o.SuccessThreshold
	}
	return raw
}

// Normalize converts a validated RawConfig into engine types. Unset scalars
// become zero.
func Normalize(raw RawConfig) Preset {
	cfg := check.EventCheckConfig{
		Influences: make([]check.AttrInfluence, 0, len(raw.Check.Influences)),
	}
	if raw.Check.ActorID != nil {
		cfg.ActorID = *raw.Check.ActorID
	}
	if raw.Check.BaseRequired != nil {
		cfg.BaseRequired = toUint32(*raw.Check.BaseRequired)
	}
	if raw.Check.ResistToExtraRequired != nil {
		cfg.ResistToExtraRequired = *raw.Check.ResistToExtraRequired
	}
	if raw.Check.SuccessThreshold != nil {
		cfg.SuccessThreshold = toUint32(*raw.Check.SuccessThreshold)
	}
	for _, inf := range raw.Check.Influences {
		cfg.Influences = append(cfg.Influences, check.AttrInfluence{
			Key:         inf.Key,
			Kind:        check.InfluenceKind(inf.Kind),
			DieSides:    toUint32(inf.DieSides),
			CountFactor: inf.CountFactor,
			Weight:      inf.Weight,
		})
	}

	rules := make(check.AttrUpdateRuleMap, len(raw.Rules))
	for _, r := range raw.Rules {
		rules[r.Key] = check.AttrUpdateRule{
			Key:         r.Key,
			BaseScale:   r.BaseScale,
			SuccessSign: r.SuccessSign,
			FailureSign: r.FailureSign,
		}
	}

	return Preset{Config: cfg, Rules: rules, Version: raw.Version}
}

func toUint32(v int) uint32 {
	switch {
	case v < 0:
		return 0
	case int64(v) > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}

func presetName(story, event string) string {
	if event == "" {
		return story
	}
	return story + "/" + event
}
