package game

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/storycore/internal/check"
)

// ErrInvalidPreset wraps every ValidateRaw failure.
var ErrInvalidPreset = errors.New("preset validation failed")

// ValidateRaw checks semantic constraints of a RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// check scalars
	if cfg.Check.ActorID != nil && strings.TrimSpace(*cfg.Check.ActorID) == "" {
		errs = append(errs, "check.actor_id must not be blank")
	}
	if cfg.Check.BaseRequired != nil && *cfg.Check.BaseRequired < 0 {
		errs = append(errs, "check.base_required must be >= 0")
	}
	if cfg.Check.SuccessThreshold != nil && *cfg.Check.SuccessThreshold < 0 {
		errs = append(errs, "check.success_threshold must be >= 0")
	}
	if cfg.Check.ResistToExtraRequired != nil {
		if r := *cfg.Check.ResistToExtraRequired; math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			errs = append(errs, "check.resist_to_extra_required must be a finite number >= 0")
		}
	}

	// influences
	for i, inf := range cfg.Check.Influences {
		if inf.Key == "" {
			errs = append(errs, fmt.Sprintf("check.influences[%d].key is required", i))
		}
		if !check.InfluenceKind(inf.Kind).Valid() {
			errs = append(errs, fmt.Sprintf("check.influences[%d].kind must be one of: support, resist", i))
		}
		if inf.DieSides < 1 {
			errs = append(errs, fmt.Sprintf("check.influences[%d].die_sides must be >= 1", i))
		}
		if math.IsNaN(inf.CountFactor) || math.IsInf(inf.CountFactor, 0) || inf.CountFactor < 0 {
			errs = append(errs, fmt.Sprintf("check.influences[%d].count_factor must be a finite number >= 0", i))
		}
		if inf.Weight != nil {
			if w := *inf.Weight; math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				errs = append(errs, fmt.Sprintf("check.influences[%d].weight must be a finite number >= 0", i))
			}
		}
	}

	// rules
	seen := make(map[string]bool, len(cfg.Rules))
	for i, r := range cfg.Rules {
		if r.Key == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].key is required", i))
		} else if seen[r.Key] {
			errs = append(errs, fmt.Sprintf("rules[%d].key %q is duplicated", i, r.Key))
		}
		seen[r.Key] = true
		if math.IsNaN(r.BaseScale) || math.IsInf(r.BaseScale, 0) {
			errs = append(errs, fmt.Sprintf("rules[%d].base_scale must be finite", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPreset, strings.Join(errs, "; "))
	}
	return nil
}
