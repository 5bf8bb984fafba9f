package check

import (
	"math"

	"github.com/xtding233/storycore/internal/state"
)

// MaxOutcomeImpact bounds the outcome factor in either direction.
const MaxOutcomeImpact = 1.5

// OutcomeFactor measures how strongly a check went for (+) or against (-)
// the actor, within [-MaxOutcomeImpact, MaxOutcomeImpact].
func OutcomeFactor(result MultiAttrCheckResult) float64 {
	successes := float64(result.Successes)
	required := float64(result.RequiredSuccesses)
	margin := successes - required
	norm := math.Max(required, 1)

	var factor float64
	if successes >= required {
		factor = (margin + 1) / (norm + 1)
	} else {
		factor = -((math.Abs(margin) + 1) / (norm + 1))
	}
	return math.Max(-MaxOutcomeImpact, math.Min(MaxOutcomeImpact, factor))
}

// ComputeAttributeDeltas derives continuous drift for every Support influence
// that has a rule. Each attribute moves by
// sign * base_scale * |outcome factor| * its share of the support pool.
// Resist influences and influences without a rule produce no delta.
func ComputeAttributeDeltas(
	config EventCheckConfig,
	attrs state.ActorAttrs,
	result MultiAttrCheckResult,
	rules AttrUpdateRuleMap,
) []AttrDelta {
	factor := math.Abs(OutcomeFactor(result))

	contrib := map[string]float64{}
	var total float64
	for _, inf := range config.Influences {
		if inf.Kind != Support {
			continue
		}
		effective := float64(attrs[inf.Key]) * inf.WeightOrDefault() * inf.CountFactor
		total += effective
		if _, seen := contrib[inf.Key]; !seen {
			contrib[inf.Key] = effective
		}
	}

	deltas := []AttrDelta{}
	for _, inf := range config.Influences {
		if inf.Kind != Support {
			continue
		}
		rule, ok := rules[inf.Key]
		if !ok {
			continue
		}

		var ratio float64
		if total > 0 {
			ratio = contrib[inf.Key] / total
		}
		sign := rule.failureSign()
		if result.Success {
			sign = rule.successSign()
		}
		deltas = append(deltas, AttrDelta{
			Key:   inf.Key,
			Delta: sign * rule.BaseScale * factor * ratio,
		})
	}
	return deltas
}

// ClassifyOutcomeTier maps a result to its narrative band.
func ClassifyOutcomeTier(result MultiAttrCheckResult) EventOutcomeTier {
	margin := result.Margin()
	switch {
	case margin >= 3:
		return TierGreatSuccess
	case margin >= 0:
		return TierSuccess
	case margin >= -1:
		return TierMixed
	case margin <= -3:
		return TierDisaster
	default:
		return TierFailure
	}
}

// ResolveEvent rolls the check, computes drift and classifies the outcome.
// Nothing is applied or stored; callers own that.
func ResolveEvent(
	config EventCheckConfig,
	attrs state.ActorAttrs,
	rules AttrUpdateRuleMap,
	rng RandomSource,
) EventResolutionResult {
	result := Resolve(config, attrs, rng)
	return EventResolutionResult{
		Check:       result,
		Deltas:      ComputeAttributeDeltas(config, attrs, result, rules),
		OutcomeTier: ClassifyOutcomeTier(result),
	}
}
