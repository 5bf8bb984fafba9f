package impact

import (
	"math"

	"github.com/xtding233/storycore/internal/state"
)

// Apply runs impacts in order against copies of characters and
// relationships and returns the resulting state. Later impacts see the
// effect of earlier ones. The input maps are never modified.
//
// Apply does not fail: missing characters and pairs start from zero values,
// numeric results are clamped into their domain, and flag paths create
// whatever objects they need.
func Apply(
	characters map[string]state.CharacterAttributes,
	relationships map[state.PairKey]state.RelationshipMetrics,
	impacts []Impact,
) state.PreviewState {
	out := state.PreviewState{
		Characters:    characters,
		Relationships: relationships,
	}.Clone()

	for _, imp := range impacts {
		switch imp := imp.(type) {
		case CharacterAttribute:
			attrs := characterOrDefault(out, imp.CharacterID)
			attrs.Update(imp.Field, func(current int) int {
				return applyOp(current, imp.Op, imp.Value)
			})
			out.Characters[imp.CharacterID] = attrs
		case Relationship:
			key := state.PairKey{FromID: imp.FromID, ToID: imp.ToID}
			metrics := out.Relationships[key]
			metrics.Update(imp.Field, func(current int) int {
				return applyOp(current, imp.Op, imp.Value)
			})
			out.Relationships[key] = metrics
		case Flag:
			attrs := characterOrDefault(out, imp.CharacterID)
			attrs.TraitsFlags.SetPath(imp.Path, state.CloneValue(imp.Value))
			out.Characters[imp.CharacterID] = attrs
		}
	}

	return out
}

// ApplyPreview is Apply over an existing PreviewState.
func ApplyPreview(ps state.PreviewState, impacts []Impact) state.PreviewState {
	return Apply(ps.Characters, ps.Relationships, impacts)
}

// ApplyToSnapshot converts s to a PreviewState, applies impacts and converts
// back. Entries no impact touches come back unchanged.
func ApplyToSnapshot(s state.CharacterStateSnapshot, impacts []Impact) state.CharacterStateSnapshot {
	return state.SnapshotFromPreviewState(ApplyPreview(s.ToPreviewState(), impacts))
}

func characterOrDefault(ps state.PreviewState, id string) state.CharacterAttributes {
	attrs, ok := ps.Characters[id]
	if !ok {
		return state.NewCharacterAttributes()
	}
	if attrs.TraitsFlags == nil {
		attrs.TraitsFlags = state.Flags{}
	}
	return attrs
}

// applyOp computes the unclamped result of op. Unknown ops keep current.
// Add is computed in int64 so extreme values saturate instead of wrapping.
func applyOp(current int, op NumericOp, value int32) int {
	switch op {
	case OpAdd:
		return saturate(int64(current) + int64(value))
	case OpSet:
		return int(value)
	case OpScale:
		return Scale(current, int(value))
	}
	return current
}

func saturate(v int64) int {
	return int(max(math.MinInt32, min(math.MaxInt32, v)))
}

// Scale returns round(current * percent / 100), rounding half away from zero.
func Scale(current, percent int) int {
	return int(math.Round(float64(current) * (float64(percent) / 100.0)))
}
