package state

import "math"

// ActorAttrs is the flat key -> value view the check resolver reads.
type ActorAttrs map[string]int

// ActorAttrs flattens the numeric fields of a into a key -> value map.
// Flags are not included.
func (a CharacterAttributes) ActorAttrs() ActorAttrs {
	out := make(ActorAttrs, len(AttributeFields))
	for _, f := range AttributeFields {
		v, _ := a.Get(f)
		out[string(f)] = v
	}
	return out
}

// WithActorAttrs returns a copy of a with every known attribute present in
// attrs written back (clamped). Keys that are not attributes are ignored.
func (a CharacterAttributes) WithActorAttrs(attrs ActorAttrs) CharacterAttributes {
	out := a.Clone()
	for _, f := range AttributeFields {
		if v, ok := attrs[string(f)]; ok {
			out.Update(f, func(int) int { return v })
		}
	}
	return out
}

// Clone copies the map.
func (attrs ActorAttrs) Clone() ActorAttrs {
	out := make(ActorAttrs, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Delta is a signed, continuous change to one actor attribute.
type Delta struct {
	Key   string  `json:"key"`
	Delta float64 `json:"delta"`
}

// ApplyDeltas adds each delta to a copy of attrs, rounding half away from
// zero and clamping to the attribute domain. Missing keys start at zero.
func (attrs ActorAttrs) ApplyDeltas(deltas []Delta) ActorAttrs {
	out := attrs.Clone()
	for _, d := range deltas {
		next := math.Round(float64(out[d.Key]) + d.Delta)
		out[d.Key] = ClampAttribute(saturatingInt(next))
	}
	return out
}

// saturatingInt converts a rounded float to int without wrap-around.
func saturatingInt(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}
