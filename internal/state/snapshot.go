package state

import (
	"cmp"
	"slices"
)

// PreviewState is the in-memory shape the impact engine works on.
type PreviewState struct {
	Characters    map[string]CharacterAttributes
	Relationships map[PairKey]RelationshipMetrics
}

// NewPreviewState returns a state with initialized, empty maps.
func NewPreviewState() PreviewState {
	return PreviewState{
		Characters:    map[string]CharacterAttributes{},
		Relationships: map[PairKey]RelationshipMetrics{},
	}
}

// Clone returns a deep copy of s. Nil maps come back empty.
func (s PreviewState) Clone() PreviewState {
	out := PreviewState{
		Characters:    make(map[string]CharacterAttributes, len(s.Characters)),
		Relationships: make(map[PairKey]RelationshipMetrics, len(s.Relationships)),
	}
	for id, attrs := range s.Characters {
		out.Characters[id] = attrs.Clone()
	}
	for key, metrics := range s.Relationships {
		out.Relationships[key] = metrics
	}
	return out
}

// RelationshipState is one directed relationship in list form.
type RelationshipState struct {
	FromID  string              `json:"from_id"`
	ToID    string              `json:"to_id"`
	Metrics RelationshipMetrics `json:"metrics"`
}

// CharacterStateSnapshot is the serialization-friendly form of PreviewState.
type CharacterStateSnapshot struct {
	Characters    map[string]CharacterAttributes `json:"characters"`
	Relationships []RelationshipState            `json:"relationships"`
}

// ToPreviewState indexes the relationship list by pair. When the list holds
// the same pair twice the later entry wins.
func (s CharacterStateSnapshot) ToPreviewState() PreviewState {
	out := PreviewState{
		Characters:    make(map[string]CharacterAttributes, len(s.Characters)),
		Relationships: make(map[PairKey]RelationshipMetrics, len(s.Relationships)),
	}
	for id, attrs := range s.Characters {
		out.Characters[id] = attrs.Clone()
	}
	for _, rel := range s.Relationships {
		out.Relationships[PairKey{FromID: rel.FromID, ToID: rel.ToID}] = rel.Metrics
	}
	return out
}

// SnapshotFromPreviewState flattens the relationship map into a list sorted
// by (from_id, to_id).
func SnapshotFromPreviewState(ps PreviewState) CharacterStateSnapshot {
	out := CharacterStateSnapshot{
		Characters:    make(map[string]CharacterAttributes, len(ps.Characters)),
		Relationships: make([]RelationshipState, 0, len(ps.Relationships)),
	}
	for id, attrs := range ps.Characters {
		out.Characters[id] = attrs.Clone()
	}
	for key, metrics := range ps.Relationships {
		out.Relationships = append(out.Relationships, RelationshipState{
			FromID:  key.FromID,
			ToID:    key.ToID,
			Metrics: metrics,
		})
	}
	slices.SortFunc(out.Relationships, func(a, b RelationshipState) int {
		return cmp.Or(cmp.Compare(a.FromID, b.FromID), cmp.Compare(a.ToID, b.ToID))
	})
	return out
}

// Character returns the attributes for id, or a zero record when absent.
func (s CharacterStateSnapshot) Character(id string) CharacterAttributes {
	if attrs, ok := s.Characters[id]; ok {
		return attrs.Clone()
	}
	return NewCharacterAttributes()
}

// WithCharacter returns a copy of s with id replaced by attrs.
func (s CharacterStateSnapshot) WithCharacter(id string, attrs CharacterAttributes) CharacterStateSnapshot {
	out := CharacterStateSnapshot{
		Characters:    make(map[string]CharacterAttributes, len(s.Characters)+1),
		Relationships: slices.Clone(s.Relationships),
	}
	for k, v := range s.Characters {
		out.Characters[k] = v.Clone()
	}
	out.Characters[id] = attrs.Clone()
	return out
}

// Normalize clamps every value into its domain and fills nil collections.
func (s *CharacterStateSnapshot) Normalize() {
	if s.Characters == nil {
		s.Characters = map[string]CharacterAttributes{}
	}
	if s.Relationships == nil {
		s.Relationships = []RelationshipState{}
	}
	for id, attrs := range s.Characters {
		attrs.Normalize()
		s.Characters[id] = attrs
	}
	for i := range s.Relationships {
		s.Relationships[i].Metrics.Normalize()
	}
}
