package state

// Relationship metrics are clamped to [RelationshipMin, RelationshipMax].
const (
	RelationshipMin = -100
	RelationshipMax = 100
)

// RelationshipField names one metric on RelationshipMetrics.
type RelationshipField string

const (
	Affinity   RelationshipField = "affinity"
	Trust      RelationshipField = "trust"
	Respect    RelationshipField = "respect"
	Fear       RelationshipField = "fear"
	Attraction RelationshipField = "attraction"
)

// RelationshipFields lists every metric in declaration order.
var RelationshipFields = []RelationshipField{Affinity, Trust, Respect, Fear, Attraction}

// Valid reports whether f is a known metric.
func (f RelationshipField) Valid() bool {
	switch f {
	case Affinity, Trust, Respect, Fear, Attraction:
		return true
	}
	return false
}

// UnmarshalText rejects unknown metric names.
func (f *RelationshipField) UnmarshalText(text []byte) error {
	v := RelationshipField(text)
	if !v.Valid() {
		return &ParseError{Kind: "relationship_field", Value: string(text)}
	}
	*f = v
	return nil
}

// RelationshipMetrics describes how one character regards another.
// The zero value is the default for a pair that has never been touched.
type RelationshipMetrics struct {
	Affinity   int `json:"affinity"`
	Trust      int `json:"trust"`
	Respect    int `json:"respect"`
	Fear       int `json:"fear"`
	Attraction int `json:"attraction"`
}

func (m *RelationshipMetrics) slot(f RelationshipField) *int {
	switch f {
	case Affinity:
		return &m.Affinity
	case Trust:
		return &m.Trust
	case Respect:
		return &m.Respect
	case Fear:
		return &m.Fear
	case Attraction:
		return &m.Attraction
	}
	return nil
}

// Get returns the value of f and whether f is a known metric.
func (m RelationshipMetrics) Get(f RelationshipField) (int, bool) {
	p := m.slot(f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Update replaces metric f with fn(current), clamped to the relationship domain.
func (m *RelationshipMetrics) Update(f RelationshipField, fn func(current int) int) {
	p := m.slot(f)
	if p == nil {
		return
	}
	*p = ClampRelationship(fn(*p))
}

// Normalize clamps every metric.
func (m *RelationshipMetrics) Normalize() {
	for _, f := range RelationshipFields {
		p := m.slot(f)
		*p = ClampRelationship(*p)
	}
}

// ClampRelationship clamps v to [RelationshipMin, RelationshipMax].
func ClampRelationship(v int) int {
	return min(max(v, RelationshipMin), RelationshipMax)
}

// PairKey identifies a directed relationship. (A,B) and (B,A) are distinct.
type PairKey struct {
	FromID string
	ToID   string
}

// Reverse returns the key for the opposite direction.
func (k PairKey) Reverse() PairKey {
	return PairKey{FromID: k.ToID, ToID: k.FromID}
}
