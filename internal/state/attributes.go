// Package state defines the character and relationship attribute model shared
// by the impact engine and the check resolver.
package state

// Attribute values are clamped to [AttributeMin, AttributeMax].
const (
	AttributeMin = 0
	AttributeMax = 100
)

// AttributeField names one numeric trait on CharacterAttributes.
type AttributeField string

const (
	Honesty      AttributeField = "honesty"
	Empathy      AttributeField = "empathy"
	Affability   AttributeField = "affability"
	Intimidation AttributeField = "intimidation"
	Aggression   AttributeField = "aggression"
	Discipline   AttributeField = "discipline"
	Curiosity    AttributeField = "curiosity"
	Courage      AttributeField = "courage"
	Impulsivity  AttributeField = "impulsivity"
	Idealism     AttributeField = "idealism"
	Pragmatism   AttributeField = "pragmatism"
	Loyalty      AttributeField = "loyalty"
	Opportunism  AttributeField = "opportunism"
	Stoicism     AttributeField = "stoicism"
	Morality     AttributeField = "morality"
	Health       AttributeField = "health"
	Stress       AttributeField = "stress"
	Fatigue      AttributeField = "fatigue"
	Pain         AttributeField = "pain"
	Morale       AttributeField = "morale"
	Intox        AttributeField = "intox"
)

// AttributeFields lists every attribute in declaration order.
var AttributeFields = []AttributeField{
	Honesty, Empathy, Affability, Intimidation, Aggression, Discipline,
	Curiosity, Courage, Impulsivity, Idealism, Pragmatism, Loyalty,
	Opportunism, Stoicism, Morality, Health, Stress, Fatigue, Pain, Morale,
	Intox,
}

// Valid reports whether f is a known attribute.
func (f AttributeField) Valid() bool {
	for _, known := range AttributeFields {
		if f == known {
			return true
		}
	}
	return false
}

// UnmarshalText rejects unknown attribute names.
func (f *AttributeField) UnmarshalText(text []byte) error {
	v := AttributeField(text)
	if !v.Valid() {
		return &ParseError{Kind: "attribute_field", Value: string(text)}
	}
	*f = v
	return nil
}

// CharacterAttributes is one character's numeric traits plus free-form flags.
type CharacterAttributes struct {
	Honesty      int   `json:"honesty"`
	Empathy      int   `json:"empathy"`
	Affability   int   `json:"affability"`
	Intimidation int   `json:"intimidation"`
	Aggression   int   `json:"aggression"`
	Discipline   int   `json:"discipline"`
	Curiosity    int   `json:"curiosity"`
	Courage      int   `json:"courage"`
	Impulsivity  int   `json:"impulsivity"`
	Idealism     int   `json:"idealism"`
	Pragmatism   int   `json:"pragmatism"`
	Loyalty      int   `json:"loyalty"`
	Opportunism  int   `json:"opportunism"`
	Stoicism     int   `json:"stoicism"`
	Morality     int   `json:"morality"`
	Health       int   `json:"health"`
	Stress       int   `json:"stress"`
	Fatigue      int   `json:"fatigue"`
	Pain         int   `json:"pain"`
	Morale       int   `json:"morale"`
	Intox        int   `json:"intox"`
	TraitsFlags  Flags `json:"traits_flags"`
}

// NewCharacterAttributes returns an all-zero record with an empty flag object.
func NewCharacterAttributes() CharacterAttributes {
	return CharacterAttributes{TraitsFlags: Flags{}}
}

// slot returns a pointer to the named field, or nil for unknown names.
func (a *CharacterAttributes) slot(f AttributeField) *int {
	switch f {
	case Honesty:
		return &a.Honesty
	case Empathy:
		return &a.Empathy
	case Affability:
		return &a.Affability
	case Intimidation:
		return &a.Intimidation
	case Aggression:
		return &a.Aggression
	case Discipline:
		return &a.Discipline
	case Curiosity:
		return &a.Curiosity
	case Courage:
		return &a.Courage
	case Impulsivity:
		return &a.Impulsivity
	case Idealism:
		return &a.Idealism
	case Pragmatism:
		return &a.Pragmatism
	case Loyalty:
		return &a.Loyalty
	case Opportunism:
		return &a.Opportunism
	case Stoicism:
		return &a.Stoicism
	case Morality:
		return &a.Morality
	case Health:
		return &a.Health
	case Stress:
		return &a.Stress
	case Fatigue:
		return &a.Fatigue
	case Pain:
		return &a.Pain
	case Morale:
		return &a.Morale
	case Intox:
		return &a.Intox
	}
	return nil
}

// Get returns the value of f and whether f is a known attribute.
func (a CharacterAttributes) Get(f AttributeField) (int, bool) {
	p := a.slot(f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Update replaces field f with fn(current), clamped to the attribute domain.
// Unknown fields leave the record unchanged.
func (a *CharacterAttributes) Update(f AttributeField, fn func(current int) int) {
	p := a.slot(f)
	if p == nil {
		return
	}
	*p = ClampAttribute(fn(*p))
}

// Clone returns a copy whose flag tree shares nothing with a.
func (a CharacterAttributes) Clone() CharacterAttributes {
	out := a
	out.TraitsFlags = a.TraitsFlags.Clone()
	return out
}

// Normalize clamps every numeric field and guarantees a non-nil flag object.
func (a *CharacterAttributes) Normalize() {
	for _, f := range AttributeFields {
		p := a.slot(f)
		*p = ClampAttribute(*p)
	}
	if a.TraitsFlags == nil {
		a.TraitsFlags = Flags{}
	}
}

// ClampAttribute clamps v to [AttributeMin, AttributeMax].
func ClampAttribute(v int) int {
	return min(max(v, AttributeMin), AttributeMax)
}
