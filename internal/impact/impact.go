// Package impact applies ordered mutation instructions to character and
// relationship state.
package impact

import "github.com/xtding233/storycore/internal/state"

// NumericOp is how an impact combines its value with the current one.
type NumericOp string

const (
	OpAdd   NumericOp = "add"   // current + value
	OpSet   NumericOp = "set"   // value
	OpScale NumericOp = "scale" // round(current * value / 100)
)

// Valid reports whether op is a known operation.
func (op NumericOp) Valid() bool {
	switch op {
	case OpAdd, OpSet, OpScale:
		return true
	}
	return false
}

// UnmarshalText rejects unknown operations.
func (op *NumericOp) UnmarshalText(text []byte) error {
	v := NumericOp(text)
	if !v.Valid() {
		return &state.ParseError{Kind: "numeric_op", Value: string(text)}
	}
	*op = v
	return nil
}

// Type is the JSON discriminant of an Impact.
type Type string

const (
	TypeCharacterAttribute Type = "character_attribute"
	TypeRelationship       Type = "relationship"
	TypeFlag               Type = "flag"
)

// Impact is one mutation instruction. The set of implementations is closed:
// CharacterAttribute, Relationship and Flag.
type Impact interface {
	Type() Type
	sealed()
}

// CharacterAttribute changes one numeric trait of a character.
type CharacterAttribute struct {
	CharacterID string               `json:"character_id"`
	Field       state.AttributeField `json:"field"`
	Op          NumericOp            `json:"op"`
	Value       int32                `json:"value"`
}

// Relationship changes one metric of the directed pair FromID -> ToID.
type Relationship struct {
	FromID string                  `json:"from_id"`
	ToID   string                  `json:"to_id"`
	Field  state.RelationshipField `json:"field"`
	Op     NumericOp               `json:"op"`
	Value  int32                   `json:"value"`
}

// Flag stores Value at Path inside a character's traits_flags.
type Flag struct {
	CharacterID string   `json:"character_id"`
	Path        []string `json:"path"`
	Value       any      `json:"value"`
}

func (CharacterAttribute) Type() Type { return TypeCharacterAttribute }
func (Relationship) Type() Type       { return TypeRelationship }
func (Flag) Type() Type               { return TypeFlag }

func (CharacterAttribute) sealed() {}
func (Relationship) sealed()       {}
func (Flag) sealed()               {}

// DefaultCharacter is the placeholder impact editors start from.
func DefaultCharacter(characterID string) Impact {
	return CharacterAttribute{
		CharacterID: characterID,
		Field:       state.Morality,
		Op:          OpAdd,
		Value:       0,
	}
}

// Summarize counts impacts per type.
func Summarize(impacts []Impact) map[Type]int {
	out := make(map[Type]int, 3)
	for _, imp := range impacts {
		if imp == nil {
			continue
		}
		out[imp.Type()]++
	}
	return out
}
