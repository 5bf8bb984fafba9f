package state

import (
	"encoding/json"
	"errors"
)

// DecodeSnapshot parses a saved snapshot. Numeric values outside their
// domain are clamped; a document with the wrong shape yields *ParseError.
func DecodeSnapshot(data []byte) (CharacterStateSnapshot, error) {
	var s CharacterStateSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return CharacterStateSnapshot{}, pe
		}
		return CharacterStateSnapshot{}, &ParseError{Kind: "snapshot", Err: err}
	}
	s.Normalize()
	return s, nil
}

// EncodeSnapshot serializes s with nil collections written as empty ones.
func EncodeSnapshot(s CharacterStateSnapshot) ([]byte, error) {
	if s.Characters == nil {
		s.Characters = map[string]CharacterAttributes{}
	}
	if s.Relationships == nil {
		s.Relationships = []RelationshipState{}
	}
	return json.Marshal(s)
}
