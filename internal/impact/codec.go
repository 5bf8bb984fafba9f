package impact

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xtding233/storycore/internal/state"
)

var (
	errMissingType      = errors.New("missing type")
	errMissingFieldOrOp = errors.New("missing field or op")
	errMissingPath      = errors.New("missing path")
)

// MarshalJSON writes the impact with its "type" discriminant.
func (c CharacterAttribute) MarshalJSON() ([]byte, error) {
	type plain CharacterAttribute
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{TypeCharacterAttribute, plain(c)})
}

// MarshalJSON writes the impact with its "type" discriminant.
func (r Relationship) MarshalJSON() ([]byte, error) {
	type plain Relationship
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{TypeRelationship, plain(r)})
}

// MarshalJSON writes the impact with its "type" discriminant.
func (f Flag) MarshalJSON() ([]byte, error) {
	type plain Flag
	p := plain(f)
	if p.Path == nil {
		p.Path = []string{}
	}
	return json.Marshal(struct {
		Type Type `json:"type"`
		plain
	}{TypeFlag, p})
}

// DecodeImpact parses one tagged impact object.
func DecodeImpact(data []byte) (Impact, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, parseErr("impact", err)
	}

	var (
		out Impact
		err error
	)
	switch head.Type {
	case TypeCharacterAttribute:
		var v CharacterAttribute
		if err = json.Unmarshal(data, &v); err == nil && (v.Field == "" || v.Op == "") {
			err = errMissingFieldOrOp
		}
		out = v
	case TypeRelationship:
		var v Relationship
		if err = json.Unmarshal(data, &v); err == nil && (v.Field == "" || v.Op == "") {
			err = errMissingFieldOrOp
		}
		out = v
	case TypeFlag:
		var v Flag
		if err = json.Unmarshal(data, &v); err == nil && v.Path == nil {
			err = errMissingPath
		}
		out = v
	case "":
		return nil, &state.ParseError{Kind: "impact", Err: errMissingType}
	default:
		return nil, &state.ParseError{Kind: "impact_type", Value: string(head.Type)}
	}
	if err != nil {
		return nil, parseErr(string(head.Type), err)
	}
	return out, nil
}

// List is an ordered impact list with a JSON array representation.
type List []Impact

// UnmarshalJSON decodes an array of tagged impacts.
func (l *List) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return parseErr("impact_list", err)
	}
	out := make(List, 0, len(raws))
	for i, raw := range raws {
		imp, err := DecodeImpact(raw)
		if err != nil {
			return fmt.Errorf("impact %d: %w", i, err)
		}
		out = append(out, imp)
	}
	*l = out
	return nil
}

// MarshalJSON writes a nil list as an empty array.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Impact(l))
}

// JSON returns the list as indented JSON.
func (l List) JSON() (string, error) {
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseList decodes a JSON array of impacts.
func ParseList(data []byte) (List, error) {
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}

func parseErr(kind string, err error) error {
	var pe *state.ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &state.ParseError{Kind: kind, Err: err}
}
