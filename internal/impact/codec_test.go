package impact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/storycore/internal/state"
)

func TestParseListDecodesEveryVariant(t *testing.T) {
	raw := `[
		{"type": "character_attribute", "character_id": "hero", "field": "courage", "op": "add", "value": 5},
		{"type": "relationship", "from_id": "hero", "to_id": "foe", "field": "fear", "op": "scale", "value": 150},
		{"type": "flag", "character_id": "hero", "path": ["saved_the_boy"], "value": {"when": "dawn"}}
	]`

	list, err := ParseList([]byte(raw))
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, CharacterAttribute{CharacterID: "hero", Field: state.Courage, Op: OpAdd, Value: 5}, list[0])
	assert.Equal(t, Relationship{FromID: "hero", ToID: "foe", Field: state.Fear, Op: OpScale, Value: 150}, list[1])
	assert.Equal(t, Flag{
		CharacterID: "hero",
		Path:        []string{"saved_the_boy"},
		Value:       map[string]any{"when": "dawn"},
	}, list[2])
}

func TestListMarshalUsesTypeDiscriminant(t *testing.T) {
	list := List{
		CharacterAttribute{CharacterID: "hero", Field: state.Intox, Op: OpSet, Value: 10},
		Relationship{FromID: "a", ToID: "b", Field: state.Attraction, Op: OpAdd, Value: -3},
		Flag{CharacterID: "hero", Path: []string{"x", "y"}, Value: nil},
	}
	out, err := list.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type": "character_attribute", "character_id": "hero", "field": "intox", "op": "set", "value": 10},
		{"type": "relationship", "from_id": "a", "to_id": "b", "field": "attraction", "op": "add", "value": -3},
		{"type": "flag", "character_id": "hero", "path": ["x", "y"], "value": null}
	]`, out)

	back, err := ParseList([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, list, back)
}

func TestEmptyListMarshal(t *testing.T) {
	out, err := List(nil).JSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestDecodeImpactErrors(t *testing.T) {
	tcs := []struct {
		name     string
		raw      string
		wantKind string
	}{
		{name: "unknown type", raw: `{"type": "inventory"}`, wantKind: "impact_type"},
		{name: "missing type", raw: `{"character_id": "a"}`, wantKind: "impact"},
		{name: "unknown field", raw: `{"type": "character_attribute", "character_id": "a", "field": "charm", "op": "add", "value": 1}`, wantKind: "attribute_field"},
		{name: "unknown op", raw: `{"type": "relationship", "from_id": "a", "to_id": "b", "field": "trust", "op": "multiply", "value": 1}`, wantKind: "numeric_op"},
		{name: "missing op", raw: `{"type": "character_attribute", "character_id": "a", "field": "pain", "value": 1}`, wantKind: "character_attribute"},
		{name: "flag without path", raw: `{"type": "flag", "character_id": "a", "value": 1}`, wantKind: "flag"},
		{name: "value wrong type", raw: `{"type": "character_attribute", "character_id": "a", "field": "pain", "op": "add", "value": "x"}`, wantKind: "character_attribute"},
		{name: "not an object", raw: `42`, wantKind: "impact"},
		{name: "value above int32", raw: `{"type": "character_attribute", "character_id": "a", "field": "courage", "op": "add", "value": 9223372036854775807}`, wantKind: "character_attribute"},
		{name: "value below int32", raw: `{"type": "relationship", "from_id": "a", "to_id": "b", "field": "trust", "op": "add", "value": -2147483649}`, wantKind: "relationship"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeImpact([]byte(tc.raw))
			var pe *state.ParseError
			require.True(t, errors.As(err, &pe), "want ParseError, got %v", err)
			assert.Equal(t, tc.wantKind, pe.Kind)
		})
	}
}

func TestParseListReportsIndex(t *testing.T) {
	_, err := ParseList([]byte(`[{"type": "flag", "character_id": "a", "path": []}, {"type": "nope"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "impact 1")
	assert.True(t, state.IsParseError(err))

	_, err = ParseList([]byte(`{"type": "flag"}`))
	assert.True(t, state.IsParseError(err))
}

func TestDefaultCharacter(t *testing.T) {
	imp := DefaultCharacter("hero")
	assert.Equal(t, TypeCharacterAttribute, imp.Type())
	got := Apply(nil, nil, []Impact{imp})
	assert.Equal(t, 0, got.Characters["hero"].Morality)
}
