package state

import (
	"encoding/json"
	"fmt"
)

// Flags is the author-defined narrative flag tree stored on a character.
// Values are JSON-like: nil, bool, float64, json.Number, string, []any or
// map[string]any.
type Flags map[string]any

// UnmarshalJSON accepts an object or null; any other root is a parse error.
func (f *Flags) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ParseError{Kind: "traits_flags", Err: err}
	}
	switch v := raw.(type) {
	case nil:
		*f = Flags{}
	case map[string]any:
		*f = Flags(v)
	default:
		return &ParseError{Kind: "traits_flags", Value: fmt.Sprintf("%T", raw), Err: errFlagsNotObject}
	}
	return nil
}

// MarshalJSON writes nil flags as an empty object.
func (f Flags) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(f))
}

// Clone deep-copies the tree.
func (f Flags) Clone() Flags {
	if f == nil {
		return Flags{}
	}
	return Flags(cloneObject(f))
}

// Lookup walks path and returns the value found there.
func (f Flags) Lookup(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cursor any = map[string]any(f)
	for _, key := range path {
		obj, ok := asObject(cursor)
		if !ok {
			return nil, false
		}
		cursor, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cursor, true
}

// SetPath stores value at path, creating intermediate objects as needed.
// An intermediate that is missing or not an object is replaced by an empty
// object. An empty path leaves f untouched. f is mutated in place; callers
// that need copy-on-write must Clone first.
func (f Flags) SetPath(path []string, value any) {
	if len(path) == 0 || f == nil {
		return
	}
	cursor := map[string]any(f)
	for _, key := range path[:len(path)-1] {
		next, ok := asObject(cursor[key])
		if !ok {
			next = map[string]any{}
			cursor[key] = next
		}
		cursor = next
	}
	cursor[path[len(path)-1]] = value
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case Flags:
		return t, t != nil
	}
	return nil, false
}

func cloneObject(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a JSON-like flag value. Scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneObject(t)
	case Flags:
		return cloneObject(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return t
	}
}
