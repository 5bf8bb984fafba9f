package state

import (
	"errors"
	"fmt"
)

var errFlagsNotObject = errors.New("traits_flags must be an object")

// ParseError reports saved data that does not have the expected shape.
// It is the only error the state model produces.
type ParseError struct {
	Kind  string // what was being decoded, e.g. "snapshot" or "attribute_field"
	Value string // offending literal, when there is one
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Value != "" && e.Err != nil:
		return fmt.Sprintf("parse %s %q: %v", e.Kind, e.Value, e.Err)
	case e.Value != "":
		return fmt.Sprintf("parse %s: unknown value %q", e.Kind, e.Value)
	case e.Err != nil:
		return fmt.Sprintf("parse %s: %v", e.Kind, e.Err)
	default:
		return "parse " + e.Kind
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
