package cards

import (
	"encoding/json"
	"fmt"
)

// TriState is an explicit three-valued flag. The zero value is Unknown so that
// a field that was never populated can't be mistaken for True or False.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// TriStateOf converts a nullable bool as stored in the corpus.
func TriStateOf(b *bool) TriState {
	if b == nil {
		return Unknown
	}
	return FromBool(*b)
}

// FromBool converts a plain bool.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// IsTrue reports whether the value is explicitly True.
func (t TriState) IsTrue() bool { return t == True }

// IsFalse reports whether the value is explicitly False.
func (t TriState) IsFalse() bool { return t == False }

// Known reports whether the value is True or False.
func (t TriState) Known() bool { return t == True || t == False }

// Ptr returns the nullable bool form, nil for Unknown.
func (t TriState) Ptr() *bool {
	switch t {
	case True:
		b := true
		return &b
	case False:
		b := false
		return &b
	default:
		return nil
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the value as true, false or null.
func (t TriState) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Ptr())
}

// UnmarshalJSON accepts true, false, null or the strings "true", "false", "unknown".
func (t *TriState) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = TriStateOf(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid tri-state value %s", string(data))
	}
	switch s {
	case "true":
		*t = True
	case "false":
		*t = False
	case "unknown", "":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value %q", s)
	}
	return nil
}
