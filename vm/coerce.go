package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Coercions: fallible narrowing from Value to host primitives
// ---------------------------------------------------------------------------

// ErrTypeMismatch is the sentinel wrapped by every coercion failure.
// Instruction handlers surface these as language-level runtime errors;
// they are never fatal.
var ErrTypeMismatch = errors.New("type mismatch")

// AsNumber narrows v to a float64. Like UpdateNumber, it tunnels through
// upvalue pointers, so a numeric captured variable reads correctly
// through any chain of closures.
func AsNumber(v Value) (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindUpvaluePtr:
		return AsNumber(*v.ref.MustUpgrade())
	default:
		return 0, fmt.Errorf("%w: expected a number, found %s", ErrTypeMismatch, v.DebugString())
	}
}

// AsBool narrows v to a bool. It matches the exact variant only: unlike
// AsNumber, a bool behind an upvalue pointer fails here.
func AsBool(v Value) (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: expected a boolean, found %s", ErrTypeMismatch, v.DebugString())
	}
	return v.b, nil
}

// AsString narrows v to its intern-table handle. Exact variant only,
// like AsBool.
func AsString(v Value) (InternedString, error) {
	if v.kind != KindString {
		return InternedString{}, fmt.Errorf("%w: expected a string, found %s", ErrTypeMismatch, v.DebugString())
	}
	return v.str, nil
}
