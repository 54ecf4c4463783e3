package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Value: the runtime tagged union
// ---------------------------------------------------------------------------

// ValueKind discriminates the variants of Value. The set is closed: every
// operation on Value switches over all kinds explicitly.
type ValueKind uint8

const (
	KindNumber ValueKind = iota
	KindBool
	KindNil
	KindString
	KindClosure
	KindUpvaluePtr
	KindOpenUpvalue
)

// Value is a single glox runtime value.
//
// Numbers, booleans and nil are stored inline. Strings are non-owning
// handles into the intern table. Closures hold a weak reference to their
// Function plus one weak reference per captured variable, in declaration
// order. UpvaluePtr is a closed (heap-promoted) pointer to the true
// storage of a captured variable; OpenUpvalue is a variable still owned
// by its stack frame, shared through a Cell.
//
// Neither Closure nor UpvaluePtr owns its referents, so no strong
// reference cycle can form through them; the only owning multi-holder
// reference is the Cell behind OpenUpvalue, which holds no back-references.
type Value struct {
	kind ValueKind
	num  float64
	b    bool
	str  InternedString
	fn   FuncRef
	caps []ValueRef
	ref  ValueRef
	cell Cell
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NumberValue creates a number value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// BoolValue creates a boolean value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NilValue creates the nil value.
func NilValue() Value {
	return Value{kind: KindNil}
}

// StringValue creates a string value from an intern-table handle.
func StringValue(s InternedString) Value {
	return Value{kind: KindString, str: s}
}

// ClosureValue creates a closure over fn with the given captured
// references. caps is index-aligned with fn's declared upvalue list and
// its order is fixed here, at creation time.
func ClosureValue(fn FuncRef, caps []ValueRef) Value {
	return Value{kind: KindClosure, fn: fn, caps: caps}
}

// UpvaluePtrValue creates a closed upvalue pointer to ref. The referent
// must not itself be an upvalue pointer; a violation means the capture
// logic produced a double indirection and is a fatal bug, not a
// recoverable condition.
func UpvaluePtrValue(ref ValueRef) Value {
	if ref.MustUpgrade().IsUpvaluePtr() {
		panic("UpvaluePtrValue: referent is already an upvalue pointer")
	}
	return Value{kind: KindUpvaluePtr, ref: ref}
}

// OpenUpvalueValue creates an open upvalue sharing the given cell.
func OpenUpvalueValue(cell Cell) Value {
	return Value{kind: KindOpenUpvalue, cell: cell}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the value's variant tag.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsString returns true if v is a string.
func (v Value) IsString() bool {
	return v.kind == KindString
}

// IsClosure returns true if v is a closure.
func (v Value) IsClosure() bool {
	return v.kind == KindClosure
}

// IsUpvaluePtr returns true if v is a closed upvalue pointer.
func (v Value) IsUpvaluePtr() bool {
	return v.kind == KindUpvaluePtr
}

// IsOpenUpvalue returns true if v is an open upvalue.
func (v Value) IsOpenUpvalue() bool {
	return v.kind == KindOpenUpvalue
}

// IsNil returns true if v is nil.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// ---------------------------------------------------------------------------
// Truthiness
// ---------------------------------------------------------------------------

// IsTruthy returns true if v is considered "truthy" in conditionals.
func (v Value) IsTruthy() bool {
	return !v.IsFalsy()
}

// IsFalsy returns true if v is considered "falsy" in conditionals.
// Only nil and false are falsy; every other value, including 0 and the
// empty string, is truthy.
func (v Value) IsFalsy() bool {
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return !v.b
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Number returns v as a float64. Panics if v is not a number.
func (v Value) Number() float64 {
	if v.kind != KindNumber {
		panic("Value.Number: not a number")
	}
	return v.num
}

// Bool returns v as a bool. Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a boolean")
	}
	return v.b
}

// Str returns v's intern-table handle. Panics if v is not a string.
func (v Value) Str() InternedString {
	if v.kind != KindString {
		panic("Value.Str: not a string")
	}
	return v.str
}

// Closure returns v's function reference and captured references.
// Panics if v is not a closure.
func (v Value) Closure() (FuncRef, []ValueRef) {
	if v.kind != KindClosure {
		panic("Value.Closure: not a closure")
	}
	return v.fn, v.caps
}

// Ref returns the weak reference behind an upvalue pointer.
// Panics if v is not an upvalue pointer.
func (v Value) Ref() ValueRef {
	if v.kind != KindUpvaluePtr {
		panic("Value.Ref: not an upvalue pointer")
	}
	return v.ref
}

// Cell returns the shared cell behind an open upvalue.
// Panics if v is not an open upvalue.
func (v Value) Cell() Cell {
	if v.kind != KindOpenUpvalue {
		panic("Value.Cell: not an open upvalue")
	}
	return v.cell
}

// ---------------------------------------------------------------------------
// Display
// ---------------------------------------------------------------------------

// Stringify produces the display text of v, unwrapping indirection.
// Terminates because an upvalue pointer's referent is never itself an
// upvalue pointer, bounding the recursion to at most two hops.
func (v Value) Stringify() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNil:
		return "nil"
	case KindString:
		return v.str.String()
	case KindClosure:
		return v.fn.MustUpgrade().Stringify()
	case KindUpvaluePtr:
		return v.ref.MustUpgrade().Stringify()
	case KindOpenUpvalue:
		return v.cell.Get().Stringify()
	default:
		panic("Value.Stringify: unknown kind")
	}
}

// DebugString produces a diagnostic rendering of v that names the
// variant, used in coercion failure messages.
func (v Value) DebugString() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("Number(%s)", strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.b)
	case KindNil:
		return "Nil"
	case KindString:
		return fmt.Sprintf("String(%q)", v.str.String())
	case KindClosure:
		return fmt.Sprintf("Closure(%s)", v.fn.MustUpgrade().Stringify())
	case KindUpvaluePtr:
		return fmt.Sprintf("UpvaluePtr(%s)", v.ref.MustUpgrade().DebugString())
	case KindOpenUpvalue:
		return fmt.Sprintf("OpenUpvalue(%s)", v.cell.Get().DebugString())
	default:
		panic("Value.DebugString: unknown kind")
	}
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// UpdateNumber overwrites a numeric value in place, reporting success.
// The write tunnels through upvalue pointers to reach the one true
// storage cell, which is how an assignment made through any chain of
// closures becomes visible to every holder. It does not tunnel into an
// open upvalue: writes to an open upvalue go through the Cell, not
// through this method. Every other variant fails without side effects.
func (v *Value) UpdateNumber(n float64) bool {
	switch v.kind {
	case KindNumber:
		v.num = n
		return true
	case KindUpvaluePtr:
		return v.ref.MustUpgrade().UpdateNumber(n)
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equal is the language's equality operator. Numbers, booleans, nil and
// strings compare by content; any pairing that involves a closure or an
// upvalue is unequal, even when both sides reference the same storage.
// Identity comparison for reference-like variants is a distinct concern
// left to higher layers.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindNil:
		return true
	case KindString:
		return v.str.Equal(o.str)
	case KindClosure, KindUpvaluePtr, KindOpenUpvalue:
		return false
	default:
		panic("Value.Equal: unknown kind")
	}
}

// ---------------------------------------------------------------------------
// Collector interface
// ---------------------------------------------------------------------------

// Tracer receives a value's outgoing references during reachability
// tracing, separated into non-owning and owning edges.
type Tracer interface {
	WeakValue(ValueRef)
	WeakFunction(FuncRef)
	OwnedCell(Cell)
}

// TraceRefs reports every reference held by v to t, classified as weak
// (non-owning) or owned. The collector relies on this being exhaustive:
// closures hold only weak edges, an upvalue pointer holds one weak edge,
// and the single owning edge in the model is an open upvalue's cell.
func (v Value) TraceRefs(t Tracer) {
	switch v.kind {
	case KindNumber, KindBool, KindNil, KindString:
		// inline scalars and intern handles carry no heap edges
	case KindClosure:
		t.WeakFunction(v.fn)
		for _, c := range v.caps {
			t.WeakValue(c)
		}
	case KindUpvaluePtr:
		t.WeakValue(v.ref)
	case KindOpenUpvalue:
		t.OwnedCell(v.cell)
	default:
		panic("Value.TraceRefs: unknown kind")
	}
}
