package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestClosure registers a function with no upvalues and returns a
// closure value over it.
func newTestClosure(h *Heap, table *StringTable, name string) Value {
	f := &Function{Name: table.Intern(name), Arity: 0, Chunk: NewChunk()}
	return ClosureValue(h.AllocFunction(f), nil)
}

func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, got none", want)
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, want) {
			t.Fatalf("panic = %v, want message containing %q", r, want)
		}
	}()
	fn()
}

// ---------------------------------------------------------------------------
// Truthiness
// ---------------------------------------------------------------------------

func TestTruthiness(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	tests := []struct {
		name  string
		v     Value
		falsy bool
	}{
		{"nil", NilValue(), true},
		{"false", BoolValue(false), true},
		{"true", BoolValue(true), false},
		{"zero", NumberValue(0), false},
		{"number", NumberValue(3.5), false},
		{"empty string", StringValue(table.Intern("")), false},
		{"string", StringValue(table.Intern("x")), false},
		{"closure", newTestClosure(h, table, "f"), false},
		{"open upvalue", OpenUpvalueValue(h.NewOpenUpvalue(NilValue())), false},
	}

	for _, tt := range tests {
		if got := tt.v.IsFalsy(); got != tt.falsy {
			t.Errorf("%s: IsFalsy() = %v, want %v", tt.name, got, tt.falsy)
		}
		if tt.v.IsTruthy() == tt.v.IsFalsy() {
			t.Errorf("%s: IsTruthy and IsFalsy agree", tt.name)
		}
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

func TestEqualScalars(t *testing.T) {
	table := NewStringTable()

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal numbers", NumberValue(1.5), NumberValue(1.5), true},
		{"unequal numbers", NumberValue(1.5), NumberValue(2.5), false},
		{"equal bools", BoolValue(true), BoolValue(true), true},
		{"unequal bools", BoolValue(true), BoolValue(false), false},
		{"nils", NilValue(), NilValue(), true},
		{"equal strings", StringValue(table.Intern("abc")), StringValue(table.Intern("abc")), true},
		{"unequal strings", StringValue(table.Intern("abc")), StringValue(table.Intern("abd")), false},
		{"number vs bool", NumberValue(1), BoolValue(true), false},
		{"nil vs false", NilValue(), BoolValue(false), false},
		{"number vs nil", NumberValue(0), NilValue(), false},
	}

	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Equal(tt.a); got != tt.want {
			t.Errorf("%s (flipped): Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEqualReferenceVariantsAlwaysUnequal(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	c := newTestClosure(h, table, "f")
	if c.Equal(c) {
		t.Error("a closure must not equal itself")
	}

	cell := h.NewOpenUpvalue(NumberValue(1))
	open := OpenUpvalueValue(cell)
	if open.Equal(open) {
		t.Error("an open upvalue must not equal itself")
	}

	ptr := UpvaluePtrValue(cell.Ref())
	other := UpvaluePtrValue(cell.Ref())
	if ptr.Equal(other) {
		t.Error("two upvalue pointers to the same storage must not be equal")
	}
	if ptr.Equal(NumberValue(1)) || NumberValue(1).Equal(ptr) {
		t.Error("an upvalue pointer must not equal its referent's content")
	}
}

// ---------------------------------------------------------------------------
// Predicates
// ---------------------------------------------------------------------------

func TestPredicates(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	s := StringValue(table.Intern("s"))
	c := newTestClosure(h, table, "f")
	cell := h.NewOpenUpvalue(NumberValue(1))
	ptr := UpvaluePtrValue(cell.Ref())
	open := OpenUpvalueValue(cell)

	if !s.IsString() || c.IsString() || NumberValue(1).IsString() {
		t.Error("IsString misclassifies")
	}
	if !c.IsClosure() || s.IsClosure() {
		t.Error("IsClosure misclassifies")
	}
	if !ptr.IsUpvaluePtr() || open.IsUpvaluePtr() || s.IsUpvaluePtr() {
		t.Error("IsUpvaluePtr misclassifies")
	}
	if !open.IsOpenUpvalue() || ptr.IsOpenUpvalue() {
		t.Error("IsOpenUpvalue misclassifies")
	}
	if !NilValue().IsNil() || s.IsNil() {
		t.Error("IsNil misclassifies")
	}
}

// ---------------------------------------------------------------------------
// Stringify
// ---------------------------------------------------------------------------

func TestStringify(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	cell := h.NewOpenUpvalue(NumberValue(7))

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"integral number", NumberValue(3), "3"},
		{"fractional number", NumberValue(2.5), "2.5"},
		{"negative number", NumberValue(-0.25), "-0.25"},
		{"true", BoolValue(true), "true"},
		{"false", BoolValue(false), "false"},
		{"nil", NilValue(), "nil"},
		{"string", StringValue(table.Intern("hello")), "hello"},
		{"closure", newTestClosure(h, table, "f"), "<fn f>"},
		{"upvalue pointer", UpvaluePtrValue(cell.Ref()), "7"},
		{"open upvalue", OpenUpvalueValue(cell), "7"},
	}

	for _, tt := range tests {
		if got := tt.v.Stringify(); got != tt.want {
			t.Errorf("%s: Stringify() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDebugStringNamesVariant(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	cell := h.NewOpenUpvalue(BoolValue(true))

	tests := []struct {
		v    Value
		want string
	}{
		{NumberValue(3), "Number(3)"},
		{BoolValue(false), "Bool(false)"},
		{NilValue(), "Nil"},
		{StringValue(table.Intern("hi")), `String("hi")`},
		{newTestClosure(h, table, "f"), "Closure(<fn f>)"},
		{UpvaluePtrValue(cell.Ref()), "UpvaluePtr(Bool(true))"},
		{OpenUpvalueValue(cell), "OpenUpvalue(Bool(true))"},
	}

	for _, tt := range tests {
		if got := tt.v.DebugString(); got != tt.want {
			t.Errorf("DebugString() = %q, want %q", got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// UpdateNumber
// ---------------------------------------------------------------------------

func TestUpdateNumberInPlace(t *testing.T) {
	v := NumberValue(1)
	if !v.UpdateNumber(2) {
		t.Fatal("UpdateNumber on a number should succeed")
	}
	if v.Number() != 2 {
		t.Errorf("number = %v, want 2", v.Number())
	}
}

func TestUpdateNumberTunnelsThroughUpvaluePtr(t *testing.T) {
	h := NewHeap()
	cell := h.NewOpenUpvalue(NumberValue(1))

	ptr := UpvaluePtrValue(cell.Ref())
	if !ptr.UpdateNumber(42) {
		t.Fatal("UpdateNumber through an upvalue pointer should succeed")
	}
	if got := cell.Get(); !got.Equal(NumberValue(42)) {
		t.Errorf("cell content = %s, want Number(42)", got.DebugString())
	}
}

func TestUpdateNumberFailsWithoutMutation(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	cell := h.NewOpenUpvalue(NumberValue(1))
	open := OpenUpvalueValue(cell)

	tests := []struct {
		name string
		v    Value
	}{
		{"bool", BoolValue(true)},
		{"nil", NilValue()},
		{"string", StringValue(table.Intern("s"))},
		{"closure", newTestClosure(h, table, "f")},
		{"open upvalue", open},
	}

	for _, tt := range tests {
		before := tt.v
		if tt.v.UpdateNumber(9) {
			t.Errorf("%s: UpdateNumber should fail", tt.name)
		}
		if tt.v.Kind() != before.Kind() {
			t.Errorf("%s: kind changed on failed update", tt.name)
		}
	}

	// The open upvalue's cell content must be untouched as well: writes
	// to an open upvalue go through the cell, never through this method.
	if got := cell.Get(); !got.Equal(NumberValue(1)) {
		t.Errorf("cell content = %s, want Number(1)", got.DebugString())
	}

	// Even behind an upvalue pointer, an open-upvalue referent does not
	// accept numeric writes.
	slotRef := h.AllocValue(OpenUpvalueValue(cell))
	ptr := UpvaluePtrValue(slotRef)
	if ptr.UpdateNumber(9) {
		t.Error("UpdateNumber must not tunnel into an open upvalue")
	}
	if got := cell.Get(); !got.Equal(NumberValue(1)) {
		t.Errorf("cell content = %s, want Number(1)", got.DebugString())
	}
}

// ---------------------------------------------------------------------------
// UpvaluePtr construction invariant
// ---------------------------------------------------------------------------

func TestUpvaluePtrRejectsDoubleIndirection(t *testing.T) {
	h := NewHeap()
	cell := h.NewOpenUpvalue(NumberValue(1))

	inner := UpvaluePtrValue(cell.Ref())
	ref := h.AllocValue(inner)

	mustPanic(t, "already an upvalue pointer", func() {
		UpvaluePtrValue(ref)
	})
}

// ---------------------------------------------------------------------------
// Collector tracing
// ---------------------------------------------------------------------------

type recordingTracer struct {
	weakValues    int
	weakFunctions int
	ownedCells    int
}

func (r *recordingTracer) WeakValue(ValueRef)   { r.weakValues++ }
func (r *recordingTracer) WeakFunction(FuncRef) { r.weakFunctions++ }
func (r *recordingTracer) OwnedCell(Cell)       { r.ownedCells++ }

func TestTraceRefs(t *testing.T) {
	h := NewHeap()
	table := NewStringTable()

	f := &Function{Name: table.Intern("f"), Arity: 0, Chunk: NewChunk()}
	fnRef := h.AllocFunction(f)
	caps := []ValueRef{h.AllocValue(NumberValue(1)), h.AllocValue(NumberValue(2))}
	cell := h.NewOpenUpvalue(NilValue())

	tests := []struct {
		name                string
		v                   Value
		weakV, weakF, cells int
	}{
		{"number", NumberValue(1), 0, 0, 0},
		{"string", StringValue(table.Intern("s")), 0, 0, 0},
		{"closure", ClosureValue(fnRef, caps), 2, 1, 0},
		{"upvalue pointer", UpvaluePtrValue(caps[0]), 1, 0, 0},
		{"open upvalue", OpenUpvalueValue(cell), 0, 0, 1},
	}

	for _, tt := range tests {
		var rec recordingTracer
		tt.v.TraceRefs(&rec)
		if rec.weakValues != tt.weakV || rec.weakFunctions != tt.weakF || rec.ownedCells != tt.cells {
			t.Errorf("%s: traced (%d,%d,%d), want (%d,%d,%d)", tt.name,
				rec.weakValues, rec.weakFunctions, rec.ownedCells,
				tt.weakV, tt.weakF, tt.cells)
		}
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func TestAccessorsPanicOnWrongKind(t *testing.T) {
	mustPanic(t, "not a number", func() { NilValue().Number() })
	mustPanic(t, "not a boolean", func() { NumberValue(1).Bool() })
	mustPanic(t, "not a string", func() { NilValue().Str() })
	mustPanic(t, "not a closure", func() { NilValue().Closure() })
	mustPanic(t, "not an upvalue pointer", func() { NilValue().Ref() })
	mustPanic(t, "not an open upvalue", func() { NilValue().Cell() })
}
