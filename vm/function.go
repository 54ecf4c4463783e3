package vm

// ---------------------------------------------------------------------------
// Function: compiled unit
// ---------------------------------------------------------------------------

// Function is an immutable compiled function: the compiler creates one
// per declared function and never mutates it afterwards. Closures
// reference it weakly; the canonical owner is the enclosing chunk's
// function pool.
type Function struct {
	Name     InternedString
	Arity    int
	Upvalues []Upvalue // captured-variable descriptors, in capture order
	Chunk    *Chunk
}

// Stringify returns the display text of the function.
func (f *Function) Stringify() string {
	return "<fn " + f.Name.String() + ">"
}

// DeepEq compares two functions field by field, including full chunk
// content. It backs compiler golden-output tests and is distinct from
// the runtime equality operator, under which closures never compare
// equal.
func (f *Function) DeepEq(o *Function) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !f.Name.Equal(o.Name) || f.Arity != o.Arity {
		return false
	}
	if len(f.Upvalues) != len(o.Upvalues) {
		return false
	}
	for i, u := range f.Upvalues {
		if u != o.Upvalues[i] {
			return false
		}
	}
	return f.Chunk.DeepEq(o.Chunk)
}

// ---------------------------------------------------------------------------
// Upvalue: compile-time capture descriptor
// ---------------------------------------------------------------------------

// Upvalue describes, for one captured variable, where a closure finds it
// at creation time: a slot in the immediately enclosing frame's locals
// (IsLocal) or an entry in the enclosing closure's own captured list.
// Produced by the compiler, consumed exactly once when the closure is
// instantiated.
type Upvalue struct {
	Index   int
	IsLocal bool
}

// ---------------------------------------------------------------------------
// Frame: the activation view used at closure-creation time
// ---------------------------------------------------------------------------

// Frame is the minimal view of an activation record needed to
// instantiate a closure: the frame's local slots and the captured
// references of the closure currently executing in it.
type Frame struct {
	Heap     *Heap
	Locals   []ValueRef // heap slots for the frame's locals, stack order
	Captured []ValueRef // captured refs of the executing closure
}

// Capture resolves compile-time upvalue descriptors to captured
// references, one per descriptor, in descriptor order.
//
// The first capture of a local moves its value into cell storage and
// rewrites the local slot into an OpenUpvalue over that cell; later
// captures of the same local find the cell already there. Either way
// the captured reference is to the cell's storage itself, so the owning
// frame and every capturer share it. A non-local capture copies the
// reference already resolved by the enclosing closure, propagating a
// capture through nested closures without re-resolving it.
func (f *Frame) Capture(descs []Upvalue) []ValueRef {
	caps := make([]ValueRef, 0, len(descs))
	for _, d := range descs {
		if d.IsLocal {
			slot := f.Locals[d.Index].MustUpgrade()
			if !slot.IsOpenUpvalue() {
				*slot = OpenUpvalueValue(f.Heap.NewOpenUpvalue(*slot))
			}
			caps = append(caps, slot.Cell().Ref())
		} else {
			caps = append(caps, f.Captured[d.Index])
		}
	}
	return caps
}
