package vm

// ---------------------------------------------------------------------------
// Heap: generation-tagged slot arenas for heap-resident runtime data
// ---------------------------------------------------------------------------

// Heap owns the canonical storage for every heap-resident Value and every
// registered Function. Closures and upvalue pointers never own what they
// point to; they hold ValueRef/FuncRef weak references into these arenas.
//
// A weak reference is a (slot index, generation) pair. Reclaiming a slot
// bumps its generation, so stale references fail to upgrade instead of
// observing whatever the slot is reused for. Execution is single-threaded,
// so the arenas are unsynchronized.
type Heap struct {
	values    []*valueSlot
	freeVals  []uint32
	functions []*funcSlot
	freeFuncs []uint32
}

type valueSlot struct {
	val  Value
	gen  uint32
	live bool
}

type funcSlot struct {
	fn   *Function
	gen  uint32
	live bool
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// AllocValue moves v into a heap slot and returns a weak reference to it.
func (h *Heap) AllocValue(v Value) ValueRef {
	if n := len(h.freeVals); n > 0 {
		idx := h.freeVals[n-1]
		h.freeVals = h.freeVals[:n-1]
		s := h.values[idx]
		s.val = v
		s.live = true
		return ValueRef{heap: h, index: idx, gen: s.gen}
	}
	idx := uint32(len(h.values))
	h.values = append(h.values, &valueSlot{val: v, live: true})
	return ValueRef{heap: h, index: idx, gen: 0}
}

// ReclaimValue frees the slot behind r. The slot's generation is bumped
// so every outstanding reference to it stops upgrading. Reclaiming an
// already-dead reference is a no-op; the collector may sweep in any order.
func (h *Heap) ReclaimValue(r ValueRef) {
	if r.heap != h || int(r.index) >= len(h.values) {
		return
	}
	s := h.values[r.index]
	if !s.live || s.gen != r.gen {
		return
	}
	s.val = Value{}
	s.gen++
	s.live = false
	h.freeVals = append(h.freeVals, r.index)
}

// AllocFunction registers a compiled function and returns a weak
// reference to it. The function itself stays owned by its chunk's
// function pool; the heap slot only mediates upgrades.
func (h *Heap) AllocFunction(f *Function) FuncRef {
	if n := len(h.freeFuncs); n > 0 {
		idx := h.freeFuncs[n-1]
		h.freeFuncs = h.freeFuncs[:n-1]
		s := h.functions[idx]
		s.fn = f
		s.live = true
		return FuncRef{heap: h, index: idx, gen: s.gen}
	}
	idx := uint32(len(h.functions))
	h.functions = append(h.functions, &funcSlot{fn: f, live: true})
	return FuncRef{heap: h, index: idx, gen: 0}
}

// ReclaimFunction frees the slot behind r, invalidating outstanding
// references to the function.
func (h *Heap) ReclaimFunction(r FuncRef) {
	if r.heap != h || int(r.index) >= len(h.functions) {
		return
	}
	s := h.functions[r.index]
	if !s.live || s.gen != r.gen {
		return
	}
	s.fn = nil
	s.gen++
	s.live = false
	h.freeFuncs = append(h.freeFuncs, r.index)
}

// NewOpenUpvalue moves v into fresh heap storage and returns the owning
// cell for it. The cell and every weak reference later derived from it
// alias the same slot, so all holders observe writes.
func (h *Heap) NewOpenUpvalue(v Value) Cell {
	return Cell{ref: h.AllocValue(v)}
}

// ---------------------------------------------------------------------------
// Heap statistics
// ---------------------------------------------------------------------------

// HeapStats is a snapshot of arena occupancy, for collector reporting.
type HeapStats struct {
	LiveValues    int
	LiveFunctions int
	FreeValues    int
	FreeFunctions int
}

// Stats returns a snapshot of the heap's slot occupancy.
func (h *Heap) Stats() HeapStats {
	return HeapStats{
		LiveValues:    len(h.values) - len(h.freeVals),
		LiveFunctions: len(h.functions) - len(h.freeFuncs),
		FreeValues:    len(h.freeVals),
		FreeFunctions: len(h.freeFuncs),
	}
}

// ---------------------------------------------------------------------------
// ValueRef / FuncRef: weak references with fallible upgrade
// ---------------------------------------------------------------------------

// ValueRef is a non-owning reference to a heap-resident Value. The zero
// value is a dead reference that never upgrades.
type ValueRef struct {
	heap  *Heap
	index uint32
	gen   uint32
}

// Upgrade resolves the reference, returning false if the referent has
// been reclaimed.
func (r ValueRef) Upgrade() (*Value, bool) {
	if r.heap == nil || int(r.index) >= len(r.heap.values) {
		return nil, false
	}
	s := r.heap.values[r.index]
	if !s.live || s.gen != r.gen {
		return nil, false
	}
	return &s.val, true
}

// MustUpgrade resolves the reference or panics. Inside a correctly
// operating VM a reachable reference always upgrades; a failure here is
// a bug in the collector or the closure-capture logic, not a runtime
// error the language can surface.
func (r ValueRef) MustUpgrade() *Value {
	p, ok := r.Upgrade()
	if !ok {
		panic("ValueRef.MustUpgrade: referent has been reclaimed")
	}
	return p
}

// Alive reports whether the referent has not been reclaimed.
func (r ValueRef) Alive() bool {
	_, ok := r.Upgrade()
	return ok
}

// FuncRef is a non-owning reference to a registered Function.
type FuncRef struct {
	heap  *Heap
	index uint32
	gen   uint32
}

// Upgrade resolves the reference, returning false if the referent has
// been reclaimed.
func (r FuncRef) Upgrade() (*Function, bool) {
	if r.heap == nil || int(r.index) >= len(r.heap.functions) {
		return nil, false
	}
	s := r.heap.functions[r.index]
	if !s.live || s.gen != r.gen {
		return nil, false
	}
	return s.fn, true
}

// MustUpgrade resolves the reference or panics.
func (r FuncRef) MustUpgrade() *Function {
	f, ok := r.Upgrade()
	if !ok {
		panic("FuncRef.MustUpgrade: referent has been reclaimed")
	}
	return f
}

// Alive reports whether the referent has not been reclaimed.
func (r FuncRef) Alive() bool {
	_, ok := r.Upgrade()
	return ok
}

// ---------------------------------------------------------------------------
// Cell: shared mutable storage for captured variables
// ---------------------------------------------------------------------------

// Cell is the owning handle to a captured variable's heap storage. The
// owning stack frame holds the cell (through the OpenUpvalue in its
// local slot); closures that captured the variable hold weak references
// to the same storage, so a write from any holder is observed by all.
//
// A cell resolving to reclaimed storage means the collector freed a slot
// that still had an owner, which is fatal.
type Cell struct {
	ref ValueRef
}

// Get returns the cell's current content.
func (c Cell) Get() Value {
	return *c.ref.MustUpgrade()
}

// Set replaces the cell's content in place; every weak reference to the
// storage observes the write.
func (c Cell) Set(v Value) {
	*c.ref.MustUpgrade() = v
}

// Ref returns a weak reference to the cell's storage. Closures capture
// this, and closing the upvalue wraps it in an UpvaluePtr; either way
// the storage is shared, never copied.
func (c Cell) Ref() ValueRef {
	return c.ref
}

// Promote returns the closed form of the captured variable: an
// UpvaluePtr to the cell's storage. The owning frame calls this when it
// is about to be destroyed while closures still reference the variable.
// Existing weak references keep resolving to the same storage.
func (c Cell) Promote() Value {
	return UpvaluePtrValue(c.ref)
}
