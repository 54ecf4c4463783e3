package vm

import "sync"

// ---------------------------------------------------------------------------
// StringTable: Interned strings
// ---------------------------------------------------------------------------

// StringTable interns string literals to unique IDs. Every string that
// appears in a compiled program is stored here exactly once; Values and
// constant pools refer to it through InternedString handles, which makes
// string equality and copying cheap.
type StringTable struct {
	mu     sync.RWMutex
	byText map[string]uint32 // text -> ID
	byID   []string          // ID -> text
}

// NewStringTable creates a new empty string table.
func NewStringTable() *StringTable {
	return &StringTable{
		byText: make(map[string]uint32),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the handle for a string, creating a new entry if needed.
func (st *StringTable) Intern(text string) InternedString {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byText[text]; ok {
		st.mu.RUnlock()
		return InternedString{table: st, id: id}
	}
	st.mu.RUnlock()

	// Slow path: need to add a new entry
	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byText[text]; ok {
		return InternedString{table: st, id: id}
	}

	id := uint32(len(st.byID))
	st.byText[text] = id
	st.byID = append(st.byID, text)
	return InternedString{table: st, id: id}
}

// Lookup returns the handle for a string without interning it.
func (st *StringTable) Lookup(text string) (InternedString, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byText[text]
	return InternedString{table: st, id: id}, ok
}

// Name returns the text for an ID, or "" if invalid.
func (st *StringTable) Name(id uint32) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned strings.
func (st *StringTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// ---------------------------------------------------------------------------
// InternedString: non-owning handle into a StringTable
// ---------------------------------------------------------------------------

// InternedString is a non-owning handle to a string in a StringTable.
// The zero value is a handle to no table and dereferences to "".
type InternedString struct {
	table *StringTable
	id    uint32
}

// String dereferences the handle to the owned text.
func (s InternedString) String() string {
	if s.table == nil {
		return ""
	}
	return s.table.Name(s.id)
}

// ID returns the handle's table-local ID.
func (s InternedString) ID() uint32 {
	return s.id
}

// Equal reports whether two handles denote the same string. Handles into
// the same table compare by ID; handles into different tables fall back
// to text comparison.
func (s InternedString) Equal(o InternedString) bool {
	if s.table == o.table {
		return s.id == o.id
	}
	return s.String() == o.String()
}
