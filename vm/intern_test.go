package vm

import "testing"

func TestInternDeduplicates(t *testing.T) {
	table := NewStringTable()

	a := table.Intern("hello")
	b := table.Intern("hello")
	c := table.Intern("world")

	if a.ID() != b.ID() {
		t.Errorf("same text interned to different IDs: %d, %d", a.ID(), b.ID())
	}
	if a.ID() == c.ID() {
		t.Error("different texts interned to the same ID")
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestInternDereference(t *testing.T) {
	table := NewStringTable()

	s := table.Intern("hello")
	if s.String() != "hello" {
		t.Errorf("String() = %q, want %q", s.String(), "hello")
	}

	var zero InternedString
	if zero.String() != "" {
		t.Errorf("zero handle String() = %q, want empty", zero.String())
	}
}

func TestInternLookup(t *testing.T) {
	table := NewStringTable()
	table.Intern("present")

	if _, ok := table.Lookup("present"); !ok {
		t.Error("Lookup failed for interned string")
	}
	if _, ok := table.Lookup("absent"); ok {
		t.Error("Lookup succeeded for never-interned string")
	}
}

func TestInternedStringEqual(t *testing.T) {
	table := NewStringTable()
	other := NewStringTable()

	a := table.Intern("x")
	b := table.Intern("x")
	c := table.Intern("y")

	if !a.Equal(b) {
		t.Error("handles to the same entry should be equal")
	}
	if a.Equal(c) {
		t.Error("handles to different entries should not be equal")
	}

	// Handles into different tables compare by text.
	if !a.Equal(other.Intern("x")) {
		t.Error("same text across tables should be equal")
	}
	if a.Equal(other.Intern("y")) {
		t.Error("different text across tables should not be equal")
	}
}
