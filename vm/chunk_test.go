package vm

import "testing"

func TestChunkWriteRecordsLines(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpPop, 1)
	c.WriteOp(OpTrue, 2)
	c.WriteOp(OpReturn, 4)

	if len(c.Code) != 4 {
		t.Fatalf("len(Code) = %d, want 4", len(c.Code))
	}
	// Line table is run-length encoded: one entry per new line.
	if len(c.Lines) != 3 {
		t.Fatalf("len(Lines) = %d, want 3", len(c.Lines))
	}

	tests := []struct {
		offset, line int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4},
	}
	for _, tt := range tests {
		if got := c.LineAt(tt.offset); got != tt.line {
			t.Errorf("LineAt(%d) = %d, want %d", tt.offset, got, tt.line)
		}
	}
}

func TestChunkU16Operands(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpConstant, 1)
	c.WriteU16(0x1234, 1)

	if got := c.ReadU16(1); got != 0x1234 {
		t.Errorf("ReadU16 = 0x%04x, want 0x1234", got)
	}
}

func TestChunkConstantPools(t *testing.T) {
	table := NewStringTable()
	c := NewChunk()

	if idx := c.AddNumber(1.5); idx != 0 {
		t.Errorf("first number index = %d, want 0", idx)
	}
	if idx := c.AddNumber(2.5); idx != 1 {
		t.Errorf("second number index = %d, want 1", idx)
	}
	if idx := c.AddString(table.Intern("s")); idx != 0 {
		t.Errorf("first string index = %d, want 0", idx)
	}
	f := &Function{Name: table.Intern("f"), Chunk: NewChunk()}
	if idx := c.AddFunction(f); idx != 0 {
		t.Errorf("first function index = %d, want 0", idx)
	}
}

func TestChunkDeepEqLineSensitivity(t *testing.T) {
	a := NewChunk()
	a.WriteOp(OpNil, 1)
	b := NewChunk()
	b.WriteOp(OpNil, 2)

	if a.DeepEq(b) {
		t.Error("chunks with different line tables should not be deep-equal")
	}

	c := NewChunk()
	c.WriteOp(OpNil, 1)
	if !a.DeepEq(c) {
		t.Error("identically built chunks should be deep-equal")
	}
}

func TestChunkDeepEqStringPool(t *testing.T) {
	table := NewStringTable()

	a := NewChunk()
	a.AddString(table.Intern("x"))
	b := NewChunk()
	b.AddString(table.Intern("x"))
	c := NewChunk()
	c.AddString(table.Intern("y"))

	if !a.DeepEq(b) {
		t.Error("equal string pools should be deep-equal")
	}
	if a.DeepEq(c) {
		t.Error("different string pools should not be deep-equal")
	}

	// Content, not handle identity: the same text interned elsewhere
	// still compares equal.
	other := NewChunk()
	other.AddString(NewStringTable().Intern("x"))
	if !a.DeepEq(other) {
		t.Error("same text across tables should be deep-equal")
	}
}

func TestChunkDeepEqNil(t *testing.T) {
	c := NewChunk()
	if c.DeepEq(nil) {
		t.Error("chunk should not equal nil")
	}
	var a, b *Chunk
	if !a.DeepEq(b) {
		t.Error("two nil chunks should be deep-equal")
	}
}
