package vm

import "encoding/binary"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack operations
const (
	OpNop    Opcode = 0x00 // no operation
	OpPop    Opcode = 0x01 // discard top of stack
	OpPrint  Opcode = 0x02 // print top of stack
	OpReturn Opcode = 0x03 // return from the current call
)

// Constants
const (
	OpConstant Opcode = 0x10 // push numeric constant (16-bit pool index)
	OpString   Opcode = 0x11 // push string constant (16-bit pool index)
	OpNil      Opcode = 0x12 // push nil
	OpTrue     Opcode = 0x13 // push true
	OpFalse    Opcode = 0x14 // push false
)

// Variable operations
const (
	OpGetLocal     Opcode = 0x20 // push local (8-bit slot)
	OpSetLocal     Opcode = 0x21 // store into local (8-bit slot)
	OpDefineGlobal Opcode = 0x22 // define global (16-bit name index)
	OpGetGlobal    Opcode = 0x23 // push global (16-bit name index)
	OpSetGlobal    Opcode = 0x24 // store into global (16-bit name index)
	OpGetUpvalue   Opcode = 0x25 // push captured variable (8-bit index)
	OpSetUpvalue   Opcode = 0x26 // store into captured variable (8-bit index)
)

// Arithmetic and comparison
const (
	OpAdd      Opcode = 0x30
	OpSubtract Opcode = 0x31
	OpMultiply Opcode = 0x32
	OpDivide   Opcode = 0x33
	OpNegate   Opcode = 0x34
	OpNot      Opcode = 0x35
	OpEqual    Opcode = 0x36
	OpGreater  Opcode = 0x37
	OpLess     Opcode = 0x38
)

// Control flow
const (
	OpJump        Opcode = 0x40 // unconditional forward jump (16-bit offset)
	OpJumpIfFalse Opcode = 0x41 // forward jump when top of stack is falsy
	OpLoop        Opcode = 0x42 // backward jump (16-bit offset)
	OpCall        Opcode = 0x43 // call callee with argc args (8-bit argc)
)

// Closures
const (
	// OpClosure pushes a closure over the function at the 16-bit pool
	// index. It is followed by one (isLocal, index) byte pair per
	// declared upvalue of that function.
	OpClosure      Opcode = 0x50
	OpCloseUpvalue Opcode = 0x51 // promote the top open upvalue to the heap
)

// ---------------------------------------------------------------------------
// Chunk: bytecode and constant pools
// ---------------------------------------------------------------------------

// LineStart marks the first bytecode offset belonging to a source line.
// The line table is run-length encoded: a run lasts until the next entry.
type LineStart struct {
	Offset int
	Line   int
}

// Chunk is one compiled unit's bytecode stream plus its constant pools.
// The compiler fills it once; the runtime only reads it.
type Chunk struct {
	Code      []byte
	Numbers   []float64        // numeric constant pool
	Strings   []InternedString // string constant pool
	Functions []*Function      // nested function pool; this is their canonical owner
	Lines     []LineStart
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends a raw byte, recording the source line.
func (c *Chunk) Write(b byte, line int) {
	if n := len(c.Lines); n == 0 || c.Lines[n-1].Line != line {
		c.Lines = append(c.Lines, LineStart{Offset: len(c.Code), Line: line})
	}
	c.Code = append(c.Code, b)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteU16 appends a 16-bit big-endian operand.
func (c *Chunk) WriteU16(v uint16, line int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.Write(buf[0], line)
	c.Write(buf[1], line)
}

// ReadU16 decodes the 16-bit operand at offset.
func (c *Chunk) ReadU16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset : offset+2])
}

// AddNumber appends a numeric constant, returning its pool index.
func (c *Chunk) AddNumber(n float64) int {
	c.Numbers = append(c.Numbers, n)
	return len(c.Numbers) - 1
}

// AddString appends a string constant, returning its pool index.
func (c *Chunk) AddString(s InternedString) int {
	c.Strings = append(c.Strings, s)
	return len(c.Strings) - 1
}

// AddFunction appends a nested function, returning its pool index.
func (c *Chunk) AddFunction(f *Function) int {
	c.Functions = append(c.Functions, f)
	return len(c.Functions) - 1
}

// LineAt returns the source line for a bytecode offset, or 0 when the
// chunk carries no line information.
func (c *Chunk) LineAt(offset int) int {
	line := 0
	for _, ls := range c.Lines {
		if ls.Offset > offset {
			break
		}
		line = ls.Line
	}
	return line
}

// DeepEq compares chunk content: bytecode, constant pools and nested
// functions. Line tables are compared too; golden tests fix the source
// they compile, so line drift is a real difference.
func (c *Chunk) DeepEq(o *Chunk) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.Code) != len(o.Code) ||
		len(c.Numbers) != len(o.Numbers) ||
		len(c.Strings) != len(o.Strings) ||
		len(c.Functions) != len(o.Functions) ||
		len(c.Lines) != len(o.Lines) {
		return false
	}
	for i, b := range c.Code {
		if b != o.Code[i] {
			return false
		}
	}
	for i, n := range c.Numbers {
		if n != o.Numbers[i] {
			return false
		}
	}
	for i, s := range c.Strings {
		if !s.Equal(o.Strings[i]) {
			return false
		}
	}
	for i, f := range c.Functions {
		if !f.DeepEq(o.Functions[i]) {
			return false
		}
	}
	for i, l := range c.Lines {
		if l != o.Lines[i] {
			return false
		}
	}
	return true
}
