package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// Disassemble renders a chunk's bytecode as human-readable text, one
// instruction per line, prefixed by offset and source line. Nested
// functions are disassembled recursively after the outer chunk.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	disassembleChunk(&b, c, name)
	return b.String()
}

func disassembleChunk(b *strings.Builder, c *Chunk, name string) {
	fmt.Fprintf(b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = disassembleInstruction(b, c, offset)
	}
	for _, f := range c.Functions {
		disassembleChunk(b, f.Chunk, f.Stringify())
	}
}

// DisassembleInstruction renders the single instruction at offset and
// returns the offset of the next one.
func DisassembleInstruction(c *Chunk, offset int) (string, int) {
	var b strings.Builder
	next := disassembleInstruction(&b, c, offset)
	return strings.TrimSuffix(b.String(), "\n"), next
}

func disassembleInstruction(b *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	line := c.LineAt(offset)
	if offset > 0 && line == c.LineAt(offset-1) {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(b, "%4d ", line)
	}

	op := Opcode(c.Code[offset])
	switch op {
	case OpNop, OpPop, OpPrint, OpReturn,
		OpNil, OpTrue, OpFalse,
		OpAdd, OpSubtract, OpMultiply, OpDivide,
		OpNegate, OpNot, OpEqual, OpGreater, OpLess,
		OpCloseUpvalue:
		fmt.Fprintf(b, "%s\n", opName(op))
		return offset + 1

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		fmt.Fprintf(b, "%-16s %4d\n", opName(op), c.Code[offset+1])
		return offset + 2

	case OpConstant:
		idx := c.ReadU16(offset + 1)
		fmt.Fprintf(b, "%-16s %4d  %s\n", opName(op), idx,
			strconv.FormatFloat(c.Numbers[idx], 'g', -1, 64))
		return offset + 3

	case OpString, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		idx := c.ReadU16(offset + 1)
		fmt.Fprintf(b, "%-16s %4d  %q\n", opName(op), idx, c.Strings[idx].String())
		return offset + 3

	case OpJump, OpJumpIfFalse:
		jump := int(c.ReadU16(offset + 1))
		fmt.Fprintf(b, "%-16s %4d -> %d\n", opName(op), offset, offset+3+jump)
		return offset + 3

	case OpLoop:
		jump := int(c.ReadU16(offset + 1))
		fmt.Fprintf(b, "%-16s %4d -> %d\n", opName(op), offset, offset+3-jump)
		return offset + 3

	case OpClosure:
		idx := c.ReadU16(offset + 1)
		f := c.Functions[idx]
		fmt.Fprintf(b, "%-16s %4d  %s\n", opName(op), idx, f.Stringify())
		next := offset + 3
		for range f.Upvalues {
			isLocal, index := c.Code[next], c.Code[next+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(b, "%04d    |   %-7s %d\n", next, kind, index)
			next += 2
		}
		return next

	default:
		fmt.Fprintf(b, "unknown opcode 0x%02x\n", byte(op))
		return offset + 1
	}
}

func opName(op Opcode) string {
	switch op {
	case OpNop:
		return "OpNop"
	case OpPop:
		return "OpPop"
	case OpPrint:
		return "OpPrint"
	case OpReturn:
		return "OpReturn"
	case OpConstant:
		return "OpConstant"
	case OpString:
		return "OpString"
	case OpNil:
		return "OpNil"
	case OpTrue:
		return "OpTrue"
	case OpFalse:
		return "OpFalse"
	case OpGetLocal:
		return "OpGetLocal"
	case OpSetLocal:
		return "OpSetLocal"
	case OpDefineGlobal:
		return "OpDefineGlobal"
	case OpGetGlobal:
		return "OpGetGlobal"
	case OpSetGlobal:
		return "OpSetGlobal"
	case OpGetUpvalue:
		return "OpGetUpvalue"
	case OpSetUpvalue:
		return "OpSetUpvalue"
	case OpAdd:
		return "OpAdd"
	case OpSubtract:
		return "OpSubtract"
	case OpMultiply:
		return "OpMultiply"
	case OpDivide:
		return "OpDivide"
	case OpNegate:
		return "OpNegate"
	case OpNot:
		return "OpNot"
	case OpEqual:
		return "OpEqual"
	case OpGreater:
		return "OpGreater"
	case OpLess:
		return "OpLess"
	case OpJump:
		return "OpJump"
	case OpJumpIfFalse:
		return "OpJumpIfFalse"
	case OpLoop:
		return "OpLoop"
	case OpCall:
		return "OpCall"
	case OpClosure:
		return "OpClosure"
	case OpCloseUpvalue:
		return "OpCloseUpvalue"
	default:
		return fmt.Sprintf("Op(0x%02x)", byte(op))
	}
}
