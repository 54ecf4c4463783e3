// Package image defines the wire format and storage for compiled glox
// functions. Images are CBOR-encoded, canonical so that equal functions
// encode to equal bytes, and content-addressed by SHA-256 of that
// encoding.
package image

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/glox/vm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// FunctionImage is the serializable form of a compiled function.
// Interned strings are denormalized to text; loading re-interns them
// against the receiving runtime's table.
type FunctionImage struct {
	Name     string
	Arity    int
	Upvalues []UpvalueImage
	Chunk    ChunkImage
}

// UpvalueImage mirrors vm.Upvalue.
type UpvalueImage struct {
	Index   int
	IsLocal bool
}

// ChunkImage mirrors vm.Chunk with nested functions inlined.
type ChunkImage struct {
	Code      []byte
	Numbers   []float64
	Strings   []string
	Functions []FunctionImage
	Lines     []LineImage
}

// LineImage mirrors vm.LineStart.
type LineImage struct {
	Offset int
	Line   int
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// FromFunction converts a compiled function to its wire form.
func FromFunction(f *vm.Function) FunctionImage {
	img := FunctionImage{
		Name:  f.Name.String(),
		Arity: f.Arity,
		Chunk: fromChunk(f.Chunk),
	}
	for _, u := range f.Upvalues {
		img.Upvalues = append(img.Upvalues, UpvalueImage{Index: u.Index, IsLocal: u.IsLocal})
	}
	return img
}

func fromChunk(c *vm.Chunk) ChunkImage {
	img := ChunkImage{
		Code:    c.Code,
		Numbers: c.Numbers,
	}
	for _, s := range c.Strings {
		img.Strings = append(img.Strings, s.String())
	}
	for _, f := range c.Functions {
		img.Functions = append(img.Functions, FromFunction(f))
	}
	for _, l := range c.Lines {
		img.Lines = append(img.Lines, LineImage{Offset: l.Offset, Line: l.Line})
	}
	return img
}

// Function materializes the wire form against the given intern table.
func (img FunctionImage) Function(table *vm.StringTable) *vm.Function {
	f := &vm.Function{
		Name:  table.Intern(img.Name),
		Arity: img.Arity,
		Chunk: img.Chunk.chunk(table),
	}
	for _, u := range img.Upvalues {
		f.Upvalues = append(f.Upvalues, vm.Upvalue{Index: u.Index, IsLocal: u.IsLocal})
	}
	return f
}

func (img ChunkImage) chunk(table *vm.StringTable) *vm.Chunk {
	c := &vm.Chunk{
		Code:    img.Code,
		Numbers: img.Numbers,
	}
	for _, s := range img.Strings {
		c.Strings = append(c.Strings, table.Intern(s))
	}
	for _, fi := range img.Functions {
		c.Functions = append(c.Functions, fi.Function(table))
	}
	for _, l := range img.Lines {
		c.Lines = append(c.Lines, vm.LineStart{Offset: l.Offset, Line: l.Line})
	}
	return c
}

// ---------------------------------------------------------------------------
// Marshalling
// ---------------------------------------------------------------------------

// MarshalFunction serializes a compiled function to canonical CBOR bytes.
func MarshalFunction(f *vm.Function) ([]byte, error) {
	return cborEncMode.Marshal(FromFunction(f))
}

// UnmarshalFunction deserializes a function image, interning its strings
// into table.
func UnmarshalFunction(data []byte, table *vm.StringTable) (*vm.Function, error) {
	var img FunctionImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal function: %w", err)
	}
	return img.Function(table), nil
}

// ContentHash returns the SHA-256 digest of f's canonical encoding.
// Equal functions (vm.Function.DeepEq) hash identically.
func ContentHash(f *vm.Function) ([32]byte, error) {
	data, err := MarshalFunction(f)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
