// Package bytecode defines the register-based instruction set the code
// generator emits and the disassembler reads back (spec.md §6.2).
//
// Grounded on the teacher's (dr8co/kong) code/code.go: an Opcode byte, a
// Definition table keyed by Opcode carrying operand widths, a Make
// constructor, and an Instructions.String() disassembler. The instruction
// shape itself is not the teacher's stack-machine one — Kos's VM is
// register-based, so every arithmetic/comparison/bitwise opcode here takes
// a destination register plus one or two source registers instead of
// popping an implicit stack, and jump operands are signed PC-relative
// displacements rather than absolute positions.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a contiguous run of encoded instructions, the code half
// of a compiled function's [Definition]-driven byte stream.
type Instructions []byte

// Opcode identifies one bytecode operation. Families mirror spec.md §6.2's
// exhaustive list: loads, moves, element/property/global access,
// arithmetic, bitwise, shift, comparison, has-deep/has-shallow, instanceof,
// control flow, closures, calls, and the exception-handling family.
type Opcode byte

//nolint:revive
const (
	// --- Loads ---

	OpLoadConst Opcode = iota // dst:reg, idx:constidx16
	OpLoadInt8                // dst:reg, imm:int8
	OpLoadFun                 // dst:reg, idx:constidx16 (Function constant)
	OpLoadTrue                // dst:reg
	OpLoadFalse               // dst:reg
	OpLoadVoid                // dst:reg
	OpLoadArray               // dst:reg, count:uint8 (elements in dst..dst+count-1)
	OpLoadObj                 // dst:reg
	OpLoadIter                // dst:reg, src:reg — fetch an iterator over src (for-in)

	// --- Register movement ---

	OpMove // dst:reg, src:reg

	// --- Element / property / global access ---

	OpGetElem         // dst:reg, obj:reg, idx:reg
	OpSetElem         // obj:reg, idx:reg, val:reg
	OpGetProp         // dst:reg, obj:reg, name:constidx16
	OpSetProp         // obj:reg, name:constidx16, val:reg
	OpGetGlobal       // dst:reg, idx:uint16
	OpSetGlobal       // idx:uint16, src:reg
	OpGetModuleGlobal // dst:reg, module:uint8, idx:uint16

	// --- Arithmetic ---

	OpAdd // dst:reg, a:reg, b:reg
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg // dst:reg, a:reg

	// --- Bitwise ---

	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot // dst:reg, a:reg

	// --- Shift ---

	OpShl
	OpShr  // arithmetic (sign-extending) right shift
	OpShrU // logical (zero-filling) right shift

	// --- Logical ---

	OpLogNot // dst:reg, a:reg

	// --- Comparison ---

	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe

	// --- Property existence / type tests ---

	OpHasDeep     // dst:reg, obj:reg, name:constidx16 — walks the prototype chain
	OpHasShallow  // dst:reg, obj:reg, name:constidx16 — own property only
	OpInstanceOf  // dst:reg, a:reg, proto:reg
	OpTypeof      // dst:reg, a:reg

	// --- Control flow ---

	OpJump     // offset:jumpoffset32, PC-relative to the address after this instruction
	OpJumpCond // cond:reg, sense:uint8 (0 = jump if falsy, 1 = jump if truthy), offset:jumpoffset32
	OpNextJump // dst:reg, gen:reg, offset:jumpoffset32 — advance a generator/iterator into dst, jump if exhausted

	// --- Closures ---

	OpBind         // dst:reg, idx:uint16 — bind the idx'th entry of the running closure's captured-box list (constant.CompiledFunction.Captures) into dst
	OpBindSelf     // dst:reg — bind the enclosing const function's own closure box
	OpBindDefaults // fun:reg, idx:constidx16 — attach evaluated default-argument values

	// --- Calls ---

	OpCall         // dst:reg, fun:reg, base:reg, argc:uint8
	OpCallFun      // dst:reg, idx:constidx16, base:reg, argc:uint8 — direct-call (const function) optimization
	OpCallN        // dst:reg, fun:reg, base:reg, argc:uint8, nargc:uint8 — trailing named arguments
	OpTailCall     // fun:reg, base:reg, argc:uint8
	OpTailCallFun  // idx:constidx16, base:reg, argc:uint8
	OpTailCallN    // fun:reg, base:reg, argc:uint8, nargc:uint8

	// --- Returns / generators / exceptions ---

	OpReturn     // src:reg
	OpYield      // src:reg
	OpThrow      // src:reg
	OpCatch      // exc:reg, offset:jumpoffset32 — push a catch handler; an unwinding exception is written to exc before the jump is taken
	OpCancel     // pop the innermost catch handler
	OpBreakpoint // no operands — hit by KOSDISASM-style debugging tooling
)

// OperandKind distinguishes how an operand byte range should be interpreted:
// a register index, an unsigned immediate, a signed immediate, a
// constant-pool index, or a PC-relative jump displacement. The disassembler
// and the code generator's jump-fixup logic both key off this.
type OperandKind int

//nolint:revive
const (
	KindReg OperandKind = iota
	KindUint8
	KindInt8
	KindConstIdx16
	KindUint16
	KindJumpOffset32
)

// Definition describes one opcode's name and the width/kind of each of its
// operands, in encoding order — the "fixed table" spec.md §6.2 calls
// get_operand_size.
type Definition struct {
	Name    string
	Widths  []int
	Kinds   []OperandKind
}

func widthOf(k OperandKind) int {
	switch k {
	case KindReg, KindUint8, KindInt8:
		return 1
	case KindConstIdx16, KindUint16:
		return 2
	case KindJumpOffset32:
		return 4
	default:
		return 0
	}
}

func def(name string, kinds ...OperandKind) *Definition {
	widths := make([]int, len(kinds))
	for i, k := range kinds {
		widths[i] = widthOf(k)
	}
	return &Definition{Name: name, Widths: widths, Kinds: kinds}
}

var definitions = map[Opcode]*Definition{
	OpLoadConst: def("OpLoadConst", KindReg, KindConstIdx16),
	OpLoadInt8:  def("OpLoadInt8", KindReg, KindInt8),
	OpLoadFun:   def("OpLoadFun", KindReg, KindConstIdx16),
	OpLoadTrue:  def("OpLoadTrue", KindReg),
	OpLoadFalse: def("OpLoadFalse", KindReg),
	OpLoadVoid:  def("OpLoadVoid", KindReg),
	OpLoadArray: def("OpLoadArray", KindReg, KindUint8),
	OpLoadObj:   def("OpLoadObj", KindReg),
	OpLoadIter:  def("OpLoadIter", KindReg, KindReg),

	OpMove: def("OpMove", KindReg, KindReg),

	OpGetElem:         def("OpGetElem", KindReg, KindReg, KindReg),
	OpSetElem:         def("OpSetElem", KindReg, KindReg, KindReg),
	OpGetProp:         def("OpGetProp", KindReg, KindReg, KindConstIdx16),
	OpSetProp:         def("OpSetProp", KindReg, KindConstIdx16, KindReg),
	OpGetGlobal:       def("OpGetGlobal", KindReg, KindUint16),
	OpSetGlobal:       def("OpSetGlobal", KindUint16, KindReg),
	OpGetModuleGlobal: def("OpGetModuleGlobal", KindReg, KindUint8, KindUint16),

	OpAdd: def("OpAdd", KindReg, KindReg, KindReg),
	OpSub: def("OpSub", KindReg, KindReg, KindReg),
	OpMul: def("OpMul", KindReg, KindReg, KindReg),
	OpDiv: def("OpDiv", KindReg, KindReg, KindReg),
	OpMod: def("OpMod", KindReg, KindReg, KindReg),
	OpNeg: def("OpNeg", KindReg, KindReg),

	OpBitAnd: def("OpBitAnd", KindReg, KindReg, KindReg),
	OpBitOr:  def("OpBitOr", KindReg, KindReg, KindReg),
	OpBitXor: def("OpBitXor", KindReg, KindReg, KindReg),
	OpBitNot: def("OpBitNot", KindReg, KindReg),

	OpShl:  def("OpShl", KindReg, KindReg, KindReg),
	OpShr:  def("OpShr", KindReg, KindReg, KindReg),
	OpShrU: def("OpShrU", KindReg, KindReg, KindReg),

	OpLogNot: def("OpLogNot", KindReg, KindReg),

	OpCmpEq: def("OpCmpEq", KindReg, KindReg, KindReg),
	OpCmpNe: def("OpCmpNe", KindReg, KindReg, KindReg),
	OpCmpLt: def("OpCmpLt", KindReg, KindReg, KindReg),
	OpCmpLe: def("OpCmpLe", KindReg, KindReg, KindReg),
	OpCmpGt: def("OpCmpGt", KindReg, KindReg, KindReg),
	OpCmpGe: def("OpCmpGe", KindReg, KindReg, KindReg),

	OpHasDeep:    def("OpHasDeep", KindReg, KindReg, KindConstIdx16),
	OpHasShallow: def("OpHasShallow", KindReg, KindReg, KindConstIdx16),
	OpInstanceOf: def("OpInstanceOf", KindReg, KindReg, KindReg),
	OpTypeof:     def("OpTypeof", KindReg, KindReg),

	OpJump:     def("OpJump", KindJumpOffset32),
	OpJumpCond: def("OpJumpCond", KindReg, KindUint8, KindJumpOffset32),
	OpNextJump: def("OpNextJump", KindReg, KindReg, KindJumpOffset32),

	OpBind:         def("OpBind", KindReg, KindUint16),
	OpBindSelf:     def("OpBindSelf", KindReg),
	OpBindDefaults: def("OpBindDefaults", KindReg, KindConstIdx16),

	OpCall:        def("OpCall", KindReg, KindReg, KindReg, KindUint8),
	OpCallFun:     def("OpCallFun", KindReg, KindConstIdx16, KindReg, KindUint8),
	OpCallN:       def("OpCallN", KindReg, KindReg, KindReg, KindUint8, KindUint8),
	OpTailCall:    def("OpTailCall", KindReg, KindReg, KindUint8),
	OpTailCallFun: def("OpTailCallFun", KindConstIdx16, KindReg, KindUint8),
	OpTailCallN:   def("OpTailCallN", KindReg, KindReg, KindUint8, KindUint8),

	OpReturn:     def("OpReturn", KindReg),
	OpYield:      def("OpYield", KindReg),
	OpThrow:      def("OpThrow", KindReg),
	OpCatch:      def("OpCatch", KindReg, KindJumpOffset32),
	OpCancel:     def("OpCancel"),
	OpBreakpoint: def("OpBreakpoint"),
}

// Lookup returns op's Definition, or an error for an unknown opcode byte —
// the "undefined opcode" failure mode a corrupted or truncated bytecode
// blob would hit.
func Lookup(op byte) (*Definition, error) {
	d, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("bytecode: opcode %d undefined", op)
	}
	return d, nil
}

// Make encodes one instruction: op followed by operands in the widths
// defined for it. Operands are truncated/sign-extended to their declared
// width exactly as the real encoder would; callers are responsible for
// range-checking register indices and constant-pool indices ahead of time
// (the register allocator and constant pool both bound theirs well inside
// a single byte / uint16 respectively).
func Make(op Opcode, operands ...int) []byte {
	d, ok := definitions[op]
	if !ok {
		return nil
	}
	length := 1
	for _, w := range d.Widths {
		length += w
	}
	ins := make([]byte, length)
	ins[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := d.Widths[i]
		switch width {
		case 1:
			ins[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(ins[offset:], uint16(operand))
		case 4:
			binary.BigEndian.PutUint32(ins[offset:], uint32(int32(operand)))
		}
		offset += width
	}
	return ins
}

// ReadOperands decodes every operand of the instruction at the head of ins
// (the opcode byte must have already been consumed by the caller),
// returning the decoded values and the number of bytes read. Signed 1-byte
// operands (KindInt8) are sign-extended; jump offsets (KindJumpOffset32)
// are decoded as signed 32-bit displacements; everything else is
// zero-extended, matching spec.md §6.2's "signed 1-byte operand slots are
// sign-extended; others are zero-extended."
func ReadOperands(d *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(d.Widths))
	offset := 0
	for i, width := range d.Widths {
		switch d.Kinds[i] {
		case KindInt8:
			operands[i] = int(int8(ins[offset]))
		case KindJumpOffset32:
			operands[i] = int(int32(binary.BigEndian.Uint32(ins[offset:])))
		case KindUint16, KindConstIdx16:
			operands[i] = int(binary.BigEndian.Uint16(ins[offset:]))
		default:
			operands[i] = int(ins[offset])
		}
		offset += width
	}
	return operands, offset
}

// ReadUint16 decodes a big-endian uint16 at the head of ins.
func ReadUint16(ins Instructions) uint16 { return binary.BigEndian.Uint16(ins) }

// ReadInt32 decodes a big-endian signed int32 at the head of ins — the
// jump-offset wire format.
func ReadInt32(ins Instructions) int32 { return int32(binary.BigEndian.Uint32(ins)) }

// PatchJump overwrites the 4-byte jump offset operand at byte offset
// operandPos within ins with offset, used by the code generator's
// back-patch pass once a jump target's address is known.
func PatchJump(ins Instructions, operandPos int, offset int32) {
	binary.BigEndian.PutUint32(ins[operandPos:], uint32(offset))
}

// String disassembles ins into one "OFFSET OpName operands..." line per
// instruction, in the spirit of the teacher's Instructions.String().
func (ins Instructions) String() string {
	var out strings.Builder
	i := 0
	for i < len(ins) {
		d, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "%04d ERROR: %s\n", i, err)
			i++
			continue
		}
		operands, read := ReadOperands(d, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, formatInstruction(d, operands))
		i += 1 + read
	}
	return out.String()
}

func formatInstruction(d *Definition, operands []int) string {
	if len(operands) != len(d.Widths) {
		return fmt.Sprintf("ERROR: operand count mismatch for %s", d.Name)
	}
	if len(operands) == 0 {
		return d.Name
	}
	parts := make([]string, len(operands))
	for i, o := range operands {
		parts[i] = fmt.Sprintf("%d", o)
	}
	return d.Name + " " + strings.Join(parts, " ")
}
