package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
	"github.com/kos-lang/kos/sema"
)

// fnGen holds the emission state for one function's body — the register-
// based analogue of the teacher's CompilationScope, one per nested
// FunctionLiteral (plus one standing for the module's implicit top-level
// function).
type fnGen struct {
	g      *Generator
	parent *fnGen

	frameID sema.FrameID
	frame   *sema.Frame
	scope   *sema.Scope
	fn      *constant.CompiledFunction

	ins      bytecode.Instructions
	lines    bytecode.LineMap
	lastLine int32

	nextReg int
	free    []int

	// regOf holds, for every plain Local/Argument-class variable declared
	// directly in a scope this function owns, the register holding its raw
	// value. Independent* variables have no entry here: their values live
	// in their scope's capture record, see envOf.
	regOf map[sema.VarID]int

	// envOf maps a ScopeID to the register holding that scope's capture
	// record (an object built with OpLoadObj), for every scope reachable
	// from this function without crossing a frame boundary: either a
	// scope this function itself owns (a block, the function's own
	// top-level scope) or one captured from an enclosing frame via
	// captureIndex.
	envOf map[sema.ScopeID]int

	// captureIndex maps a ScopeID this function captures from an
	// enclosing frame to its position in fn.Captures, for frames further
	// out than this function's own parent to chain through (spec.md
	// §4.6: "each intermediate function needs its own vars_reg").
	captureIndex map[sema.ScopeID]int

	breakFixups    [][]int
	continueFixups [][]int

	// deferStack holds the handler expressions of every `defer` whose
	// protected region encloses the current emission point, outermost
	// first; compileReturn replays them before the frame is torn down.
	deferStack []*ast.Node
}

func (g *Generator) newFnGen(parent *fnGen, frameID sema.FrameID, frame *sema.Frame, fn *constant.CompiledFunction) *fnGen {
	return &fnGen{
		g:            g,
		parent:       parent,
		frameID:      frameID,
		frame:        frame,
		scope:        g.unit.Scope(frame.Scope),
		fn:           fn,
		nextReg:      firstFreeReg,
		regOf:        make(map[sema.VarID]int),
		envOf:        make(map[sema.ScopeID]int),
		captureIndex: make(map[sema.ScopeID]int),
	}
}

// --- break/continue fixups ---
//
// Each loop pushes its own pair of fixup slices; a switch pushes only a
// break slice, so a bare `continue` inside a switch still targets the
// nearest enclosing loop. Recorded positions are the jump's own
// jumpoffset32 operand position, ready for patchJump/patchJumpHere.

func (f *fnGen) pushBreakFixups()    { f.breakFixups = append(f.breakFixups, nil) }
func (f *fnGen) pushContinueFixups() { f.continueFixups = append(f.continueFixups, nil) }

func (f *fnGen) popBreakFixups() []int {
	n := len(f.breakFixups)
	b := f.breakFixups[n-1]
	f.breakFixups = f.breakFixups[:n-1]
	return b
}

func (f *fnGen) popContinueFixups() []int {
	n := len(f.continueFixups)
	c := f.continueFixups[n-1]
	f.continueFixups = f.continueFixups[:n-1]
	return c
}

func (f *fnGen) recordBreak(pos int) {
	n := len(f.breakFixups)
	f.breakFixups[n-1] = append(f.breakFixups[n-1], pos)
}

func (f *fnGen) recordContinue(pos int) {
	n := len(f.continueFixups)
	f.continueFixups[n-1] = append(f.continueFixups[n-1], pos)
}

// --- registers ---

// alloc returns a fresh temporary register, reusing a freed one if
// available.
func (f *fnGen) alloc() int {
	if n := len(f.free); n > 0 {
		r := f.free[n-1]
		f.free = f.free[:n-1]
		return r
	}
	r := f.nextReg
	f.nextReg++
	return r
}

// allocBlock returns the base of n contiguous fresh registers — required
// for call argument marshalling (OpCall's args sit at base..base+argc-1).
// It never reuses freed registers, since those are not guaranteed
// contiguous.
func (f *fnGen) allocBlock(n int) int {
	base := f.nextReg
	f.nextReg += n
	return base
}

// release returns r to the free list. Only ever called on registers known
// to hold a dead temporary — a variable's permanent register, or a
// register inside an allocBlock range, is never released mid-function.
func (f *fnGen) release(r int) {
	f.free = append(f.free, r)
}

func (f *fnGen) maxRegs() int {
	return f.nextReg
}

// --- emission ---

func (f *fnGen) pos() int { return len(f.ins) }

func (f *fnGen) emitLine(line int32) {
	f.lines = f.lines.Append(f.pos(), line)
	f.lastLine = line
}

// emit appends one instruction at the current source line, returning its
// byte offset.
func (f *fnGen) emit(line int32, op bytecode.Opcode, operands ...int) int {
	f.emitLine(line)
	pos := f.pos()
	f.ins = append(f.ins, bytecode.Make(op, operands...)...)
	return pos
}

// emitJump emits a jump-family instruction with a placeholder offset,
// returning the byte position of its jumpoffset32 operand so a later call
// to patchJump can fill in the real displacement once it is known — the
// teacher's bogus-9999-then-changeOperand idiom, adapted to a 4-byte
// PC-relative field instead of a rewritten stack-opcode operand.
func (f *fnGen) emitJump(line int32, op bytecode.Opcode, operands ...int) int {
	f.emit(line, op, operands...)
	// The jump offset is always the final operand and always 4 bytes
	// wide; its byte position is the instruction's end minus that width.
	return f.pos() - 4
}

// patchJump overwrites the jump offset at operandPos so the jump lands at
// target, PC-relative to the address immediately after the jump
// instruction's offset field (operandPos+4).
func (f *fnGen) patchJump(operandPos, target int) {
	bytecode.PatchJump(f.ins, operandPos, int32(target-(operandPos+4)))
}

// patchJumpHere patches the jump at operandPos to land at the current end
// of the instruction stream.
func (f *fnGen) patchJumpHere(operandPos int) {
	f.patchJump(operandPos, f.pos())
}
