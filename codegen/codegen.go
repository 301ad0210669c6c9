// Package codegen implements the code generator of spec.md §4.6/§4.7: the
// final pass that walks a resolved, optimized, register-placed AST and
// emits the bytecode.Instructions/constant.Pool/module.CompiledModule
// triple the VM boundary consumes.
//
// Grounded on the teacher's (dr8co/kong) compiler/compiler.go: a per-
// function compilation scope stack, emit/backpatch helpers built around a
// bogus-placeholder-then-patch idiom, and enterScope/leaveScope pairing
// instruction emission with symbol-table scoping. The instruction shape
// itself is not the teacher's stack-machine one — every local binding here
// lives in a register (bytecode.KindReg operand), not on an implicit value
// stack, so "emit" speaks bytecode.Make/bytecode.PatchJump instead of the
// teacher's code.Make, and symbol lookup walks sema.Unit's scope/frame/
// variable graph instead of a SymbolTable.
package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/module"
	"github.com/kos-lang/kos/regalloc"
	"github.com/kos-lang/kos/sema"
)

// Importer resolves a cross-module symbol's compiled global slot. This is
// distinct from sema.Importer: the resolver's Importer only confirms a
// symbol exists (spec.md §4.3); by the time codegen emits an
// OpGetModuleGlobal for it, the referenced module has already finished
// compiling and the driver — which owns the module cache — is the only
// thing that knows its exact global-table layout.
type Importer interface {
	GlobalSlot(moduleIndex int, name string) (idx int, ok bool)
}

// Calling convention: a fixed block of low registers is reserved in every
// function for incoming arguments and the two pseudo-arguments no opcode
// models explicitly. Registers beyond this block are free for the
// function's own locals and temporaries. There is no real VM in this
// repository to negotiate a convention with (spec.md §1 scopes the VM out),
// so this one is invented, internally consistent, and used uniformly by
// every CompiledFunction this package emits.
const (
	// argRegBase..argRegBase+regalloc.MaxArgRegs-1 hold up to MaxArgRegs
	// in-register parameters, matching the physical register numbers
	// regalloc already assigned them (ClassArgumentInReg/
	// ClassIndependentArgInReg's Index).
	argRegBase = 0

	// argsReg holds the incoming overflow-argument array — the array-slot
	// parameters beyond MaxArgRegs, and/or a declared `...rest` parameter
	// — when the function needs one.
	argsReg = argRegBase + regalloc.MaxArgRegs

	// thisReg holds the bound receiver for a function whose scope
	// UsesThis.
	thisReg = argsReg + 1

	// firstFreeReg is the first register available for locals and
	// temporaries, whether or not this function actually uses argsReg or
	// thisReg — a small, constant amount of register waste traded for a
	// fixed, unconditional convention.
	firstFreeReg = thisReg + 1
)

// Generator turns one resolved, optimized, register-placed compilation
// unit into a module.CompiledModule.
type Generator struct {
	unit     *sema.Unit
	importer Importer
	fileID   string

	errs []*diag.Error

	pool    *constant.Pool
	globals []module.GlobalSlot

	fns    []*constant.CompiledFunction
	bodies []bytecode.Instructions
	lines  []bytecode.LineMap

	// classCtor maps a class-declaration's own variable to the constant-
	// pool index of its compiled constructor, so a later `extends Name`
	// naming it can find that constructor without re-walking the AST.
	classCtor map[sema.VarID]int
}

// New creates a Generator over a fully resolved, optimized, and register-
// placed unit. importer may be nil if the module imports nothing.
func New(unit *sema.Unit, importer Importer, fileID string) *Generator {
	return &Generator{
		unit:      unit,
		importer:  importer,
		fileID:    fileID,
		pool:      constant.New(),
		classCtor: make(map[sema.VarID]int),
	}
}

// Generate compiles program (the ast.Program node the resolver walked) into
// a CompiledModule. importedModules is the name-to-index table the driver
// built while resolving this unit's `import` statements (spec.md §6.1).
func (g *Generator) Generate(program *ast.Node, importedModules map[string]int) (*module.CompiledModule, []*diag.Error) {
	g.assignGlobalSlots()

	topIdx := g.compileTopLevel(program)
	if len(g.errs) > 0 {
		return nil, g.errs
	}

	code, lineMap := constant.CodeBlob(g.fns, g.bodies, g.lines)

	mod := &module.CompiledModule{
		FileID:          g.fileID,
		Constants:       g.pool.All(),
		Globals:         g.globals,
		ImportedModules: importedModules,
		Code:            code,
		LineMap:         lineMap,
		TopLevelFunc:    topIdx,
	}
	return mod, g.errs
}

// assignGlobalSlots gives every ClassGlobal variable in the unit its final
// module.CompiledModule.Globals index, in declaration order — no existing
// pass does this (sema only classifies; regalloc only places arguments).
func (g *Generator) assignGlobalSlots() {
	g.unit.EachVar(func(_ sema.VarID, v *sema.Variable) {
		if v.Class != sema.ClassGlobal {
			return
		}
		v.Index = len(g.globals)
		// resolveDecl only ever assigns ClassGlobal to a `public`
		// declaration (sema/resolver.go), so every slot reaching here is
		// public by construction.
		g.globals = append(g.globals, module.GlobalSlot{Name: v.Name, Public: true})
	})
}

func (g *Generator) errorf(pos diag.Position, format string, args ...any) {
	g.errs = append(g.errs, diag.New(diag.CompileFailed, pos, format, args...))
}

// notImplemented reports a construct this code generator deliberately does
// not emit. CompileFailed, not Internal: the input is well-formed, the
// limitation is ours (spec.md §7 reserves Internal for violated
// invariants).
func (g *Generator) notImplemented(n *ast.Node, what string) {
	g.errs = append(g.errs, diag.New(diag.CompileFailed, n.Token.Pos, "%s is not supported by this code generator", what))
}

// reserveFunction allocates fn's constant-pool slot and records it on its
// owning frame before any of the function's body is compiled, so a
// self-referencing OpLoadFun or direct OpCallFun inside the body — and any
// sibling that calls it after its declaration — can always resolve its
// constant index.
func (g *Generator) reserveFunction(frame *sema.Frame, fn *constant.CompiledFunction) int {
	idx := g.pool.Func(fn)
	frame.ConstIndex = idx
	return idx
}

// finishFunction records fn's compiled body/line map at the index matching
// its position in g.fns — CodeBlob walks these three slices in lockstep.
func (g *Generator) finishFunction(fn *constant.CompiledFunction, ins bytecode.Instructions, lines bytecode.LineMap) {
	fn.NumInstructions = len(ins)
	g.fns = append(g.fns, fn)
	g.bodies = append(g.bodies, ins)
	g.lines = append(g.lines, lines)
}
