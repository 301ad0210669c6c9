package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
	"github.com/kos-lang/kos/sema"
)

// compileTopLevel compiles program's own statements into the module's
// implicit top-level function — the frame the resolver builds over the
// Program node itself — and returns its reserved constant-pool index for
// module.CompiledModule.TopLevelFunc.
func (g *Generator) compileTopLevel(program *ast.Node) int {
	scope := g.unit.Scope(scopeOf(program))
	frame := g.unit.Frame(scope.OwningFrame)

	cf := &constant.CompiledFunction{NameIndex: -1, DefLine: 1}
	idx := g.reserveFunction(frame, cf)
	f := g.newFnGen(nil, scope.OwningFrame, frame, cf)

	g.enterScope(f, frame.Scope, 1)

	first := program.Children
	for first != nil && first.Kind == ast.Import {
		first = first.Next
	}
	g.compileStmtList(f, first)

	g.emitImplicitReturn(f)
	g.finishCompiledFunction(f, cf)
	return idx
}

// compileFunctionBody compiles fnNode (a FunctionLiteral) into a fresh
// CompiledFunction constant nested under parent, wiring its capture
// prologue and argument placement before compiling its body statements.
// nameIdx is the constant-pool string index to record as the function's
// display name, or -1 for an anonymous function.
func (g *Generator) compileFunctionBody(parent *fnGen, fnNode *ast.Node, nameIdx int) int {
	scope := g.unit.Scope(scopeOf(fnNode))
	frame := g.unit.Frame(scope.OwningFrame)

	cf := &constant.CompiledFunction{
		NameIndex:   nameIdx,
		DefLine:     fnNode.Token.Pos.Line,
		IsClosure:   len(frame.ScopeRefs) > 0,
		HasEllipsis: scope.HaveRest,
	}
	idx := g.reserveFunction(frame, cf)
	f := g.newFnGen(parent, scope.OwningFrame, frame, cf)

	g.bindCaptures(f, parent)
	g.emitPrologue(f, scope)

	var params, body *ast.Node
	for c := fnNode.Children; c != nil; c = c.Next {
		switch c.Kind {
		case ast.Parameters:
			params = c
		case ast.Block:
			body = c
		}
	}
	if params != nil {
		for c := params.Children; c != nil; c = c.Next {
			if c.Kind == ast.Name && c.Children != nil {
				cf.DeclaredDefaults++
			}
		}
	}
	if body != nil {
		g.compileStmtList(f, body.Children)
	}

	g.emitImplicitReturn(f)
	g.finishCompiledFunction(f, cf)
	return idx
}

// emitImplicitReturn appends the `return void;` every function falls into
// if its body runs off the end without an explicit return.
func (g *Generator) emitImplicitReturn(f *fnGen) {
	reg := f.alloc()
	f.emit(f.lastLine, bytecode.OpLoadVoid, reg)
	f.emit(f.lastLine, bytecode.OpReturn, reg)
}

// finishCompiledFunction fills in the calling-convention metadata this
// generator keeps fixed across every function, then hands the body off to
// the Generator's constant-pool bookkeeping.
func (g *Generator) finishCompiledFunction(f *fnGen, cf *constant.CompiledFunction) {
	cf.NumRegs = f.maxRegs()
	cf.MinArgs = f.scope.NumArgs
	cf.ClosureSize = len(cf.Captures)
	cf.ArgsReg = argsReg
	cf.ThisReg = thisReg
	cf.RestReg = argsReg
	cf.EllipsisReg = -1
	if f.scope.HaveRest {
		cf.EllipsisReg = argsReg
	}
	// Neither OpBindSelf nor OpBindDefaults is emitted by this generator
	// (see package doc in codegen.go); BindReg has nothing to name.
	cf.BindReg = -1
	g.finishFunction(cf, f.ins, f.lines)
}

// bindCaptures emits one OpBind per entry of f.frame.ScopeRefs — the
// env-object registers a nested closure needs before its body can read or
// write any variable captured from an enclosing scope — and records the
// resulting constant.CaptureSlot list on f.fn.Captures.
func (g *Generator) bindCaptures(f *fnGen, parent *fnGen) {
	if parent == nil {
		return
	}
	line := f.fn.DefLine
	for _, ref := range f.frame.ScopeRefs {
		fromScope := g.unit.Scope(ref.FromScope)

		var slot constant.CaptureSlot
		if fromScope.OwningFrame == parent.frameID {
			envReg, ok := parent.envOf[ref.FromScope]
			if !ok {
				g.errorf(fromScope.Node.Token.Pos, "internal: enclosing function has no capture record for a scope it owns directly")
			}
			slot = constant.CaptureSlot{FromParentReg: true, Index: envReg}
		} else {
			idx, ok := parent.captureIndex[ref.FromScope]
			if !ok {
				g.errorf(fromScope.Node.Token.Pos, "internal: enclosing function does not thread a capture chain for this scope")
			}
			slot = constant.CaptureSlot{FromParentReg: false, Index: idx}
		}

		f.captureIndex[ref.FromScope] = len(f.fn.Captures)
		f.fn.Captures = append(f.fn.Captures, slot)

		dst := f.alloc()
		f.emit(line, bytecode.OpBind, dst, len(f.fn.Captures)-1)
		f.envOf[ref.FromScope] = dst
	}
}

// emitPrologue builds f's own capture record (if its scope declares any
// independent variable or argument) and places every declared parameter
// — in-register, overflow-array, or `...rest` — into its final storage.
func (g *Generator) emitPrologue(f *fnGen, scope *sema.Scope) {
	line := f.fn.DefLine
	g.enterScope(f, f.frame.Scope, line)

	for _, vid := range scope.Vars {
		v := g.unit.Var(vid)
		if v.Type != sema.VarTypeArgument {
			continue
		}
		if v.IsEllipsis {
			g.emitEllipsisPrologue(f, vid, line)
			continue
		}
		g.emitParamPrologue(f, vid, v, line)
	}
}

func (g *Generator) emitParamPrologue(f *fnGen, vid sema.VarID, v *sema.Variable, line int32) {
	switch v.Class {
	case sema.ClassArgumentInReg:
		f.regOf[vid] = v.Index
	case sema.ClassIndependentArgInReg:
		envReg := f.envOf[v.Scope]
		f.emit(line, bytecode.OpSetProp, envReg, g.pool.Str(v.Name, false), v.Index)
	case sema.ClassArgument:
		f.regOf[vid] = g.loadOverflowArg(f, v, line)
	case sema.ClassIndependentArgument:
		tmp := g.loadOverflowArg(f, v, line)
		envReg := f.envOf[v.Scope]
		f.emit(line, bytecode.OpSetProp, envReg, g.pool.Str(v.Name, false), tmp)
		f.release(tmp)
	default:
		g.errorf(v.Token.Pos, "internal: parameter %q has unresolved storage class", v.Name)
	}
}

func (g *Generator) emitEllipsisPrologue(f *fnGen, vid sema.VarID, line int32) {
	v := g.unit.Var(vid)
	if v.IsIndependent() {
		envReg, ok := f.envOf[v.Scope]
		if ok {
			f.emit(line, bytecode.OpSetProp, envReg, g.pool.Str(v.Name, false), argsReg)
		}
		return
	}
	f.regOf[vid] = argsReg
}

// loadOverflowArg reads the value of an argument beyond the in-register
// block out of the overflow-argument array at v.Index, returning a fresh
// register holding it.
func (g *Generator) loadOverflowArg(f *fnGen, v *sema.Variable, line int32) int {
	idxReg := f.alloc()
	f.emit(line, bytecode.OpLoadInt8, idxReg, v.Index)
	dst := f.alloc()
	f.emit(line, bytecode.OpGetElem, dst, argsReg, idxReg)
	f.release(idxReg)
	return dst
}
