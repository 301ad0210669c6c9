package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/sema"
	"github.com/kos-lang/kos/token"
)

// compileExpr evaluates n into a freshly allocated register that the
// caller owns and must release once it is done with the value.
func (g *Generator) compileExpr(f *fnGen, n *ast.Node) int {
	dst := f.alloc()
	g.compileExprInto(f, n, dst)
	return dst
}

// compileExprInto evaluates n, writing its result into the caller-owned
// register dst.
func (g *Generator) compileExprInto(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	switch n.Kind {
	case ast.IntegerLiteral:
		if n.Operand >= -128 && n.Operand <= 127 {
			f.emit(line, bytecode.OpLoadInt8, dst, int(n.Operand))
		} else {
			f.emit(line, bytecode.OpLoadConst, dst, g.pool.Int(n.Operand))
		}
	case ast.FloatLiteral:
		f.emit(line, bytecode.OpLoadConst, dst, g.pool.Float(n.Flt))
	case ast.StringLiteral:
		f.emit(line, bytecode.OpLoadConst, dst, g.pool.Str(n.Str, n.Token.StringStyle == token.Raw))
	case ast.BooleanLiteral:
		if n.Operand != 0 {
			f.emit(line, bytecode.OpLoadTrue, dst)
		} else {
			f.emit(line, bytecode.OpLoadFalse, dst)
		}
	case ast.VoidLiteral:
		f.emit(line, bytecode.OpLoadVoid, dst)
	case ast.Identifier:
		g.compileIdentRead(f, n, dst)
	case ast.This:
		g.compileThis(f, n, dst)
	case ast.Super:
		g.notImplemented(n, "'super' expressions")
		f.emit(line, bytecode.OpLoadVoid, dst)
	case ast.InterpolatedString:
		g.compileInterpolated(f, n, dst)
	case ast.Binary:
		g.compileBinary(f, n, dst)
	case ast.Logical:
		g.compileLogical(f, n, dst)
	case ast.Unary:
		g.compileUnary(f, n, dst)
	case ast.PostfixIncDec:
		g.compilePostfixIncDec(f, n, dst)
	case ast.Ternary:
		g.compileTernary(f, n, dst)
	case ast.Typeof:
		a := g.compileExpr(f, n.Children)
		f.emit(line, bytecode.OpTypeof, dst, a)
		f.release(a)
	case ast.InstanceOf:
		cc := n.ChildSlice()
		a := g.compileExpr(f, cc[0])
		proto := g.compileExpr(f, cc[1])
		f.emit(line, bytecode.OpInstanceOf, dst, a, proto)
		f.release(proto)
		f.release(a)
	case ast.Member:
		cc := n.ChildSlice()
		if g.compileModuleMember(f, cc[0], cc[1].Str, dst, line) {
			return
		}
		obj := g.compileExpr(f, cc[0])
		f.emit(line, bytecode.OpGetProp, dst, obj, g.pool.Str(cc[1].Str, false))
		f.release(obj)
	case ast.Index:
		cc := n.ChildSlice()
		obj := g.compileExpr(f, cc[0])
		idx := g.compileExpr(f, cc[1])
		f.emit(line, bytecode.OpGetElem, dst, obj, idx)
		f.release(idx)
		f.release(obj)
	case ast.Call:
		g.compileCall(f, n, dst)
	case ast.ArrayLiteral:
		g.compileArrayLiteral(f, n, dst)
	case ast.ObjectLiteral:
		g.compileObjectLiteral(f, n, dst)
	case ast.FunctionLiteral:
		g.compileFunctionExpr(f, n, dst, "")
	case ast.ClassLiteral:
		g.compileClassLiteral(f, n, dst, "")
	case ast.Spread, ast.NamedArgument:
		g.notImplemented(n, "spread/named arguments outside of a call")
		f.emit(line, bytecode.OpLoadVoid, dst)
	case ast.Async:
		// The parser desugars `async` to an Async node wrapping an
		// invocation; only the AST shape is specified here, so the wrapped
		// invocation compiles as a plain call and the VM layer decides what
		// asynchrony means for it.
		g.compileExprInto(f, n.Children, dst)
	case ast.Yield:
		f.fn.IsGenerator = true
		if n.Children != nil {
			g.compileExprInto(f, n.Children, dst)
		} else {
			f.emit(line, bytecode.OpLoadVoid, dst)
		}
		f.emit(line, bytecode.OpYield, dst)
	default:
		g.errorf(n.Token.Pos, "internal: expression kind %d not handled by code generator", n.Kind)
		f.emit(line, bytecode.OpLoadVoid, dst)
	}
}

func (g *Generator) compileThis(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	if f.scope.UsesThis {
		f.emit(line, bytecode.OpMove, dst, thisReg)
		return
	}
	g.notImplemented(n, "'this' referenced outside of a method")
	f.emit(line, bytecode.OpLoadVoid, dst)
}

// compileIdentRead reads n's bound variable — or, if n resolved to a
// predefined global (n.IsVar false), the global table slot the resolver
// already baked into n.Operand — into dst.
func (g *Generator) compileIdentRead(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	if !n.IsVar {
		f.emit(line, bytecode.OpGetGlobal, dst, int(n.Operand))
		return
	}

	ann := n.Annotation().(*sema.VarAnnotation)
	v := g.unit.Var(ann.Var)

	switch v.Class {
	case sema.ClassLocal, sema.ClassArgument, sema.ClassArgumentInReg:
		reg := f.regOf[ann.Var]
		if reg != dst {
			f.emit(line, bytecode.OpMove, dst, reg)
		}
	case sema.ClassIndependentLocal, sema.ClassIndependentArgument, sema.ClassIndependentArgInReg:
		envReg, ok := f.envOf[v.Scope]
		if !ok {
			g.errorf(v.Token.Pos, "internal: no capture record for scope of %q", v.Name)
			f.emit(line, bytecode.OpLoadVoid, dst)
			return
		}
		f.emit(line, bytecode.OpGetProp, dst, envReg, g.pool.Str(v.Name, false))
	case sema.ClassGlobal:
		f.emit(line, bytecode.OpGetGlobal, dst, v.Index)
	case sema.ClassImported:
		slot, ok := g.importerSlot(v.Index, v.Name)
		if !ok {
			g.notImplemented(n, "a cross-module symbol this generator cannot resolve a global slot for")
			f.emit(line, bytecode.OpLoadVoid, dst)
			return
		}
		f.emit(line, bytecode.OpGetModuleGlobal, dst, v.Index, slot)
	case sema.ClassModule:
		g.notImplemented(n, "referencing an imported module as a bare value")
		f.emit(line, bytecode.OpLoadVoid, dst)
	default:
		g.errorf(v.Token.Pos, "internal: variable %q has unresolved storage class", v.Name)
		f.emit(line, bytecode.OpLoadVoid, dst)
	}
}

func (g *Generator) importerSlot(moduleIdx int, name string) (int, bool) {
	if g.importer == nil {
		return 0, false
	}
	return g.importer.GlobalSlot(moduleIdx, name)
}

// compileModuleMember handles `mod.symbol` where mod resolved to an
// imported module binding: the member is a global of that module, read
// directly through its compiled global table rather than a runtime
// property lookup. Reports whether it handled the access.
func (g *Generator) compileModuleMember(f *fnGen, obj *ast.Node, member string, dst int, line int32) bool {
	if obj.Kind != ast.Identifier || !obj.IsVar {
		return false
	}
	ann, ok := obj.Annotation().(*sema.VarAnnotation)
	if !ok {
		return false
	}
	v := g.unit.Var(ann.Var)
	if v.Class != sema.ClassModule {
		return false
	}
	slot, ok := g.importerSlot(v.Index, member)
	if !ok {
		g.errorf(obj.Token.Pos, "no global %q in module %q", member, v.Name)
		f.emit(line, bytecode.OpLoadVoid, dst)
		return true
	}
	f.emit(line, bytecode.OpGetModuleGlobal, dst, v.Index, slot)
	return true
}

// storeVarShared writes valReg into v's storage for every class that isn't
// a plain register (Independent*/Global); it never releases valReg.
func (g *Generator) storeVarShared(f *fnGen, v *sema.Variable, valReg int, line int32) {
	switch v.Class {
	case sema.ClassIndependentLocal, sema.ClassIndependentArgument, sema.ClassIndependentArgInReg:
		envReg, ok := f.envOf[v.Scope]
		if !ok {
			g.errorf(v.Token.Pos, "internal: no capture record for scope of %q", v.Name)
			return
		}
		f.emit(line, bytecode.OpSetProp, envReg, g.pool.Str(v.Name, false), valReg)
	case sema.ClassGlobal:
		f.emit(line, bytecode.OpSetGlobal, v.Index, valReg)
	default:
		g.errorf(v.Token.Pos, "internal: cannot assign variable %q of class %s", v.Name, v.Class)
	}
}

// storeDeclaredVar installs valReg as vid's value at the point it is first
// declared: adopted as its permanent register for a plain local/argument,
// or published through storeVarShared (and released) otherwise.
func (g *Generator) storeDeclaredVar(f *fnGen, vid sema.VarID, valReg int, line int32) {
	v := g.unit.Var(vid)
	// A declared variable nothing references keeps ClassUnresolved; it is
	// never captured, so a plain register holds it.
	if isLocalClass(v.Class) || v.Class == sema.ClassUnresolved {
		f.regOf[vid] = valReg
		return
	}
	g.storeVarShared(f, v, valReg, line)
	f.release(valReg)
}

// compileAssignExprTo writes the already-computed srcReg into target — an
// Identifier, Member, or Index lvalue. It never releases srcReg.
func (g *Generator) compileAssignExprTo(f *fnGen, target *ast.Node, srcReg int) {
	line := target.Token.Pos.Line
	switch target.Kind {
	case ast.Identifier:
		ann := target.Annotation().(*sema.VarAnnotation)
		v := g.unit.Var(ann.Var)
		if isLocalClass(v.Class) {
			dst := f.regOf[ann.Var]
			if dst != srcReg {
				f.emit(line, bytecode.OpMove, dst, srcReg)
			}
			return
		}
		g.storeVarShared(f, v, srcReg, line)
	case ast.Member:
		mc := target.ChildSlice()
		objReg := g.compileExpr(f, mc[0])
		f.emit(line, bytecode.OpSetProp, objReg, g.pool.Str(mc[1].Str, false), srcReg)
		f.release(objReg)
	case ast.Index:
		ic := target.ChildSlice()
		objReg := g.compileExpr(f, ic[0])
		idxReg := g.compileExpr(f, ic[1])
		f.emit(line, bytecode.OpSetElem, objReg, idxReg, srcReg)
		f.release(idxReg)
		f.release(objReg)
	default:
		g.notImplemented(target, "this assignment target")
	}
}

var binaryOpcodes = map[token.OperatorCode]bytecode.Opcode{
	token.OpAdd:    bytecode.OpAdd,
	token.OpSub:    bytecode.OpSub,
	token.OpMul:    bytecode.OpMul,
	token.OpDiv:    bytecode.OpDiv,
	token.OpMod:    bytecode.OpMod,
	token.OpBitAnd: bytecode.OpBitAnd,
	token.OpBitOr:  bytecode.OpBitOr,
	token.OpBitXor: bytecode.OpBitXor,
	token.OpShl:    bytecode.OpShl,
	token.OpShr:    bytecode.OpShr,
	token.OpShru:   bytecode.OpShrU,
	token.OpEq:     bytecode.OpCmpEq,
	token.OpNotEq:  bytecode.OpCmpNe,
	token.OpLt:     bytecode.OpCmpLt,
	token.OpLte:    bytecode.OpCmpLe,
	token.OpGt:     bytecode.OpCmpGt,
	token.OpGte:    bytecode.OpCmpGe,
}

func (g *Generator) compileBinary(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	op := token.OperatorCode(n.Operand)
	opcode, ok := binaryOpcodes[op]
	if !ok {
		g.errorf(n.Token.Pos, "internal: unsupported binary operator")
		f.emit(line, bytecode.OpLoadVoid, dst)
		return
	}
	cc := n.ChildSlice()
	a := g.compileExpr(f, cc[0])
	b := g.compileExpr(f, cc[1])
	f.emit(line, opcode, dst, a, b)
	f.release(b)
	f.release(a)
}

// compileLogical implements short-circuit && / || by evaluating the left
// operand into dst and only evaluating the right one when its value can
// still change the result.
func (g *Generator) compileLogical(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	op := token.OperatorCode(n.Operand)

	g.compileExprInto(f, cc[0], dst)
	sense := 1 // || : left truthy already decides the result
	if op == token.OpLogAnd {
		sense = 0 // && : left falsy already decides the result
	}
	shortCircuit := f.emitJump(line, bytecode.OpJumpCond, dst, sense, 0)
	g.compileExprInto(f, cc[1], dst)
	f.patchJumpHere(shortCircuit)
}

func (g *Generator) compileUnary(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	op := token.OperatorCode(n.Operand)
	switch op {
	case token.OpSub:
		a := g.compileExpr(f, n.Children)
		f.emit(line, bytecode.OpNeg, dst, a)
		f.release(a)
	case token.OpAdd:
		g.compileExprInto(f, n.Children, dst)
	case token.OpNot:
		a := g.compileExpr(f, n.Children)
		f.emit(line, bytecode.OpLogNot, dst, a)
		f.release(a)
	case token.OpBitNot:
		a := g.compileExpr(f, n.Children)
		f.emit(line, bytecode.OpBitNot, dst, a)
		f.release(a)
	case token.OpIncr, token.OpDecr:
		g.compileIncDecCommon(f, n.Children, op, dst, false, line)
	default:
		g.errorf(n.Token.Pos, "internal: unsupported unary operator")
		f.emit(line, bytecode.OpLoadVoid, dst)
	}
}

func (g *Generator) compilePostfixIncDec(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	op := token.OperatorCode(n.Operand)
	g.compileIncDecCommon(f, n.Children, op, dst, true, line)
}

// compileIncDecCommon implements both prefix and postfix ++/--: read
// target's current value, compute the updated value, write it back, and
// leave whichever of the two (old for postfix, new for prefix) the
// expression evaluates to in dst.
func (g *Generator) compileIncDecCommon(f *fnGen, target *ast.Node, op token.OperatorCode, dst int, wantOld bool, line int32) {
	oldReg := g.compileExpr(f, target)
	oneReg := f.alloc()
	f.emit(line, bytecode.OpLoadInt8, oneReg, 1)
	newReg := f.alloc()
	addOp := bytecode.OpAdd
	if op == token.OpDecr {
		addOp = bytecode.OpSub
	}
	f.emit(line, addOp, newReg, oldReg, oneReg)
	f.release(oneReg)

	if wantOld {
		if dst != oldReg {
			f.emit(line, bytecode.OpMove, dst, oldReg)
		}
	} else if dst != newReg {
		f.emit(line, bytecode.OpMove, dst, newReg)
	}

	g.compileAssignExprTo(f, target, newReg)
	f.release(newReg)
	f.release(oldReg)
}

func (g *Generator) compileTernary(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	condReg := g.compileExpr(f, cc[0])
	elseJump := f.emitJump(line, bytecode.OpJumpCond, condReg, 0, 0)
	f.release(condReg)
	g.compileExprInto(f, cc[1], dst)
	endJump := f.emitJump(line, bytecode.OpJump, 0)
	f.patchJumpHere(elseJump)
	g.compileExprInto(f, cc[2], dst)
	f.patchJumpHere(endJump)
}

// compileInterpolated folds an interpolated string's alternating
// string/expr children into a left-to-right OpAdd chain, mirroring the
// optimizer's own compile-time string-concatenation folding for the parts
// it cannot fold away statically.
func (g *Generator) compileInterpolated(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	children := n.ChildSlice()
	if len(children) == 0 {
		f.emit(line, bytecode.OpLoadConst, dst, g.pool.Str("", false))
		return
	}
	g.compileExprInto(f, children[0], dst)
	for _, c := range children[1:] {
		part := g.compileExpr(f, c)
		f.emit(line, bytecode.OpAdd, dst, dst, part)
		f.release(part)
	}
}

func (g *Generator) compileCall(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	callee := cc[0]
	args := cc[1:]

	for _, a := range args {
		if a.Kind == ast.Spread {
			g.notImplemented(a, "spread call arguments")
			f.emit(line, bytecode.OpLoadVoid, dst)
			return
		}
		if a.Kind == ast.NamedArgument {
			g.notImplemented(a, "named call arguments")
			f.emit(line, bytecode.OpLoadVoid, dst)
			return
		}
	}

	argc := len(args)
	base := f.allocBlock(argc)
	for i, a := range args {
		g.compileExprInto(f, a, base+i)
	}

	if callee.Kind == ast.Identifier && callee.IsConstFun {
		if idx, ok := g.directCallTarget(callee); ok {
			f.emit(line, bytecode.OpCallFun, dst, idx, base, argc)
			return
		}
	}

	funReg := g.compileExpr(f, callee)
	f.emit(line, bytecode.OpCall, dst, funReg, base, argc)
	f.release(funReg)
}

// directCallTarget resolves callee.IsConstFun's const, capture-free
// function reference to its already-reserved constant-pool index, the
// same path optimize/fold.go's constFunCall walks to decide IsConstFun is
// safe to set in the first place.
func (g *Generator) directCallTarget(callee *ast.Node) (int, bool) {
	ann, ok := callee.Annotation().(*sema.VarAnnotation)
	if !ok {
		return 0, false
	}
	v := g.unit.Var(ann.Var)
	fn, ok := v.ConstValue.(*ast.Node)
	if !ok || fn == nil {
		return 0, false
	}
	scopeAnn, ok := fn.Annotation().(*sema.ScopeAnnotation)
	if !ok {
		return 0, false
	}
	scope := g.unit.Scope(scopeAnn.Scope)
	frame := g.unit.Frame(scope.OwningFrame)
	return frame.ConstIndex, true
}

func (g *Generator) compileArrayLiteral(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	elems := n.ChildSlice()
	for _, e := range elems {
		if e.Kind == ast.Spread {
			g.notImplemented(e, "spread in array literals")
			f.emit(line, bytecode.OpLoadVoid, dst)
			return
		}
	}
	count := len(elems)
	base := f.allocBlock(count)
	for i, e := range elems {
		g.compileExprInto(f, e, base+i)
	}
	f.emit(line, bytecode.OpLoadArray, base, count)
	if dst != base {
		f.emit(line, bytecode.OpMove, dst, base)
	}
}

func (g *Generator) compileObjectLiteral(f *fnGen, n *ast.Node, dst int) {
	line := n.Token.Pos.Line
	f.emit(line, bytecode.OpLoadObj, dst)
	for c := n.Children; c != nil; c = c.Next {
		switch c.Kind {
		case ast.Spread:
			g.notImplemented(c, "spread in object literals")
		case ast.PropertyDef:
			g.compilePropertyDef(f, dst, c, line)
		}
	}
}

// compilePropertyDef sets one property of objReg from a PropertyDef node,
// handling all three shapes the parser produces: a computed key, a method
// body, and a shorthand key with a plain value. It is shared between
// object literals and class bodies (where objReg is the prototype).
func (g *Generator) compilePropertyDef(f *fnGen, objReg int, n *ast.Node, line int32) {
	cc := n.ChildSlice()
	if len(cc) == 2 {
		keyReg := g.compileExpr(f, cc[0])
		valReg := g.compileExpr(f, cc[1])
		f.emit(line, bytecode.OpSetElem, objReg, keyReg, valReg)
		f.release(valReg)
		f.release(keyReg)
		return
	}
	if len(cc) == 0 {
		return
	}
	nameIdx := g.pool.Str(n.Str, false)
	if cc[0].Kind == ast.FunctionLiteral {
		idx := g.compileFunctionBody(f, cc[0], nameIdx)
		mreg := f.alloc()
		f.emit(line, bytecode.OpLoadFun, mreg, idx)
		f.emit(line, bytecode.OpSetProp, objReg, nameIdx, mreg)
		f.release(mreg)
		return
	}
	valReg := g.compileExpr(f, cc[0])
	f.emit(line, bytecode.OpSetProp, objReg, nameIdx, valReg)
	f.release(valReg)
}

func (g *Generator) compileFunctionExpr(f *fnGen, n *ast.Node, dst int, name string) {
	nameIdx := -1
	if name != "" {
		nameIdx = g.pool.Str(name, false)
	}
	idx := g.compileFunctionBody(f, n, nameIdx)
	f.emit(n.Token.Pos.Line, bytecode.OpLoadFun, dst, idx)
}
