package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/sema"
)

// compileStmt dispatches n to the statement compiler matching its kind.
func (g *Generator) compileStmt(f *fnGen, n *ast.Node) {
	switch n.Kind {
	case ast.VarDecl, ast.ConstDecl, ast.PublicVarDecl, ast.PublicConstDecl:
		g.compileDecl(f, n)
	case ast.Assign:
		g.compileAssign(f, n)
	case ast.ExprStmt:
		r := g.compileExpr(f, n.Children)
		f.release(r)
	case ast.Block:
		g.compileBlock(f, n)
	case ast.If:
		g.compileIf(f, n)
	case ast.While:
		g.compileWhile(f, n)
	case ast.Repeat:
		g.compileRepeat(f, n)
	case ast.For:
		g.compileFor(f, n)
	case ast.ForIn:
		g.compileForIn(f, n)
	case ast.Try:
		g.compileTry(f, n)
	case ast.Throw:
		r := g.compileExpr(f, n.Children)
		f.emit(n.Token.Pos.Line, bytecode.OpThrow, r)
		f.release(r)
	case ast.Break:
		g.compileBreak(f, n)
	case ast.Continue:
		g.compileContinue(f, n)
	case ast.Return:
		g.compileReturn(f, n)
	case ast.Switch:
		g.compileSwitch(f, n)
	case ast.Assert:
		g.compileAssert(f, n)
	case ast.ClassDecl:
		g.compileClassDecl(f, n)
	case ast.Import, ast.Landmark:
		// Imports are consumed by the driver before codegen runs; Landmark
		// placeholders carry only a source position.
	case ast.Defer:
		// A defer reached outside a statement list (for example as the sole
		// body of an `if`) protects nothing: its enclosing scope exits
		// immediately, so the handler simply runs in place.
		r := g.compileExpr(f, n.Children)
		f.release(r)
	case ast.MultiAssign:
		g.compileMultiAssign(f, n)
	case ast.Destructure:
		g.notImplemented(n, "destructuring statements")
	case ast.Fallthrough:
		g.errorf(n.Token.Pos, "internal: fallthrough reached outside of switch body compilation")
	default:
		g.errorf(n.Token.Pos, "internal: statement kind %d not handled by code generator", n.Kind)
	}
}

// compileDecl compiles a var/const declaration, evaluating its initializer
// (or loading void if it declares without one) and installing it as the
// declared variable's value. The parser nests the initializer as the Name
// node's own child, the same shape the resolver and optimizer read.
func (g *Generator) compileDecl(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	nameNode := n.Children
	ann, ok := nameNode.Annotation().(*sema.VarAnnotation)
	if !ok {
		g.errorf(nameNode.Token.Pos, "internal: declaration of %q was never resolved", nameNode.Str)
		return
	}
	vid := ann.Var
	initExpr := nameNode.Children

	var valReg int
	switch {
	case initExpr != nil && initExpr.Kind == ast.FunctionLiteral:
		valReg = f.alloc()
		g.compileFunctionExpr(f, initExpr, valReg, nameNode.Str)
	case initExpr != nil:
		valReg = g.compileExpr(f, initExpr)
	default:
		valReg = f.alloc()
		f.emit(line, bytecode.OpLoadVoid, valReg)
	}
	g.storeDeclaredVar(f, vid, valReg, line)
}

// compileAssign compiles a plain `target = value;` statement. A local-
// class identifier target is written directly, skipping the intermediate
// temporary compileExpr would otherwise allocate.
func (g *Generator) compileAssign(f *fnGen, n *ast.Node) {
	cc := n.ChildSlice()
	target, value := cc[0], cc[1]

	if target.Kind == ast.Identifier {
		if ann, ok := target.Annotation().(*sema.VarAnnotation); ok {
			v := g.unit.Var(ann.Var)
			if isLocalClass(v.Class) {
				dst := f.regOf[ann.Var]
				g.compileExprInto(f, value, dst)
				return
			}
		}
	}

	srcReg := g.compileExpr(f, value)
	g.compileAssignExprTo(f, target, srcReg)
	f.release(srcReg)
}

// compileBlock enters the block's own capture scope (if it needs one),
// compiles its statements, and leaves the scope again.
func (g *Generator) compileBlock(f *fnGen, n *ast.Node) {
	sid := scopeOf(n)
	created := g.enterScope(f, sid, n.Token.Pos.Line)
	g.compileStmtList(f, n.Children)
	g.leaveScope(f, sid, created)
}

// compileStmtList compiles a sibling chain of statements. A `defer` in the
// chain takes over the remainder: the statements after it become a
// protected region whose exit — normal or exceptional — runs the deferred
// expression first (spec.md §4.6's try/finally lowering of defer).
func (g *Generator) compileStmtList(f *fnGen, first *ast.Node) {
	for c := first; c != nil; c = c.Next {
		if c.Kind == ast.Defer {
			g.compileDefer(f, c)
			return
		}
		g.compileStmt(f, c)
	}
}

// compileDefer lowers `defer HANDLER; TAIL...` into
// `try { TAIL... } finally { HANDLER }`: the handler runs on fall-through,
// on an unwinding exception (which is rethrown afterwards), and before any
// `return` inside the region (see compileReturn's deferStack walk).
func (g *Generator) compileDefer(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	handler := n.Children

	excReg := f.alloc()
	catchJump := f.emitJump(line, bytecode.OpCatch, excReg, 0)

	f.deferStack = append(f.deferStack, handler)
	g.compileStmtList(f, n.Next)
	f.deferStack = f.deferStack[:len(f.deferStack)-1]

	f.emit(line, bytecode.OpCancel)
	r := g.compileExpr(f, handler)
	f.release(r)
	endJump := f.emitJump(line, bytecode.OpJump, 0)

	f.patchJumpHere(catchJump)
	r = g.compileExpr(f, handler)
	f.release(r)
	f.emit(line, bytecode.OpThrow, excReg)

	f.patchJumpHere(endJump)
	f.release(excReg)
}

// compileMultiAssign compiles `a, b, c = expr;`: the value is evaluated
// once and unpacked positionally into each target via indexed element
// reads.
func (g *Generator) compileMultiAssign(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	targets, value := cc[:len(cc)-1], cc[len(cc)-1]

	srcReg := g.compileExpr(f, value)
	for i, target := range targets {
		idxReg := f.alloc()
		f.emit(line, bytecode.OpLoadInt8, idxReg, i)
		elemReg := f.alloc()
		f.emit(line, bytecode.OpGetElem, elemReg, srcReg, idxReg)
		f.release(idxReg)
		g.compileAssignExprTo(f, target, elemReg)
		f.release(elemReg)
	}
	f.release(srcReg)
}

// compileIf emits: cond, JumpCond(false-sense)->else, then-body, [Jump->end
// if an else exists], else-body, end.
func (g *Generator) compileIf(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	condReg := g.compileExpr(f, cc[0])
	elseJump := f.emitJump(line, bytecode.OpJumpCond, condReg, 0, 0)
	f.release(condReg)

	g.compileStmt(f, cc[1])

	if len(cc) > 2 {
		endJump := f.emitJump(line, bytecode.OpJump, 0)
		f.patchJumpHere(elseJump)
		g.compileStmt(f, cc[2])
		f.patchJumpHere(endJump)
	} else {
		f.patchJumpHere(elseJump)
	}
}

// compileWhile emits: top: cond, JumpCond(false)->end, body, Jump->top, end.
func (g *Generator) compileWhile(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	f.pushBreakFixups()
	f.pushContinueFixups()

	top := f.pos()
	condReg := g.compileExpr(f, cc[0])
	exitJump := f.emitJump(line, bytecode.OpJumpCond, condReg, 0, 0)
	f.release(condReg)

	g.compileStmt(f, cc[1])
	f.patchJump(f.emitJump(line, bytecode.OpJump, 0), top)

	f.patchJumpHere(exitJump)
	for _, pos := range f.popBreakFixups() {
		f.patchJumpHere(pos)
	}
	for _, pos := range f.popContinueFixups() {
		f.patchJump(pos, top)
	}
}

// compileRepeat emits: top: body, cond, JumpCond(true)->top, i.e. a
// do-while whose test runs after each iteration and loops back while the
// condition is truthy.
func (g *Generator) compileRepeat(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	f.pushBreakFixups()
	f.pushContinueFixups()

	top := f.pos()
	g.compileStmt(f, cc[0])

	continueTarget := f.pos()
	condReg := g.compileExpr(f, cc[1])
	f.patchJump(f.emitJump(line, bytecode.OpJumpCond, condReg, 1, 0), top)
	f.release(condReg)

	for _, pos := range f.popBreakFixups() {
		f.patchJumpHere(pos)
	}
	for _, pos := range f.popContinueFixups() {
		f.patchJump(pos, continueTarget)
	}
}

// compileFor lowers a C-style `for (init; cond; post) body`. Any of the
// three clauses may be absent (an empty statement/expression node).
func (g *Generator) compileFor(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	sid := scopeOf(n)
	created := g.enterScope(f, sid, line)
	cc := n.ChildSlice()
	initN, condN, postN, body := cc[0], cc[1], cc[2], cc[3]

	if initN.Kind != ast.Landmark {
		g.compileStmt(f, initN)
	}

	f.pushBreakFixups()
	f.pushContinueFixups()

	top := f.pos()
	var exitJump int
	hasCond := condN.Kind != ast.Landmark
	if hasCond {
		condReg := g.compileExpr(f, condN)
		exitJump = f.emitJump(line, bytecode.OpJumpCond, condReg, 0, 0)
		f.release(condReg)
	}

	g.compileStmt(f, body)

	continueTarget := f.pos()
	if postN != nil && postN.Kind != ast.Landmark {
		g.compileStmt(f, postN)
	}
	f.patchJump(f.emitJump(line, bytecode.OpJump, 0), top)

	if hasCond {
		f.patchJumpHere(exitJump)
	}
	for _, pos := range f.popBreakFixups() {
		f.patchJumpHere(pos)
	}
	for _, pos := range f.popContinueFixups() {
		f.patchJump(pos, continueTarget)
	}

	g.leaveScope(f, sid, created)
}

// compileForIn lowers `for (x in iterable) body` around OpLoadIter/
// OpNextJump: the iterator object occupies one permanently-owned register
// for the loop's duration, and each iteration's value is written into the
// loop variable's own storage before the body runs.
func (g *Generator) compileForIn(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	sid := scopeOf(n)
	created := g.enterScope(f, sid, line)
	cc := n.ChildSlice()
	varNode, iterableExpr, body := cc[0], cc[1], cc[2]

	srcReg := g.compileExpr(f, iterableExpr)
	iterReg := f.alloc()
	f.emit(line, bytecode.OpLoadIter, iterReg, srcReg)
	f.release(srcReg)

	f.pushBreakFixups()
	f.pushContinueFixups()

	top := f.pos()
	valReg := f.alloc()
	exitJump := f.emitJump(line, bytecode.OpNextJump, valReg, iterReg, 0)

	ann := varNode.Annotation().(*sema.VarAnnotation)
	g.storeDeclaredVar(f, ann.Var, valReg, line)

	g.compileStmt(f, body)
	f.patchJump(f.emitJump(line, bytecode.OpJump, 0), top)

	f.patchJumpHere(exitJump)
	f.release(iterReg)
	for _, pos := range f.popBreakFixups() {
		f.patchJumpHere(pos)
	}
	for _, pos := range f.popContinueFixups() {
		f.patchJump(pos, top)
	}

	g.leaveScope(f, sid, created)
}

// compileTry installs a runtime handler for the Try body and, if present,
// compiles its first Catch clause's body. Only the first of multiple Catch
// clauses gets a live handler; any further ones were fully resolved by the
// resolver but are unreachable from this generator. A Try with no catch
// clause at all (the `with` desugaring's protected body) rethrows.
func (g *Generator) compileTry(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	var tryBody, catchClause *ast.Node
	for c := n.Children; c != nil; c = c.Next {
		switch c.Kind {
		case ast.Block:
			if tryBody == nil {
				tryBody = c
			}
		case ast.Catch:
			if catchClause == nil {
				catchClause = c
			}
		}
	}

	excReg := f.alloc()
	catchJump := f.emitJump(line, bytecode.OpCatch, excReg, 0)
	g.compileStmt(f, tryBody)
	f.emit(line, bytecode.OpCancel)
	endJump := f.emitJump(line, bytecode.OpJump, 0)

	f.patchJumpHere(catchJump)
	if catchClause != nil {
		g.compileCatch(f, catchClause, excReg)
	} else {
		f.emit(line, bytecode.OpThrow, excReg)
	}
	f.patchJumpHere(endJump)
	f.release(excReg)
}

// compileCatch compiles one catch clause's body with the caught exception
// already sitting in excReg (written there by the try's OpCatch when the
// unwind landed here). The clause's variable, if declared, is installed
// from excReg inside the clause's own scope.
func (g *Generator) compileCatch(f *fnGen, n *ast.Node, excReg int) {
	line := n.Token.Pos.Line
	sid := scopeOf(n)
	created := g.enterScope(f, sid, line)

	cc := n.ChildSlice()
	if len(cc) == 2 {
		varNode, body := cc[0], cc[1]
		if ann, ok := varNode.Annotation().(*sema.VarAnnotation); ok {
			// The variable gets its own register so the clause body cannot
			// clobber excReg, which the enclosing try still owns.
			valReg := f.alloc()
			f.emit(line, bytecode.OpMove, valReg, excReg)
			g.storeDeclaredVar(f, ann.Var, valReg, line)
		}
		g.compileStmt(f, body)
	} else if len(cc) == 1 {
		g.compileStmt(f, cc[0])
	}
	g.leaveScope(f, sid, created)
}

// compileSwitch evaluates the subject once, tests each Case clause's value
// against it in source order, and jumps to the matching body; each body
// ends with an implicit jump past the end of the switch. A clause whose body ends with `fallthrough;` simply omits the
// implicit end-of-switch jump, letting execution continue into the next
// clause's body exactly where it was emitted.
func (g *Generator) compileSwitch(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	subject := cc[0]
	clauses := cc[1:]

	subjReg := g.compileExpr(f, subject)
	f.pushBreakFixups()

	type pendingCase struct {
		clause *ast.Node
		jump   int
	}
	var cases []pendingCase
	var defaultClause *ast.Node

	for _, clause := range clauses {
		if clause.Kind == ast.Default {
			defaultClause = clause
			continue
		}
		testExpr := clause.Children
		testReg := g.compileExpr(f, testExpr)
		eqReg := f.alloc()
		f.emit(line, bytecode.OpCmpEq, eqReg, subjReg, testReg)
		f.release(testReg)
		jump := f.emitJump(line, bytecode.OpJumpCond, eqReg, 1, 0)
		f.release(eqReg)
		cases = append(cases, pendingCase{clause: clause, jump: jump})
	}
	f.release(subjReg)

	noMatchJump := f.emitJump(line, bytecode.OpJump, 0)

	bodyStart := make(map[*ast.Node]int, len(cases))
	for _, pc := range cases {
		f.patchJumpHere(pc.jump)
		bodyStart[pc.clause] = f.pos()
		g.compileCaseBody(f, pc.clause)
	}

	if defaultClause != nil {
		f.patchJump(noMatchJump, bodyStart[defaultClause])
		if _, ok := bodyStart[defaultClause]; !ok {
			f.patchJumpHere(noMatchJump)
			g.compileCaseBody(f, defaultClause)
		}
	} else {
		f.patchJumpHere(noMatchJump)
	}

	for _, pos := range f.popBreakFixups() {
		f.patchJumpHere(pos)
	}
}

// compileCaseBody compiles one Case/Default clause's statements, honoring
// a trailing Fallthrough by simply not terminating the clause with a jump.
func (g *Generator) compileCaseBody(f *fnGen, clause *ast.Node) {
	stmts := clause.ChildSlice()
	if clause.Kind != ast.Default {
		stmts = stmts[1:] // stmts[0] was the test expression
	}
	falls := false
	for i, s := range stmts {
		if s.Kind == ast.Fallthrough {
			falls = true
			continue
		}
		_ = i
		g.compileStmt(f, s)
	}
	if !falls {
		f.recordBreak(f.emitJump(clause.Token.Pos.Line, bytecode.OpJump, 0))
	}
}

func (g *Generator) compileBreak(f *fnGen, n *ast.Node) {
	if len(f.breakFixups) == 0 {
		g.errorf(n.Token.Pos, "internal: break outside of a loop or switch")
		return
	}
	f.recordBreak(f.emitJump(n.Token.Pos.Line, bytecode.OpJump, 0))
}

func (g *Generator) compileContinue(f *fnGen, n *ast.Node) {
	if len(f.continueFixups) == 0 {
		g.errorf(n.Token.Pos, "internal: continue outside of a loop")
		return
	}
	f.recordContinue(f.emitJump(n.Token.Pos.Line, bytecode.OpJump, 0))
}

func (g *Generator) compileReturn(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	var r int
	if n.Children != nil {
		r = g.compileExpr(f, n.Children)
	} else {
		r = f.alloc()
		f.emit(line, bytecode.OpLoadVoid, r)
	}
	// A return inside an active defer region runs the pending handlers,
	// innermost first, after the return value has been computed — the
	// "finally then return" path of spec.md §4.6.
	for i := len(f.deferStack) - 1; i >= 0; i-- {
		h := g.compileExpr(f, f.deferStack[i])
		f.release(h)
	}
	f.emit(line, bytecode.OpReturn, r)
	f.release(r)
}

// compileAssert lowers `assert cond;` / `assert cond, message;` into a
// conditional throw: evaluate cond, and when it is falsy throw the
// user-supplied message expression when present, otherwise the constant
// string "assertion failed".
func (g *Generator) compileAssert(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	condReg := g.compileExpr(f, cc[0])
	okJump := f.emitJump(line, bytecode.OpJumpCond, condReg, 1, 0)
	f.release(condReg)

	var msgReg int
	if len(cc) > 1 {
		msgReg = g.compileExpr(f, cc[1])
	} else {
		msgReg = f.alloc()
		f.emit(line, bytecode.OpLoadConst, msgReg, g.pool.Str("assertion failed", false))
	}
	f.emit(line, bytecode.OpThrow, msgReg)
	f.release(msgReg)

	f.patchJumpHere(okJump)
}

// compileClassDecl compiles a `class Name ... ;` declaration: the class
// literal's constructor value is produced exactly as compileClassLiteral
// would for an expression, then installed as the declared variable's
// value, and recorded in classCtor so a later subclass can find it.
func (g *Generator) compileClassDecl(f *fnGen, n *ast.Node) {
	line := n.Token.Pos.Line
	cc := n.ChildSlice()
	nameNode, lit := cc[0], cc[1]
	ann, ok := nameNode.Annotation().(*sema.VarAnnotation)
	if !ok {
		g.errorf(nameNode.Token.Pos, "internal: class %q was never resolved", nameNode.Str)
		return
	}
	dst := f.alloc()
	ctorIdx := g.compileClassLiteral(f, lit, dst, nameNode.Str)
	g.classCtor[ann.Var] = ctorIdx
	g.storeDeclaredVar(f, ann.Var, dst, line)
}
