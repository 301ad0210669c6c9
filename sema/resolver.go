package sema

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/diag"
)

// Importer is the resolver's view of the driver callbacks from spec.md
// §6.1: resolving `import` statements and predefined globals without the
// sema package needing to know anything about module loading or the
// embedding host. The driver package implements this against its own
// module cache; tests implement it with a trivial in-memory map.
type Importer interface {
	// ImportModule resolves a module name referenced by an `import`
	// statement, returning the index to record in the module's imported-
	// module table. ok is false if the module cannot be found, producing
	// a CompileFailed diagnostic at the import site.
	ImportModule(name string) (index int, ok bool)

	// ResolveGlobal reports whether name is a predefined or previously
	// compiled-module global, for plain (non-`import`) identifier lookups
	// that fall through every lexical scope.
	ResolveGlobal(name string) (index int, ok bool)
}

// GlobalWalker is implemented by importers that can enumerate an imported
// module's exported globals — the walk_globals callback of spec.md §6.1,
// required only for `import name.*`.
type GlobalWalker interface {
	WalkGlobals(moduleIndex int, fn func(name string, slot int))
}

// Resolver runs the variable-resolution pass of spec.md §4.3 over one
// compilation unit's AST, populating a fresh [Unit] and decorating the
// tree's Identifier/Name/scope-owning nodes with annotations.
type Resolver struct {
	unit     *Unit
	importer Importer
	fileID   string

	errs []*diag.Error

	curScope ScopeID
	curFrame FrameID

	// funcDepth/loopDepth/switchDepth/classDepth track the
	// context-sensitive keyword validity rules carried over from parsing
	// into resolution: `this` and `super` are only meaningful inside a
	// function that belongs to a class.
	funcDepth    int
	loopDepth    int
	switchDepth  int
	classDepth   int
	inCtor       bool
	numModules   int
}

// MaxModules bounds the imported-module table: a module index must fit in
// a 16-bit slot, so a unit may import at most 65535 modules; the next
// import is the "too many modules" diagnostic of spec.md §4.3.
const MaxModules = 65535

// NewResolver creates a resolver that will use importer to resolve
// `import` statements and fall-through global lookups.
func NewResolver(fileID string, importer Importer) *Resolver {
	return &Resolver{
		unit:     NewUnit(),
		importer: importer,
		fileID:   fileID,
	}
}

// Unit exposes the populated scope/frame/variable pools after Resolve
// returns, for consumption by the optimizer, register allocator, and
// code generator.
func (r *Resolver) Unit() *Unit { return r.unit }

// Resolve walks program (an ast.Program node) and returns the accumulated
// diagnostics. A non-empty return does not necessarily mean resolution
// produced an unusable tree for every node — callers should still check
// for at least one Kind == diag.CompileFailed before proceeding to
// optimization, matching spec.md §6.1's pass_run/Result contract.
func (r *Resolver) Resolve(program *ast.Node) []*diag.Error {
	moduleScope, _ := r.unit.NewScope(0, program, true, 0)
	r.curScope = moduleScope
	r.curFrame = r.unit.Scope(moduleScope).OwningFrame
	setScope(program, moduleScope)

	r.hoistImports(program)
	r.resolveBlockBody(program)

	r.checkMainIsPublic(program)

	return r.errs
}

func (r *Resolver) errorf(pos diag.Position, format string, args ...any) {
	r.errs = append(r.errs, diag.New(diag.CompileFailed, pos, format, args...))
}

func (r *Resolver) warnf(pos diag.Position, format string, args ...any) {
	r.errs = append(r.errs, diag.Warningf(pos, format, args...))
}

// hoistImports handles the parser's convention that all `import`
// statements are siblings at the very start of Program's child list
// (spec.md §4.2); it resolves them before anything else so forward
// references to imported symbols within the same module work.
func (r *Resolver) hoistImports(program *ast.Node) {
	for c := program.Children; c != nil && c.Kind == ast.Import; c = c.Next {
		r.resolveImport(c)
	}
}

func (r *Resolver) resolveImport(n *ast.Node) {
	moduleName := n.Str
	if r.numModules >= MaxModules {
		r.errorf(n.Token.Pos, "too many modules imported")
		return
	}
	idx, ok := r.importer.ImportModule(moduleName)
	if !ok {
		r.errorf(n.Token.Pos, "circular dependencies detected for module %q", moduleName)
		return
	}
	r.numModules++

	if n.Children == nil {
		// Bare `import name` binds the module object itself under `name`.
		_, v, ok := r.unit.Declare(r.curScope, moduleName, n.Token, VarTypeModule)
		if !ok {
			r.errorf(n.Token.Pos, "redefined variable %q", moduleName)
			return
		}
		v.Class = ClassModule
		v.Index = idx
		v.Active = VarDeclared
		setVar(n, r.mustVarID(moduleName))
		return
	}

	for c := n.Children; c != nil; c = c.Next {
		switch c.Kind {
		case ast.ImportStar:
			walker, ok := r.importer.(GlobalWalker)
			if !ok {
				r.errorf(c.Token.Pos, "cannot import all globals of module %q", moduleName)
				continue
			}
			walker.WalkGlobals(idx, func(name string, slot int) {
				_ = slot // codegen re-resolves the slot against the compiled module
				_, v, declared := r.unit.Declare(r.curScope, name, c.Token, VarTypeModule)
				if !declared {
					r.errorf(c.Token.Pos, "redefined variable %q", name)
					return
				}
				v.Class = ClassImported
				v.Index = idx
				v.Active = VarDeclared
			})
		case ast.ImportSymbol:
			_, v, ok := r.unit.Declare(r.curScope, c.Str, c.Token, VarTypeModule)
			if !ok {
				r.errorf(c.Token.Pos, "redefined variable %q", c.Str)
				continue
			}
			v.Class = ClassImported
			v.Index = idx
			v.Active = VarDeclared
			setVar(c, r.mustVarID(c.Str))
		}
	}
}

func (r *Resolver) mustVarID(name string) VarID {
	id, _, _ := r.unit.Lookup(r.curScope, name)
	return id
}

// resolveBlockBody resolves every statement child of a Block/Program node
// in its own scope, without pushing a new one (the caller already did, or
// chose to flatten).
func (r *Resolver) resolveBlockBody(n *ast.Node) {
	for c := n.Children; c != nil; c = c.Next {
		if c.Kind == ast.Import {
			continue // already hoisted
		}
		r.resolveStmt(c)
	}
}

func (r *Resolver) pushScope(node *ast.Node, hasFrame bool) ScopeID {
	parentFrame := r.curFrame
	id, _ := r.unit.NewScope(r.curScope, node, hasFrame, parentFrame)
	if hasFrame {
		r.curFrame = r.unit.Scope(id).OwningFrame
	}
	r.curScope = id
	setScope(node, id)
	return id
}

func (r *Resolver) popScope(prevScope ScopeID, prevFrame FrameID) {
	r.curScope = prevScope
	r.curFrame = prevFrame
}

func (r *Resolver) resolveStmt(n *ast.Node) {
	switch n.Kind {
	case ast.VarDecl, ast.ConstDecl, ast.PublicVarDecl, ast.PublicConstDecl:
		r.resolveDecl(n)
	case ast.Assign:
		r.resolveAssign(n)
	case ast.MultiAssign:
		// Children are the assignment targets followed by the single
		// value expression as the last child.
		cc := n.ChildSlice()
		if len(cc) > 0 {
			r.resolveExpr(cc[len(cc)-1])
			for _, t := range cc[:len(cc)-1] {
				r.resolveLValue(t)
			}
		}
	case ast.Destructure:
		for c := n.Children; c != nil; c = c.Next {
			r.resolveExpr(c)
		}
	case ast.ExprStmt:
		r.resolveExpr(n.Children)
	case ast.Block:
		prevScope, prevFrame := r.curScope, r.curFrame
		r.pushScope(n, false)
		r.resolveBlockBody(n)
		r.popScope(prevScope, prevFrame)
	case ast.If:
		children := n.ChildSlice()
		r.resolveExpr(children[0])
		r.resolveStmt(children[1])
		if len(children) > 2 {
			r.resolveStmt(children[2])
		}
	case ast.While:
		children := n.ChildSlice()
		r.resolveExpr(children[0])
		r.loopDepth++
		r.resolveStmt(children[1])
		r.loopDepth--
	case ast.Repeat:
		children := n.ChildSlice()
		r.loopDepth++
		r.resolveStmt(children[0])
		r.loopDepth--
		r.resolveExpr(children[1])
	case ast.For:
		prevScope, prevFrame := r.curScope, r.curFrame
		r.pushScope(n, false)
		children := n.ChildSlice()
		if children[0].Kind != ast.Landmark {
			r.resolveStmt(children[0])
		}
		if children[1].Kind != ast.Landmark {
			r.resolveExpr(children[1])
		}
		if children[2].Kind != ast.Landmark {
			// The post clause parses as a statement (it may be an
			// assignment), not a bare expression.
			r.resolveStmt(children[2])
		}
		r.loopDepth++
		r.resolveStmt(children[3])
		r.loopDepth--
		r.popScope(prevScope, prevFrame)
	case ast.ForIn:
		prevScope, prevFrame := r.curScope, r.curFrame
		r.pushScope(n, false)
		children := n.ChildSlice()
		r.declareLoopVar(children[0])
		r.resolveExpr(children[1])
		r.loopDepth++
		r.resolveStmt(children[2])
		r.loopDepth--
		r.popScope(prevScope, prevFrame)
	case ast.Try:
		r.resolveTry(n)
	case ast.Defer:
		r.resolveExpr(n.Children)
	case ast.Throw:
		r.resolveExpr(n.Children)
	case ast.Break, ast.Continue, ast.Fallthrough:
		if r.loopDepth == 0 && (n.Kind == ast.Break || n.Kind == ast.Continue) {
			r.errorf(n.Token.Pos, "%s outside of loop", keywordName(n.Kind))
		}
		if n.Kind == ast.Fallthrough && r.switchDepth == 0 {
			r.errorf(n.Token.Pos, "fallthrough outside of switch")
		}
	case ast.Return:
		if r.funcDepth == 0 {
			r.errorf(n.Token.Pos, "return outside of function")
		}
		if n.Children != nil {
			r.resolveExpr(n.Children)
		}
	case ast.Switch:
		r.resolveSwitch(n)
	case ast.Assert:
		r.resolveExpr(n.Children)
	case ast.ClassDecl:
		r.resolveClassDecl(n)
	default:
		r.resolveExpr(n)
	}
}

func keywordName(k ast.Kind) string {
	switch k {
	case ast.Break:
		return "break"
	case ast.Continue:
		return "continue"
	default:
		return "fallthrough"
	}
}

func (r *Resolver) declareLoopVar(nameNode *ast.Node) {
	_, v, ok := r.unit.Declare(r.curScope, nameNode.Str, nameNode.Token, VarTypeVar)
	if !ok {
		r.errorf(nameNode.Token.Pos, "redefined variable %q", nameNode.Str)
		return
	}
	v.Active = VarDeclared
	setVar(nameNode, r.mustVarID(nameNode.Str))
}

func (r *Resolver) resolveDecl(n *ast.Node) {
	isConst := n.Kind == ast.ConstDecl || n.Kind == ast.PublicConstDecl
	isPublic := n.Kind == ast.PublicVarDecl || n.Kind == ast.PublicConstDecl

	nameNode := n.Children
	// The parser nests a declaration's initializer as the Name node's own
	// child, not as its sibling (the same shape parameter defaults use),
	// so every declaration form — plain var/const, `for` init, `with`'s
	// desugared resource binding, and the function-statement lowering —
	// reads its initializer off nameNode.Children.
	var initExpr *ast.Node
	if nameNode != nil {
		initExpr = nameNode.Children
	}

	typ := VarTypeVar
	if isConst {
		typ = VarTypeConst
	}

	scope := r.curScope

	vid, v, ok := r.unit.Declare(scope, nameNode.Str, nameNode.Token, typ)
	if !ok {
		r.errorf(nameNode.Token.Pos, "redefined variable %q", nameNode.Str)
		return
	}
	v.IsConst = isConst
	if isPublic {
		v.Class = ClassGlobal
	}

	// A function-valued declaration activates its own binding before its
	// body is resolved so a named function can call itself; every other
	// initializer resolves while the binding is still inactive, so
	// `var x = x;` is caught as a self-reference rather than silently
	// falling through to an outer `x`.
	if initExpr != nil && initExpr.Kind == ast.FunctionLiteral {
		v.Active = VarDeclared
	}
	if initExpr != nil {
		r.resolveExpr(initExpr)
	}
	v.Active = VarDeclared
	setVar(nameNode, vid)
}

func (r *Resolver) resolveAssign(n *ast.Node) {
	children := n.ChildSlice()
	target, value := children[0], children[1]
	r.resolveExpr(value)
	r.resolveLValue(target)
}

func (r *Resolver) resolveLValue(target *ast.Node) {
	switch target.Kind {
	case ast.Identifier:
		r.resolveIdentifier(target, true)
	default:
		r.resolveExpr(target)
	}
}

func (r *Resolver) resolveTry(n *ast.Node) {
	children := n.ChildSlice()
	r.resolveStmt(children[0]) // try body

	for _, c := range children[1:] {
		if c.Kind != ast.Catch {
			continue
		}
		prevScope, prevFrame := r.curScope, r.curFrame
		r.pushScope(c, false)
		cc := c.ChildSlice()
		if len(cc) > 0 && cc[0].Kind == ast.Name {
			_, v, ok := r.unit.Declare(r.curScope, cc[0].Str, cc[0].Token, VarTypeVar)
			if !ok {
				r.errorf(cc[0].Token.Pos, "redefined variable %q", cc[0].Str)
			} else {
				v.Active = VarDeclared
				setVar(cc[0], r.mustVarID(cc[0].Str))
			}
			if len(cc) > 1 {
				r.resolveStmt(cc[1])
			}
		} else if len(cc) > 0 {
			r.resolveStmt(cc[0])
		}
		r.popScope(prevScope, prevFrame)
	}
}

func (r *Resolver) resolveSwitch(n *ast.Node) {
	children := n.ChildSlice()
	r.resolveExpr(children[0])
	r.switchDepth++
	for _, c := range children[1:] {
		cc := c.ChildSlice()
		if c.Kind == ast.Case {
			r.resolveExpr(cc[0])
			for _, s := range cc[1:] {
				r.resolveStmt(s)
			}
		} else {
			for _, s := range cc {
				r.resolveStmt(s)
			}
		}
	}
	r.switchDepth--
}

func (r *Resolver) resolveClassDecl(n *ast.Node) {
	children := n.ChildSlice()
	nameNode := children[0]
	_, v, ok := r.unit.Declare(r.curScope, nameNode.Str, nameNode.Token, VarTypeFunction)
	if !ok {
		r.errorf(nameNode.Token.Pos, "redefined variable %q", nameNode.Str)
		return
	}
	v.Active = VarDeclared
	setVar(nameNode, r.mustVarID(nameNode.Str))

	r.resolveClassLiteral(children[1])
}

func (r *Resolver) resolveClassLiteral(n *ast.Node) {
	children := n.ChildSlice()
	var extends *ast.Node
	idx := 0
	if idx < len(children) && children[idx].Kind != ast.PropertyDef {
		extends = children[idx]
		r.resolveExpr(extends)
		idx++
	}

	prevScope, prevFrame := r.curScope, r.curFrame
	r.pushScope(n, false)
	r.classDepth++
	for ; idx < len(children); idx++ {
		r.resolveMethod(children[idx], extends != nil)
	}
	r.classDepth--
	r.popScope(prevScope, prevFrame)
}

func (r *Resolver) resolveMethod(prop *ast.Node, derived bool) {
	// A class member's PropertyDef has exactly one child: the method's
	// FunctionLiteral, or a field's initializer expression (the computed-
	// key `[expr]: value` object-literal shape, which does have two
	// children, never appears inside a class body).
	valueNode := prop.Children
	if valueNode == nil {
		return
	}
	if valueNode.Kind != ast.FunctionLiteral {
		r.resolveExpr(valueNode)
		return
	}
	wasCtor := r.inCtor
	r.inCtor = prop.Str == "constructor"
	r.resolveFunctionLiteral(valueNode, true)
	r.inCtor = wasCtor
}

func (r *Resolver) resolveExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Identifier:
		r.resolveIdentifier(n, false)
	case ast.This:
		if r.classDepth == 0 {
			r.errorf(n.Token.Pos, "'this' used outside of a class method")
		}
	case ast.Super:
		if r.classDepth == 0 {
			r.errorf(n.Token.Pos, "'super' used outside of a class method")
		}
	case ast.Yield:
		if r.funcDepth == 0 {
			r.errorf(n.Token.Pos, "'yield' used outside of a function")
		}
		for c := n.Children; c != nil; c = c.Next {
			r.resolveExpr(c)
		}
	case ast.FunctionLiteral:
		r.resolveFunctionLiteral(n, false)
	case ast.ClassLiteral:
		r.resolveClassLiteral(n)
	case ast.Async:
		for c := n.Children; c != nil; c = c.Next {
			r.resolveExpr(c)
		}
	case ast.InterpolatedString:
		for c := n.Children; c != nil; c = c.Next {
			r.resolveExpr(c)
		}
	case ast.IntegerLiteral, ast.FloatLiteral, ast.StringLiteral, ast.BooleanLiteral, ast.VoidLiteral:
		// no identifiers to resolve
	default:
		for c := n.Children; c != nil; c = c.Next {
			r.resolveExpr(c)
		}
	}
}

func (r *Resolver) resolveFunctionLiteral(n *ast.Node, isMethod bool) {
	prevScope, prevFrame := r.curScope, r.curFrame
	r.pushScope(n, true)
	r.unit.Scope(r.curScope).IsFunction = true
	r.unit.Scope(r.curScope).UsesThis = isMethod
	r.funcDepth++

	children := n.ChildSlice()
	var params, body *ast.Node
	for _, c := range children {
		switch c.Kind {
		case ast.Parameters:
			params = c
		case ast.Block:
			body = c
		}
	}

	if params != nil {
		r.resolveParameters(params)
	}
	if body != nil {
		r.resolveBlockBody(body)
	}

	r.funcDepth--
	r.popScope(prevScope, prevFrame)
}

func (r *Resolver) resolveParameters(params *ast.Node) {
	for c := params.Children; c != nil; c = c.Next {
		switch c.Kind {
		case ast.RestParameter:
			name := c.Children
			vid, v, ok := r.unit.Declare(r.curScope, name.Str, name.Token, VarTypeArgument)
			if !ok {
				r.errorf(name.Token.Pos, "redefined variable %q", name.Str)
				continue
			}
			r.unit.Scope(r.curScope).Ellipsis = vid
			v.IsEllipsis = true
			v.Active = VarDeclared
			setVar(name, r.mustVarID(name.Str))
			r.unit.Scope(r.curScope).HaveRest = true
		case ast.Name:
			_, v, ok := r.unit.Declare(r.curScope, c.Str, c.Token, VarTypeArgument)
			if !ok {
				r.errorf(c.Token.Pos, "redefined variable %q", c.Str)
				continue
			}
			v.Active = VarDeclared
			setVar(c, r.mustVarID(c.Str))
			if c.Children != nil {
				// Default-value expressions are visited in the enclosing
				// scope, not the function's own scope (spec.md §4.3's
				// "defaults visited outside function scope" rule), since
				// they must not be able to reference sibling parameters.
				r.resolveDefaultOutsideScope(c.Children)
			}
		}
	}
}

func (r *Resolver) resolveDefaultOutsideScope(expr *ast.Node) {
	cur := r.unit.Scope(r.curScope)
	savedScope, savedFrame := r.curScope, r.curFrame
	r.curScope, r.curFrame = cur.Parent, r.parentFrameOf(r.curFrame)
	r.resolveExpr(expr)
	r.curScope, r.curFrame = savedScope, savedFrame
}

func (r *Resolver) parentFrameOf(f FrameID) FrameID {
	return r.unit.Frame(f).Parent
}

// resolveIdentifier looks up name starting at the current scope, walking
// outward across frame boundaries and recording a ScopeRef capture edge on
// every intermediate frame it crosses (spec.md §4.3). Unresolved names
// fall through to the importer's global table; still-unresolved names are
// an "undeclared identifier" diagnostic. isWrite additionally rejects
// assignment to a const binding.
func (r *Resolver) resolveIdentifier(n *ast.Node, isWrite bool) {
	name := n.Token.Literal
	if name == "" {
		name = n.Str
	}

	vid, declScope, found := r.lookupActive(name)
	if !found {
		if idx, ok := r.importer.ResolveGlobal(name); ok {
			n.IsVar = false
			n.Operand = int64(idx)
			return
		}
		r.errorf(n.Token.Pos, "undeclared identifier %q", name)
		return
	}

	v := r.unit.Var(vid)
	if isWrite && v.IsConst {
		r.errorf(n.Token.Pos, "cannot assign to const variable %q", name)
	}

	if isWrite {
		v.NumWrites++
	} else {
		v.NumReads++
	}

	distance := r.frameDistance(declScope)
	if distance > 0 && !isGlobalLike(v.Class) {
		r.recordCapture(declScope, vid)
		// A variable already classified as purely local by an earlier,
		// same-frame reference must be promoted the moment a later
		// reference captures it from an outer frame — classification
		// cannot stop at the first reference seen, since a variable read
		// in its own scope and later captured by a nested closure (in
		// that textual order) would otherwise keep its Local class and
		// never get boxed, corrupting the closure it's captured into.
		if v.Class == ClassUnresolved || v.Class == ClassLocal || v.Class == ClassArgument {
			v.Class = classifyIndependent(v)
		}
	} else if v.Class == ClassUnresolved {
		v.Class = classifyLocal(v)
	}

	setVar(n, vid)
	n.Annotation().(*VarAnnotation).ScopeDistance = distance
}

// lookupActive searches the scope chain for name, skipping bindings whose
// declaring statement has not finished executing yet — a variable becomes
// visible only once activated in scope order, so `var x = x;` resolves its
// initializer against the outer x rather than the one being declared.
func (r *Resolver) lookupActive(name string) (VarID, ScopeID, bool) {
	for id := r.curScope; id != 0; {
		s := r.unit.Scope(id)
		if vid, ok := s.lookup[name]; ok && r.unit.Var(vid).Active != VarInactive {
			return vid, id, true
		}
		id = s.Parent
	}
	return 0, 0, false
}

// frameDistance counts how many frame boundaries separate the current
// frame from declScope's owning frame.
func (r *Resolver) frameDistance(declScope ScopeID) int {
	declFrame := r.unit.Scope(declScope).OwningFrame
	dist := 0
	f := r.curFrame
	for f != declFrame {
		f = r.unit.Frame(f).Parent
		dist++
		if f == 0 && declFrame != 0 {
			break
		}
	}
	return dist
}

// recordCapture threads a closure-capture edge for vid (declared in
// declScope) through every frame between the current one and declScope's
// owning frame, not just the frame that directly references it — each
// intermediate function needs its own "vars_reg" to pass the box along
// (spec.md §4.6), so every frame on the chain gets a matching ScopeRef.
func (r *Resolver) recordCapture(declScope ScopeID, vid VarID) {
	declFrame := r.unit.Scope(declScope).OwningFrame
	for fid := r.curFrame; fid != declFrame && fid != 0; fid = r.unit.Frame(fid).Parent {
		f := r.unit.Frame(fid)
		found := false
		for i := range f.ScopeRefs {
			if f.ScopeRefs[i].FromScope == declScope {
				f.ScopeRefs[i].Vars = appendUnique(f.ScopeRefs[i].Vars, vid)
				found = true
				break
			}
		}
		if !found {
			f.ScopeRefs = append(f.ScopeRefs, ScopeRef{FromScope: declScope, Vars: []VarID{vid}})
		}
	}
}

func appendUnique(vs []VarID, v VarID) []VarID {
	for _, x := range vs {
		if x == v {
			return vs
		}
	}
	return append(vs, v)
}

// isGlobalLike reports whether c is reached through a global-slot or
// module-table lookup rather than a register or closure box — such
// references never record a capture edge (spec.md §4.3: these are "local"
// in the sense that no closure box is needed).
func isGlobalLike(c Class) bool {
	switch c {
	case ClassGlobal, ClassModule, ClassImported:
		return true
	default:
		return false
	}
}

func classifyLocal(v *Variable) Class {
	if v.Type == VarTypeArgument {
		return ClassArgument
	}
	return ClassLocal
}

func classifyIndependent(v *Variable) Class {
	if v.Type == VarTypeArgument {
		return ClassIndependentArgument
	}
	return ClassIndependentLocal
}

// checkMainIsPublic emits the "main should be public" warning of spec.md
// §4.3 when the module declares a non-public top-level `main` function.
func (r *Resolver) checkMainIsPublic(program *ast.Node) {
	for c := program.Children; c != nil; c = c.Next {
		if c.Kind != ast.VarDecl && c.Kind != ast.ConstDecl {
			continue
		}
		nameNode := c.Children
		if nameNode == nil || nameNode.Str != "main" {
			continue
		}
		init := nameNode.Children
		if init != nil && init.Kind == ast.FunctionLiteral {
			r.warnf(c.Token.Pos, "main should be public")
		}
	}
}
