package optimize

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/sema"
	"github.com/kos-lang/kos/token"
)

// expr folds n in place where a fixed-point transformation applies,
// recursing into children first (bottom-up folding lets `1 + 2 * 3` fold
// its multiplication before the addition sees two literal operands).
func (o *Optimizer) expr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Identifier:
		o.identifier(n)
	case ast.Binary:
		o.binary(n)
	case ast.Unary:
		o.unary(n)
	case ast.Logical:
		o.logical(n)
	case ast.Ternary:
		o.ternary(n)
	case ast.Typeof:
		o.typeofExpr(n)
	case ast.InterpolatedString:
		o.interpolated(n)
	case ast.Call:
		for c := n.Children; c != nil; c = c.Next {
			o.expr(c)
		}
		o.constFunCall(n)
	case ast.FunctionLiteral:
		children := n.ChildSlice()
		if len(children) > 1 {
			o.stmt(children[1])
		}
	case ast.ClassLiteral:
		for c := n.Children; c != nil; c = c.Next {
			if c.Kind == ast.PropertyDef {
				pc := c.ChildSlice()
				if len(pc) > 0 {
					o.expr(pc[len(pc)-1])
				}
			} else {
				o.expr(c)
			}
		}
	case ast.Async, ast.Yield, ast.Spread:
		for c := n.Children; c != nil; c = c.Next {
			o.expr(c)
		}
	case ast.PostfixIncDec:
		o.incDecTarget(n.Children)
	case ast.IntegerLiteral, ast.FloatLiteral, ast.StringLiteral, ast.BooleanLiteral, ast.VoidLiteral, ast.This, ast.Super:
		// already terminal
	default:
		for c := n.Children; c != nil; c = c.Next {
			o.expr(c)
		}
	}
}

// identifier tracks the current pass's read count (spec.md §4.4: "every
// variable's read/assignment counters are reset to zero" at pass start,
// recomputed as the pass re-walks the tree) and substitutes a reference
// to a proven-constant variable with its value (constant propagation,
// rule 9).
func (o *Optimizer) identifier(n *ast.Node) {
	if !n.IsVar {
		return
	}
	ann, ok := n.Annotation().(*sema.VarAnnotation)
	if !ok {
		return
	}
	v := o.unit.Var(ann.Var)
	v.NumReads++

	lit, ok := v.ConstValue.(*ast.Node)
	if !ok || lit == nil {
		return
	}
	if !isConstLiteral(lit) {
		return
	}
	replaceInPlace(n, lit)
	o.changed++
}

// tryPromoteToConst implements rule 9's "var never reassigned becomes
// const": once a `var`'s Variable shows zero writes across a full pass
// beyond its own initializer, and the initializer is a side-effect-free
// literal, the declaration's variable record is marked const and cached
// as a substitution source for future identifier() calls.
func (o *Optimizer) tryPromoteToConst(declStmt, nameNode *ast.Node) {
	ann, ok := nameNode.Annotation().(*sema.VarAnnotation)
	if !ok {
		return
	}
	v := o.unit.Var(ann.Var)
	if v.IsConst {
		o.cachePropagation(v, nameNode)
		return
	}
	if declStmt.Kind != ast.VarDecl && declStmt.Kind != ast.PublicVarDecl {
		return
	}
	if v.NumWrites > 0 {
		return
	}
	init := nameNode.Children
	if init == nil || !isConstLiteral(init) {
		return
	}
	v.IsConst = true
	v.ConstValue = init
	o.changed++
}

// cachePropagation refreshes the substitution value cached on an
// already-const variable: a literal for identifier substitution (rule 9),
// or a FunctionLiteral for the "const function" direct-call check
// (constFunCall).
func (o *Optimizer) cachePropagation(v *sema.Variable, nameNode *ast.Node) {
	init := nameNode.Children
	if init != nil && (isConstLiteral(init) || init.Kind == ast.FunctionLiteral) {
		v.ConstValue = init
	}
}

// incDecTarget counts a ++/-- operand (prefix or postfix) as both a read
// and a write without attempting constant substitution: the operand is a
// storage location, not a value, so propagating a cached literal into it
// would produce an expression that increments a literal.
func (o *Optimizer) incDecTarget(target *ast.Node) {
	if target == nil {
		return
	}
	if target.Kind != ast.Identifier {
		o.expr(target)
		return
	}
	if !target.IsVar {
		return
	}
	ann, ok := target.Annotation().(*sema.VarAnnotation)
	if !ok {
		return
	}
	v := o.unit.Var(ann.Var)
	v.NumReads++
	v.NumWrites++
	v.ConstValue = nil
}

func (o *Optimizer) trackWrite(target *ast.Node) {
	if target.Kind != ast.Identifier || !target.IsVar {
		return
	}
	ann, ok := target.Annotation().(*sema.VarAnnotation)
	if !ok {
		return
	}
	v := o.unit.Var(ann.Var)
	v.NumWrites++
	v.ConstValue = nil // reassigned at least once: no longer a propagation source
}

func (o *Optimizer) binary(n *ast.Node) {
	children := n.ChildSlice()
	left, right := children[0], children[1]
	o.expr(left)
	o.expr(right)
	left, right = n.Children, n.Children.Next

	op := token.OperatorCode(n.Operand)

	if isStringFoldable(op) {
		if folded, ok := foldStringConcat(n, left, right); ok {
			replaceInPlace(n, folded)
			o.changed++
			return
		}
		if left.Kind == ast.StringLiteral && right.Kind == ast.StringLiteral &&
			left.Token.StringStyle == right.Token.StringStyle && len(left.Str)+len(right.Str) > 65535 {
			o.errorf(n.Token.Pos, "string too long")
			return
		}
	}

	if !isConstLiteral(left) || !isConstLiteral(right) {
		return
	}

	switch {
	case isArithmetic(op):
		if folded, ok := o.foldArithmetic(n, op, left, right); ok {
			replaceInPlace(n, folded)
			o.changed++
		}
	case isBitwiseOrShift(op):
		if folded, ok := o.foldBitwise(n, op, left, right); ok {
			replaceInPlace(n, folded)
			o.changed++
		}
	case isComparison(op):
		if folded, ok := foldComparison(n, op, left, right); ok {
			replaceInPlace(n, folded)
			o.changed++
		}
	}
}

func (o *Optimizer) unary(n *ast.Node) {
	op := token.OperatorCode(n.Operand)
	if op == token.OpIncr || op == token.OpDecr {
		// Prefix ++x / --x (ast.Unary reuses these operator codes; postfix
		// x++ / x-- get their own ast.PostfixIncDec kind). The operand is
		// an lvalue, not a value to fold or substitute.
		o.incDecTarget(n.Children)
		return
	}

	operand := n.Children
	o.expr(operand)

	if !isConstLiteral(operand) {
		return
	}

	switch op {
	case token.OpSub:
		switch operand.Kind {
		case ast.IntegerLiteral:
			replaceInPlace(n, ref(intLiteral(*n, -operand.Operand)))
			o.changed++
		case ast.FloatLiteral:
			replaceInPlace(n, ref(floatLiteral(*n, -operand.Flt)))
			o.changed++
		}
	case token.OpAdd:
		if operand.Kind == ast.IntegerLiteral || operand.Kind == ast.FloatLiteral {
			replaceInPlace(n, operand)
			o.changed++
		}
	case token.OpNot:
		if v, ok := truthy(operand); ok {
			replaceInPlace(n, ref(boolLiteral(*n, !v)))
			o.changed++
		}
	case token.OpBitNot:
		if iv, ok := toIntTruncating(operand); ok {
			replaceInPlace(n, ref(intLiteral(*n, ^iv)))
			o.changed++
		} else {
			o.errorf(n.Token.Pos, "cannot convert float to integer for bitwise operation")
		}
	}
}

func ref(n ast.Node) *ast.Node { return &n }

func (o *Optimizer) logical(n *ast.Node) {
	children := n.ChildSlice()
	left, right := children[0], children[1]
	o.expr(left)

	op := token.OperatorCode(n.Operand)
	if v, ok := truthy(left); ok {
		switch {
		case op == token.OpLogAnd && !v:
			replaceInPlace(n, left)
			o.changed++
			return
		case op == token.OpLogAnd && v:
			o.expr(right)
			replaceInPlace(n, right)
			o.changed++
			return
		case op == token.OpLogOr && v:
			replaceInPlace(n, left)
			o.changed++
			return
		case op == token.OpLogOr && !v:
			o.expr(right)
			replaceInPlace(n, right)
			o.changed++
			return
		}
	}
	o.expr(right)
}

func (o *Optimizer) ternary(n *ast.Node) {
	children := n.ChildSlice()
	cond, then, els := children[0], children[1], children[2]
	o.expr(cond)
	if v, ok := truthy(cond); ok {
		if v {
			o.expr(then)
			replaceInPlace(n, then)
		} else {
			o.expr(els)
			replaceInPlace(n, els)
		}
		o.changed++
		return
	}
	o.expr(then)
	o.expr(els)
}

func (o *Optimizer) typeofExpr(n *ast.Node) {
	operand := n.Children
	o.expr(operand)
	if !isConstLiteral(operand) {
		return
	}
	var s string
	switch operand.Kind {
	case ast.IntegerLiteral:
		s = "integer"
	case ast.FloatLiteral:
		s = "float"
	case ast.StringLiteral:
		s = "string"
	case ast.BooleanLiteral:
		s = "boolean"
	case ast.VoidLiteral:
		s = "void"
	default:
		return
	}
	replaceInPlace(n, ref(stringLiteral(*n, s, false)))
	o.changed++
}

// interpolated applies rule 3: adjacent constant string-literal segments
// are merged, empty segments are dropped, and a single remaining child
// collapses the whole interpolation to that child.
func (o *Optimizer) interpolated(n *ast.Node) {
	for c := n.Children; c != nil; c = c.Next {
		if c.Kind != ast.StringLiteral {
			o.expr(c)
		}
	}

	var head, tail *ast.Node
	changed := false
	for c := n.Children; c != nil; {
		next := c.Next
		if c.Kind == ast.StringLiteral && c.Str == "" {
			changed = true
			c = next
			continue
		}
		if c.Kind == ast.StringLiteral && tail != nil && tail.Kind == ast.StringLiteral &&
			tail.Token.StringStyle == c.Token.StringStyle {
			tail.Str += c.Str
			changed = true
			c = next
			continue
		}
		c.Next = nil
		if head == nil {
			head = c
		} else {
			tail.Next = c
		}
		tail = c
		c = next
	}
	if changed {
		o.changed++
	}
	n.Children = head

	if head != nil && head.Next == nil {
		replaceInPlace(n, head)
		o.changed++
	} else if head == nil {
		replaceInPlace(n, ref(stringLiteral(*n, "", false)))
		o.changed++
	}
}

// constFunCall flags a direct call to a resolved const, capture-free
// function for the code generator's direct-call optimization (rule 9's
// "const function" classification, spec.md GLOSSARY "Self-referencing
// function").
func (o *Optimizer) constFunCall(n *ast.Node) {
	callee := n.Children
	if callee == nil || callee.Kind != ast.Identifier || !callee.IsVar || callee.IsConstFun {
		return
	}
	ann, ok := callee.Annotation().(*sema.VarAnnotation)
	if !ok {
		return
	}
	v := o.unit.Var(ann.Var)
	if !v.IsConst {
		return
	}
	fn, ok := v.ConstValue.(*ast.Node)
	if !ok || fn == nil || fn.Kind != ast.FunctionLiteral || !fn.IsScope {
		return
	}
	scopeAnn, ok := fn.Annotation().(*sema.ScopeAnnotation)
	if !ok {
		return
	}
	scope := o.unit.Scope(scopeAnn.Scope)
	frame := o.unit.Frame(scope.OwningFrame)
	if len(frame.ScopeRefs) > 0 || frame.NumBinds > 0 || frame.NumDefaultsUsed > 0 {
		return
	}
	callee.IsConstFun = true
	o.changed++
}
