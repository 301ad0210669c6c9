package optimize

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/sema"
)

// stmtList walks the statement children of a Program/Block/Case/Default
// node, folding each one and then applying terminator propagation
// (spec.md §4.4 rule 7): once a statement in the list is proven to always
// transfer control away, every later sibling is unreachable and is
// dropped by severing the list's Next link.
func (o *Optimizer) stmtList(n *ast.Node) {
	for c := n.Children; c != nil; c = c.Next {
		o.stmt(c)
		if isTerminator(c) && c.Next != nil {
			c.Next = nil
			o.changed++
			break
		}
	}
}

// isTerminator reports whether n always transfers control away from its
// enclosing statement list (spec.md §4.4 rule 7, GLOSSARY "Terminator").
func isTerminator(n *ast.Node) bool {
	switch n.Kind {
	case ast.Return, ast.Throw, ast.Break, ast.Continue:
		return true
	case ast.If:
		children := n.ChildSlice()
		if len(children) < 3 {
			return false // no else branch: falls through when condition is false
		}
		return isTerminator(children[1]) && isTerminator(children[2])
	case ast.Block:
		last := lastChild(n)
		return last != nil && isTerminator(last)
	default:
		return false
	}
}

func lastChild(n *ast.Node) *ast.Node {
	var last *ast.Node
	for c := n.Children; c != nil; c = c.Next {
		last = c
	}
	return last
}

func (o *Optimizer) stmt(n *ast.Node) {
	switch n.Kind {
	case ast.VarDecl, ast.ConstDecl, ast.PublicVarDecl, ast.PublicConstDecl:
		o.declStmt(n)
	case ast.Assign:
		o.assignStmt(n)
	case ast.MultiAssign:
		// Targets must not be substituted like reads; only the trailing
		// value expression folds.
		cc := n.ChildSlice()
		if len(cc) > 0 {
			o.expr(cc[len(cc)-1])
			for _, t := range cc[:len(cc)-1] {
				if t.Kind == ast.Identifier {
					o.trackWrite(t)
				} else {
					o.expr(t)
				}
			}
		}
	case ast.Destructure:
		for c := n.Children; c != nil; c = c.Next {
			o.expr(c)
		}
	case ast.ExprStmt:
		o.expr(n.Children)
		o.dropDummyLoad(n)
	case ast.Block:
		o.stmtList(n)
	case ast.If:
		o.ifStmt(n)
	case ast.While:
		o.whileStmt(n)
	case ast.Repeat:
		children := n.ChildSlice()
		o.stmt(children[0])
		o.expr(children[1])
	case ast.For:
		o.forStmt(n)
	case ast.ForIn:
		children := n.ChildSlice()
		o.expr(children[1])
		o.stmt(children[2])
	case ast.Try:
		o.tryStmt(n)
	case ast.Defer, ast.Throw, ast.Assert:
		o.expr(n.Children)
	case ast.Return:
		if n.Children != nil {
			o.expr(n.Children)
		}
	case ast.Switch:
		o.switchStmt(n)
	case ast.ClassDecl:
		children := n.ChildSlice()
		o.expr(children[1])
	case ast.Break, ast.Continue, ast.Fallthrough, ast.Import:
		// nothing to fold
	default:
		o.expr(n)
	}
}

func (o *Optimizer) declStmt(n *ast.Node) {
	nameNode := n.Children
	if nameNode == nil {
		return
	}
	// A declaration's initializer is nameNode's own child, the same shape
	// the parser uses for parameter defaults (parser/expr.go).
	if init := nameNode.Children; init != nil {
		o.expr(init)
	}
	o.tryPromoteToConst(n, nameNode)
}

func (o *Optimizer) assignStmt(n *ast.Node) {
	children := n.ChildSlice()
	target, value := children[0], children[1]
	o.expr(value)
	if target.Kind != ast.Identifier {
		o.expr(target)
		return
	}
	if o.tryEliminateDeadAssign(n, target, value) {
		return
	}
	o.trackWrite(target)
}

// tryEliminateDeadAssign implements spec.md §4.4 rule 10: an assignment
// whose target was never read in the previous pass is replaced by its
// RHS evaluated for side effects, or dropped to void if the RHS is
// already a pure literal with nothing left to evaluate.
func (o *Optimizer) tryEliminateDeadAssign(n, target, value *ast.Node) bool {
	if !target.IsVar {
		return false
	}
	ann, ok := target.Annotation().(*sema.VarAnnotation)
	if !ok {
		return false
	}
	v := o.unit.Var(ann.Var)
	if v.PrevReads < 0 || v.PrevReads > 0 {
		return false
	}
	stmt := ast.New(ast.ExprStmt, n.Token)
	if isConstLiteral(value) {
		stmt.AddChild(ref(voidLiteral(*n)))
	} else {
		stmt.AddChild(value)
	}
	replaceInPlace(n, stmt)
	o.changed++
	return true
}

func (o *Optimizer) ifStmt(n *ast.Node) {
	children := n.ChildSlice()
	cond := children[0]
	o.expr(cond)

	if isConstLiteral(cond) {
		v, _ := truthy(cond)
		if v {
			replaceInPlace(n, children[1])
			o.changed++
			o.stmt(n)
			return
		}
		if len(children) > 2 {
			replaceInPlace(n, children[2])
			o.changed++
			o.stmt(n)
			return
		}
		// No else: the whole `if` becomes dead; replace it with an empty
		// Block (the folded constant condition has no side effects).
		replaceInPlace(n, ast.New(ast.Block, n.Token))
		o.changed++
		return
	}

	o.stmt(children[1])
	if len(children) > 2 {
		o.stmt(children[2])
	}
}

func (o *Optimizer) whileStmt(n *ast.Node) {
	children := n.ChildSlice()
	o.expr(children[0])
	o.stmt(children[1])
	// Loop-condition simplification (spec.md §4.4 rule 8), limited to a
	// condition that is already a constant literal after folding: a falsy
	// one replaces the whole loop, body included, with an empty Block.
	// A body that always terminates is not simplified; every other loop is
	// left as a normal conditional jump for codegen.
	if isConstLiteral(children[0]) {
		if v, _ := truthy(children[0]); !v {
			replaceInPlace(n, ast.New(ast.Block, n.Token))
			o.changed++
		}
	}
}

func (o *Optimizer) forStmt(n *ast.Node) {
	children := n.ChildSlice()
	hasInit := children[0].Kind != ast.Landmark
	hasCond := children[1].Kind != ast.Landmark
	hasPost := children[2].Kind != ast.Landmark
	if hasInit {
		o.stmt(children[0])
	}
	if hasCond {
		o.expr(children[1])
	}
	if hasPost {
		o.stmt(children[2])
	}
	o.stmt(children[3])

	if hasCond && isConstLiteral(children[1]) {
		if v, _ := truthy(children[1]); !v {
			// `for` with a false condition never runs its body or post
			// step (spec.md §4.4 rule 8); reduce to just the init
			// statement, if any.
			if hasInit {
				replaceInPlace(n, children[0])
			} else {
				replaceInPlace(n, ast.New(ast.Block, n.Token))
			}
			o.changed++
		}
	}
}

func (o *Optimizer) tryStmt(n *ast.Node) {
	children := n.ChildSlice()
	o.stmt(children[0])
	for _, c := range children[1:] {
		if c.Kind != ast.Catch {
			continue
		}
		cc := c.ChildSlice()
		if len(cc) > 0 {
			o.stmt(cc[len(cc)-1])
		}
	}
}

func (o *Optimizer) switchStmt(n *ast.Node) {
	children := n.ChildSlice()
	o.expr(children[0])
	for _, c := range children[1:] {
		cc := c.ChildSlice()
		if c.Kind == ast.Case {
			o.expr(cc[0])
			o.stmtListFrom(cc[1:])
		} else {
			o.stmtListFrom(cc)
		}
	}
}

// stmtListFrom applies terminator propagation to an already-materialized
// slice of statements (switch case bodies, which do not have a single
// Children head distinct from their leading value expression).
func (o *Optimizer) stmtListFrom(stmts []*ast.Node) {
	for i, c := range stmts {
		o.stmt(c)
		if isTerminator(c) && i < len(stmts)-1 {
			c.Next = nil
			o.changed++
			break
		}
	}
}

// dropDummyLoad removes an expression-statement whose expression is a
// side-effect-free literal or bare identifier reference — a "dummy load"
// left behind by constant folding or substitution whose value nothing
// uses (spec.md §4.4, "dummy loads... at statement position are
// removed").
func (o *Optimizer) dropDummyLoad(stmt *ast.Node) {
	expr := stmt.Children
	if expr == nil {
		return
	}
	if isConstLiteral(expr) || (expr.Kind == ast.Identifier && expr.IsVar) {
		replaceInPlace(stmt, ast.New(ast.Block, stmt.Token))
		o.changed++
	}
}
