// Package optimize implements the fixed-point optimizer of spec.md §4.4:
// constant folding, dead-branch/dead-variable elimination, terminator
// propagation, and constant propagation, all operating in place on the
// [ast.Node] tree the resolver annotated.
//
// Grounded on spec.md §4.4's own description of the driver loop ("a
// single driver function that zeros the counter, invokes one pass, and
// re-invokes while the counter is nonzero, bounded by a large sanity cap")
// from the Design Notes (§9); no pack repo implements this exact
// multi-pass AST rewriter, so the walk structure follows the
// resolver's own recursive-descent-over-ast.Node shape (sema/resolver.go)
// applied to rewriting instead of binding.
package optimize

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/sema"
	"github.com/kos-lang/kos/token"
)

// MaxPasses bounds the fixed-point loop as a sanity cap against a buggy
// transformation that never converges (spec.md §9's "bounded by a large
// sanity cap to catch infinite loops").
const MaxPasses = 1000

// Optimizer runs the optimization passes of spec.md §4.4 over one
// resolved compilation unit.
type Optimizer struct {
	unit    *sema.Unit
	fileID  string
	errs    []*diag.Error
	changed int
}

// New creates an Optimizer over unit, the [sema.Unit] populated by a prior
// resolver pass.
func New(fileID string, unit *sema.Unit) *Optimizer {
	return &Optimizer{unit: unit, fileID: fileID}
}

// Run iterates passes over program until one makes zero transformations,
// returning the number of passes executed and any diagnostics raised
// (compile-time constant-folding errors: division by zero, out-of-range
// float-to-int conversion, oversized string concatenation). Integer
// folding wraps on overflow and raises no diagnostic.
func (o *Optimizer) Run(program *ast.Node) (passes int, errs []*diag.Error) {
	o.unit.EachVar(func(_ sema.VarID, v *sema.Variable) { v.PrevReads = -1 })
	for passes = 1; passes <= MaxPasses; passes++ {
		o.changed = 0
		o.zeroPassCounters()
		o.stmtList(program)
		if o.changed == 0 || len(o.errs) > 0 {
			break
		}
		o.snapshotPrevReads()
	}
	return passes, o.errs
}

func (o *Optimizer) errorf(pos diag.Position, format string, args ...any) {
	o.errs = append(o.errs, diag.New(diag.CompileFailed, pos, format, args...))
}

// zeroPassCounters clears the counters a new pass accumulates into,
// leaving PrevReads (the previous pass's finished count) untouched.
func (o *Optimizer) zeroPassCounters() {
	o.unit.EachVar(func(_ sema.VarID, v *sema.Variable) {
		v.NumReads = 0
		v.NumWrites = 0
	})
}

// snapshotPrevReads runs once a pass finishes so the next pass's dead
// variable elimination sees this pass's final read count.
func (o *Optimizer) snapshotPrevReads() {
	o.unit.EachVar(func(_ sema.VarID, v *sema.Variable) {
		v.PrevReads = v.NumReads
	})
}

// replaceInPlace overwrites n's content with repl's, preserving n's
// sibling link (Next) and identity — every other pointer into the tree
// that already holds n keeps working after the rewrite, exactly as the
// original's in-place AST mutation model requires (spec.md §3.2
// lifecycle: nodes are never individually freed, only mutated).
func replaceInPlace(n, repl *ast.Node) {
	next := n.Next
	*n = *repl
	n.Next = next
}

func intLiteral(tok ast.Node, v int64) ast.Node {
	lit := ast.New(ast.IntegerLiteral, tok.Token)
	lit.Operand = v
	return *lit
}

func floatLiteral(tok ast.Node, v float64) ast.Node {
	lit := ast.New(ast.FloatLiteral, tok.Token)
	lit.Flt = v
	return *lit
}

func boolLiteral(tok ast.Node, v bool) ast.Node {
	lit := ast.New(ast.BooleanLiteral, tok.Token)
	if v {
		lit.Operand = 1
	}
	return *lit
}

func stringLiteral(tok ast.Node, v string, raw bool) ast.Node {
	lit := ast.New(ast.StringLiteral, tok.Token)
	lit.Str = v
	lit.Token.StringStyle = styleOf(raw)
	return *lit
}

func styleOf(raw bool) token.StringStyle {
	if raw {
		return token.Raw
	}
	return token.Cooked
}

func voidLiteral(tok ast.Node) ast.Node {
	return *ast.New(ast.VoidLiteral, tok.Token)
}

// isConstLiteral reports whether n is a fully-folded literal the
// short-circuit/dead-branch/typeof passes can read a value from.
func isConstLiteral(n *ast.Node) bool {
	switch n.Kind {
	case ast.IntegerLiteral, ast.FloatLiteral, ast.StringLiteral, ast.BooleanLiteral, ast.VoidLiteral:
		return true
	default:
		return false
	}
}

// truthy implements the VM's truthiness rule for a constant literal: only
// false, void, integer 0, float 0.0, and the empty string are falsy.
func truthy(n *ast.Node) (value bool, ok bool) {
	switch n.Kind {
	case ast.BooleanLiteral:
		return n.Operand != 0, true
	case ast.VoidLiteral:
		return false, true
	case ast.IntegerLiteral:
		return n.Operand != 0, true
	case ast.FloatLiteral:
		return n.Flt != 0, true
	case ast.StringLiteral:
		return n.Str != "", true
	default:
		return false, false
	}
}
