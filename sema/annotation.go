package sema

import "github.com/kos-lang/kos/ast"

// VarAnnotation is attached to an Identifier node (ast.Node.IsVar set) once
// the resolver has bound it to a declared Variable.
type VarAnnotation struct {
	Var VarID
	// ScopeDistance counts how many enclosing frames lie between the
	// reference site and the variable's owning frame; zero for a
	// same-frame reference. Set by the resolver; the code generator does
	// not read it.
	ScopeDistance int
}

func (*VarAnnotation) isAnnotation() {}

// ScopeAnnotation is attached to any node that introduces its own Scope
// (ast.Node.IsScope set): Program, Block, FunctionLiteral, Catch, For,
// ForIn, ClassLiteral.
type ScopeAnnotation struct {
	Scope ScopeID
}

func (*ScopeAnnotation) isAnnotation() {}

func setVar(n *ast.Node, id VarID) {
	n.IsVar = true
	n.SetAnnotation(&VarAnnotation{Var: id})
}

func setScope(n *ast.Node, id ScopeID) {
	n.IsScope = true
	n.SetAnnotation(&ScopeAnnotation{Scope: id})
}

func nodeVar(n *ast.Node) (VarID, bool) {
	if !n.IsVar {
		return 0, false
	}
	ann, ok := n.Annotation().(*VarAnnotation)
	if !ok {
		return 0, false
	}
	return ann.Var, true
}

func nodeScope(n *ast.Node) (ScopeID, bool) {
	if !n.IsScope {
		return 0, false
	}
	ann, ok := n.Annotation().(*ScopeAnnotation)
	if !ok {
		return 0, false
	}
	return ann.Scope, true
}
