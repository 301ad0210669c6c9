package sema

import "github.com/kos-lang/kos/token"

// VarType classifies how a variable was declared, independent of where it
// ends up living once resolution assigns it a storage class.
type VarType int

const (
	VarTypeVar VarType = iota
	VarTypeConst
	VarTypeArgument
	VarTypeFunction // function-statement / class-statement self-binding
	VarTypeModule   // bound by an `import` statement
	VarTypeThis
)

// VarActive tracks whether a variable may legally be referenced yet. A
// catch-clause's exception variable, for instance, is inactive outside its
// handler body (spec.md §4.3 catch-scope rules); a `var`/`const` binding is
// inactive until its declaring statement has finished executing, which
// catches `var x = x;` self-reference as an undeclared-identifier error.
type VarActive int

const (
	VarInactive VarActive = iota
	VarDeclared
)

// Class is the storage class the resolver assigns a variable once its
// capture pattern across frame boundaries is known (spec.md §3.4).
type Class int

const (
	ClassUnresolved Class = iota
	ClassLocal
	ClassArgument
	ClassArgumentInReg
	ClassIndependentLocal
	ClassIndependentArgument
	ClassIndependentArgInReg
	ClassGlobal
	ClassModule
	ClassImported
)

func (c Class) String() string {
	switch c {
	case ClassLocal:
		return "local"
	case ClassArgument:
		return "argument"
	case ClassArgumentInReg:
		return "argument-in-register"
	case ClassIndependentLocal:
		return "independent-local"
	case ClassIndependentArgument:
		return "independent-argument"
	case ClassIndependentArgInReg:
		return "independent-argument-in-register"
	case ClassGlobal:
		return "global"
	case ClassModule:
		return "module"
	case ClassImported:
		return "imported"
	default:
		return "unresolved"
	}
}

// Variable is one declared binding: a `var`/`const`, a function parameter,
// an imported symbol, or the implicit `this`.
type Variable struct {
	Name  string
	Token token.Token
	Scope ScopeID
	Type  VarType
	Class Class
	Active VarActive

	IsConst    bool
	IsEllipsis bool // `...rest` parameter

	// Index is the slot this variable occupies once Class is assigned:
	// a register index for Local/Argument classes, a global-table index
	// for Global, an imported-module-table index for Imported/Module.
	Index int

	// NumReads / NumWrites support the dead-variable-elimination and
	// constant-propagation optimizer passes (spec.md §4.4): a variable
	// written once and never read is a removal candidate; a variable never
	// reassigned after its initializer is a constant-propagation candidate.
	NumReads  int
	NumWrites int

	// PrevReads is NumReads as it stood at the end of the previous
	// optimizer pass, or -1 before the first pass has completed. Dead
	// variable elimination (spec.md §4.4 rule 10) reads this rather than
	// NumReads because NumReads is only partially accumulated mid-pass.
	PrevReads int

	// ConstValue caches the single assigned value's AST node once constant
	// propagation has proven a variable is never reassigned, letting
	// subsequent passes substitute it directly without re-walking scope.
	ConstValue any
}

// IsIndependent reports whether v is captured from an enclosing frame,
// i.e. a closure upvalue rather than a plain local.
func (v *Variable) IsIndependent() bool {
	switch v.Class {
	case ClassIndependentLocal, ClassIndependentArgument, ClassIndependentArgInReg:
		return true
	default:
		return false
	}
}
