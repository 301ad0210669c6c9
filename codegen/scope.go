package codegen

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/sema"
)

// isLocalClass reports whether c's storage is a plain register — as
// opposed to a property on some scope's capture-record object
// (ClassIndependent*) or a module-global slot.
func isLocalClass(c sema.Class) bool {
	switch c {
	case sema.ClassLocal, sema.ClassArgument, sema.ClassArgumentInReg:
		return true
	default:
		return false
	}
}

// scopeOf returns the ScopeID a node annotated by the resolver as a scope
// owner carries. Every Block, For, ForIn, Catch, ClassLiteral,
// FunctionLiteral, and Program node qualifies.
func scopeOf(n *ast.Node) sema.ScopeID {
	return n.Annotation().(*sema.ScopeAnnotation).Scope
}

// enterScope allocates and initializes scopeID's capture-record object —
// the single OpLoadObj-built env-object backing every independent variable
// declared directly in it — if it actually needs one. A scope with no
// independent var or argument gets no record and no register; reads/writes
// of its (plain) locals go straight to registers instead.
func (g *Generator) enterScope(f *fnGen, scopeID sema.ScopeID, line int32) bool {
	sc := g.unit.Scope(scopeID)
	if sc.NumIndepVars+sc.NumIndepArgs == 0 {
		return false
	}
	reg := f.alloc()
	f.emit(line, bytecode.OpLoadObj, reg)
	f.envOf[scopeID] = reg
	return true
}

// leaveScope releases the register enterScope allocated, if it allocated
// one. A fresh record is built again the next time the same scope node
// executes — each loop iteration gets its own, matching Kos's per-
// iteration closure semantics.
func (g *Generator) leaveScope(f *fnGen, scopeID sema.ScopeID, created bool) {
	if !created {
		return
	}
	f.release(f.envOf[scopeID])
	delete(f.envOf, scopeID)
}
