// Package regalloc implements the register allocator of spec.md §4.5: a
// separate walk, run after the optimizer reaches its fixed point, that
// decides each function parameter's final storage.
//
// The allocator does not itself bind locals to physical register numbers
// — spec.md §4.5 reserves that for the code generator, which "binds these
// to physical registers (pulled from the per-frame free list) just before
// emitting the body." This package's job is narrower: classify each
// parameter as register-resident or array-slot, and refine a captured
// argument's class to IndependentArgInReg when it still fits in a
// register despite being captured.
//
// Grounded on spec.md §4.5 directly (no pack repo implements this two-
// tier argument placement); the free-list/high-water-mark register model
// that the later code generator will pull from follows the shape of
// ccdavis-min-lang's register_compiler.go (`nextReg`, `MaxRegs`,
// freed-temp reuse) rather than kong's purely stack-based compiler, since
// kong never allocates registers at all.
package regalloc

import "github.com/kos-lang/kos/sema"

// MaxArgRegs bounds how many leading parameter positions are placed in
// physical argument registers. Positions at or beyond this index overflow
// into array-slot parameters packed into the VM's rest array (spec.md
// §4.5: "bounded by a compile-time constant, typically on the order of
// 4-8").
const MaxArgRegs = 6

// Allocator runs the register-placement walk over one resolved and
// optimized compilation unit.
type Allocator struct {
	unit *sema.Unit
}

// New creates an Allocator over unit.
func New(unit *sema.Unit) *Allocator {
	return &Allocator{unit: unit}
}

// Run walks every frame the resolver built and assigns each parameter's
// final placement. It must run after the optimizer has stabilized: dead
// parameter elimination does not apply to arguments (the VM's calling
// convention fixes arity), but constant propagation's variable-class
// bookkeeping must already be settled before placement decisions are
// made final.
func (a *Allocator) Run() {
	a.unit.EachFrame(func(_ sema.FrameID, f *sema.Frame) {
		a.allocateFrame(f)
	})
	// Independent-variable counts are per scope, not per frame: a captured
	// variable declared in a nested block needs its own scope's counter set
	// so codegen knows that block requires a capture-record object.
	a.unit.EachScope(func(_ sema.ScopeID, s *sema.Scope) {
		s.NumIndepVars = 0
		for _, vid := range s.Vars {
			v := a.unit.Var(vid)
			if v.Type != sema.VarTypeArgument && v.Class == sema.ClassIndependentLocal {
				s.NumIndepVars++
			}
		}
	})
}

func (a *Allocator) allocateFrame(f *sema.Frame) {
	scope := a.unit.Scope(f.Scope)
	args := a.arguments(scope)

	if len(args) > MaxArgRegs {
		scope.HaveRest = true
	}

	scope.NumArgs = 0
	scope.NumIndepArgs = 0

	for i, vid := range args {
		v := a.unit.Var(vid)
		if v.Class == sema.ClassUnresolved {
			// Never referenced anywhere, so it was never captured either:
			// classify it as a plain, non-independent argument.
			v.Class = sema.ClassArgument
		}

		scope.NumArgs++
		if v.IsIndependent() {
			scope.NumIndepArgs++
		}

		if i >= MaxArgRegs {
			// Array-slot parameter: its array_idx is offset past the
			// register-resident positions that precede it.
			v.Index = i - MaxArgRegs
			continue
		}

		v.Index = i
		switch v.Class {
		case sema.ClassIndependentArgument:
			v.Class = sema.ClassIndependentArgInReg
		case sema.ClassArgument:
			v.Class = sema.ClassArgumentInReg
		}
	}

}

// arguments returns scope's declared parameters, in declaration order,
// excluding a trailing `...rest` parameter: that binding is always
// array-resident regardless of position and never competes for an
// argument register.
func (a *Allocator) arguments(scope *sema.Scope) []sema.VarID {
	var out []sema.VarID
	for _, vid := range scope.Vars {
		v := a.unit.Var(vid)
		if v.Type == sema.VarTypeArgument && !v.IsEllipsis {
			out = append(out, vid)
		}
	}
	return out
}
