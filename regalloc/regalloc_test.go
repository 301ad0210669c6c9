package regalloc

import (
	"testing"

	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/parser"
	"github.com/kos-lang/kos/sema"
)

type noImports struct{}

func (noImports) ImportModule(string) (int, bool)  { return 0, false }
func (noImports) ResolveGlobal(string) (int, bool) { return 0, false }

func resolveSource(t *testing.T, src string) (*ast.Node, *sema.Unit) {
	t.Helper()
	l := lexer.New("test.kos", src)
	p := parser.New(l)
	program := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	r := sema.NewResolver("test.kos", noImports{})
	if errs := r.Resolve(program); len(errs) > 0 {
		t.Fatalf("unexpected resolve errors: %v", errs)
	}
	return program, r.Unit()
}

// findFunctionLiterals returns every FunctionLiteral node in program, in
// encounter order (pre-order).
func findFunctionLiterals(n *ast.Node, out *[]*ast.Node) {
	if n == nil {
		return
	}
	if n.Kind == ast.FunctionLiteral {
		*out = append(*out, n)
	}
	for c := n.Children; c != nil; c = c.Next {
		findFunctionLiterals(c, out)
	}
}

func scopeOf(t *testing.T, unit *sema.Unit, fn *ast.Node) *sema.Scope {
	t.Helper()
	ann, ok := fn.Annotation().(*sema.ScopeAnnotation)
	if !ok {
		t.Fatalf("function literal has no scope annotation")
	}
	return unit.Scope(ann.Scope)
}

func varNamed(unit *sema.Unit, scope *sema.Scope, name string) *sema.Variable {
	for _, vid := range scope.Vars {
		v := unit.Var(vid)
		if v.Name == name {
			return v
		}
	}
	return nil
}

func TestRunPlacesParametersWithinLimitInRegisters(t *testing.T) {
	program, unit := resolveSource(t, "fun f(a, b, c) { return a + b + c; }")
	a := New(unit)
	a.Run()

	var fns []*ast.Node
	findFunctionLiterals(program, &fns)
	if len(fns) != 1 {
		t.Fatalf("expected 1 function literal, got %d", len(fns))
	}
	scope := scopeOf(t, unit, fns[0])
	if scope.HaveRest {
		t.Fatal("expected HaveRest to stay false for a 3-parameter function")
	}

	for i, name := range []string{"a", "b", "c"} {
		v := varNamed(unit, scope, name)
		if v == nil {
			t.Fatalf("parameter %q not found", name)
		}
		if v.Class != sema.ClassArgumentInReg {
			t.Fatalf("parameter %q: expected ClassArgumentInReg, got %v", name, v.Class)
		}
		if v.Index != i {
			t.Fatalf("parameter %q: expected register index %d, got %d", name, i, v.Index)
		}
	}
}

func TestRunOverflowsExcessParametersToArraySlots(t *testing.T) {
	src := "fun f(a0, a1, a2, a3, a4, a5, a6, a7) { return a7; }"
	program, unit := resolveSource(t, src)
	a := New(unit)
	a.Run()

	var fns []*ast.Node
	findFunctionLiterals(program, &fns)
	scope := scopeOf(t, unit, fns[0])
	if !scope.HaveRest {
		t.Fatal("expected HaveRest to be set once parameters exceed MaxArgRegs")
	}
	if scope.NumArgs != 8 {
		t.Fatalf("expected NumArgs 8, got %d", scope.NumArgs)
	}

	for i := 0; i < MaxArgRegs; i++ {
		v := varNamed(unit, scope, paramName(i))
		if v.Class != sema.ClassArgumentInReg {
			t.Fatalf("parameter %d: expected ClassArgumentInReg, got %v", i, v.Class)
		}
		if v.Index != i {
			t.Fatalf("parameter %d: expected register index %d, got %d", i, i, v.Index)
		}
	}
	for i := MaxArgRegs; i < 8; i++ {
		v := varNamed(unit, scope, paramName(i))
		if v.Class != sema.ClassArgument {
			t.Fatalf("parameter %d: expected array-slot ClassArgument, got %v", i, v.Class)
		}
		if v.Index != i-MaxArgRegs {
			t.Fatalf("parameter %d: expected array_idx %d, got %d", i, i-MaxArgRegs, v.Index)
		}
	}
}

func paramName(i int) string {
	return "a" + string(rune('0'+i))
}

func TestRunReclassifiesCapturedArgumentStillInRegister(t *testing.T) {
	program, unit := resolveSource(t, "const make = fun(x) { return fun() { return x; }; };")
	a := New(unit)
	a.Run()

	var fns []*ast.Node
	findFunctionLiterals(program, &fns)
	if len(fns) != 2 {
		t.Fatalf("expected 2 function literals, got %d", len(fns))
	}
	outer := scopeOf(t, unit, fns[0])
	x := varNamed(unit, outer, "x")
	if x == nil {
		t.Fatal("parameter x not found")
	}
	if x.Class != sema.ClassIndependentArgInReg {
		t.Fatalf("expected captured-but-in-register argument to be ClassIndependentArgInReg, got %v", x.Class)
	}
	if outer.NumIndepArgs != 1 {
		t.Fatalf("expected NumIndepArgs 1, got %d", outer.NumIndepArgs)
	}
}
