package sema

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/parser"
)

type fakeImporter struct {
	modules map[string]int
	globals map[string]int
}

func (f fakeImporter) ImportModule(name string) (int, bool) {
	idx, ok := f.modules[name]
	return idx, ok
}

func (f fakeImporter) ResolveGlobal(name string) (int, bool) {
	idx, ok := f.globals[name]
	return idx, ok
}

func parseSource(t *testing.T, src string) *ast.Node {
	t.Helper()
	l := lexer.New("test.kos", src)
	p := parser.New(l)
	program := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return program
}

func resolve(t *testing.T, src string, imp Importer) (*ast.Node, *Unit, []*diag.Error) {
	t.Helper()
	program := parseSource(t, src)
	if imp == nil {
		imp = fakeImporter{}
	}
	r := NewResolver("test.kos", imp)
	errs := r.Resolve(program)
	return program, r.Unit(), errs
}

func fatalErrs(errs []*diag.Error) []*diag.Error {
	var out []*diag.Error
	for _, e := range errs {
		if !e.Warning {
			out = append(out, e)
		}
	}
	return out
}

func TestUndeclaredIdentifier(t *testing.T) {
	_, _, errs := resolve(t, "y = 1;", nil)
	fatal := fatalErrs(errs)
	if len(fatal) == 0 {
		t.Fatal("expected an undeclared-identifier diagnostic")
	}
	e := fatal[0]
	if !strings.Contains(e.Message, "undeclared identifier") {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if e.Pos.Line != 1 || e.Pos.Column != 1 {
		t.Fatalf("expected position 1:1, got %d:%d", e.Pos.Line, e.Pos.Column)
	}
}

func TestSelfReferentialInitializerRejected(t *testing.T) {
	_, _, errs := resolve(t, "var x = x;", nil)
	if len(fatalErrs(errs)) == 0 {
		t.Fatal("expected `var x = x;` to fail: the binding is inactive in its own initializer")
	}
}

func TestSelfReferentialInitializerSeesOuterBinding(t *testing.T) {
	src := `
var x = 1;
fun f() {
    var x = x;
    return x;
}
`
	_, _, errs := resolve(t, src, nil)
	if len(fatalErrs(errs)) != 0 {
		// The inner initializer's x must resolve to the outer x, not fail.
		t.Fatalf("expected the shadowing initializer to resolve to the outer x, got %v", errs)
	}
}

func TestAssignmentToConstRejected(t *testing.T) {
	_, _, errs := resolve(t, "const c = 1; c = 2;", nil)
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "const") {
		t.Fatalf("expected a const-assignment diagnostic, got %v", errs)
	}
}

func TestRedefinitionRejected(t *testing.T) {
	_, _, errs := resolve(t, "var x = 1; var x = 2;", nil)
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "redefined") {
		t.Fatalf("expected a redefinition diagnostic, got %v", errs)
	}
}

func TestShadowingInNestedScopeAllowed(t *testing.T) {
	_, _, errs := resolve(t, "var x = 1; { var x = 2; }", nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("shadowing in a nested scope must be legal, got %v", errs)
	}
}

func TestCapturedLocalBecomesIndependent(t *testing.T) {
	src := "const make = fun() { var n = 0; return fun() { return n; }; };"
	_, unit, errs := resolve(t, src, nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	var captured *Variable
	unit.EachVar(func(_ VarID, v *Variable) {
		if v.Name == "n" {
			captured = v
		}
	})
	if captured == nil {
		t.Fatal("variable n not found")
	}
	if captured.Class != ClassIndependentLocal {
		t.Fatalf("expected ClassIndependentLocal, got %v", captured.Class)
	}
}

func TestCaptureAfterLocalReadStillPromotes(t *testing.T) {
	src := `
fun outer() {
    var x = 1;
    var y = x;
    const f = fun() { return x; };
    return f;
}
`
	_, unit, errs := resolve(t, src, nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var x *Variable
	unit.EachVar(func(_ VarID, v *Variable) {
		if v.Name == "x" {
			x = v
		}
	})
	if x.Class != ClassIndependentLocal {
		t.Fatalf("a local read before being captured must still end up independent, got %v", x.Class)
	}
}

func TestCaptureThreadsThroughIntermediateFrames(t *testing.T) {
	src := "const make = fun() { var n = 0; return fun() { return fun() { return n; }; }; };"
	_, unit, errs := resolve(t, src, nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// n lives in the outermost fun's frame; both inner frames must carry a
	// ScopeRef to it (spec: every intermediate function gets an edge).
	framesWithRef := 0
	unit.EachFrame(func(_ FrameID, f *Frame) {
		for _, ref := range f.ScopeRefs {
			for _, vid := range ref.Vars {
				if unit.Var(vid).Name == "n" {
					framesWithRef++
				}
			}
		}
	})
	if framesWithRef != 2 {
		t.Fatalf("expected 2 frames to carry the capture edge, got %d", framesWithRef)
	}
}

func TestPublicDeclarationBecomesGlobal(t *testing.T) {
	_, unit, errs := resolve(t, "public var g = 1;", nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var g *Variable
	unit.EachVar(func(_ VarID, v *Variable) {
		if v.Name == "g" {
			g = v
		}
	})
	if g.Class != ClassGlobal {
		t.Fatalf("expected ClassGlobal, got %v", g.Class)
	}
}

func TestImportSymbolBindsImportedConst(t *testing.T) {
	imp := fakeImporter{modules: map[string]int{"io": 3}}
	_, unit, errs := resolve(t, "import io.print;\nprint;", imp)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var p *Variable
	unit.EachVar(func(_ VarID, v *Variable) {
		if v.Name == "print" {
			p = v
		}
	})
	if p == nil || p.Class != ClassImported || p.Index != 3 {
		t.Fatalf("expected print bound as Imported with module index 3, got %+v", p)
	}
}

func TestUnknownImportReportsCycleDiagnostic(t *testing.T) {
	_, _, errs := resolve(t, "import missing;", fakeImporter{})
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "circular dependencies detected") {
		t.Fatalf("expected the import-failure diagnostic, got %v", errs)
	}
}

// countingImporter accepts every module name, handing out sequential
// indices, so the module-count boundary can be driven for real.
type countingImporter struct{ n int }

func (c *countingImporter) ImportModule(string) (int, bool) {
	c.n++
	return c.n - 1, true
}

func (c *countingImporter) ResolveGlobal(string) (int, bool) { return 0, false }

func TestModuleCountBoundary(t *testing.T) {
	build := func(n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "import m%d;\n", i)
		}
		return b.String()
	}

	_, _, errs := resolve(t, build(MaxModules), &countingImporter{})
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("importing exactly %d modules must succeed, got %v", MaxModules, fatalErrs(errs)[0])
	}

	_, _, errs = resolve(t, build(MaxModules+1), &countingImporter{})
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "too many modules") {
		t.Fatalf("expected the too-many-modules diagnostic on import %d, got %v", MaxModules+1, errs)
	}
}

func TestCatchVariableScopedToHandler(t *testing.T) {
	src := `
fun f() {
    try {
        return 1;
    } catch (e) {
        return e;
    }
    return e;
}
`
	_, _, errs := resolve(t, src, nil)
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "undeclared identifier") {
		t.Fatalf("expected e to be out of scope after the catch body, got %v", errs)
	}
}

func TestMainShouldBePublicWarning(t *testing.T) {
	_, _, errs := resolve(t, "fun main() { return 0; }", nil)
	var warned bool
	for _, e := range errs {
		if e.Warning && strings.Contains(e.Message, "main should be public") {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a 'main should be public' warning")
	}
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("the warning must not be fatal, got %v", errs)
	}
}

func TestParameterDefaultCannotReferenceSiblingParameter(t *testing.T) {
	_, _, errs := resolve(t, "fun f(a, b = a) { return b; }", nil)
	fatal := fatalErrs(errs)
	if len(fatal) == 0 || !strings.Contains(fatal[0].Message, "undeclared identifier") {
		t.Fatalf("expected a default referencing a sibling parameter to fail, got %v", errs)
	}
}

func TestResolvedIdentifierCarriesAnnotation(t *testing.T) {
	program, unit, errs := resolve(t, "var x = 1; x = 2;", nil)
	if len(fatalErrs(errs)) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	assign := program.ChildSlice()[1]
	target := assign.Children
	if !target.IsVar {
		t.Fatal("expected the assignment target to be marked IsVar")
	}
	ann, ok := target.Annotation().(*VarAnnotation)
	if !ok {
		t.Fatal("expected a VarAnnotation on the resolved identifier")
	}
	if unit.Var(ann.Var).Name != "x" {
		t.Fatalf("annotation bound to %q, want x", unit.Var(ann.Var).Name)
	}
}
