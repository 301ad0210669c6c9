package optimize

import (
	"testing"

	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/parser"
	"github.com/kos-lang/kos/sema"
)

// noImports is an Importer that rejects every `import`, sufficient for
// tests whose source never imports a module.
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

func firstStmt(program *ast.Node) *ast.Node { return program.Children }

func TestRunFoldsArithmeticIntoSingleLiteral(t *testing.T) {
	program, unit := resolveSource(t, "const x = 1 + 2 * 3;")
	o := New("test.kos", unit)
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	decl := firstStmt(program)
	if decl.Kind != ast.ConstDecl {
		t.Fatalf("expected ConstDecl, got %v", decl.Kind)
	}
	init := decl.Children.Children
	if init.Kind != ast.IntegerLiteral || init.Operand != 7 {
		t.Fatalf("expected folded literal 7, got kind=%v operand=%d", init.Kind, init.Operand)
	}
}

func TestRunFoldsDivisionByZeroIntoCompileError(t *testing.T) {
	program, unit := resolveSource(t, "const z = 5 / 0;")
	o := New("test.kos", unit)
	_, errs := o.Run(program)
	if len(errs) == 0 {
		t.Fatal("expected a compile error for division by zero")
	}
	if errs[0].Message == "" {
		t.Fatal("expected a non-empty diagnostic message")
	}
}

func TestRunFoldsStringConcatenation(t *testing.T) {
	program, unit := resolveSource(t, `const s = "foo" + "bar";`)
	o := New("test.kos", unit)
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	decl := firstStmt(program)
	init := decl.Children.Children
	if init.Kind != ast.StringLiteral || init.Str != "foobar" {
		t.Fatalf("expected folded string \"foobar\", got kind=%v str=%q", init.Kind, init.Str)
	}
}

func TestRunSimplifiesInterpolatedStringFolding(t *testing.T) {
	program, unit := resolveSource(t, `const s = "x=\(1+1) done";`)
	o := New("test.kos", unit)
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	decl := firstStmt(program)
	init := decl.Children.Children
	if init.Kind != ast.InterpolatedString {
		t.Fatalf("expected InterpolatedString, got %v", init.Kind)
	}
	children := init.ChildSlice()
	if len(children) != 3 {
		t.Fatalf("expected 3 children after merging, got %d", len(children))
	}
	if children[0].Kind != ast.StringLiteral || children[0].Str != "x=" {
		t.Fatalf("expected first child \"x=\", got kind=%v str=%q", children[0].Kind, children[0].Str)
	}
	if children[1].Kind != ast.IntegerLiteral || children[1].Operand != 2 {
		t.Fatalf("expected folded 1+1 -> 2, got kind=%v operand=%d", children[1].Kind, children[1].Operand)
	}
	if children[2].Kind != ast.StringLiteral || children[2].Str != " done" {
		t.Fatalf("expected trailing \" done\", got kind=%v str=%q", children[2].Kind, children[2].Str)
	}
}

func TestRunDropsDeadBranch(t *testing.T) {
	program, unit := resolveSource(t, `
fun f() {
    if (true) {
        return 1;
    } else {
        return 2;
    }
}
`)
	o := New("test.kos", unit)
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	fnDecl := firstStmt(program)
	funcLit := fnDecl.Children.Children
	stmt := funcLit.ChildSlice()[1].Children
	if stmt.Kind != ast.Block || stmt.Children == nil || stmt.Children.Kind != ast.Return {
		t.Fatalf("expected the if to collapse to its then-branch, got %v", stmt.Kind)
	}
}

func TestRunDropsStatementsAfterTerminator(t *testing.T) {
	program, unit := resolveSource(t, `
fun f() {
    return 1;
    var unreachable = 2;
}
`)
	o := New("test.kos", unit)
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	fnDecl := firstStmt(program)
	funcLit := fnDecl.Children.Children
	body := funcLit.ChildSlice()[1]
	if body.Children == nil || body.Children.Next != nil {
		t.Fatalf("expected dead code after return to be dropped, body has more than one statement")
	}
}

func TestRunRejectsOversizedStringConcatenation(t *testing.T) {
	a := "\"" + stringOfLen(65000) + "\""
	b := "\"" + stringOfLen(600) + "\""
	src := "const s = " + a + " + " + b + ";"
	program, unit := resolveSource(t, src)
	o := New("test.kos", unit)
	_, errs := o.Run(program)

	decl := firstStmt(program)
	init := decl.Children.Children
	if init.Kind == ast.StringLiteral {
		t.Fatalf("expected concatenation over 65535 bytes to not fold, got a folded literal of len %d", len(init.Str))
	}
	_ = errs
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
