package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/lexer"
)

func parse(t *testing.T, src string) (*ast.Node, []error) {
	t.Helper()
	l := lexer.New("test.kos", src)
	p := New(l)
	program := p.Parse()
	var errs []error
	for _, e := range p.Errors() {
		errs = append(errs, e)
	}
	return program, errs
}

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	program, errs := parse(t, src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, errs)
	}
	return program
}

// sameShape compares two trees by kind, payload, and child structure,
// ignoring source positions.
func sameShape(a, b *ast.Node) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Kind != b.Kind || a.Str != b.Str || a.Operand != b.Operand {
		return false
	}
	ca, cb := a.Children, b.Children
	for ca != nil || cb != nil {
		if !sameShape(ca, cb) {
			return false
		}
		if ca != nil {
			ca = ca.Next
		}
		if cb != nil {
			cb = cb.Next
		}
	}
	return true
}

func TestImplicitSemicolonEquivalence(t *testing.T) {
	stmts := []string{
		"var x = 1",
		"x = x + 2",
		"return",
		"throw x",
	}
	for _, stmt := range stmts {
		withSemi := mustParse(t, "fun f(x) { "+stmt+"; }")
		withEOL := mustParse(t, "fun f(x) { "+stmt+"\n}")
		if !sameShape(withSemi, withEOL) {
			t.Errorf("%q: explicit and implicit terminators produced different trees", stmt)
		}
	}
}

func TestNewlineBeforeCallTerminatesStatement(t *testing.T) {
	program := mustParse(t, "var foo = 1\n(foo)")
	stmts := program.ChildSlice()
	if len(stmts) != 2 {
		t.Fatalf("expected newline before '(' to split into 2 statements, got %d", len(stmts))
	}
	if stmts[0].Kind != ast.VarDecl || stmts[1].Kind != ast.ExprStmt {
		t.Fatalf("unexpected statement kinds %v, %v", stmts[0].Kind, stmts[1].Kind)
	}
}

func TestNewlineInsideParensContinuesExpression(t *testing.T) {
	program := mustParse(t, "var x = (1\n+ 2);")
	stmts := program.ChildSlice()
	if len(stmts) != 1 {
		t.Fatalf("expected a single statement, got %d", len(stmts))
	}
	init := stmts[0].Children.Children
	if init.Kind != ast.Binary {
		t.Fatalf("expected the parenthesized expression to stay one Binary node, got %v", init.Kind)
	}
}

func TestNewlineBeforeBinaryOperatorTerminatesStatement(t *testing.T) {
	// `var x = 1` then a dangling `+2` expression statement.
	program := mustParse(t, "var x = 1\n+2;")
	stmts := program.ChildSlice()
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
}

func TestMixedOperatorsRejected(t *testing.T) {
	cases := []string{
		"const x = 1 == 2 & 3;",
		"const x = 1 & 2 << 3;",
		"const x = true && false || true;",
	}
	for _, src := range cases {
		_, errs := parse(t, src)
		if len(errs) == 0 {
			t.Errorf("%q: expected a mixed-operator diagnostic", src)
			continue
		}
		if !strings.Contains(errs[0].Error(), "parentheses") {
			t.Errorf("%q: expected the diagnostic to suggest parentheses, got %v", src, errs[0])
		}
	}
}

func TestSameClassOperatorRunsAllowed(t *testing.T) {
	for _, src := range []string{
		"const x = 1 & 2 & 3;",
		"const x = true && false && true;",
		"const x = 1 + 2 - 3;",
	} {
		if _, errs := parse(t, src); len(errs) > 0 {
			t.Errorf("%q: unexpected errors %v", src, errs)
		}
	}
}

func TestExpressionDepthLimit(t *testing.T) {
	within := strings.Repeat("(", 50) + "1" + strings.Repeat(")", 50)
	if _, errs := parse(t, "const x = "+within+";"); len(errs) > 0 {
		t.Fatalf("nesting within the limit should parse, got %v", errs)
	}

	over := strings.Repeat("(", MaxExprDepth+1) + "1" + strings.Repeat(")", MaxExprDepth+1)
	_, errs := parse(t, "const x = "+over+";")
	if len(errs) == 0 {
		t.Fatal("expected a depth-limit diagnostic")
	}
	if !strings.Contains(errs[0].Error(), "nesting too deep") {
		t.Fatalf("unexpected diagnostic %v", errs[0])
	}
}

func TestLambdaDetection(t *testing.T) {
	program := mustParse(t, "const f = (a, b) => a + b;")
	fn := program.Children.Children.Children
	if fn.Kind != ast.FunctionLiteral {
		t.Fatalf("expected FunctionLiteral, got %v", fn.Kind)
	}
	params := fn.Children
	if params.Kind != ast.Parameters || params.NumChildren() != 2 {
		t.Fatalf("expected 2 lambda parameters, got %d", params.NumChildren())
	}
	body := params.Next
	if body.Kind != ast.Block || body.Children.Kind != ast.Return {
		t.Fatal("expected expression-bodied lambda to desugar into a returning block")
	}

	// A bare identifier lambda works too.
	program = mustParse(t, "const id = x => x;")
	fn = program.Children.Children.Children
	if fn.Kind != ast.FunctionLiteral || fn.Children.NumChildren() != 1 {
		t.Fatal("expected single-parameter lambda")
	}
}

func TestParenthesizedExpressionIsNotLambda(t *testing.T) {
	program := mustParse(t, "var y = 1; var x = (y);")
	init := program.ChildSlice()[1].Children.Children
	if init.Kind != ast.Identifier {
		t.Fatalf("expected parenthesized identifier, got %v", init.Kind)
	}
}

func TestFunctionStatementDesugarsToConst(t *testing.T) {
	program := mustParse(t, "fun add(a, b) { return a + b; }")
	decl := program.Children
	if decl.Kind != ast.ConstDecl {
		t.Fatalf("expected `fun name` to lower to ConstDecl, got %v", decl.Kind)
	}
	name := decl.Children
	if name.Str != "add" || name.Children.Kind != ast.FunctionLiteral {
		t.Fatal("expected the const binding to hold the function literal")
	}
}

func TestAsyncDoDesugarsToInvokedFunctionLiteral(t *testing.T) {
	program := mustParse(t, "const t = async do { return 1; };")
	asyncNode := program.Children.Children.Children
	if asyncNode.Kind != ast.Async {
		t.Fatalf("expected Async node, got %v", asyncNode.Kind)
	}
	call := asyncNode.Children
	if call.Kind != ast.Call || call.Children.Kind != ast.FunctionLiteral {
		t.Fatal("expected `async do` to wrap a zero-argument function literal invocation")
	}
}

func TestWithDesugarsToDeferredClose(t *testing.T) {
	program := mustParse(t, "fun f(r) { with r { r; } }")
	var kinds []ast.Kind
	body := program.Children.Children.Children.ChildSlice()[1] // fun body block
	blk := body.Children                                       // the with-desugared block
	for c := blk.Children; c != nil; c = c.Next {
		kinds = append(kinds, c.Kind)
	}
	want := []ast.Kind{ast.ConstDecl, ast.Defer, ast.Try}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, kinds)
		}
	}
}

func TestClassSynthesizesEmptyConstructor(t *testing.T) {
	program := mustParse(t, "class Point { x: 0 }")
	lit := program.Children.ChildSlice()[1]
	if lit.Kind != ast.ClassLiteral {
		t.Fatalf("expected ClassLiteral, got %v", lit.Kind)
	}
	found := false
	for _, m := range lit.ChildSlice() {
		if m.Kind == ast.PropertyDef && m.Str == "constructor" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a synthesized constructor member")
	}
}

func TestMultiAssignShape(t *testing.T) {
	program := mustParse(t, "var a = 0; var b = 0; a, b = pair();")
	var multi *ast.Node
	for _, s := range program.ChildSlice() {
		if s.Kind == ast.MultiAssign {
			multi = s
		}
	}
	if multi == nil {
		t.Fatal("expected a MultiAssign statement")
	}
	cc := multi.ChildSlice()
	if len(cc) != 3 {
		t.Fatalf("expected 2 targets + 1 value, got %d children", len(cc))
	}
	if cc[0].Kind != ast.Identifier || cc[1].Kind != ast.Identifier || cc[2].Kind != ast.Call {
		t.Fatalf("unexpected multi-assign child kinds %v %v %v", cc[0].Kind, cc[1].Kind, cc[2].Kind)
	}
}

func TestInterpolatedStringShape(t *testing.T) {
	program := mustParse(t, `var n = 2; const s = "x=\(n) done";`)
	interp := program.ChildSlice()[1].Children.Children
	if interp.Kind != ast.InterpolatedString {
		t.Fatalf("expected InterpolatedString, got %v", interp.Kind)
	}
	cc := interp.ChildSlice()
	if len(cc) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(cc))
	}
	if cc[0].Str != "x=" || cc[1].Kind != ast.Identifier || cc[2].Str != " done" {
		t.Fatalf("unexpected segments: %q %v %q", cc[0].Str, cc[1].Kind, cc[2].Str)
	}
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	for _, src := range []string{"break;", "continue;", "fallthrough;"} {
		if _, errs := parse(t, src); len(errs) == 0 {
			t.Errorf("%q: expected a context diagnostic", src)
		}
	}
}

func TestImportsMustPrecedeStatements(t *testing.T) {
	_, errs := parse(t, "var x = 1; import io;")
	if len(errs) == 0 {
		t.Fatal("expected an import-placement diagnostic")
	}
}

func TestCompoundAssignDesugars(t *testing.T) {
	program := mustParse(t, "var x = 1; x += 2;")
	assign := program.ChildSlice()[1]
	if assign.Kind != ast.Assign {
		t.Fatalf("expected Assign, got %v", assign.Kind)
	}
	rhs := assign.ChildSlice()[1]
	if rhs.Kind != ast.Binary {
		t.Fatalf("expected `x += 2` to lower to `x = x + 2`, got %v", rhs.Kind)
	}
}

func TestIntegerLiteralBoundary(t *testing.T) {
	// 2⁶³−1 is the largest legal integer literal.
	program := mustParse(t, "const x = 9223372036854775807;")
	lit := program.Children.Children.Children
	if lit.Kind != ast.IntegerLiteral || lit.Operand != math.MaxInt64 {
		t.Fatalf("expected MaxInt64 literal, got kind=%v operand=%d", lit.Kind, lit.Operand)
	}

	// Anything beyond it is a CompileFailed value error, never silently
	// wrapped to a negative number.
	for _, src := range []string{
		"const x = 9223372036854775808;",
		"const x = 18446744073709551615;",
		"const x = 0xFFFFFFFFFFFFFFFF;",
	} {
		l := lexer.New("test.kos", src)
		p := New(l)
		p.Parse()
		errs := p.Errors()
		if len(errs) == 0 {
			t.Errorf("%q: expected an out-of-range diagnostic", src)
			continue
		}
		if errs[0].Kind != diag.CompileFailed {
			t.Errorf("%q: expected CompileFailed, got %v", src, errs[0].Kind)
		}
		if !strings.Contains(errs[0].Message, "out of range") {
			t.Errorf("%q: unexpected message %q", src, errs[0].Message)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind ast.Kind
		i    int64
		f    float64
	}{
		{"const x = 42;", ast.IntegerLiteral, 42, 0},
		{"const x = 0x2A;", ast.IntegerLiteral, 42, 0},
		{"const x = 0b101010;", ast.IntegerLiteral, 42, 0},
		{"const x = 1_000_000;", ast.IntegerLiteral, 1000000, 0},
		{"const x = 1.5;", ast.FloatLiteral, 0, 1.5},
		{"const x = 1e3;", ast.FloatLiteral, 0, 1000},
		{"const x = 1p3;", ast.FloatLiteral, 0, 1000},
	}
	for _, c := range cases {
		program := mustParse(t, c.src)
		lit := program.Children.Children.Children
		if lit.Kind != c.kind {
			t.Errorf("%q: expected %v, got %v", c.src, c.kind, lit.Kind)
			continue
		}
		if c.kind == ast.IntegerLiteral && lit.Operand != c.i {
			t.Errorf("%q: expected %d, got %d", c.src, c.i, lit.Operand)
		}
		if c.kind == ast.FloatLiteral && lit.Flt != c.f {
			t.Errorf("%q: expected %g, got %g", c.src, c.f, lit.Flt)
		}
	}
}
