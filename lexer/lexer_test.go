package lexer

import (
	"testing"

	"github.com/kos-lang/kos/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New("test.kos", src)
	var toks []token.Token
	for {
		tok, err := l.NextToken(ModeAny)
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestNextTokenBasics(t *testing.T) {
	input := `var five = 5;
const ten = 10.5;

fun(x, y) {
  x + y;
};

if (x != y) {
	return true;
} else {
	return false;
}
"foobar"
[1, 2];
`
	tests := []struct {
		wantKind token.Kind
		wantLit  string
	}{
		{token.Keyword, "var"},
		{token.Identifier, "five"},
		{token.Operator, "="},
		{token.Numeric, "5"},
		{token.Separator, ";"},
		{token.Keyword, "const"},
		{token.Identifier, "ten"},
		{token.Operator, "="},
		{token.Numeric, "10.5"},
		{token.Separator, ";"},
	}

	l := New("test.kos", input)
	for i, tt := range tests {
		tok, err := l.NextToken(ModeAny)
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}
		if tok.Kind != tt.wantKind {
			t.Fatalf("test[%d]: kind=%v, want=%v", i, tok.Kind, tt.wantKind)
		}
		if tok.Literal != tt.wantLit {
			t.Fatalf("test[%d]: literal=%q, want=%q", i, tok.Literal, tt.wantLit)
		}
	}
}

func TestTabIsLexicalError(t *testing.T) {
	l := New("test.kos", "var\tx = 1;")
	_, err := l.NextToken(ModeAny) // "var"
	if err != nil {
		t.Fatalf("unexpected error scanning keyword: %v", err)
	}
	_, err = l.NextToken(ModeAny)
	if err == nil {
		t.Fatalf("expected tab error, got none")
	}
}

func TestStringInterpolationOpensAndContinues(t *testing.T) {
	l := New("test.kos", `"x=\(1+1) done"`)

	tok, err := l.NextToken(ModeAny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind != token.StringOpen || tok.Literal != "x=" {
		t.Fatalf("got %+v, want StringOpen(\"x=\")", tok)
	}

	one, err := l.NextToken(ModeAny)
	if err != nil || one.Kind != token.Numeric || one.Literal != "1" {
		t.Fatalf("expected first operand 1, got %+v err=%v", one, err)
	}
	plus, err := l.NextToken(ModeAny)
	if err != nil || plus.Kind != token.Operator {
		t.Fatalf("expected '+', got %+v err=%v", plus, err)
	}
	two, err := l.NextToken(ModeAny)
	if err != nil || two.Literal != "1" {
		t.Fatalf("expected second operand 1, got %+v err=%v", two, err)
	}
	closeParen, err := l.NextToken(ModeAny)
	if err != nil || closeParen.Kind != token.Separator || closeParen.Literal != ")" {
		t.Fatalf("expected ')', got %+v err=%v", closeParen, err)
	}

	closed, err := l.NextToken(ModeContinueString)
	if err != nil {
		t.Fatalf("unexpected error resuming string: %v", err)
	}
	if closed.Kind != token.String || closed.Literal != " done" {
		t.Fatalf("got %+v, want String(\" done\")", closed)
	}
}

func TestRawStringOnlyEscapesQuote(t *testing.T) {
	toks := lexAll(t, `r"a\nb\"c"`)
	if toks[0].Kind != token.String {
		t.Fatalf("want String, got %v", toks[0].Kind)
	}
	if toks[0].Literal != `a\nb"c` {
		t.Fatalf("got %q", toks[0].Literal)
	}
}

func TestNumericForms(t *testing.T) {
	cases := []string{"123", "1_000", "0x1F", "0b1010", "1.5", "1e10", "1e+10", "1p3"}
	for _, c := range cases {
		l := New("t.kos", c)
		tok, err := l.NextToken(ModeAny)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c, err)
		}
		if tok.Kind != token.Numeric || tok.Literal != c {
			t.Fatalf("%q: got kind=%v literal=%q", c, tok.Kind, tok.Literal)
		}
	}
}

func TestTripleAndDoubleDot(t *testing.T) {
	toks := lexAll(t, "...")
	if toks[0].Kind != token.Operator || toks[0].Literal != "..." {
		t.Fatalf("got %+v", toks[0])
	}

	toks = lexAll(t, "..")
	if toks[0].Literal != "." || toks[1].Literal != "." {
		t.Fatalf("expected two dot tokens, got %+v", toks[:2])
	}
}

func TestTokenTooLong(t *testing.T) {
	ident := make([]byte, token.MaxTokenLength+1)
	for i := range ident {
		ident[i] = 'a'
	}
	l := New("t.kos", string(ident))
	_, err := l.NextToken(ModeAny)
	if err == nil {
		t.Fatalf("expected token-too-long error")
	}
}

func TestLineCommentEndsAtEOL(t *testing.T) {
	toks := lexAll(t, "1 // comment\n2")
	if toks[0].Literal != "1" || toks[1].Literal != "2" {
		t.Fatalf("got %+v", toks[:2])
	}
}

func TestBlockComment(t *testing.T) {
	toks := lexAll(t, "1 /* multi\nline */ 2")
	if toks[0].Literal != "1" || toks[1].Literal != "2" {
		t.Fatalf("got %+v", toks[:2])
	}
}
