package diag

import (
	"strings"
	"testing"
)

func TestErrorRendering(t *testing.T) {
	e := New(CompileFailed, Position{FileID: "m.kos", Line: 3, Column: 5}, "undeclared identifier %q", "y")
	got := e.Error()
	if got != `m.kos:3:5: error: undeclared identifier "y"` {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestErrorRenderingWithSourceLineAndCaret(t *testing.T) {
	e := New(ScanningFailed, Position{FileID: "m.kos", Line: 1, Column: 4}, "unexpected tab character, tabs are not allowed")
	e.WithSourceLine("var\tx = 1;")
	got := e.Error()
	want := "m.kos:1:4: error: unexpected tab character, tabs are not allowed\nvar\tx = 1;\n   ^"
	if got != want {
		t.Fatalf("unexpected rendering:\n%q\nwant:\n%q", got, want)
	}
}

func TestWarningRendering(t *testing.T) {
	w := Warningf(Position{FileID: "m.kos", Line: 2, Column: 1}, "main should be public")
	if !w.Warning {
		t.Fatal("expected a warning")
	}
	if !strings.Contains(w.Error(), "warning: main should be public") {
		t.Fatalf("unexpected rendering %q", w.Error())
	}
}

func TestPositionValidity(t *testing.T) {
	var zero Position
	if zero.IsValid() {
		t.Fatal("the zero Position must be invalid")
	}
	if zero.String() != "-" {
		t.Fatalf("unexpected zero rendering %q", zero.String())
	}
	p := Position{FileID: "f.kos", Line: 1, Column: 2}
	if !p.IsValid() || p.String() != "f.kos:1:2" {
		t.Fatalf("unexpected rendering %q", p.String())
	}
}

func TestKindNames(t *testing.T) {
	cases := map[Kind]string{
		ScanningFailed: "ScanningFailed",
		ParseFailed:    "ParseFailed",
		CompileFailed:  "CompileFailed",
		Internal:       "Internal",
		OutOfMemory:    "OutOfMemory",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("Kind %d: got %q, want %q", k, k.String(), want)
		}
	}
}
