package token

import "testing"

func TestLookupKeyword(t *testing.T) {
	cases := map[string]KeywordID{
		"assert":      KwAssert,
		"class":       KwClass,
		"constructor": KwConstructor,
		"defer":       KwDefer,
		"fun":         KwFun,
		"yield":       KwYield,
	}
	for ident, want := range cases {
		got, ok := LookupKeyword(ident)
		if !ok || got != want {
			t.Errorf("LookupKeyword(%q) = %v, %v; want %v", ident, got, ok, want)
		}
	}
	for _, ident := range []string{"", "funk", "classes", "zzz", "Fun"} {
		if _, ok := LookupKeyword(ident); ok {
			t.Errorf("LookupKeyword(%q) unexpectedly matched", ident)
		}
	}
}

func TestOperatorTableLongestFirst(t *testing.T) {
	for first, entries := range operatorsByFirstByte {
		for i := 1; i < len(entries); i++ {
			if len(entries[i].text) > len(entries[i-1].text) {
				t.Errorf("entries for %q not sorted longest-first: %q after %q",
					first, entries[i].text, entries[i-1].text)
			}
		}
		for _, e := range entries {
			if e.text[0] != first {
				t.Errorf("entry %q filed under wrong first byte %q", e.text, first)
			}
		}
	}
}

func TestOperatorClassGrouping(t *testing.T) {
	if OpAdd.Class() != OpSub.Class() {
		t.Fatal("+ and - must share a class")
	}
	if OpMul.Class() == OpAdd.Class() {
		t.Fatal("* and + must not share a class")
	}
	if OpLogAnd.Class() == OpLogOr.Class() {
		t.Fatal("&& and || must not share a class")
	}
	if OpBitAnd.Class() != OpBitOr.Class() || OpBitAnd.Class() != OpBitXor.Class() {
		t.Fatal("&, |, ^ must share the bitwise class")
	}
	if OpDot.Class() != ClassNone {
		t.Fatal(". does not participate in the mixed-operator diagnostic")
	}
}

func TestOperatorText(t *testing.T) {
	cases := map[OperatorCode]string{
		OpShru:      ">>>",
		OpDotDotDot: "...",
		OpArrow:     "=>",
		OpAssign:    "=",
	}
	for op, want := range cases {
		if got := op.Text(); got != want {
			t.Errorf("Text(%v) = %q, want %q", op, got, want)
		}
	}
}

func TestSeparatorLookup(t *testing.T) {
	if s, ok := LookupSeparator('('); !ok || s != SepLParen {
		t.Fatal("expected ( to map to SepLParen")
	}
	if _, ok := LookupSeparator('@'); ok {
		t.Fatal("@ is not a separator")
	}
}
