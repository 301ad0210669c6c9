package constant

import (
	"testing"

	"github.com/kos-lang/kos/bytecode"
)

func TestScalarDeduplication(t *testing.T) {
	p := New()
	if p.Int(42) != p.Int(42) {
		t.Fatal("equal integers must share an index")
	}
	if p.Float(1.5) != p.Float(1.5) {
		t.Fatal("equal floats must share an index")
	}
	if p.Str("abc", false) != p.Str("abc", false) {
		t.Fatal("equal strings must share an index")
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 pooled entries, got %d", p.Len())
	}
}

func TestRawAndCookedStringsStayDistinct(t *testing.T) {
	p := New()
	cooked := p.Str("abc", false)
	raw := p.Str("abc", true)
	if cooked == raw {
		t.Fatal("a raw and a cooked string of identical bytes must not share an index")
	}
}

func TestIntegerAndFloatOfSameValueStayDistinct(t *testing.T) {
	p := New()
	if p.Int(1) == p.Float(1.0) {
		t.Fatal("integer 1 and float 1.0 are different constants")
	}
}

func TestFunctionConstantsNeverDeduplicate(t *testing.T) {
	p := New()
	a := p.Func(&CompiledFunction{NameIndex: -1})
	b := p.Func(&CompiledFunction{NameIndex: -1})
	if a == b {
		t.Fatal("each function literal is a distinct constant")
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	p := New()
	first := p.Int(1)
	second := p.Str("x", false)
	third := p.Int(2)
	if first != 0 || second != 1 || third != 2 {
		t.Fatalf("expected insertion-ordered indices 0,1,2, got %d,%d,%d", first, second, third)
	}
	all := p.All()
	if all[1].Kind != String || all[1].Str != "x" {
		t.Fatal("All() must surface entries in insertion order")
	}
}

func TestCodeBlobConcatenatesAndOffsets(t *testing.T) {
	fn1 := &CompiledFunction{}
	fn2 := &CompiledFunction{}
	body1 := bytecode.Instructions(bytecode.Make(bytecode.OpLoadVoid, 0))
	body1 = append(body1, bytecode.Make(bytecode.OpReturn, 0)...)
	body2 := bytecode.Instructions(bytecode.Make(bytecode.OpReturn, 1))

	var lines1, lines2 bytecode.LineMap
	lines1 = lines1.Append(0, 1)
	lines2 = lines2.Append(0, 5)

	code, lineMap := CodeBlob(
		[]*CompiledFunction{fn1, fn2},
		[]bytecode.Instructions{body1, body2},
		[]bytecode.LineMap{lines1, lines2},
	)

	if fn1.CodeOffset != 0 || fn1.CodeSize != len(body1) {
		t.Fatalf("fn1 range wrong: %d+%d", fn1.CodeOffset, fn1.CodeSize)
	}
	if fn2.CodeOffset != len(body1) || fn2.CodeSize != len(body2) {
		t.Fatalf("fn2 range wrong: %d+%d", fn2.CodeOffset, fn2.CodeSize)
	}
	if len(code) != len(body1)+len(body2) {
		t.Fatalf("blob length %d", len(code))
	}
	// Line-map offsets are rebased into blob coordinates.
	if len(lineMap) != 2 || lineMap[1].Offset != fn2.CodeOffset || lineMap[1].Line != 5 {
		t.Fatalf("unexpected rebased line map %+v", lineMap)
	}
}
