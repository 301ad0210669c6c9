package bytecode

import "testing"

func TestMakeAndReadOperands(t *testing.T) {
	ins := Make(OpAdd, 1, 2, 3)
	if len(ins) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(ins))
	}
	d, err := Lookup(ins[0])
	if err != nil {
		t.Fatal(err)
	}
	operands, read := ReadOperands(d, Instructions(ins[1:]))
	if read != 3 {
		t.Fatalf("expected to read 3 bytes, got %d", read)
	}
	if operands[0] != 1 || operands[1] != 2 || operands[2] != 3 {
		t.Fatalf("unexpected operands: %v", operands)
	}
}

func TestJumpOffsetSignExtension(t *testing.T) {
	ins := Make(OpJump, -10)
	d, _ := Lookup(ins[0])
	operands, _ := ReadOperands(d, Instructions(ins[1:]))
	if operands[0] != -10 {
		t.Fatalf("expected -10, got %d", operands[0])
	}
}

func TestPatchJump(t *testing.T) {
	ins := Instructions(Make(OpJump, 0))
	PatchJump(ins, 1, 42)
	d, _ := Lookup(ins[0])
	operands, _ := ReadOperands(d, ins[1:])
	if operands[0] != 42 {
		t.Fatalf("expected patched offset 42, got %d", operands[0])
	}
}

func TestInt8SignExtension(t *testing.T) {
	ins := Make(OpLoadInt8, 0, -1)
	d, _ := Lookup(ins[0])
	operands, _ := ReadOperands(d, Instructions(ins[1:]))
	if operands[1] != -1 {
		t.Fatalf("expected -1, got %d", operands[1])
	}
}

func TestDisassembleString(t *testing.T) {
	ins := Instructions(Make(OpLoadInt8, 0, 5))
	ins = append(ins, Make(OpReturn, 0)...)
	out := ins.String()
	want := "0000 OpLoadInt8 0 5\n0003 OpReturn 0\n"
	if out != want {
		t.Fatalf("unexpected disassembly:\n%s\nwant:\n%s", out, want)
	}
}

func TestLineMapLookup(t *testing.T) {
	var m LineMap
	m = m.Append(0, 1)
	m = m.Append(3, 1) // same line, should not grow
	m = m.Append(6, 2)

	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
	if m.LineFor(0) != 1 || m.LineFor(5) != 1 || m.LineFor(6) != 2 || m.LineFor(100) != 2 {
		t.Fatalf("unexpected line lookups: %+v", m)
	}
}
