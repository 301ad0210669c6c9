package codegen

import (
	"testing"

	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/module"
	"github.com/kos-lang/kos/optimize"
	"github.com/kos-lang/kos/parser"
	"github.com/kos-lang/kos/regalloc"
	"github.com/kos-lang/kos/sema"
)

type noImports struct{}

func (noImports) ImportModule(string) (int, bool)  { return 0, false }
func (noImports) ResolveGlobal(string) (int, bool) { return 0, false }

// compile runs the full pipeline over src and returns the compiled module.
func compile(t *testing.T, src string) *module.CompiledModule {
	t.Helper()
	l := lexer.New("test.kos", src)
	p := parser.New(l)
	program := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	r := sema.NewResolver("test.kos", noImports{})
	if errs := r.Resolve(program); len(errs) > 0 {
		for _, e := range errs {
			if !e.Warning {
				t.Fatalf("unexpected resolve errors: %v", errs)
			}
		}
	}

	o := optimize.New("test.kos", r.Unit())
	if _, errs := o.Run(program); len(errs) > 0 {
		t.Fatalf("unexpected optimizer errors: %v", errs)
	}

	regalloc.New(r.Unit()).Run()

	g := New(r.Unit(), nil, "test.kos")
	mod, errs := g.Generate(program, nil)
	if len(errs) > 0 {
		t.Fatalf("unexpected codegen errors: %v", errs)
	}
	return mod
}

// opcodes decodes every instruction of fn's body, returning the opcode
// sequence and the set of instruction-start offsets (relative to the body).
func opcodes(t *testing.T, mod *module.CompiledModule, fn *constant.CompiledFunction) ([]bytecode.Opcode, map[int]bool) {
	t.Helper()
	body := mod.Code[fn.CodeOffset : fn.CodeOffset+fn.CodeSize]
	var ops []bytecode.Opcode
	starts := map[int]bool{}
	i := 0
	for i < len(body) {
		starts[i] = true
		d, err := bytecode.Lookup(body[i])
		if err != nil {
			t.Fatalf("undefined opcode at %d: %v", i, err)
		}
		ops = append(ops, bytecode.Opcode(body[i]))
		_, read := bytecode.ReadOperands(d, bytecode.Instructions(body[i+1:]))
		i += 1 + read
	}
	return ops, starts
}

func contains(ops []bytecode.Opcode, op bytecode.Opcode) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func topLevel(t *testing.T, mod *module.CompiledModule) *constant.CompiledFunction {
	t.Helper()
	fn := mod.Function(mod.TopLevelFunc)
	if fn == nil {
		t.Fatal("module has no top-level function constant")
	}
	return fn
}

func TestFoldedArithmeticEmitsNoArithmeticOpcodes(t *testing.T) {
	mod := compile(t, "const x = 1 + 2 * 3;")
	ops, _ := opcodes(t, mod, topLevel(t, mod))
	if contains(ops, bytecode.OpAdd) || contains(ops, bytecode.OpMul) {
		t.Fatal("expected folded initializer to emit no arithmetic opcodes")
	}
	if !contains(ops, bytecode.OpLoadInt8) {
		t.Fatal("expected the folded 7 to load as a small-int immediate")
	}
}

func TestPublicDeclarationGetsGlobalSlot(t *testing.T) {
	mod := compile(t, "public var g = 1;")
	if len(mod.Globals) != 1 || mod.Globals[0].Name != "g" || !mod.Globals[0].Public {
		t.Fatalf("unexpected globals table %+v", mod.Globals)
	}
	if mod.FindGlobal("g") != 0 {
		t.Fatalf("expected g at slot 0, got %d", mod.FindGlobal("g"))
	}
	ops, _ := opcodes(t, mod, topLevel(t, mod))
	if !contains(ops, bytecode.OpSetGlobal) {
		t.Fatal("expected an OpSetGlobal write for the public declaration")
	}
}

func TestJumpTargetsLandOnInstructionBoundaries(t *testing.T) {
	src := `
public fun f(n) {
    var total = 0;
    for (var i = 0; i < n; i += 1) {
        if (i == 2) {
            continue;
        }
        total += i;
    }
    while (total > 100) {
        total -= 1;
    }
    return total;
}
`
	mod := compile(t, src)
	for idx := range mod.Constants {
		fn := mod.Function(idx)
		if fn == nil {
			continue
		}
		body := mod.Code[fn.CodeOffset : fn.CodeOffset+fn.CodeSize]
		_, starts := opcodes(t, mod, fn)
		i := 0
		for i < len(body) {
			d, _ := bytecode.Lookup(body[i])
			operands, read := bytecode.ReadOperands(d, bytecode.Instructions(body[i+1:]))
			end := i + 1 + read
			for k, kind := range d.Kinds {
				if kind != bytecode.KindJumpOffset32 {
					continue
				}
				target := end + operands[k]
				if target != len(body) && !starts[target] {
					t.Fatalf("constant %d: jump at %d targets %d, not an instruction boundary", idx, i, target)
				}
			}
			i = end
		}
	}
}

func TestLineMapSortedAndStartsAtZero(t *testing.T) {
	mod := compile(t, "var a = 1;\nvar b = 2;\nvar c = a;\n")
	fn := topLevel(t, mod)
	entries := mod.LineMap[fn.LineMapOffset : fn.LineMapOffset+fn.LineMapSize]
	if len(entries) == 0 {
		t.Fatal("expected a non-empty line map")
	}
	if entries[0].Offset != fn.CodeOffset {
		t.Fatalf("expected the first entry to cover the function's first instruction, got offset %d", entries[0].Offset)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Offset <= entries[i-1].Offset {
			t.Fatalf("line map not strictly sorted at %d", i)
		}
	}
}

func TestClosureEmitsCaptureRecords(t *testing.T) {
	mod := compile(t, "public const make = fun() { var n = 0; return fun() { return n; }; };")

	var inner *constant.CompiledFunction
	for idx := range mod.Constants {
		fn := mod.Function(idx)
		if fn == nil || idx == mod.TopLevelFunc {
			continue
		}
		if len(fn.Captures) > 0 {
			inner = fn
		}
	}
	if inner == nil {
		t.Fatal("expected the inner function to carry a capture record")
	}
	if !inner.IsClosure || inner.ClosureSize != 1 {
		t.Fatalf("expected a 1-slot closure, got IsClosure=%v size=%d", inner.IsClosure, inner.ClosureSize)
	}
	ops, _ := opcodes(t, mod, inner)
	if !contains(ops, bytecode.OpBind) {
		t.Fatal("expected the inner function to bind its captured scope")
	}
}

func TestDeferLowersToProtectedRegion(t *testing.T) {
	mod := compile(t, "public fun f(g) { defer g(); var a = g; return a; }")
	var found bool
	for idx := range mod.Constants {
		fn := mod.Function(idx)
		if fn == nil {
			continue
		}
		ops, _ := opcodes(t, mod, fn)
		if contains(ops, bytecode.OpCatch) && contains(ops, bytecode.OpCancel) && contains(ops, bytecode.OpThrow) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected defer to lower to an OpCatch/OpCancel protected region with a rethrow path")
	}
}

func TestGeneratorFlagSetByYield(t *testing.T) {
	mod := compile(t, "public fun gen(n) { yield n; return n; }")
	var gen *constant.CompiledFunction
	for idx := range mod.Constants {
		fn := mod.Function(idx)
		if fn == nil || idx == mod.TopLevelFunc {
			continue
		}
		gen = fn
	}
	if gen == nil || !gen.IsGenerator {
		t.Fatal("expected a function containing yield to be flagged as a generator")
	}
	ops, _ := opcodes(t, mod, gen)
	if !contains(ops, bytecode.OpYield) {
		t.Fatal("expected an OpYield instruction")
	}
}

func TestClassDeclarationProducesPrototypeAndConstructor(t *testing.T) {
	src := `
public class Point {
    constructor(x) { this.x = x; }
    norm() { return this.x; }
}
`
	mod := compile(t, src)
	var protos, ctors int
	for _, e := range mod.Constants {
		switch e.Kind {
		case constant.Prototype:
			protos++
		case constant.Function:
			if e.Fn.IsClassCtor {
				ctors++
			}
		}
	}
	if protos != 1 || ctors != 1 {
		t.Fatalf("expected 1 prototype and 1 constructor constant, got %d and %d", protos, ctors)
	}
}

func TestConstFunctionDirectCall(t *testing.T) {
	src := `
fun double(x) { return x + x; }
public var r = double(21);
`
	mod := compile(t, src)
	ops, _ := opcodes(t, mod, topLevel(t, mod))
	if !contains(ops, bytecode.OpCallFun) {
		t.Fatal("expected a const, capture-free function call to use the direct OpCallFun form")
	}
}

func TestEveryFunctionEndsWithReturn(t *testing.T) {
	mod := compile(t, "public fun f() { var x = 1; }\nvar y = 2;")
	for idx := range mod.Constants {
		fn := mod.Function(idx)
		if fn == nil {
			continue
		}
		ops, _ := opcodes(t, mod, fn)
		if len(ops) == 0 || ops[len(ops)-1] != bytecode.OpReturn {
			t.Fatalf("constant %d: expected the body to end in OpReturn", idx)
		}
	}
}
