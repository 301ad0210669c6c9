package driver

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testConfig() Config {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return Config{NoDefaultPath: true, Interactive: -1, Log: log}
}

func TestCompileSourceSuccess(t *testing.T) {
	d := New(testConfig())
	res, err := d.CompileSource("main", "main.kos", "public var x = 1 + 2;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Module == nil || res.Passes < 1 {
		t.Fatalf("expected a module and at least one optimizer pass, got %+v", res)
	}
	if res.Module.FindGlobal("x") != 0 {
		t.Fatal("expected x in the globals table")
	}
}

func TestModuleCacheCoalescesImports(t *testing.T) {
	d := New(testConfig())
	d.AddSource("util", "public var answer = 42;")
	d.AddSource("a", "import util.answer;\npublic var x = answer;")
	d.AddSource("b", "import util.answer;\npublic var y = answer;")

	if _, err := d.LoadModule("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.LoadModule("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// util must have been compiled exactly once, at one index.
	count := 0
	for i := 0; ; i++ {
		m := d.Module(i)
		if m == nil {
			break
		}
		if m.FindGlobal("answer") >= 0 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected util compiled once, found %d copies", count)
	}
}

func TestCircularImportDetected(t *testing.T) {
	d := New(testConfig())
	d.AddSource("a", "import b;\npublic var x = 1;")
	d.AddSource("b", "import a;\npublic var y = 1;")

	_, err := d.LoadModule("a")
	if err == nil {
		t.Fatal("expected a circular-dependency error")
	}
	if !strings.Contains(err.Error(), `circular dependencies detected for module "a"`) {
		t.Fatalf("unexpected error: %v", err)
	}
	// No partial module may be registered under either name.
	if _, ok := d.byName["a"]; ok {
		t.Fatal("module a must not be registered after a failed compilation")
	}
	if _, ok := d.byName["b"]; ok {
		t.Fatal("module b must not be registered after a failed compilation")
	}
}

func TestMissingModuleReported(t *testing.T) {
	d := New(testConfig())
	d.AddSource("a", "import nope;")
	_, err := d.LoadModule("a")
	if err == nil || !strings.Contains(err.Error(), `"nope" not found`) {
		t.Fatalf("expected a module-not-found error, got %v", err)
	}
}

func TestDiagnosticCarriesSourceLineAndCaret(t *testing.T) {
	d := New(testConfig())
	_, err := d.CompileSource("main", "main.kos", "y = 1;")
	if err == nil {
		t.Fatal("expected an undeclared-identifier error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "main.kos:1:1: error: undeclared identifier") {
		t.Fatalf("unexpected rendering: %q", msg)
	}
	if !strings.Contains(msg, "y = 1;") || !strings.HasSuffix(msg, "^") {
		t.Fatalf("expected source line and caret, got %q", msg)
	}
}

func TestWarningsCollectedNotFatal(t *testing.T) {
	d := New(testConfig())
	if _, err := d.CompileSource("main", "main.kos", "fun main() { return 0; }"); err != nil {
		t.Fatalf("a warning must not fail the compilation: %v", err)
	}
	found := false
	for _, w := range d.Warnings() {
		if strings.Contains(w.Message, "main should be public") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the 'main should be public' warning to be collected")
	}
}

func TestPredefinedGlobalResolves(t *testing.T) {
	d := New(testConfig())
	d.PredefineGlobal("print", 0)
	if _, err := d.CompileSource("main", "main.kos", "print;"); err != nil {
		t.Fatalf("expected the predefined global to resolve: %v", err)
	}
}

func TestBareImportAllowsModuleMemberAccess(t *testing.T) {
	d := New(testConfig())
	d.AddSource("util", "public var answer = 42;")
	_, err := d.CompileSource("main", "main.kos", "import util;\npublic var x = util.answer;")
	if err != nil {
		t.Fatalf("expected module member access to compile: %v", err)
	}
}

func TestImportStarBindsEveryPublicGlobal(t *testing.T) {
	d := New(testConfig())
	d.AddSource("util", "public var zero = 0;\npublic var answer = 42;")
	_, err := d.CompileSource("main", "main.kos", "import util.*;\npublic var x = answer;\npublic var y = zero;")
	if err != nil {
		t.Fatalf("expected wildcard-imported globals to resolve: %v", err)
	}
}

func TestImportedGlobalSlotResolution(t *testing.T) {
	d := New(testConfig())
	d.AddSource("util", "public var zero = 0;\npublic var answer = 42;")
	res, err := d.CompileSource("main", "main.kos", "import util.answer;\npublic var x = answer;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Module.ImportedModules) != 1 {
		t.Fatalf("expected one imported module, got %v", res.Module.ImportedModules)
	}
	if _, ok := res.Module.ImportedModules["util"]; !ok {
		t.Fatal("expected util in the imported-module table")
	}
}
