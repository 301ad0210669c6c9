// Package driver wires the compiler pipeline together: it owns the module
// cache, implements the import callbacks of spec.md §6.1 (import_module /
// resolve_global / walk_globals) against that cache, detects circular
// imports via a load chain, and runs lex -> parse -> resolve -> optimize ->
// regalloc -> codegen for each module it is asked to load.
//
// The driver is deliberately the only layer that touches the filesystem or
// logs: the compiler core stays a pure function from bytes to a
// module-or-error (spec.md §5).
package driver

import (
	"os"
	"strings"

	"github.com/kos-lang/kos/codegen"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/module"
	"github.com/kos-lang/kos/optimize"
	"github.com/kos-lang/kos/parser"
	"github.com/kos-lang/kos/regalloc"
	"github.com/kos-lang/kos/sema"

	"github.com/sirupsen/logrus"
)

// Result is the success value of one compilation: the compiled module plus
// the optimizer's fixed-point pass count (spec.md §6.1's
// "compile(ast) -> (passes_run, Result)").
type Result struct {
	Module *module.CompiledModule
	Passes int
}

// Driver loads and compiles Kos modules. It is single-threaded: one
// compilation (including any recursive imports it triggers) runs to
// completion before the next begins, matching the non-reentrancy contract
// of spec.md §5.
type Driver struct {
	cfg Config
	log *logrus.Logger

	// sources holds in-memory module sources registered with AddSource,
	// consulted by LoadModule before the filesystem search path. The CLI's
	// `-c` command string goes to CompileSource directly and does not pass
	// through here.
	sources map[string]string

	modules []loadedModule
	byName  map[string]int

	// loading is the active load chain; a module name appearing twice
	// means a circular import.
	loading []string

	predefGlobals map[string]int
	predefModules map[string]int

	// importErr records the precise reason the most recent ImportModule
	// callback failed (cycle vs not-found), so CompileSource can surface
	// it instead of a generic resolver message.
	importErr *diag.Error

	warnings []*diag.Error

	// unitImports is the name-to-index import table of the unit currently
	// being resolved; a stack because imports compile recursively.
	unitImports []map[string]int
}

type loadedModule struct {
	name string
	mod  *module.CompiledModule
}

// New creates a driver with the given configuration.
func New(cfg Config) *Driver {
	return &Driver{
		cfg:           cfg,
		log:           cfg.logger(),
		sources:       make(map[string]string),
		byName:        make(map[string]int),
		predefGlobals: make(map[string]int),
		predefModules: make(map[string]int),
	}
}

// AddSource registers an in-memory module source under name, shadowing any
// same-named file on the search path.
func (d *Driver) AddSource(name, src string) {
	d.sources[name] = src
}

// PredefineGlobal pre-populates the global table before compiling source,
// used for built-ins (spec.md §6.1's predefine_global).
func (d *Driver) PredefineGlobal(name string, index int) {
	d.predefGlobals[name] = index
}

// PredefineModule binds name to an already-loaded module index so `import
// name` resolves without touching the search path (spec.md §6.1's
// predefine_module).
func (d *Driver) PredefineModule(name string, index int) {
	d.predefModules[name] = index
}

// Warnings returns every non-fatal diagnostic accumulated across all
// compilations this driver has run.
func (d *Driver) Warnings() []*diag.Error { return d.warnings }

// Module returns the compiled module at index, or nil.
func (d *Driver) Module(index int) *module.CompiledModule {
	if index < 0 || index >= len(d.modules) {
		return nil
	}
	return d.modules[index].mod
}

// LoadModule compiles (or returns the cached compilation of) the named
// module, resolving its source via AddSource registrations and then the
// search path.
func (d *Driver) LoadModule(name string) (Result, error) {
	if idx, ok := d.byName[name]; ok {
		return Result{Module: d.modules[idx].mod}, nil
	}
	src, fileID, err := d.findSource(name)
	if err != nil {
		return Result{}, err
	}
	return d.CompileSource(name, fileID, src)
}

func (d *Driver) findSource(name string) (src, fileID string, err error) {
	if s, ok := d.sources[name]; ok {
		return s, name + ".kos", nil
	}
	path, ok := d.cfg.findModuleFile(name)
	if !ok {
		return "", "", diag.New(diag.CompileFailed, diag.Position{}, "module %q not found", name)
	}
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return "", "", diag.New(diag.CompileFailed, diag.Position{}, "module %q: %s", name, rerr)
	}
	return string(data), path, nil
}

// CompileSource runs the full pipeline over src, registering the result in
// the module cache under name. It returns the first fatal diagnostic (with
// its source line attached for caret rendering) on failure.
func (d *Driver) CompileSource(name, fileID, src string) (Result, error) {
	for _, active := range d.loading {
		if active == name {
			return Result{}, diag.New(diag.CompileFailed, diag.Position{},
				"circular dependencies detected for module %q", name)
		}
	}
	d.loading = append(d.loading, name)
	d.unitImports = append(d.unitImports, make(map[string]int))
	defer func() {
		d.loading = d.loading[:len(d.loading)-1]
		d.unitImports = d.unitImports[:len(d.unitImports)-1]
	}()

	d.log.WithFields(logrus.Fields{"module": name, "file": fileID}).Debug("compiling")

	l := lexer.New(fileID, src)
	p := parser.New(l)
	program := p.Parse()
	if err := d.firstFatal(p.Errors(), src); err != nil {
		return Result{}, err
	}

	r := sema.NewResolver(fileID, d)
	resolveErrs := r.Resolve(program)
	if d.importErr != nil {
		err := d.importErr
		d.importErr = nil
		return Result{}, err
	}
	if err := d.firstFatal(resolveErrs, src); err != nil {
		return Result{}, err
	}

	o := optimize.New(fileID, r.Unit())
	passes, optErrs := o.Run(program)
	if err := d.firstFatal(optErrs, src); err != nil {
		return Result{}, err
	}
	d.log.WithFields(logrus.Fields{"module": name, "passes": passes}).Debug("optimizer reached fixed point")

	regalloc.New(r.Unit()).Run()

	gen := codegen.New(r.Unit(), d, fileID)
	mod, genErrs := gen.Generate(program, d.unitImports[len(d.unitImports)-1])
	if err := d.firstFatal(genErrs, src); err != nil {
		return Result{}, err
	}

	idx := len(d.modules)
	d.modules = append(d.modules, loadedModule{name: name, mod: mod})
	d.byName[name] = idx
	d.log.WithFields(logrus.Fields{
		"module":    name,
		"index":     idx,
		"constants": len(mod.Constants),
		"code":      len(mod.Code),
	}).Debug("module compiled")

	return Result{Module: mod, Passes: passes}, nil
}

// firstFatal splits warnings from errors, keeping the warnings, and
// returns the first fatal diagnostic with its source line attached; any
// later fatal diagnostics in errs are not reported.
func (d *Driver) firstFatal(errs []*diag.Error, src string) error {
	for _, e := range errs {
		if e.Warning {
			d.warnings = append(d.warnings, e)
			continue
		}
		return attachSourceLine(e, src)
	}
	return nil
}

func attachSourceLine(e *diag.Error, src string) *diag.Error {
	if !e.Pos.IsValid() || e.SrcLine != "" {
		return e
	}
	lines := strings.Split(src, "\n")
	n := int(e.Pos.Line)
	if n >= 1 && n <= len(lines) {
		e.WithSourceLine(strings.TrimRight(lines[n-1], "\r"))
	}
	return e
}

// ImportModule implements sema.Importer: it resolves an `import name`
// statement by returning the cached module's index or recursively loading
// it, recording the precise failure (cycle or not-found) for
// CompileSource to surface.
func (d *Driver) ImportModule(name string) (int, bool) {
	table := d.unitImports[len(d.unitImports)-1]

	if idx, ok := d.predefModules[name]; ok {
		table[name] = idx
		return idx, true
	}
	if idx, ok := d.byName[name]; ok {
		table[name] = idx
		return idx, true
	}
	for _, active := range d.loading {
		if active == name {
			d.importErr = diag.New(diag.CompileFailed, diag.Position{},
				"circular dependencies detected for module %q", name)
			return 0, false
		}
	}
	if _, err := d.LoadModule(name); err != nil {
		if derr, ok := err.(*diag.Error); ok {
			d.importErr = derr
		} else {
			d.importErr = diag.New(diag.CompileFailed, diag.Position{}, "%s", err)
		}
		return 0, false
	}
	idx := d.byName[name]
	table[name] = idx
	return idx, true
}

// ResolveGlobal implements sema.Importer for identifiers that fall through
// every lexical scope: only globals predefined by the embedding host
// resolve here.
func (d *Driver) ResolveGlobal(name string) (int, bool) {
	idx, ok := d.predefGlobals[name]
	return idx, ok
}

// GlobalSlot implements codegen.Importer: by the time codegen asks, the
// referenced module has finished compiling, so its global table layout is
// final.
func (d *Driver) GlobalSlot(moduleIndex int, name string) (int, bool) {
	mod := d.Module(moduleIndex)
	if mod == nil {
		return 0, false
	}
	slot := mod.FindGlobal(name)
	if slot < 0 {
		return 0, false
	}
	return slot, true
}

// WalkGlobals invokes fn for every public global of the module at index,
// in slot order — the walk_globals callback of spec.md §6.1, used by
// `import name.*`.
func (d *Driver) WalkGlobals(moduleIndex int, fn func(name string, slot int)) {
	mod := d.Module(moduleIndex)
	if mod == nil {
		return
	}
	for i, g := range mod.Globals {
		if g.Public {
			fn(g.Name, i)
		}
	}
}
