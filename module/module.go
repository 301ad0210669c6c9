// Package module defines the compiled artifact the front end produces
// (spec.md §3.6): a constant pool, a global-name table, an imported-module
// table, a bytecode blob, an address-to-line map, and the index of the
// constant holding the top-level function. This is the boundary object
// handed to the out-of-scope VM/module-loader collaborators of spec.md §1.
package module

import (
	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
)

// GlobalSlot is one entry of the module's globals vector: a name plus the
// flag recording whether `public` made it visible to importers.
type GlobalSlot struct {
	Name   string
	Public bool
}

// CompiledModule is the output of one successful compilation (spec.md
// §3.6, §6.1's `compile` operation).
type CompiledModule struct {
	FileID string

	// Constants is the heterogeneous, insertion-ordered constant pool
	// (spec.md §3.5), surfaced here as the parallel array of runtime
	// objects the VM boundary expects.
	Constants []constant.Entry

	// Globals is indexed by a variable's Class == sema.ClassGlobal slot
	// (spec.md §3.4); each slot carries the global's name, which the code
	// generator copies from its sema.Variable.
	Globals []GlobalSlot

	// ImportedModules maps an imported module's name to the module index
	// the driver's import_module callback returned (spec.md §4.3, §6.1).
	ImportedModules map[string]int

	// Code is the concatenated bytecode of every function in Constants,
	// each function's byte range given by its CompiledFunction's
	// CodeOffset/CodeSize (spec.md §6.3).
	Code bytecode.Instructions

	// LineMap is the sorted address-to-line table spec.md §6.3 describes,
	// covering the whole Code blob.
	LineMap bytecode.LineMap

	// TopLevelFunc is the Constants index of the module's top-level
	// function (the implicit function wrapping every non-import
	// statement at module scope).
	TopLevelFunc int
}

// FindGlobal returns the slot index of name among Globals, or -1.
func (m *CompiledModule) FindGlobal(name string) int {
	for i, g := range m.Globals {
		if g.Name == name {
			return i
		}
	}
	return -1
}

// Function returns the CompiledFunction descriptor stored at constant
// index idx, or nil if idx is out of range or not a Function constant.
func (m *CompiledModule) Function(idx int) *constant.CompiledFunction {
	if idx < 0 || idx >= len(m.Constants) {
		return nil
	}
	e := &m.Constants[idx]
	if e.Kind != constant.Function {
		return nil
	}
	return e.Fn
}
