// Package constant implements the per-compilation-unit constant pool of
// spec.md §3.5: a deduplicated, insertion-ordered set of literals and
// function descriptors emitted alongside a module's bytecode.
//
// The original dedups via a red-black tree keyed by (kind, value);
// spec.md's own Design Notes sanction any sorted or hashed structure for
// this ("these are small sets; any sorted data structure suffices"), and
// no red-black-tree library exists anywhere in the retrieved corpus (see
// DESIGN.md), so a Go map keyed on a comparable struct replaces it.
package constant

import "github.com/kos-lang/kos/bytecode"

// Kind discriminates the constant-pool entry types of spec.md §3.5.
type Kind int

const (
	Integer Kind = iota
	Float
	String
	Function
	Prototype
)

// MaxStringBytes bounds a single String constant's byte length — folded
// string concatenation must not exceed this (spec.md §4.4 rule 2, §8.3).
const MaxStringBytes = 65535

// CompiledFunction is the per-function descriptor of spec.md §6.4,
// embedded as a Function-kind constant-pool entry.
type CompiledFunction struct {
	NameIndex int // index of a String constant holding the function's name, or -1 if anonymous

	CodeOffset, CodeSize int
	LineMapOffset, LineMapSize int

	DefLine int32

	NumInstructions int

	IsClosure   bool
	HasEllipsis bool
	IsGenerator bool
	IsClassCtor bool

	NumRegs     int
	ClosureSize int

	MinArgs        int
	DeclaredDefaults int
	UsedDefaults     int
	NumNamedArgs     int

	ArgsReg, RestReg, EllipsisReg, ThisReg, BindReg int

	// LoadOp is the load-fun instruction used to reference this function
	// from its enclosing frame. No pass in this module sets it, so it is
	// always zero.
	LoadOp int

	// NamedArgNames holds constant-pool String indices for each named
	// parameter, in declaration order (spec.md §6.4's "flexible array of
	// constant indices for named-argument names").
	NamedArgNames []int

	// Captures describes, for each of this function's upvalues in OpBind
	// index order, where the enclosing frame's OpLoadFun instruction reads
	// the captured variable's box from when the closure is created: a
	// register on the immediately enclosing frame if FromParentReg, or an
	// index into the enclosing frame's own Captures list otherwise (a
	// capture chain threading through more than one frame boundary).
	Captures []CaptureSlot
}

// CaptureSlot is one upvalue source descriptor of a CompiledFunction's
// closure over its defining environment.
type CaptureSlot struct {
	FromParentReg bool
	Index         int
}

// Entry is one constant-pool slot. Exactly one of the Kind-specific fields
// is meaningful, selected by Kind.
type Entry struct {
	Kind Kind

	Int    int64
	Flt    float64
	Str    string
	RawStr bool // preserves the raw-vs-cooked flag across string folding

	Fn *CompiledFunction

	// ProtoBase holds the Function-constant index of the base class this
	// prototype derives from, or -1 for a root class.
	ProtoBase int
}

type dedupKey struct {
	kind Kind
	i    int64
	f    float64
	s    string
	raw  bool
}

// Pool is one compilation unit's constant pool: an insertion-ordered
// vector of [Entry] plus a dedup index for Integer/Float/String entries.
// Function and Prototype entries are never deduplicated — each function
// literal is a distinct constant even if byte-for-byte identical to
// another (spec.md §3.5).
type Pool struct {
	entries []Entry
	dedup   map[dedupKey]int
}

// New creates an empty constant pool.
func New() *Pool {
	return &Pool{dedup: make(map[dedupKey]int)}
}

// Len reports how many entries the pool holds.
func (p *Pool) Len() int { return len(p.entries) }

// Get returns the entry at idx.
func (p *Pool) Get(idx int) *Entry { return &p.entries[idx] }

// All returns every entry in insertion order, the order they surface as
// the compiled module's parallel constant array (spec.md §3.5/§3.6).
func (p *Pool) All() []Entry { return p.entries }

func (p *Pool) add(e Entry) int {
	idx := len(p.entries)
	p.entries = append(p.entries, e)
	return idx
}

// Int interns an Integer constant, returning its (possibly pre-existing)
// index.
func (p *Pool) Int(v int64) int {
	k := dedupKey{kind: Integer, i: v}
	if idx, ok := p.dedup[k]; ok {
		return idx
	}
	idx := p.add(Entry{Kind: Integer, Int: v})
	p.dedup[k] = idx
	return idx
}

// Float interns a Float constant.
func (p *Pool) Float(v float64) int {
	k := dedupKey{kind: Float, f: v}
	if idx, ok := p.dedup[k]; ok {
		return idx
	}
	idx := p.add(Entry{Kind: Float, Flt: v})
	p.dedup[k] = idx
	return idx
}

// Str interns a String constant. raw preserves the literal's raw-vs-cooked
// flag so later passes (and the disassembler) can tell a raw string from
// an escape-processed one of identical bytes — spec.md's folding rule
// never merges a raw and a cooked string even if their bytes match, so two
// calls differing only in raw are deliberately NOT deduplicated together.
func (p *Pool) Str(v string, raw bool) int {
	k := dedupKey{kind: String, s: v, raw: raw}
	if idx, ok := p.dedup[k]; ok {
		return idx
	}
	idx := p.add(Entry{Kind: String, Str: v, RawStr: raw})
	p.dedup[k] = idx
	return idx
}

// Func reserves a new, never-deduplicated Function constant slot and
// returns its index. The descriptor is filled in by the caller (codegen)
// as the function's body is emitted.
func (p *Pool) Func(fn *CompiledFunction) int {
	return p.add(Entry{Kind: Function, Fn: fn})
}

// Prototype reserves a new Prototype constant referencing baseFnIdx as the
// base class's Function constant (-1 for a root class).
func (p *Pool) Prototype(baseFnIdx int) int {
	return p.add(Entry{Kind: Prototype, ProtoBase: baseFnIdx})
}

// CodeBlob concatenates every Function constant's bytecode and line map
// into the module's single opaque code blob (spec.md §6.3: "the map is
// stored adjacent to bytecode in a single opaque blob"), filling in each
// CompiledFunction's CodeOffset/LineMapOffset fields as it goes. Callers
// invoke this once, after every function body has been emitted into its
// own standalone bytecode.Instructions/bytecode.LineMap pair during
// codegen.
func CodeBlob(fns []*CompiledFunction, bodies []bytecode.Instructions, lines []bytecode.LineMap) (code []byte, lineMap []bytecode.LineEntry) {
	for i, fn := range fns {
		fn.CodeOffset = len(code)
		fn.CodeSize = len(bodies[i])
		code = append(code, bodies[i]...)

		base := len(lineMap)
		fn.LineMapOffset = base
		fn.LineMapSize = len(lines[i])
		for _, e := range lines[i] {
			lineMap = append(lineMap, bytecode.LineEntry{Offset: fn.CodeOffset + e.Offset, Line: e.Line})
		}
	}
	return code, lineMap
}
