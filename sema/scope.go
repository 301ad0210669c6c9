// Package sema implements the variable resolver (spec.md §4.3): the walk
// that builds the scope/frame tree, binds every identifier to a
// [Variable], classifies each variable's storage class, and records
// closure captures as [ScopeRef] edges.
//
// Scopes, frames, and variables live in per-unit [arena.Pool]s and are
// addressed by ID rather than pointer, per the Design Notes' "arena of
// indices" recommendation (spec.md §9) — this sidesteps the Scope <-> Frame
// <-> Variable reference cycle the C original resolves with a
// never-individually-freed arena of raw pointers.
package sema

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/internal/arena"
	"github.com/kos-lang/kos/token"
)

// ScopeID, FrameID, and VarID address the Unit's parallel pools.
type ScopeID = arena.ID
type FrameID = arena.ID
type VarID = arena.ID

// Scope represents one lexical block. Every scope has a Parent (zero for
// the module's top-level scope) and an OwningFrame (the innermost
// enclosing frame, itself a Scope with HasFrame set).
type Scope struct {
	Parent       ScopeID
	OwningFrame  FrameID
	Node         *ast.Node // the AST node that introduced this scope

	Vars       []VarID
	Ellipsis   VarID // set if this scope declares a `...rest` parameter

	NumVars         int
	NumIndepVars    int
	NumArgs         int
	NumIndepArgs    int

	HasFrame  bool
	IsFunction bool
	UsesThis  bool
	HaveRest  bool

	// lookup maps a byte-identical identifier spelling to the innermost
	// variable declared with that name in this scope. Chained shadowing
	// across scopes is resolved by walking Parent, not by this map alone
	// (Design Notes: "a plain linked-hash-map per scope with a
	// parent-pointer lookup is an equally acceptable alternative" to the
	// red-black-tree-with-shadow-chain design of the original).
	lookup map[string]VarID
}

// Frame is a Scope whose HasFrame bit is set: it owns register allocation
// state, closure-capture bookkeeping, and the constant-pool function
// descriptor being built for it.
type Frame struct {
	Scope ScopeID

	Parent FrameID // zero for the module's top-level frame

	// ScopeRefs records, for each outer scope this frame captures a
	// variable from, the set of captured variables — the closure-capture
	// edge set of spec.md §4.3. Keyed by the captured variable's owning
	// scope; a small slice suffices (Design Notes: "these are small sets;
	// any sorted data structure suffices").
	ScopeRefs []ScopeRef

	FreeRegs []int
	UsedRegs []int
	NumRegs  int

	ThisReg      int
	ArgsReg      int
	RestReg      int
	EllipsisReg  int
	BindReg      int
	BaseCtorReg  int
	BaseProtoReg int

	NumBinds        int
	NumBindsPrev    int
	NumSelfRefs     int
	NumDefaultsUsed int

	IsOpen bool

	// ConstIndex is the constant-pool slot reserved for this frame's
	// CompiledFunction descriptor once codegen finishes emitting it.
	ConstIndex int
}

// ScopeRef records that the owning frame captures the named variables
// declared in FromScope, threading a closure-capture edge through every
// intermediate frame between the reference site and the declaration.
type ScopeRef struct {
	FromScope ScopeID
	Vars      []VarID
}

// Unit owns every Scope, Frame, and Variable allocated while resolving one
// compilation unit's AST.
type Unit struct {
	scopes *arena.Pool[Scope]
	frames *arena.Pool[Frame]
	vars   *arena.Pool[Variable]
}

// NewUnit creates an empty resolution unit.
func NewUnit() *Unit {
	return &Unit{
		scopes: arena.NewPool[Scope](),
		frames: arena.NewPool[Frame](),
		vars:   arena.NewPool[Variable](),
	}
}

func (u *Unit) Scope(id ScopeID) *Scope   { return u.scopes.Get(id) }
func (u *Unit) Frame(id FrameID) *Frame   { return u.frames.Get(id) }
func (u *Unit) Var(id VarID) *Variable    { return u.vars.Get(id) }
func (u *Unit) NumVars() int              { return u.vars.Len() }
func (u *Unit) NumScopes() int            { return u.scopes.Len() }
func (u *Unit) NumFrames() int            { return u.frames.Len() }

// EachVar invokes fn for every Variable allocated in this unit, in
// allocation order. Used by the optimizer to reset per-pass read/write
// counters (spec.md §4.4) and by the code generator to assign global
// slots.
func (u *Unit) EachVar(fn func(VarID, *Variable)) {
	u.vars.All(func(id VarID, v *Variable) bool {
		fn(id, v)
		return true
	})
}

// EachFrame invokes fn for every Frame allocated in this unit, in
// allocation order.
func (u *Unit) EachFrame(fn func(FrameID, *Frame)) {
	u.frames.All(func(id FrameID, f *Frame) bool {
		fn(id, f)
		return true
	})
}

// EachScope invokes fn for every Scope allocated in this unit, in
// allocation order (root-down, since children are always allocated after
// their parents).
func (u *Unit) EachScope(fn func(ScopeID, *Scope)) {
	u.scopes.All(func(id ScopeID, s *Scope) bool {
		fn(id, s)
		return true
	})
}

// NewScope allocates a child scope of parent (zero for a root scope),
// optionally owning a new frame when hasFrame is true.
func (u *Unit) NewScope(parent ScopeID, node *ast.Node, hasFrame bool, parentFrame FrameID) (ScopeID, *Scope) {
	id, s := u.scopes.New()
	s.Parent = parent
	s.Node = node
	s.lookup = make(map[string]VarID)
	if hasFrame {
		fid, f := u.frames.New()
		f.Scope = id
		f.Parent = parentFrame
		f.FreeRegs = nil
		s.HasFrame = true
		s.OwningFrame = fid
	} else {
		s.OwningFrame = parentFrame
	}
	return id, s
}

// Declare binds name in scope, returning (variable, false) if name was
// already declared directly in this scope (a "redefined variable" error
// the caller should raise), or (variable, true) on success.
func (u *Unit) Declare(scopeID ScopeID, name string, tok token.Token, typ VarType) (VarID, *Variable, bool) {
	s := u.Scope(scopeID)
	if existingID, ok := s.lookup[name]; ok {
		return existingID, u.Var(existingID), false
	}
	id, v := u.vars.New()
	v.Name = name
	v.Scope = scopeID
	v.Token = tok
	v.Type = typ
	v.Active = VarInactive
	v.PrevReads = -1
	s.lookup[name] = id
	s.Vars = append(s.Vars, id)
	s.NumVars++
	return id, v, true
}

// Lookup searches scopeID and its ancestors for name, returning the
// variable and the scope that declares it.
func (u *Unit) Lookup(scopeID ScopeID, name string) (VarID, ScopeID, bool) {
	for id := scopeID; id != 0; {
		s := u.Scope(id)
		if vid, ok := s.lookup[name]; ok {
			return vid, id, true
		}
		id = s.Parent
	}
	return 0, 0, false
}
