// Package arena implements the bump-allocated, never-individually-freed
// pool that backs the scopes, frames, and variables the resolver (package
// sema) allocates during one compilation unit (spec.md §5, §9). AST nodes,
// constants, and jump fixups are ordinary Go allocations outside it.
//
// Rather than the C original's pointer-linked free lists inside a raw
// memory block, each [Pool] here is a parallel Go slice indexed by a small
// integer ID — the "arena of indices" the Design Notes recommend for a
// target-language rewrite. IDs remain valid for the arena's lifetime and
// are never reused; the whole pool is released at once when the
// compilation unit is destroyed (simply by dropping the reference and
// letting the garbage collector reclaim it).
package arena

// ID is a 1-based handle into a [Pool]. The zero value is never issued by
// Pool.New and is used as the pool's own "no value" sentinel.
type ID int32

// Pool is a growable, append-only store of T values addressed by [ID].
type Pool[T any] struct {
	items []T
}

// NewPool creates an empty pool. The zero Pool is also ready to use.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{}
}

// New allocates a fresh zero-valued T, appends it to the pool, and returns
// its ID. The returned pointer is only valid until the next New call that
// grows the backing slice's capacity — callers that need a stable handle
// across further allocations should use the returned ID with [Pool.Get].
func (p *Pool[T]) New() (ID, *T) {
	p.items = append(p.items, *new(T))
	id := ID(len(p.items))
	return id, &p.items[id-1]
}

// Get dereferences id. It panics on the zero ID or an ID this pool never
// issued — both are compiler bugs, not malformed-input errors.
func (p *Pool[T]) Get(id ID) *T {
	return &p.items[id-1]
}

// Len reports how many items have been allocated.
func (p *Pool[T]) Len() int { return len(p.items) }

// Valid reports whether id was issued by this pool.
func (p *Pool[T]) Valid(id ID) bool {
	return id > 0 && int(id) <= len(p.items)
}

// All returns every allocated item's ID in allocation order. Intended for
// passes that need to iterate an entire pool (e.g. resetting per-pass
// counters at the start of each optimizer iteration).
func (p *Pool[T]) All(yield func(ID, *T) bool) {
	for i := range p.items {
		if !yield(ID(i+1), &p.items[i]) {
			return
		}
	}
}

// BumpString interns raw byte ranges copied out of the source buffer so
// that AST/token literals keep a stable backing array independent of the
// lifetime of any single read. Kept trivial on purpose: unlike the C
// original there is no benefit to hand-rolling a string arena over Go's
// GC'd strings, but the type documents the ownership boundary described in
// spec.md §5 ("the source byte slice is borrowed; tokens carry pointers
// into it").
type BumpString = string
