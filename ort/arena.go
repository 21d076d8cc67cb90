package ort

// arena is the single owning allocation scope for one merge invocation
// (design note N4): the interning table, the PATH MAP, and the candidate
// pairs gathered during rename detection all live here and are discarded
// together. The RENAME STATE caches are held separately (cache.go) precisely
// so "partial clear" between merges in a sequence (spec §5) can drop
// everything in the arena while keeping the cache entries the caller
// declared valid on a given side.
type arena struct {
	in      *interner
	paths   *pathMap
	pending []pendingRename // candidate (source, target) pairs awaiting scoring
}

func newArena() *arena {
	in := newInterner()
	return &arena{in: in, paths: newPathMap(in)}
}

// reset discards everything in the arena. Called at the start of each merge;
// RENAME STATE caches are untouched since they are not arena-owned.
func (a *arena) reset() {
	a.in = newInterner()
	a.paths = newPathMap(a.in)
	a.pending = nil
}
