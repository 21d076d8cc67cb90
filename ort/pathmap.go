package ort

import (
	"github.com/emirpasic/gods/maps/treemap"
)

// pathMap is the PATH MAP: path -> record, held in the directory-adjacent
// order the RESOLVER and TREE BUILDER both depend on (spec §4.3, design note
// N6). Ordered iteration is the reason this is a treemap and not a bare Go
// map with a sort pass per merge — the teacher reaches for the same ordered-
// collection library (gods) for its commit walkers' binary heap.
type pathMap struct {
	tree *treemap.Map
	in   *interner
}

func newPathMap(in *interner) *pathMap {
	return &pathMap{tree: treemap.NewWith(pathComparator), in: in}
}

// getOrCreate returns the record for path, creating an empty one (and
// interning the path) on first touch.
func (pm *pathMap) getOrCreate(path string) *record {
	if v, ok := pm.tree.Get(path); ok {
		return v.(*record)
	}
	pm.in.intern(path)
	r := &record{path: path}
	pm.tree.Put(path, r)
	return r
}

func (pm *pathMap) get(path string) (*record, bool) {
	v, ok := pm.tree.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*record), true
}

func (pm *pathMap) remove(path string) {
	pm.tree.Remove(path)
}

// putExisting inserts an already-constructed record under path, used when
// relocating a record to a new key (directory-rename application) rather
// than creating a fresh one.
func (pm *pathMap) putExisting(path string, r *record) {
	pm.in.intern(path)
	pm.tree.Put(path, r)
}

func (pm *pathMap) size() int { return pm.tree.Size() }

// forEach visits every record in directory-adjacent path order.
func (pm *pathMap) forEach(fn func(path string, r *record)) {
	it := pm.tree.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value().(*record))
	}
}

// paths returns every path currently in the map, in directory-adjacent order.
func (pm *pathMap) paths() []string {
	out := make([]string, 0, pm.tree.Size())
	pm.forEach(func(path string, _ *record) { out = append(out, path) })
	return out
}
