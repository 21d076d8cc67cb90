package ort

import (
	"context"
	"fmt"
	"path"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
	"github.com/ortmerge/ort/modules/trace"
	"github.com/ortmerge/ort/object"
	"github.com/ortmerge/ort/store"
)

// walkEntry is one unit of work for the joint three-tree walk: a directory
// (or the root) to descend into, one subtree id per role where that role has
// a directory there. Design note N5: traversal is an explicit work queue of
// these, not mutual recursion, so arbitrarily deep trees don't blow a call
// stack shaped by the input rather than by the engine.
type walkEntry struct {
	dir   string // "" for root, otherwise a path with no trailing slash
	trees stageTriple
}

// collector runs the joint three-tree walk (spec §4.1) and leaves the arena's
// PATH MAP populated with one record per path touched by any side, plus a
// set of candidate add/delete pairs per side for the rename engine.
type collector struct {
	st    store.Store
	arena *arena
	opts  Options
	dbg   trace.Debuger

	added   map[Role][]addCandidate
	deleted map[Role][]deleteCandidate
}

type addCandidate struct {
	path    string
	version version
}

type deleteCandidate struct {
	path    string
	version version // base's version that disappeared
}

func newCollector(st store.Store, a *arena, opts Options, dbg trace.Debuger) *collector {
	return &collector{
		st:      st,
		arena:   a,
		opts:    opts,
		dbg:     dbg,
		added:   map[Role][]addCandidate{},
		deleted: map[Role][]deleteCandidate{},
	}
}

// collect walks the three root trees and returns any fatal error encountered
// reading the object store.
func (c *collector) collect(ctx context.Context, base, side1, side2 plumbing.Hash) error {
	queue := []walkEntry{{dir: "", trees: c.rootTrees(base, side1, side2)}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		next, err := c.visitDirectory(ctx, e)
		if err != nil {
			return err
		}
		queue = append(queue, next...)
	}
	return nil
}

func (c *collector) rootTrees(base, side1, side2 plumbing.Hash) stageTriple {
	var st stageTriple
	for r, oid := range [roleCount]plumbing.Hash{base, side1, side2} {
		if oid.IsZero() {
			continue
		}
		st[r] = version{mode: filemode.Dir, oid: oid}
	}
	return st
}

// dirEntries is one directory's merged-by-name listing: for each name
// present on any side, the (mode, oid) triple.
type dirEntries map[string]stageTriple

func (c *collector) readDir(ctx context.Context, v version) (dirEntries, error) {
	if v.isAbsent() || !v.mode.IsDir() {
		// A file/directory conflict can hand a walkEntry a triple where some
		// roles hold a file version instead of a tree (handleFileDirConflict
		// still descends using the whole mixed triple so the directory
		// side's children are collected); a non-directory role simply
		// contributes no listing, same as an absent one.
		return nil, nil
	}
	t, err := c.st.ReadTree(ctx, v.oid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrObjectMissing, v.oid, err)
	}
	return treeToMap(t), nil
}

// treeToMap returns, for each entry name in t, a stageTriple with only role 0
// populated; visitDirectory merges these single-role listings across roles
// by name before computing masks.
func treeToMap(t *object.Tree) dirEntries {
	out := make(dirEntries, len(t.Entries))
	for _, e := range t.Entries {
		out[e.Name] = stageTriple{0: version{mode: e.Mode, oid: e.Hash}}
	}
	return out
}

// visitDirectory reads e's three directory listings (where present), merges
// them by name, computes masks, applies early resolution, and returns the
// child directories that must be visited next.
func (c *collector) visitDirectory(ctx context.Context, e walkEntry) ([]walkEntry, error) {
	var listings [roleCount]dirEntries
	for r := RoleBase; r < roleCount; r++ {
		lst, err := c.readDir(ctx, e.trees[r])
		if err != nil {
			return nil, err
		}
		listings[r] = lst
	}

	names := map[string]bool{}
	for r := RoleBase; r < roleCount; r++ {
		for name := range listings[r] {
			names[name] = true
		}
	}

	var next []walkEntry
	for name := range names {
		var versions stageTriple
		for r := RoleBase; r < roleCount; r++ {
			if single, ok := listings[r][name]; ok {
				versions[r] = single[0]
			}
		}
		childPath := joinPath(e.dir, name)
		advance, err := c.visitEntry(ctx, childPath, versions)
		if err != nil {
			return nil, err
		}
		if advance != nil {
			next = append(next, *advance)
		}
	}
	return next, nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// visitEntry computes the present/dir masks and match mask for one path
// across the three roles, applies early-resolution rules R1-R4, and returns
// a walkEntry to descend into if any role has a directory there.
func (c *collector) visitEntry(ctx context.Context, p string, v stageTriple) (*walkEntry, error) {
	var fileMask, dirMask mask
	for r := RoleBase; r < roleCount; r++ {
		ver := v[r]
		if ver.isAbsent() {
			continue
		}
		if ver.mode.IsDir() {
			dirMask = dirMask.set(r)
		} else {
			fileMask = fileMask.set(r)
		}
	}

	if !fileMask.isEmpty() && !dirMask.isEmpty() {
		return c.handleFileDirConflict(ctx, p, v, fileMask, dirMask)
	}

	if !dirMask.isEmpty() {
		// Pure directory at this path on every side that has anything here
		// at all: recurse, no PATH MAP record needed for the directory
		// itself (it is synthesized later only if renames require it).
		return &walkEntry{dir: p, trees: v}, nil
	}

	c.resolveFile(p, v, fileMask)
	return nil, nil
}

// handleFileDirConflict handles a path that is a file on some side(s) and a
// directory on other side(s) (df_conflict): the record is left unclean with
// df_conflict set, the directory side is still walked so its contents are
// collected, and the deleted/added candidate bookkeeping treats the file
// side(s) as a normal file version for rename purposes.
func (c *collector) handleFileDirConflict(ctx context.Context, p string, v stageTriple, fileMask, dirMask mask) (*walkEntry, error) {
	r := c.arena.paths.getOrCreate(p)
	r.filemask = fileMask
	r.dirmask = dirMask
	r.dfConflict = true
	r.markUnclean()
	for role := RoleBase; role < roleCount; role++ {
		r.stages[role] = v[role]
	}
	c.collectCandidates(p, v, fileMask)
	return &walkEntry{dir: p, trees: v}, nil
}

// resolveFile applies R1-R4 to a path that is a file (or absent) on every
// side, then records pending renames candidates for the sides that deleted
// or added a file here relative to base.
func (c *collector) resolveFile(p string, v stageTriple, fileMask mask) {
	base, s1, s2 := v[RoleBase], v[RoleSide1], v[RoleSide2]

	matchMask := computeMatchMask(v, fileMask)

	r := c.arena.paths.getOrCreate(p)
	r.filemask = fileMask
	r.matchMask = matchMask
	r.stages = v

	switch {
	case fileMask == maskOf(RoleBase, RoleSide1, RoleSide2) && matchMask == maskOf(RoleBase, RoleSide1, RoleSide2):
		// R1: all three equal.
		r.markClean(base.mode, base.oid)
		c.dbg.DbgPrint("collector: %s resolved R1 (all three equal)", p)
	case fileMask == maskOf(RoleBase, RoleSide1, RoleSide2) && sameVersion(s1, s2):
		// R2: side1 == side2 (base may differ).
		r.markClean(s1.mode, s1.oid)
		c.dbg.DbgPrint("collector: %s resolved R2 (sides agree)", p)
	case fileMask == maskOf(RoleBase, RoleSide1, RoleSide2) && sameVersion(s1, base):
		// R3: side1 unchanged, take side2.
		r.markClean(s2.mode, s2.oid)
		c.dbg.DbgPrint("collector: %s resolved R3 (side1 unchanged)", p)
	case fileMask == maskOf(RoleBase, RoleSide1, RoleSide2) && sameVersion(s2, base):
		// R3 symmetric: side2 unchanged, take side1.
		r.markClean(s1.mode, s1.oid)
		c.dbg.DbgPrint("collector: %s resolved R3 (side2 unchanged)", p)
	default:
		// R4: pending conflict, refined by the resolver after renames.
		r.markUnclean()
		c.dbg.DbgPrint("collector: %s deferred to resolver (R4, filemask=%d matchmask=%d)", p, fileMask, matchMask)
	}

	c.collectCandidates(p, v, fileMask)
}

func (c *collector) collectCandidates(p string, v stageTriple, fileMask mask) {
	base := v[RoleBase]
	for _, side := range [2]Role{RoleSide1, RoleSide2} {
		sv := v[side]
		switch {
		case !base.isAbsent() && sv.isAbsent():
			c.deleted[side] = append(c.deleted[side], deleteCandidate{path: p, version: base})
		case base.isAbsent() && !sv.isAbsent():
			c.added[side] = append(c.added[side], addCandidate{path: p, version: sv})
		}
	}
}

func computeMatchMask(v stageTriple, fileMask mask) mask {
	var mm mask
	if fileMask.has(RoleBase) && fileMask.has(RoleSide1) && sameVersion(v[RoleBase], v[RoleSide1]) {
		mm = mm.set(RoleBase).set(RoleSide1)
	}
	if fileMask.has(RoleBase) && fileMask.has(RoleSide2) && sameVersion(v[RoleBase], v[RoleSide2]) {
		mm = mm.set(RoleBase).set(RoleSide2)
	}
	if fileMask.has(RoleSide1) && fileMask.has(RoleSide2) && sameVersion(v[RoleSide1], v[RoleSide2]) {
		mm = mm.set(RoleSide1).set(RoleSide2)
	}
	return mm
}

func sameVersion(a, b version) bool {
	return a.mode == b.mode && a.oid == b.oid
}
