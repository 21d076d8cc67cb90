// Package ort implements the in-memory three-way tree merge core: the joint
// tree walk, rename detection with directory-rename inference, per-path
// conflict resolution, and bottom-up tree reconstruction.
package ort

import (
	"context"
	"fmt"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/trace"
	"github.com/ortmerge/ort/store"
)

// Result is what MergeNonRecursive (spec §6's merge_nonrecursive) hands
// back to a caller.
type Result struct {
	Tree     plumbing.Hash
	Clean    bool
	Unmerged []UnmergedEntry
	Messages map[string][]Message
}

// Engine holds the RENAME STATE cache across a sequence of merges that
// share it (spec §1, §4.2.4, §5): exactly one merge is active on an Engine
// at a time.
type Engine struct {
	st    store.Store
	opts  Options
	cache *renameCache
	arena *arena
	dbg   trace.Debuger
}

// NewEngine constructs an Engine against a backing object store. Close must
// be called once the caller is done reusing it.
func NewEngine(st store.Store, opts Options) (*Engine, error) {
	cache, err := newRenameCache()
	if err != nil {
		return nil, err
	}
	opts = opts.normalized()
	return &Engine{st: st, opts: opts, cache: cache, arena: newArena(), dbg: trace.NewDebuger(opts.Verbose)}, nil
}

// Close releases the Engine's RENAME STATE cache.
func (e *Engine) Close() {
	e.cache.close()
}

// InvalidateSide drops cached rename state for side, used when the caller
// cannot assert that side is unchanged from the previous merge in a
// sequence (spec §4.2.4).
func (e *Engine) InvalidateSide(side Role) {
	e.cache.invalidate(side)
}

// MergeNonRecursive runs one merge of three trees (spec §6's
// merge_nonrecursive): populate the PATH MAP via the joint walk, detect and
// apply renames, resolve every conflict class, and rebuild the tree.
func (e *Engine) MergeNonRecursive(ctx context.Context, base, side1, side2 plumbing.Hash, opts Options) (*Result, error) {
	opts = opts.normalized()
	e.opts = opts
	e.dbg = trace.NewDebuger(opts.Verbose)
	e.arena.reset()

	c := newCollector(e.st, e.arena, opts, e.dbg)
	if err := c.collect(ctx, base, side1, side2); err != nil {
		return nil, err
	}

	re := newRenameEngine(e.st, e.arena, opts, e.cache, e.dbg)
	renames, dirRenames, dirRenameSplits := re.detect(ctx, c)

	moved := map[string]bool{}
	for _, side := range [2]Role{RoleSide1, RoleSide2} {
		for _, r := range renames[side] {
			applyRegularRename(e.arena, r)
			moved[r.from] = true
			moved[r.to] = true
		}
	}
	for _, side := range [2]Role{RoleSide1, RoleSide2} {
		switch opts.DetectDirectoryRenames {
		case DirRenameTrue:
			applyDirectoryRenames(e.arena, side, dirRenames[side], moved)
		case DirRenameConflict:
			flagDirectoryRenameConflicts(e.arena, side, dirRenames[side], moved)
		}
		if opts.DetectDirectoryRenames != DirRenameNone {
			flagDirectoryRenameSplits(e.arena, dirRenameSplits[side])
		}
	}

	rs := newResolver(e.st, opts, e.dbg)
	unmerged, err := rs.resolve(ctx, e.arena)
	if err != nil {
		return nil, err
	}

	tb := newTreeBuilder()
	tree, err := tb.build(ctx, e.st, e.arena)
	if err != nil {
		return nil, err
	}

	messages := map[string][]Message{}
	e.arena.paths.forEach(func(p string, r *record) {
		if len(r.messages) > 0 {
			messages[p] = r.messages
		}
	})

	return &Result{
		Tree:     tree,
		Clean:    len(unmerged) == 0,
		Unmerged: unmerged,
		Messages: messages,
	}, nil
}

// Merge is the one-shot form of merge_nonrecursive (spec §6): callers that
// don't need cross-merge rename-cache reuse can call this directly instead
// of constructing an Engine.
func Merge(ctx context.Context, st store.Store, base, side1, side2 plumbing.Hash, opts Options) (*Result, error) {
	e, err := NewEngine(st, opts)
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.MergeNonRecursive(ctx, base, side1, side2, opts)
}

// flagDirectoryRenameConflicts marks every path that would have been moved
// by a directory rename as a conflict instead of silently applying it, for
// DetectDirectoryRenames == DirRenameConflict (spec §6's "conflict" option
// value: infer but don't apply, surface to the caller instead). side is the
// side whose renames produced dirRenames; the paths that would have moved
// are the other side's still-present content under the old directory, same
// as applyDirectoryRenames would have moved.
func flagDirectoryRenameConflicts(arena *arena, side Role, dirRenames map[string]string, moved map[string]bool) {
	following := otherSide(side)
	for oldDir, newDir := range dirRenames {
		for _, p := range arena.paths.paths() {
			if moved[p] {
				continue
			}
			if _, ok := relativeUnderAny(p, oldDir); !ok {
				continue
			}
			r, ok := arena.paths.get(p)
			if !ok || !r.filemask.has(following) {
				continue
			}
			r.pathConflict = true
			r.markUnclean()
			r.addMessage(SeverityWarn, MsgDirRenameSuggested,
				fmt.Sprintf("directory rename %s -> %s not applied (conflict mode)", oldDir, newDir))
		}
	}
}

// flagDirectoryRenameSplits emits the "directory rename split" diagnostic
// (spec §4.2.2) for every source directory whose votes tied between two or
// more destination directories: no directory rename is inferred for it (see
// inferDirectoryRenames), and every regular rename that contributed a vote
// is marked unclean instead of being allowed to quietly resolve as an
// ordinary file rename, so the tie surfaces in Result.Clean and Messages
// rather than disappearing.
func flagDirectoryRenameSplits(arena *arena, splits map[string][]pendingRename) {
	for fromDir, contributors := range splits {
		dests := map[string]bool{}
		for _, c := range contributors {
			dests[parentDir(c.to)] = true
		}
		for _, c := range contributors {
			r, ok := arena.paths.get(c.to)
			if !ok {
				continue
			}
			r.pathConflict = true
			r.markUnclean()
			r.addMessage(SeverityWarn, MsgDirRenameSplit,
				fmt.Sprintf("directory rename split: %s has %d equally-likely destinations", fromDir, len(dests)))
		}
	}
}
