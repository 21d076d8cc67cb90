package ort

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
	"github.com/ortmerge/ort/object"
	"github.com/ortmerge/ort/store"
)

// treeBuilder reassembles the merged tree bottom-up from the resolved PATH
// MAP (spec §4.6), using two explicit stacks instead of recursion: versions
// holds pending entries for the directory currently being assembled, offsets
// marks where in versions each open directory's own entries begin.
type treeBuilder struct {
	st store.Store

	versions []object.TreeEntry
	offsets  []int  // stack of start-indices into versions
	dirs     []string // stack of open directory paths, same depth as offsets
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{}
}

// build consumes arena's resolved, directory-adjacent-ordered paths and
// returns the id of the root tree.
func (tb *treeBuilder) build(ctx context.Context, st store.Store, arena *arena) (plumbing.Hash, error) {
	tb.st = st
	tb.versions = nil
	tb.offsets = []int{0}
	tb.dirs = []string{""}

	lastDir := ""
	for _, p := range arena.paths.paths() {
		r, ok := arena.paths.get(p)
		// Unclean records are emitted too when the resolver left a result
		// version on them (a conflicted content merge, the modified side of
		// a modify/delete); records with no result are left out.
		if !ok || r.isNull || r.resultMode == filemode.Empty {
			continue
		}
		dir := parentDir(p)
		if dir != lastDir {
			if err := tb.transition(ctx, lastDir, dir); err != nil {
				return plumbing.ZeroHash, err
			}
			lastDir = dir
		}
		tb.versions = append(tb.versions, object.TreeEntry{
			Name: path.Base(p),
			Mode: r.resultMode,
			Hash: r.resultOid,
		})
	}

	if err := tb.closeTo(ctx, ""); err != nil {
		return plumbing.ZeroHash, err
	}
	return tb.writeTree(ctx, tb.versions[tb.offsets[0]:])
}

// transition moves the builder from lastDir to dir: it closes every open
// directory that is not an ancestor of dir, then opens whatever prefix of
// dir is not already open.
func (tb *treeBuilder) transition(ctx context.Context, lastDir, dir string) error {
	if err := tb.closeTo(ctx, commonAncestor(lastDir, dir)); err != nil {
		return err
	}
	return tb.openTo(dir)
}

// closeTo pops and serializes directories until the top of the open-dir
// stack is target (an ancestor of, or equal to, every directory still to
// come).
func (tb *treeBuilder) closeTo(ctx context.Context, target string) error {
	for len(tb.dirs) > 1 && !isAncestorOrSelf(tb.dirs[len(tb.dirs)-1], target) {
		offset := tb.offsets[len(tb.offsets)-1]
		entries := tb.versions[offset:]
		oid, err := tb.writeTree(ctx, entries)
		if err != nil {
			return err
		}
		closedDir := tb.dirs[len(tb.dirs)-1]
		tb.versions = tb.versions[:offset]
		tb.offsets = tb.offsets[:len(tb.offsets)-1]
		tb.dirs = tb.dirs[:len(tb.dirs)-1]

		if len(entries) > 0 {
			tb.versions = append(tb.versions, object.TreeEntry{
				Name: path.Base(closedDir),
				Mode: filemode.Dir,
				Hash: oid,
			})
		}
		// Empty directories are not emitted (spec §4.6): nothing is pushed
		// onto versions for them.
	}
	return nil
}

// openTo pushes one offset per path component between the currently open
// top directory and dir.
func (tb *treeBuilder) openTo(dir string) error {
	current := tb.dirs[len(tb.dirs)-1]
	if dir == current {
		return nil
	}
	rel := dir
	if current != "" {
		rel = strings.TrimPrefix(dir, current+"/")
	}
	if rel == "" {
		return nil
	}
	acc := current
	for _, comp := range strings.Split(rel, "/") {
		acc = joinPath(acc, comp)
		tb.offsets = append(tb.offsets, len(tb.versions))
		tb.dirs = append(tb.dirs, acc)
	}
	return nil
}

func (tb *treeBuilder) writeTree(ctx context.Context, entries []object.TreeEntry) (plumbing.Hash, error) {
	cp := make([]object.TreeEntry, len(entries))
	copy(cp, entries)
	t := &object.Tree{Entries: cp}
	b, err := t.EncodeToBytes()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: encode tree: %v", ErrIO, err)
	}
	oid, err := tb.st.WriteObject(ctx, store.TreeKind, b)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: write tree: %v", ErrIO, err)
	}
	return oid, nil
}

// commonAncestor returns the longest directory path that is an ancestor of
// (or equal to) both a and b.
func commonAncestor(a, b string) string {
	if a == b {
		return a
	}
	as := splitPath(a)
	bs := splitPath(b)
	i := 0
	for i < len(as) && i < len(bs) && as[i] == bs[i] {
		i++
	}
	return strings.Join(as[:i], "/")
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isAncestorOrSelf(ancestor, dir string) bool {
	if ancestor == dir {
		return true
	}
	if ancestor == "" {
		return true
	}
	return strings.HasPrefix(dir, ancestor+"/")
}
