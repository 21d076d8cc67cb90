package ort

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
	"github.com/ortmerge/ort/object"
	"github.com/ortmerge/ort/store"
)

// fileEntry is a convenience for building a fixture tree's flat layout, e.g.
// {"a.txt": "hello", "dir/b.txt": "world"}.
type fileEntry struct {
	path string
	mode filemode.FileMode
	data string
}

// buildTree writes every file in entries (and the intermediate directories
// they imply) to st and returns the root tree id. Directory mode is always
// filemode.Dir; entries must use "/"-separated paths with no leading slash.
func buildTree(t *testing.T, ctx context.Context, st store.Store, entries []fileEntry) plumbing.Hash {
	t.Helper()

	type dirNode struct {
		files map[string]fileEntry
		dirs  map[string]*dirNode
	}
	root := &dirNode{files: map[string]fileEntry{}, dirs: map[string]*dirNode{}}

	for _, fe := range entries {
		segs := splitAll(fe.path)
		cur := root
		for i := 0; i < len(segs)-1; i++ {
			next, ok := cur.dirs[segs[i]]
			if !ok {
				next = &dirNode{files: map[string]fileEntry{}, dirs: map[string]*dirNode{}}
				cur.dirs[segs[i]] = next
			}
			cur = next
		}
		name := segs[len(segs)-1]
		mode := fe.mode
		if mode == filemode.Empty {
			mode = filemode.Regular
		}
		cur.files[name] = fileEntry{path: name, mode: mode, data: fe.data}
	}

	var write func(n *dirNode) plumbing.Hash
	write = func(n *dirNode) plumbing.Hash {
		tr := &object.Tree{}
		for name, fe := range n.files {
			oid, err := st.WriteObject(ctx, store.BlobKind, []byte(fe.data))
			require.NoError(t, err)
			tr.Entries = append(tr.Entries, object.TreeEntry{Name: name, Mode: fe.mode, Hash: oid})
		}
		for name, sub := range n.dirs {
			oid := write(sub)
			tr.Entries = append(tr.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: oid})
		}
		b, err := tr.EncodeToBytes()
		require.NoError(t, err)
		oid, err := st.WriteObject(ctx, store.TreeKind, b)
		require.NoError(t, err)
		return oid
	}
	return write(root)
}

func splitAll(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	out = append(out, p[start:])
	return out
}

// readTreeFiles flattens a tree back into a path -> content map, for
// asserting on a merge's resulting tree.
func readTreeFiles(t *testing.T, ctx context.Context, st store.Store, oid plumbing.Hash, prefix string, out map[string]string) {
	t.Helper()
	if oid.IsZero() {
		return
	}
	tr, err := st.ReadTree(ctx, oid)
	require.NoError(t, err)
	for _, e := range tr.Entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.IsDir() {
			readTreeFiles(t, ctx, st, e.Hash, p, out)
			continue
		}
		data, err := st.ReadBlob(ctx, e.Hash)
		require.NoError(t, err)
		out[p] = string(data)
	}
}
