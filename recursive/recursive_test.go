package recursive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
	"github.com/ortmerge/ort/object"
	"github.com/ortmerge/ort/ort"
	"github.com/ortmerge/ort/store"
)

func singleFileTree(t *testing.T, ctx context.Context, st store.Store, name, content string) plumbing.Hash {
	t.Helper()
	blob, err := st.WriteObject(ctx, store.BlobKind, []byte(content))
	require.NoError(t, err)
	tree := &object.Tree{Entries: []object.TreeEntry{{Name: name, Mode: filemode.Regular, Hash: blob}}}
	b, err := tree.EncodeToBytes()
	require.NoError(t, err)
	oid, err := st.WriteObject(ctx, store.TreeKind, b)
	require.NoError(t, err)
	return oid
}

func putCommit(m *store.Memstore, tree plumbing.Hash, parents ...plumbing.Hash) plumbing.Hash {
	m.PutCommit(tree, store.Commit{Tree: tree, Parents: parents})
	return tree
}

// TestMerge_LinearHistoryUsesSingleMergeBase covers the common case: one
// merge base, no criss-cross synthesis needed.
func TestMerge_LinearHistoryUsesSingleMergeBase(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemstore()

	rootTree := singleFileTree(t, ctx, m, "f", "base")
	root := putCommit(m, rootTree)

	side1Tree := singleFileTree(t, ctx, m, "f", "base edited by side1")
	side1 := putCommit(m, side1Tree, root)

	side2Tree := singleFileTree(t, ctx, m, "f", "base")
	side2 := putCommit(m, side2Tree, root)

	result, err := Merge(ctx, m, side1, side2, ort.Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)

	tree, err := m.ReadTree(ctx, result.Tree)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 1)
	got, err := m.ReadBlob(ctx, tree.Entries[0].Hash)
	require.NoError(t, err)
	require.Equal(t, "base edited by side1", string(got))
}

// TestMerge_NoCommonHistoryMergesAgainstEmptyTree exercises the zero-base
// path: MergeBases returns nothing, so the ancestor tree is the zero hash.
func TestMerge_NoCommonHistoryMergesAgainstEmptyTree(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemstore()

	side1Tree := singleFileTree(t, ctx, m, "a", "from side1")
	side1 := putCommit(m, side1Tree)

	side2Tree := singleFileTree(t, ctx, m, "b", "from side2")
	side2 := putCommit(m, side2Tree)

	result, err := Merge(ctx, m, side1, side2, ort.Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)

	tree, err := m.ReadTree(ctx, result.Tree)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 2)
}

// TestMerge_CrissCrossSynthesizesVirtualAncestor builds a classic criss-cross
// history (two merge bases) and checks the recursive wrapper folds the bases
// together first and still produces a merged tree holding the one file.
func TestMerge_CrissCrossSynthesizesVirtualAncestor(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemstore()

	rootTree := singleFileTree(t, ctx, m, "f", "root")
	root := putCommit(m, rootTree)

	aTree := singleFileTree(t, ctx, m, "f", "root+a")
	a := putCommit(m, aTree, root)
	bTree := singleFileTree(t, ctx, m, "f", "root+b")
	b := putCommit(m, bTree, root)

	// Two independent merges of a and b, both still pointing at both as
	// parents, give side1/side2 two distinct merge bases (a and b).
	merge1Tree := singleFileTree(t, ctx, m, "f", "root+a+b merge1")
	merge1 := putCommit(m, merge1Tree, a, b)
	merge2Tree := singleFileTree(t, ctx, m, "f", "root+a+b merge2")
	merge2 := putCommit(m, merge2Tree, a, b)

	side1Tree := singleFileTree(t, ctx, m, "f", "root+a+b merge1 edited")
	side1 := putCommit(m, side1Tree, merge1)
	side2Tree := singleFileTree(t, ctx, m, "f", "root+a+b merge2 edited")
	side2 := putCommit(m, side2Tree, merge2)

	result, err := Merge(ctx, m, side1, side2, ort.Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	tree, err := m.ReadTree(ctx, result.Tree)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 1)
}
