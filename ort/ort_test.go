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

func TestMerge_CleanAutoMerge(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1\nline2\nline3\n"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1-changed\nline2\nline3\n"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1\nline2\nline3-changed\n"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)
	require.Empty(t, result.Unmerged)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, "line1-changed\nline2\nline3-changed\n", out["a.txt"])
}

func TestMerge_UnchangedOnOneSideTakesTheOther(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, "v2", out["a.txt"])
}

func TestMerge_BothSidesIdenticalChange(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)
}

func TestMerge_ContentConflict(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1\nline2\nline3\n"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1-A\nline2\nline3\n"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "line1-B\nline2\nline3\n"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.False(t, result.Clean)
	require.Len(t, result.Unmerged, 3) // base, side1, side2 stages all present
}

func TestMerge_ModifyDeleteConflict(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})
	side2 := buildTree(t, ctx, st, []fileEntry{})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.False(t, result.Clean)

	var stages []int
	for _, e := range result.Unmerged {
		stages = append(stages, e.Stage)
	}
	require.ElementsMatch(t, []int{1, 2}, stages) // base + side1, side2 deleted it
}

func TestMerge_ModifyDeleteRenormalizesToClean(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side2 := buildTree(t, ctx, st, []fileEntry{})

	result, err := Merge(ctx, st, base, side1, side2, Options{Renormalize: true})
	require.NoError(t, err)
	require.True(t, result.Clean)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	_, present := out["a.txt"]
	require.False(t, present)
}

func TestMerge_DeletedOnBothSides(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}, {path: "keep.txt", data: "k"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "keep.txt", data: "k"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "keep.txt", data: "k"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, result.Clean)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, map[string]string{"keep.txt": "k"}, out)
}

func TestMerge_AddOnBothSidesDistinctTypesConflict(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", mode: filemode.Regular, data: "regular"}})

	// side2 adds a symlink at the same path: build it directly since
	// buildTree always writes file content as blobs regardless of mode.
	linkOid, err := st.WriteObject(ctx, store.BlobKind, []byte("target"))
	require.NoError(t, err)
	side2 := buildTreeWithRawEntries(t, ctx, st, map[string]struct {
		mode filemode.FileMode
		oid  plumbing.Hash
	}{
		"a.txt": {mode: filemode.Symlink, oid: linkOid},
	})

	result, err := Merge(ctx, st, base, side1, side2, Options{
		LabelSide1: "ours", LabelSide2: "theirs",
	})
	require.NoError(t, err)
	require.False(t, result.Clean)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	_, hasOriginal := out["a.txt"]
	require.False(t, hasOriginal)
	_, hasOurs := out["a.txt~ours"]
	require.True(t, hasOurs)
}

func TestMerge_RegularRenameFollowsContentOnTheOtherSide(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	content := "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\n"
	base := buildTree(t, ctx, st, []fileEntry{{path: "old.txt", data: content}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "new.txt", data: content}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "old.txt", data: content + "line9\n"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, result.Clean, "rename on side1 + edit on side2 should merge cleanly at the new path")

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, content+"line9\n", out["new.txt"])
	_, stillAtOld := out["old.txt"]
	require.False(t, stillAtOld)
}

func TestMerge_DirectoryRenameMovesANewlyAddedSibling(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	longContent := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta\n"
	base := buildTree(t, ctx, st, []fileEntry{
		{path: "old/a.txt", data: longContent},
		{path: "old/b.txt", data: longContent + "extra-b\n"},
	})
	// side1 renames the whole directory old/ -> new/.
	side1 := buildTree(t, ctx, st, []fileEntry{
		{path: "new/a.txt", data: longContent},
		{path: "new/b.txt", data: longContent + "extra-b\n"},
	})
	// side2 adds a brand new file inside old/ without touching a.txt/b.txt.
	side2 := buildTree(t, ctx, st, []fileEntry{
		{path: "old/a.txt", data: longContent},
		{path: "old/b.txt", data: longContent + "extra-b\n"},
		{path: "old/c.txt", data: "new file on side2"},
	})

	result, err := Merge(ctx, st, base, side1, side2, Options{DetectDirectoryRenames: DirRenameTrue})
	require.NoError(t, err)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, "new file on side2", out["new/c.txt"], "c.txt should follow the inferred directory rename")
	_, stillUnderOld := out["old/c.txt"]
	require.False(t, stillUnderOld)
}

func TestMerge_DirectoryRenameConflictModeOnlyFlags(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	longContent := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta\n"
	base := buildTree(t, ctx, st, []fileEntry{{path: "old/a.txt", data: longContent}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "new/a.txt", data: longContent}})
	side2 := buildTree(t, ctx, st, []fileEntry{
		{path: "old/a.txt", data: longContent},
		{path: "old/c.txt", data: "added"},
	})

	result, err := Merge(ctx, st, base, side1, side2, Options{DetectDirectoryRenames: DirRenameConflict})
	require.NoError(t, err)
	require.False(t, result.Clean)

	found := false
	for _, e := range result.Unmerged {
		if e.Path == "old/c.txt" {
			found = true
		}
	}
	require.True(t, found, "conflict mode must not silently move old/c.txt")
}

func TestMerge_DirectoryRenameSplitTieMarksUnclean(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	longContent := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta\n"
	base := buildTree(t, ctx, st, []fileEntry{
		{path: "old/x.txt", data: longContent},
		{path: "old/y.txt", data: longContent + "extra-y\n"},
	})
	// side1 splits old/ into two different destinations: x.txt -> b/, y.txt -> c/.
	// Neither destination gets a majority of the votes, so the directory rename
	// is ambiguous.
	side1 := buildTree(t, ctx, st, []fileEntry{
		{path: "b/x.txt", data: longContent},
		{path: "c/y.txt", data: longContent + "extra-y\n"},
	})
	// side2 leaves old/ untouched.
	side2 := buildTree(t, ctx, st, []fileEntry{
		{path: "old/x.txt", data: longContent},
		{path: "old/y.txt", data: longContent + "extra-y\n"},
	})

	result, err := Merge(ctx, st, base, side1, side2, Options{DetectDirectoryRenames: DirRenameTrue})
	require.NoError(t, err)
	require.False(t, result.Clean, "a directory rename split must not resolve cleanly")

	paths := map[string]bool{}
	for _, e := range result.Unmerged {
		paths[e.Path] = true
	}
	require.True(t, paths["b/x.txt"], "b/x.txt must be left unmerged by the split")
	require.True(t, paths["c/y.txt"], "c/y.txt must be left unmerged by the split")

	foundSplit := false
	for _, msgs := range result.Messages {
		for _, m := range msgs {
			if m.Code == MsgDirRenameSplit {
				foundSplit = true
			}
		}
	}
	require.True(t, foundSplit, "a DIR_RENAME_SPLIT message must be recorded")
}

func TestMerge_FileDirectoryConflictRelocatesFileVersion(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "thing", data: "a file"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "thing", data: "a file, edited"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "thing/nested.txt", data: "now a directory"}})

	result, err := Merge(ctx, st, base, side1, side2, Options{})
	require.NoError(t, err)
	require.False(t, result.Clean)

	out := map[string]string{}
	readTreeFiles(t, ctx, st, result.Tree, "", out)
	require.Equal(t, "now a directory", out["thing/nested.txt"])
	found := false
	for name, content := range out {
		if name != "thing/nested.txt" && content == "a file, edited" {
			found = true
		}
	}
	require.True(t, found, "side1's file version must be relocated to a uniquified path")
}

func TestEngine_ReusedAcrossMerges(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemstore()

	base := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v1"}})
	side1 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})
	side2 := buildTree(t, ctx, st, []fileEntry{{path: "a.txt", data: "v2"}})

	e, err := NewEngine(st, Options{})
	require.NoError(t, err)
	defer e.Close()

	r1, err := e.MergeNonRecursive(ctx, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, r1.Clean)

	e.InvalidateSide(RoleSide1)
	r2, err := e.MergeNonRecursive(ctx, base, side1, side2, Options{})
	require.NoError(t, err)
	require.True(t, r2.Clean)
	require.Equal(t, r1.Tree, r2.Tree)
}

// buildTreeWithRawEntries is like buildTree but for a single flat directory
// of entries whose mode isn't a plain regular file (e.g. a symlink), which
// buildTree's fileEntry shape doesn't carry an oid for directly.
func buildTreeWithRawEntries(t *testing.T, ctx context.Context, st store.Store, entries map[string]struct {
	mode filemode.FileMode
	oid  plumbing.Hash
}) plumbing.Hash {
	t.Helper()
	tr := &object.Tree{}
	for name, e := range entries {
		tr.Entries = append(tr.Entries, object.TreeEntry{Name: name, Mode: e.mode, Hash: e.oid})
	}
	b, err := tr.EncodeToBytes()
	require.NoError(t, err)
	oid, err := st.WriteObject(ctx, store.TreeKind, b)
	require.NoError(t, err)
	return oid
}
