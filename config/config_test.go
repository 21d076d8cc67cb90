package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ortmerge/ort/ort"
)

func TestLoad_MissingFileReturnsZeroConfig(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, Config{}, c)
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ort.toml")
	c := Config{Merge: Merge{
		DetectDirectoryRenames: "conflict",
		RenameLimit:            500,
		RenameScore:            60,
		MarkerSize:             9,
	}}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not [valid toml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyTo_FillsOnlyZeroFields(t *testing.T) {
	c := Config{Merge: Merge{
		DetectDirectoryRenames: "true",
		RenameLimit:            500,
		RenameScore:            60,
		MarkerSize:             9,
	}}

	opts := c.ApplyTo(ort.Options{})
	require.Equal(t, 500, opts.RenameLimit)
	require.Equal(t, 60, opts.RenameScore)
	require.Equal(t, 9, opts.MarkerSize)
	require.Equal(t, ort.DirRenameTrue, opts.DetectDirectoryRenames)

	explicit := ort.Options{RenameLimit: 10, RenameScore: 20, MarkerSize: 3, DetectDirectoryRenames: ort.DirRenameConflict}
	out := c.ApplyTo(explicit)
	require.Equal(t, explicit, out)
}
