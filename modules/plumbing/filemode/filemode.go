// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package filemode implements the file modes used to tag tree entries,
// mirroring the small, fixed set of modes a content-addressed tree object can
// carry (regular file, executable file, directory, symlink, submodule/gitlink).
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// FileMode is a file mode as stored in a tree entry, encoded the same way
// git encodes it: the high bits carry the object type, the low twelve bits
// carry unix permission bits for regular files.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0040000
	Regular    FileMode = 0100644
	Deprecated FileMode = 0100000
	Executable FileMode = 0100755
	Symlink    FileMode = 0120000
	Submodule  FileMode = 0160000

	// Fragments marks a regular or executable entry whose content is stored
	// as a sequence of content-addressed chunks rather than a single blob.
	// It occupies the 0400000 bit, above every type bit, so setting or
	// stripping it never changes which type a mode denotes.
	Fragments FileMode = 0400000
)

// base strips the Fragments bit, returning the underlying git-compatible mode.
func (m FileMode) base() FileMode {
	return m &^ Fragments
}

func (m FileMode) IsRegular() bool {
	return m.base() == Regular
}

func (m FileMode) IsExecutable() bool {
	return m.base() == Executable
}

func (m FileMode) IsFile() bool {
	b := m.base()
	return b == Regular || b == Executable || b == Deprecated
}

func (m FileMode) IsDir() bool {
	return m.base() == Dir
}

func (m FileMode) IsSymlink() bool {
	return m.base() == Symlink
}

func (m FileMode) IsSubmodule() bool {
	return m.base() == Submodule
}

func (m FileMode) IsFragments() bool {
	return m&Fragments != 0
}

// ToOSFileMode converts m to the closest matching os.FileMode. Only regular
// and executable entries may carry Fragments; any other combination is
// rejected since it has no on-disk representation.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m.base() {
	case Regular:
		return 0644, nil
	case Executable:
		return 0755, nil
	case Deprecated:
		return 0644, nil
	case Dir:
		if m.IsFragments() {
			return 0, fmt.Errorf("filemode: directories cannot carry fragments: %o", uint32(m))
		}
		return os.ModeDir | 0755, nil
	case Symlink:
		if m.IsFragments() {
			return 0, fmt.Errorf("filemode: symlinks cannot carry fragments: %o", uint32(m))
		}
		return os.ModeSymlink | 0777, nil
	case Submodule:
		if m.IsFragments() {
			return 0, fmt.Errorf("filemode: submodules cannot carry fragments: %o", uint32(m))
		}
		return os.ModeDir | os.ModeIrregular, nil
	default:
		return 0, fmt.Errorf("filemode: unsupported mode: %o", uint32(m))
	}
}

// String renders m as a zero-padded octal string, the same textual form
// used in tree entries and in the canonical tree encoding.
func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// New parses a mode string (as produced by String, or a bare git mode like
// "100644") back into a FileMode.
func New(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("filemode: invalid mode %q: %w", s, err)
	}
	return FileMode(v), nil
}

func (m FileMode) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

func (m *FileMode) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	v, err := New(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
