// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package object defines the tree/blob shapes the merge core walks and
// rebuilds, and the canonical on-disk tree encoding the TREE BUILDER emits.
package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
)

// TreeEntry is one line of a tree object: a name, its mode, and the id of the
// blob/tree/commit (submodule) it points to.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

func (e TreeEntry) IsDir() bool       { return e.Mode.IsDir() }
func (e TreeEntry) IsSubmodule() bool { return e.Mode.IsSubmodule() }

func (e TreeEntry) Equal(o TreeEntry) bool {
	return e.Name == o.Name && e.Mode == o.Mode && e.Hash == o.Hash
}

// Tree is the decoded form of a tree object: an ordered list of entries.
type Tree struct {
	Entries []TreeEntry
}

// SubtreeOrder sorts entries the way a tree object must be serialized:
// lexicographic byte order, with directory names compared as if they ended
// in "/" so a directory always sorts next to (not interleaved with) its own
// children. This is never delegated to sort.Strings (spec design note N6).
type SubtreeOrder []TreeEntry

func (s SubtreeOrder) Len() int      { return len(s) }
func (s SubtreeOrder) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s SubtreeOrder) Less(i, j int) bool {
	return s.sortKey(i) < s.sortKey(j)
}

func (s SubtreeOrder) sortKey(i int) string {
	e := s[i]
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name + "\x00"
}

// SortEntries sorts entries in place into subtree order.
func SortEntries(entries []TreeEntry) {
	sort.Sort(SubtreeOrder(entries))
}

// Encode writes the canonical tree format the spec's tree builder produces:
// for every entry, in lexical (subtree-adjacent) order,
// "<octal-mode> <name>\0<raw-object-id>".
func (t *Tree) Encode(w io.Writer) error {
	entries := make([]TreeEntry, len(t.Entries))
	copy(entries, t.Entries)
	SortEntries(entries)
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%o %s", uint32(e.Mode), e.Name); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0x00}); err != nil {
			return err
		}
		if _, err := w.Write(e.Hash[:]); err != nil {
			return err
		}
	}
	return nil
}

// EncodeToBytes is a convenience wrapper around Encode.
func (t *Tree) EncodeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash computes the content id of the tree's canonical encoding.
func (t *Tree) Hash() (plumbing.Hash, error) {
	b, err := t.EncodeToBytes()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	h := plumbing.NewHasher()
	if _, err := h.Write(b); err != nil {
		return plumbing.ZeroHash, err
	}
	return h.Sum(), nil
}

// Decode parses the canonical tree format back into entries. It is the
// inverse of Encode and is used by memstore.ReadTree.
func Decode(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)
	var entries []TreeEntry
	for {
		modeAndName, err := br.ReadString(0x00)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("object: malformed tree entry header: %w", err)
		}
		modeAndName = modeAndName[:len(modeAndName)-1] // strip the NUL
		sp := indexByte(modeAndName, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("object: malformed tree entry %q", modeAndName)
		}
		modeStr, name := modeAndName[:sp], modeAndName[sp+1:]
		modeVal, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("object: malformed tree entry mode %q: %w", modeStr, err)
		}
		var oid plumbing.Hash
		if _, err := io.ReadFull(br, oid[:]); err != nil {
			return nil, fmt.Errorf("object: truncated tree entry %q: %w", name, err)
		}
		entries = append(entries, TreeEntry{Name: name, Mode: filemode.FileMode(modeVal), Hash: oid})
	}
	return &Tree{Entries: entries}, nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
