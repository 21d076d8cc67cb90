// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store defines the object-store boundary the merge core depends on.
// The core never talks to a concrete backend; it only ever sees this
// interface, mirroring the spec's "deliberately out of scope" collaborator
// list (read_tree/read_blob/write_object/parse_commit/ancestry operations).
package store

import (
	"context"
	"errors"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/object"
)

// Kind tags the object being written with WriteObject.
type Kind int

const (
	BlobKind Kind = iota
	TreeKind
)

// Commit is the minimal shape ParseCommit needs to expose: enough for the
// recursive wrapper to walk ancestry and find the tree a commit points to.
type Commit struct {
	Tree    plumbing.Hash
	Parents []plumbing.Hash
}

var (
	ErrObjectMissing = errors.New("ort: object missing from store")
	ErrMalformedTree = errors.New("ort: malformed tree object")
)

// Store is every operation the merge core and the recursive-ancestor wrapper
// need from a content-addressed object store.
type Store interface {
	// ReadTree enumerates a tree's (name, mode, oid) entries in lexical
	// order. oid.IsZero() is never passed; an absent tree is represented
	// to callers as a nil *object.Tree, not a call to ReadTree.
	ReadTree(ctx context.Context, oid plumbing.Hash) (*object.Tree, error)

	// ReadBlob returns a blob's raw bytes.
	ReadBlob(ctx context.Context, oid plumbing.Hash) ([]byte, error)

	// WriteObject stores bytes of the given kind and returns its content id.
	WriteObject(ctx context.Context, kind Kind, content []byte) (plumbing.Hash, error)

	// ParseCommit returns a commit's tree id and parent ids.
	ParseCommit(ctx context.Context, oid plumbing.Hash) (Commit, error)

	// InMergeBases reports whether commit a is a merge base of (i.e. an
	// ancestor of, or equal to) commit b.
	InMergeBases(ctx context.Context, a, b plumbing.Hash) (bool, error)

	// MergeBases returns the best common ancestors of a and b. More than
	// one result means a criss-cross merge situation.
	MergeBases(ctx context.Context, a, b plumbing.Hash) ([]plumbing.Hash, error)

	// AncestryPath reports whether there exists a merge commit reachable
	// from head that has both a and b as ancestors. No code in this module
	// outside the store implementations calls it.
	AncestryPath(ctx context.Context, head, a, b plumbing.Hash) (bool, error)
}
