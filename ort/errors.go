package ort

import (
	"errors"

	"github.com/ortmerge/ort/store"
)

// Fatal error kinds: these abort the merge and surface to the caller,
// wrapped with %w at each boundary that adds context (object id, path),
// never panicking for a data-path condition. ErrObjectMissing and
// ErrMalformedTree are store's own sentinels, re-exported here so callers
// can errors.Is against either package without caring which boundary an
// error crossed — store.ReadBlob/ReadTree already return them directly in
// some paths, and the core re-wraps them with path context in others.
var (
	ErrObjectMissing = store.ErrObjectMissing
	ErrMalformedTree = store.ErrMalformedTree
	ErrIO            = errors.New("ort: object store i/o failure")
)

// Non-fatal condition codes recorded into a path's Messages instead of
// aborting the merge (spec §7).
const (
	MsgSimilarityLimitHit   = "SIMILARITY_LIMIT_HIT"
	MsgSubmoduleUnavailable = "SUBMODULE_UNAVAILABLE"
	MsgContentMergeFailed   = "CONTENT_MERGE_FAILED"
	MsgDirRenameSuggested   = "DIR_RENAME_SUGGESTED"
	MsgDirRenameApplied     = "DIR_RENAME_APPLIED"
	MsgDirRenameSplit       = "DIR_RENAME_SPLIT"
	MsgPathUpdated          = "PATH_UPDATED"
	MsgAutoMerging          = "AUTO_MERGING"
)
