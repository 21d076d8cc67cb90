package ort

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/ortmerge/ort/modules/plumbing"
)

// renameCacheEntry is the RENAME STATE the spec asks an engine instance to
// carry across a sequence of merges sharing the same two sides repeatedly
// (spec §1's "invoked repeatedly" in a rebase/cherry-pick loop), keyed per
// side so the caller can declare which side remains valid between calls.
type renameCacheEntry struct {
	targetOf        map[plumbing.Hash]string // source oid -> chosen rename target path
	irrelevant      map[string]bool          // paths proven irrelevant to rename detection
	dirRenameTarget map[string]string        // old directory -> inferred new directory
}

// renameCache wraps a ristretto cache keyed by (side, kind, key) composite
// strings, mirroring pkg/serve/odb/cache.go's cacheKey idiom. ristretto gives
// this size-bounded eviction (entries are stored without a TTL), which is the
// point: an engine reused across hundreds of cherry-picks must not let stale
// per-side state grow without bound, which a bare map would.
type renameCache struct {
	c *ristretto.Cache[string, any]
}

func newRenameCache() (*renameCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ort: construct rename cache: %w", err)
	}
	return &renameCache{c: c}, nil
}

func cacheKey(side Role, kind string) string {
	return fmt.Sprintf("%d:%s", side, kind)
}

func (rc *renameCache) entry(side Role) *renameCacheEntry {
	key := cacheKey(side, "entry")
	if v, ok := rc.c.Get(key); ok {
		return v.(*renameCacheEntry)
	}
	e := &renameCacheEntry{
		targetOf:        make(map[plumbing.Hash]string),
		irrelevant:      make(map[string]bool),
		dirRenameTarget: make(map[string]string),
	}
	rc.c.Set(key, e, 1)
	return e
}

// invalidate drops the cached entry for side, used when the caller does not
// declare that side valid for the next merge in a sequence.
func (rc *renameCache) invalidate(side Role) {
	rc.c.Del(cacheKey(side, "entry"))
}

func (rc *renameCache) close() {
	rc.c.Close()
}
