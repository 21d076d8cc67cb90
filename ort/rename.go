package ort

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/trace"
	"github.com/ortmerge/ort/store"
)

func hashLess(a, b plumbing.Hash) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// pendingRename is one accepted regular (file-level) rename for one side,
// staged for application to the PATH MAP and contributed as a vote toward
// directory-rename inference (spec §4.2). This is the type arena.pending was
// declared to hold.
type pendingRename struct {
	side Role
	from string
	to   string

	fromVersion version
	toVersion   version

	score int  // MaxScore for an exact-hash match
	exact bool
}

// renameEngine runs regular rename detection (exact-hash, then similarity)
// for both sides and aggregates the result into directory-rename inferences.
// It records each scored rename's target in the side's RENAME STATE cache
// entry and skips deletes listed in that entry's irrelevant set; nothing in
// this package fills the irrelevant set or reads the recorded targets back,
// so every merge runs the full detection for both sides.
type renameEngine struct {
	st    store.Store
	arena *arena
	opts  Options
	cache *renameCache
	dbg   trace.Debuger
}

func newRenameEngine(st store.Store, a *arena, opts Options, cache *renameCache, dbg trace.Debuger) *renameEngine {
	return &renameEngine{st: st, arena: a, opts: opts, cache: cache, dbg: dbg}
}

// detect runs rename detection for both sides against the collector's
// add/delete candidates and returns the accepted renames, the inferred
// directory renames for each side, and any directory-rename splits (spec
// §4.2.2's tie case) for each side.
func (re *renameEngine) detect(ctx context.Context, c *collector) (map[Role][]pendingRename, map[Role]map[string]string, map[Role]map[string][]pendingRename) {
	renames := map[Role][]pendingRename{}
	dirRenames := map[Role]map[string]string{}
	dirRenameSplits := map[Role]map[string][]pendingRename{}

	for _, side := range [2]Role{RoleSide1, RoleSide2} {
		deleted := c.deleted[side]
		added := c.added[side]

		entry := re.cache.entry(side)
		deleted = filterIrrelevant(deleted, entry)

		exact, deleted, added := exactRenames(side, deleted, added)

		var scored []renameMatch
		if len(deleted) > re.opts.RenameLimit || len(added) > re.opts.RenameLimit {
			re.flagSimilarityLimitHit(side, deleted)
		} else {
			scored, _, _ = detectRenames(ctx, re.st, deleted, added, re.opts)
		}

		var all []pendingRename
		all = append(all, exact...)
		for _, m := range scored {
			all = append(all, pendingRename{
				side:        side,
				from:        m.from.path,
				to:          m.to.path,
				fromVersion: m.from.version,
				toVersion:   m.to.version,
				score:       m.score,
			})
			entry.targetOf[m.from.version.oid] = m.to.path
		}
		sort.Slice(all, func(i, j int) bool { return pathLess(all[i].from, all[j].from) })
		renames[side] = all
		re.arena.pending = append(re.arena.pending, all...)
		re.dbg.DbgPrint("rename: side=%d accepted %d exact + %d scored renames", side, len(exact), len(scored))

		dirRenames[side], dirRenameSplits[side] = inferDirectoryRenames(all, re.opts)
		re.dbg.DbgPrint("rename: side=%d inferred %d directory renames, %d splits", side, len(dirRenames[side]), len(dirRenameSplits[side]))
	}
	return renames, dirRenames, dirRenameSplits
}

// flagSimilarityLimitHit records the non-fatal condition code the spec
// defines for when a side's candidate set is too large for similarity
// detection to run (spec §7's SIMILARITY_LIMIT_HIT), leaving every
// candidate on that side as a plain add/delete.
func (re *renameEngine) flagSimilarityLimitHit(side Role, deleted []deleteCandidate) {
	for _, d := range deleted {
		if r, ok := re.arena.paths.get(d.path); ok {
			r.addMessage(SeverityWarn, MsgSimilarityLimitHit,
				fmt.Sprintf("similarity detection skipped for %s: candidate set too large", d.path))
		}
	}
}

// filterIrrelevant drops delete candidates the cache already proved
// irrelevant to rename detection on a prior merge sharing this side (spec
// §4.2.1's irrelevant-source pruning).
func filterIrrelevant(deleted []deleteCandidate, entry *renameCacheEntry) []deleteCandidate {
	if len(entry.irrelevant) == 0 {
		return deleted
	}
	out := deleted[:0:0]
	for _, d := range deleted {
		if !entry.irrelevant[d.path] {
			out = append(out, d)
		}
	}
	return out
}

// exactRenames matches delete/add candidates by identical blob id via a
// sorted merge (the teacher's MergeTree does only this, never the scored
// variant — see similarity.go's doc comment). Matched pairs are removed from
// the slices handed back.
func exactRenames(side Role, deleted []deleteCandidate, added []addCandidate) ([]pendingRename, []deleteCandidate, []addCandidate) {
	if len(deleted) == 0 || len(added) == 0 {
		return nil, deleted, added
	}

	sortedDeleted := append([]deleteCandidate(nil), deleted...)
	sort.Slice(sortedDeleted, func(i, j int) bool {
		return hashLess(sortedDeleted[i].version.oid, sortedDeleted[j].version.oid)
	})
	sortedAdded := append([]addCandidate(nil), added...)
	sort.Slice(sortedAdded, func(i, j int) bool {
		return hashLess(sortedAdded[i].version.oid, sortedAdded[j].version.oid)
	})

	matchedDeleted := map[string]bool{}
	matchedAdded := map[string]bool{}
	var matches []pendingRename

	di, ai := 0, 0
	for di < len(sortedDeleted) && ai < len(sortedAdded) {
		d, a := sortedDeleted[di], sortedAdded[ai]
		switch {
		case d.version.oid == a.version.oid && d.version.mode == a.version.mode:
			matches = append(matches, pendingRename{
				side: side, from: d.path, to: a.path,
				fromVersion: d.version, toVersion: a.version,
				score: MaxScore, exact: true,
			})
			matchedDeleted[d.path] = true
			matchedAdded[a.path] = true
			di++
			ai++
		case hashLess(d.version.oid, a.version.oid):
			di++
		default:
			ai++
		}
	}

	remDeleted := deleted[:0:0]
	for _, d := range deleted {
		if !matchedDeleted[d.path] {
			remDeleted = append(remDeleted, d)
		}
	}
	remAdded := added[:0:0]
	for _, a := range added {
		if !matchedAdded[a.path] {
			remAdded = append(remAdded, a)
		}
	}
	return matches, remDeleted, remAdded
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}
