package ort

import "path"

// inferDirectoryRenames aggregates one side's accepted file renames into
// directory-rename votes (spec §4.2.2): every accepted rename from-dir ->
// to-dir, where from-dir != to-dir, is one vote for that directory pair.
// A source directory with more than one distinct destination is decided by
// majority; an exact tie is a "directory rename split" (spec §4.2.2): no
// directory rename is inferred for fromDir, and every rename that voted for
// it is returned in splits so the caller can emit the diagnostic and mark
// the merge unclean instead of silently resolving those paths as if nothing
// ambiguous happened.
func inferDirectoryRenames(renames []pendingRename, opts Options) (map[string]string, map[string][]pendingRename) {
	if opts.DetectDirectoryRenames == DirRenameNone {
		return nil, nil
	}

	votes := map[string]map[string]int{}         // fromDir -> toDir -> count
	contributors := map[string][]pendingRename{} // fromDir -> every rename that voted
	for _, r := range renames {
		fromDir := parentDir(r.from)
		toDir := parentDir(r.to)
		if fromDir == toDir {
			continue
		}
		// A file that moved to the repository root has no destination
		// directory to infer; skip it as a vote the way moving a file
		// in-place within a package would be skipped.
		if toDir == "" {
			continue
		}
		if votes[fromDir] == nil {
			votes[fromDir] = map[string]int{}
		}
		votes[fromDir][toDir]++
		contributors[fromDir] = append(contributors[fromDir], r)
	}

	out := map[string]string{}
	splits := map[string][]pendingRename{}
	for fromDir, dests := range votes {
		best, bestCount, tie := "", 0, false
		for toDir, count := range dests {
			switch {
			case count > bestCount:
				best, bestCount, tie = toDir, count, false
			case count == bestCount:
				tie = true
			}
		}
		if tie {
			splits[fromDir] = contributors[fromDir]
			continue
		}
		out[fromDir] = best
	}

	// A parent directory with no direct vote of its own inherits its child's
	// inferred rename when the child's new location is consistent with a
	// whole-subtree move (the child keeps its basename, so the parent maps
	// to the parent of the child's new location), so a moved subtree
	// resolves even for the parent directory, which contributed no renamed
	// file directly (spec §4.2.2's implicit-rename lookup). This is a
	// single-level inheritance, not a fixed point over the whole tree:
	// inherited entries are collected separately and never inherited from
	// in turn; deeper ancestors are handled by their own entry in votes if
	// they too contain a directly renamed file.
	inherited := map[string]string{}
	for fromDir, toDir := range out {
		parent := parentDir(fromDir)
		if parent == "" {
			continue
		}
		if _, ok := out[parent]; ok {
			continue
		}
		base := path.Base(fromDir)
		if path.Base(toDir) != base {
			continue
		}
		inherited[parent] = parentDir(toDir)
	}
	for parent, toDir := range inherited {
		out[parent] = toDir
	}

	return out, splits
}

// relativeUnderAny reports p's path relative to dir, if p lies under dir
// (or dir is the root, "").
func relativeUnderAny(p, dir string) (string, bool) {
	if dir == "" {
		return p, true
	}
	prefix := dir + "/"
	if len(p) <= len(prefix) || p[:len(prefix)] != prefix {
		return "", false
	}
	return p[len(prefix):], true
}
