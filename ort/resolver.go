package ort

import (
	"context"
	"fmt"
	"strings"

	"github.com/ortmerge/ort/contentmerge"
	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
	"github.com/ortmerge/ort/modules/trace"
	"github.com/ortmerge/ort/store"
)

// UnmergedEntry is one line of the caller-facing three-stage index the
// RESOLVER leaves behind for any path it could not fully resolve (spec §6).
type UnmergedEntry struct {
	Path  string
	Stage int
	Mode  filemode.FileMode
	Oid   plumbing.Hash
}

// resolver walks the PATH MAP in reverse directory-adjacent order, applying
// the C1-C7 classification to every non-clean record (spec §4.3).
type resolver struct {
	st   store.Store
	opts Options
	dbg  trace.Debuger

	uniquified map[string]int // base path -> next numeric suffix, for C2/C7
}

func newResolver(st store.Store, opts Options, dbg trace.Debuger) *resolver {
	return &resolver{st: st, opts: opts, dbg: dbg, uniquified: map[string]int{}}
}

// resolve classifies every unclean record in paths (already ordered by the
// PATH MAP) and returns the unmerged entries gathered along the way.
func (rs *resolver) resolve(ctx context.Context, arena *arena) ([]UnmergedEntry, error) {
	paths := arena.paths.paths()
	var unmerged []UnmergedEntry

	for i := len(paths) - 1; i >= 0; i-- {
		p := paths[i]
		r, ok := arena.paths.get(p)
		if !ok || r.clean {
			continue
		}
		if err := rs.classify(ctx, arena, p, r); err != nil {
			return nil, err
		}
		if !r.clean {
			unmerged = append(unmerged, unmergedEntriesFor(p, r)...)
		}
	}
	return unmerged, nil
}

func unmergedEntriesFor(p string, r *record) []UnmergedEntry {
	var out []UnmergedEntry
	for role := RoleBase; role < roleCount; role++ {
		v := r.stages[role]
		if v.isAbsent() {
			continue
		}
		out = append(out, UnmergedEntry{Path: p, Stage: role.Stage(), Mode: v.mode, Oid: v.oid})
	}
	return out
}

// classify applies C1-C7 to one record.
func (rs *resolver) classify(ctx context.Context, arena *arena, p string, r *record) error {
	// C7 takes priority over the fm-based classes below: a df_conflict
	// record's filemask only ever reflects the file side(s), which can
	// otherwise coincide with a C4/C5 pattern (e.g. base+side1 present, with
	// side2's directory tracked separately in dirmask) and be misclassified
	// as an ordinary modify/delete or add instead of the directory/file
	// conflict it actually is.
	if r.dfConflict {
		return rs.resolveDfConflict(arena, p, r)
	}

	// C1: match_mask resolves the path outright regardless of how the two
	// differing sides individually look — but only when nothing upstream
	// (a directory rename conflict or split) already flagged this path as
	// needing a caller decision. Without this guard a record's matchMask can
	// still coincidentally match one of these patterns (e.g. an exact-hash
	// rename folds base's stage in unconditionally, see applyRegularRename)
	// even though it was deliberately marked pathConflict, silently erasing
	// that flag.
	if !r.pathConflict {
		switch r.matchMask {
		case maskOf(RoleSide1, RoleSide2):
			s1 := r.stages[RoleSide1]
			r.markClean(s1.mode, s1.oid)
			rs.dbg.DbgPrint("resolver: %s resolved C1 (sides agree)", p)
			return nil
		case maskOf(RoleBase, RoleSide1):
			s2 := r.stages[RoleSide2]
			r.markClean(s2.mode, s2.oid)
			rs.dbg.DbgPrint("resolver: %s resolved C1 (side1 unchanged)", p)
			return nil
		case maskOf(RoleBase, RoleSide2):
			s1 := r.stages[RoleSide1]
			r.markClean(s1.mode, s1.oid)
			rs.dbg.DbgPrint("resolver: %s resolved C1 (side2 unchanged)", p)
			return nil
		}
	}

	fm := r.filemask
	s1, s2 := r.stages[RoleSide1], r.stages[RoleSide2]

	switch {
	case fm.has(RoleSide1) && fm.has(RoleSide2) && differentTypes(s1.mode, s2.mode):
		// C2: distinct types.
		rs.dbg.DbgPrint("resolver: %s dispatched to C2 (distinct types)", p)
		return rs.resolveDistinctTypes(arena, p, r)

	case (fm == maskOf(RoleBase, RoleSide1, RoleSide2) || fm == maskOf(RoleSide1, RoleSide2)) &&
		sameType(s1.mode, s2.mode):
		// C3: both sides modified a file of the same type; content merge.
		rs.dbg.DbgPrint("resolver: %s dispatched to C3 (content merge)", p)
		return rs.resolveContentMerge(ctx, p, r)

	case fm == maskOf(RoleBase, RoleSide1) || fm == maskOf(RoleBase, RoleSide2):
		// C4: modify/delete.
		rs.dbg.DbgPrint("resolver: %s dispatched to C4 (modify/delete)", p)
		return rs.resolveModifyDelete(ctx, p, r, fm)

	case fm == maskOf(RoleSide1) || fm == maskOf(RoleSide2):
		// C5: add on one side only.
		if !r.pathConflict {
			v := s1
			if fm == maskOf(RoleSide2) {
				v = s2
			}
			r.markClean(v.mode, v.oid)
			rs.dbg.DbgPrint("resolver: %s resolved C5 (one-sided add)", p)
		}
		return nil

	case fm == maskOf(RoleBase):
		// C6: deleted on both sides.
		r.isNull = true
		r.markClean(filemode.Empty, plumbing.ZeroHash)
		rs.dbg.DbgPrint("resolver: %s resolved C6 (deleted both sides)", p)
		return nil
	}

	return nil
}

func differentTypes(a, b filemode.FileMode) bool {
	return !sameType(a, b)
}

func sameType(a, b filemode.FileMode) bool {
	kind := func(m filemode.FileMode) int {
		switch {
		case m.IsSymlink():
			return 1
		case m.IsSubmodule():
			return 2
		default:
			return 0
		}
	}
	return kind(a) == kind(b)
}

// resolveDistinctTypes implements C2: both side versions are renamed onto
// uniquified paths `path~label`, '/' flattened to '_' in label, with a
// numeric suffix if the uniquified name collides.
func (rs *resolver) resolveDistinctTypes(arena *arena, p string, r *record) error {
	labels := [roleCount]string{rs.opts.LabelBase, rs.opts.LabelSide1, rs.opts.LabelSide2}
	for _, role := range [2]Role{RoleSide1, RoleSide2} {
		v := r.stages[role]
		if v.isAbsent() {
			continue
		}
		newPath := rs.uniquify(p, labels[role])
		nr := arena.paths.getOrCreate(newPath)
		nr.stages[role] = v
		nr.filemask = nr.filemask.set(role)
		nr.markClean(v.mode, v.oid)
		r.addMessage(SeverityWarn, MsgPathUpdated, fmt.Sprintf("%s moved to %s (distinct types)", p, newPath))
	}
	r.pathConflict = true
	r.markUnclean()
	return nil
}

// uniquify builds `path~label`, flattening '/' to '_' in label, appending a
// numeric suffix if that name is already taken.
func (rs *resolver) uniquify(p, label string) string {
	flat := strings.ReplaceAll(label, "/", "_")
	base := p + "~" + flat
	if n := rs.uniquified[base]; n == 0 {
		rs.uniquified[base] = 1
		return base
	}
	for {
		n := rs.uniquified[base]
		rs.uniquified[base] = n + 1
		candidate := fmt.Sprintf("%s_%d", base, n)
		if rs.uniquified[candidate] == 0 {
			rs.uniquified[candidate] = 1
			return candidate
		}
	}
}

// resolveContentMerge implements C3: invoke the content merger with the
// base blob (or null) and both side blobs, write the result back to the
// store, and mark clean iff the merge was clean and no path/df conflict is
// outstanding.
func (rs *resolver) resolveContentMerge(ctx context.Context, p string, r *record) error {
	base, s1, s2 := r.stages[RoleBase], r.stages[RoleSide1], r.stages[RoleSide2]

	mode, modeClean := mergeMode(base.mode, s1.mode, s2.mode)

	var baseBytes []byte
	if !base.isAbsent() {
		b, err := rs.st.ReadBlob(ctx, base.oid)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrObjectMissing, base.oid, err)
		}
		baseBytes = b
	}
	side1Bytes, err := rs.st.ReadBlob(ctx, s1.oid)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectMissing, s1.oid, err)
	}
	side2Bytes, err := rs.st.ReadBlob(ctx, s2.oid)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrObjectMissing, s2.oid, err)
	}

	labels := [3]string{rs.opts.LabelBase, rs.opts.LabelSide1, rs.opts.LabelSide2}
	merged, clean := contentmerge.Merge(baseBytes, side1Bytes, side2Bytes, labels, rs.opts.MarkerSize, contentmerge.Normal, rs.opts.Renormalize)

	oid, err := rs.st.WriteObject(ctx, store.BlobKind, merged)
	if err != nil {
		return fmt.Errorf("%w: write merged blob for %s: %v", ErrIO, p, err)
	}

	r.addMessage(SeverityInfo, MsgAutoMerging, fmt.Sprintf("Auto-merging %s", p))
	if !clean {
		r.addMessage(SeverityWarn, MsgContentMergeFailed, fmt.Sprintf("content conflict in %s", p))
	}

	clean = clean && modeClean && !r.pathConflict
	if clean {
		r.markClean(mode, oid)
	} else {
		r.resultMode = mode
		r.resultOid = oid
		r.markUnclean()
	}
	return nil
}

// mergeMode implements spec §4.5's mode-merge rule: side2's mode wins when
// side1 matches either side2 or base; otherwise side1's mode wins and the
// result is unclean iff side2 also diverged from base.
func mergeMode(base, s1, s2 filemode.FileMode) (filemode.FileMode, bool) {
	if s1 == s2 || s1 == base {
		return s2, true
	}
	if s2 == base {
		return s1, true
	}
	return s1, false
}

// resolveModifyDelete implements C4: one side modified, the other deleted.
// Clean only when the renormalize-and-equal check proves the two blobs
// equal after attribute normalization.
func (rs *resolver) resolveModifyDelete(ctx context.Context, p string, r *record, fm mask) error {
	modifiedRole := RoleSide1
	if fm == maskOf(RoleBase, RoleSide2) {
		modifiedRole = RoleSide2
	}
	modified := r.stages[modifiedRole]

	if rs.opts.Renormalize && !r.pathConflict {
		base := r.stages[RoleBase]
		baseBytes, err1 := rs.st.ReadBlob(ctx, base.oid)
		modBytes, err2 := rs.st.ReadBlob(ctx, modified.oid)
		if err1 == nil && err2 == nil && string(baseBytes) == string(modBytes) {
			r.isNull = true
			r.markClean(filemode.Empty, plumbing.ZeroHash)
			return nil
		}
	}

	r.resultMode = modified.mode
	r.resultOid = modified.oid
	r.markUnclean()
	return nil
}

// resolveDfConflict implements C7: once the TREE BUILDER would have decided
// whether the directory "wins" this path, a surviving file version must be
// relocated to a uniquified name. Since the resolver runs before the TREE
// BUILDER, the decision here is conservative: if any record under this path
// is not null at this point (clean or not), treat the directory as winning
// and relocate; otherwise let the file occupy the path normally.
func (rs *resolver) resolveDfConflict(arena *arena, p string, r *record) error {
	hasChildren := false
	prefix := p + "/"
	for _, other := range arena.paths.paths() {
		if strings.HasPrefix(other, prefix) {
			if or, ok := arena.paths.get(other); ok && !or.isNull {
				hasChildren = true
				break
			}
		}
	}

	if !hasChildren {
		for role := RoleBase; role < roleCount; role++ {
			v := r.stages[role]
			if !v.isAbsent() && r.filemask.has(role) {
				r.markClean(v.mode, v.oid)
				return nil
			}
		}
		return nil
	}

	labels := [roleCount]string{rs.opts.LabelBase, rs.opts.LabelSide1, rs.opts.LabelSide2}
	for role := RoleBase; role < roleCount; role++ {
		v := r.stages[role]
		if v.isAbsent() || !r.filemask.has(role) {
			continue
		}
		newPath := rs.uniquify(p, labels[role])
		nr := arena.paths.getOrCreate(newPath)
		nr.stages[role] = v
		nr.filemask = nr.filemask.set(role)
		nr.markClean(v.mode, v.oid)
		r.addMessage(SeverityWarn, MsgPathUpdated, fmt.Sprintf("%s moved to %s (directory/file conflict)", p, newPath))
	}
	r.pathConflict = true
	return nil
}
