package ort

import (
	"fmt"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
)

// applyRegularRename folds one accepted file rename into the PATH MAP (spec
// §4.2's "mutates PATH MAP by moving/renaming entries"): the delete-side
// record at from and the add-side record at to are combined into a single
// record at to, carrying forward whatever the opposite side still has at
// from so the RESOLVER can run its ordinary C3/C4 classification there.
func applyRegularRename(arena *arena, r pendingRename) {
	oldRecord, hadOld := arena.paths.get(r.from)
	newRecord := arena.paths.getOrCreate(r.to)

	newRecord.stages[r.side] = r.toVersion
	newRecord.filemask = newRecord.filemask.set(r.side)

	if !hadOld {
		return
	}

	other := otherSide(r.side)
	if base := oldRecord.stages[RoleBase]; !base.isAbsent() && newRecord.stages[RoleBase].isAbsent() {
		newRecord.stages[RoleBase] = base
		newRecord.filemask = newRecord.filemask.set(RoleBase)
	}
	if otherVer := oldRecord.stages[other]; !otherVer.isAbsent() && oldRecord.filemask.has(other) {
		newRecord.stages[other] = otherVer
		newRecord.filemask = newRecord.filemask.set(other)
		oldRecord.filemask = oldRecord.filemask.clear(other)
	}

	newRecord.matchMask = computeMatchMask(newRecord.stages, newRecord.filemask)
	newRecord.markUnclean()
	newRecord.addMessage(SeverityInfo, MsgPathUpdated, fmt.Sprintf("%s renamed to %s", r.from, r.to))

	// The source record now only still carries base (moved away) and
	// possibly the renaming side's own absence; nothing further is owed at
	// the old path unless the opposite side also still has content there
	// (already moved above), so it resolves as a plain deletion.
	if oldRecord.filemask.clear(r.side).isEmpty() {
		oldRecord.isNull = true
		oldRecord.markClean(filemode.Empty, plumbing.ZeroHash)
	}
}

func otherSide(s Role) Role {
	if s == RoleSide1 {
		return RoleSide2
	}
	return RoleSide1
}

// applyDirectoryRenames implements spec §4.2.2's implicit-rename pass plus
// §4.2.3's collision handling and §4.4's transfer/merge semantics. side is
// the side whose file renames produced dirRenames (it renamed old-dir to
// new-dir); the content actually relocated is whatever the *other* side
// still has under old-dir and didn't itself move there — the classic case
// is the other side adding a new file under old-dir, which must follow the
// directory rename to new-dir instead of reviving the old directory.
func applyDirectoryRenames(arena *arena, side Role, dirRenames map[string]string, moved map[string]bool) {
	if len(dirRenames) == 0 {
		return
	}
	following := otherSide(side)

	candidates := arena.paths.paths()
	collisions := map[string]bool{}
	for oldDir, newDir := range dirRenames {
		for _, p := range candidates {
			if moved[p] {
				continue
			}
			rel, ok := relativeUnderAny(p, oldDir)
			if !ok {
				continue
			}
			target := joinPath(newDir, rel)
			if collisions[target] {
				continue
			}
			if _, exists := arena.paths.get(target); exists {
				collisions[target] = true
			}
		}
	}

	for oldDir, newDir := range dirRenames {
		for _, p := range candidates {
			if moved[p] {
				continue
			}
			r, ok := arena.paths.get(p)
			if !ok || !r.filemask.has(following) {
				continue
			}
			rel, ok := relativeUnderAny(p, oldDir)
			if !ok {
				continue
			}
			target := joinPath(newDir, rel)
			if collisions[target] {
				r.pathConflict = true
				r.addMessage(SeverityWarn, MsgDirRenameSuggested,
					fmt.Sprintf("%s not moved to %s: collision", p, target))
				continue
			}
			moveForDirRename(arena, p, target, following)
			moved[p] = true
			moved[target] = true
		}
	}
}

// moveForDirRename transfers or merges a single record for the directory-
// rename pass (spec §4.4). Transfer when the target is new; merge when a
// complementary record (disjoint filemask) already sits there, folding the
// moving record's side-specific stage into it; otherwise set df_conflict.
func moveForDirRename(arena *arena, from, to string, side Role) {
	moving, ok := arena.paths.get(from)
	if !ok {
		return
	}
	resident, exists := arena.paths.get(to)
	if !exists {
		arena.paths.remove(from)
		moving.path = to
		arena.paths.putExisting(to, moving)
		moving.addMessage(SeverityInfo, MsgPathUpdated, fmt.Sprintf("%s moved to %s (directory rename)", from, to))
		return
	}

	if resident.filemask&moving.filemask.clear(side) != 0 && resident.filemask.has(side) {
		resident.dfConflict = true
	}
	resident.stages[side] = moving.stages[side]
	resident.filemask = resident.filemask.set(side)
	resident.matchMask = computeMatchMask(resident.stages, resident.filemask)
	resident.markUnclean()
	resident.addMessage(SeverityInfo, MsgDirRenameApplied, fmt.Sprintf("%s merged into %s (directory rename)", from, to))
	arena.paths.remove(from)
}
