package ort

import (
	"github.com/sirupsen/logrus"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/modules/plumbing/filemode"
)

// version is one role's contribution at a path: a (mode, oid) pair, or the
// zero value when that role has nothing there.
type version struct {
	mode filemode.FileMode
	oid  plumbing.Hash
}

func (v version) isAbsent() bool { return v.mode == filemode.Empty }

// stageTriple holds one version per role.
type stageTriple [roleCount]version

func (s stageTriple) get(r Role) version { return s[r] }

// record is the PATH MAP's tagged variant (design note N2): instead of two
// heterogeneous Go types behind an interface, every path gets one record
// with a `clean` discriminant. When clean, stages/masks are meaningless and
// only the header (result mode/oid) matters; when unclean, the full
// CONFLICT INFO fields are populated. This keeps the common "is this path
// resolved, and to what" query branch-free for callers that don't care why.
type record struct {
	path string // interned-equal: compared by content once, held by the map key

	clean  bool
	isNull bool // the merged result has nothing at this path (result mode Empty)

	// Header shared by both variants (spec's "MERGED INFO" prefix).
	resultMode filemode.FileMode
	resultOid  plumbing.Hash

	// CONFLICT INFO fields, populated regardless of `clean` (N2's
	// alternative: always store them, let `clean` make them meaningless).
	stages    stageTriple
	filemask  mask
	dirmask   mask
	matchMask mask

	dfConflict   bool
	pathConflict bool

	messages []Message
}

// Message severity, used by OUTPUT MESSAGES (spec §7).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
)

type Message struct {
	Severity Severity
	Code     string
	Text     string
}

func (r *record) addMessage(sev Severity, code, text string) {
	r.messages = append(r.messages, Message{Severity: sev, Code: code, Text: text})
	// Non-fatal conditions (spec §7's message codes) go to logrus at Warn so
	// a caller tailing logs sees them without inspecting Result.Messages;
	// Info-severity per-path decisions stay out of logrus to avoid drowning
	// Warn signal in routine auto-merge noise.
	if sev == SeverityWarn {
		logrus.WithField("path", r.path).WithField("code", code).Warn(text)
	}
}

func (r *record) markClean(mode filemode.FileMode, oid plumbing.Hash) {
	r.clean = true
	r.isNull = mode == filemode.Empty
	r.resultMode = mode
	r.resultOid = oid
}

func (r *record) markUnclean() {
	r.clean = false
}
