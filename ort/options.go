package ort

// DirRenameDetection selects how directory-rename inference behaves.
type DirRenameDetection int

const (
	DirRenameNone DirRenameDetection = iota
	DirRenameConflict
	DirRenameTrue
)

// RecursiveVariant names a synthesized-ancestor resolution strategy for true
// conflicts (spec §6). Options carries it, but nothing in this module reads
// it: the resolver always asks the content merger for contentmerge.Normal.
type RecursiveVariant int

const (
	RecursiveNormal RecursiveVariant = iota
	RecursiveOurs
	RecursiveTheirs
)

const defaultRenameLimit = 1000

// Options is the Go shape of the spec §6 options surface.
type Options struct {
	LabelBase, LabelSide1, LabelSide2 string

	DetectDirectoryRenames DirRenameDetection
	// RenameLimit bounds the candidate pairs considered by similarity
	// detection. The spec leaves open whether a caller's explicit 0 means
	// "unlimited" or "default" (see DESIGN.md); this implementation treats
	// any value <= 0 as "use the default", matching the source behavior
	// the spec says to mirror rather than fix.
	RenameLimit int
	// RenameScore is the minimum similarity score in [0, MaxScore] for two
	// candidates to be treated as a rename rather than an add+delete.
	RenameScore int

	RecursiveVariant RecursiveVariant
	Renormalize      bool

	// MarkerSize is the base conflict-marker width passed to the content
	// merger. The recursive wrapper adds one for every level of nested
	// virtual-ancestor merge; the core itself passes it unchanged to every
	// content merge.
	MarkerSize int

	// Verbose turns on per-path Debug tracing of collector/resolver
	// decisions through modules/trace (spec §3's ambient logging stack).
	Verbose bool
}

const MaxScore = 100

// normalized returns a copy of o with defaults applied.
func (o Options) normalized() Options {
	if o.RenameLimit <= 0 {
		o.RenameLimit = defaultRenameLimit
	}
	if o.RenameScore <= 0 {
		o.RenameScore = 50
	}
	if o.MarkerSize <= 0 {
		o.MarkerSize = 7
	}
	if o.LabelBase == "" {
		o.LabelBase = "merged common ancestors"
	}
	if o.LabelSide1 == "" {
		o.LabelSide1 = "HEAD"
	}
	if o.LabelSide2 == "" {
		o.LabelSide2 = "BRANCH"
	}
	return o
}
