// Package contentmerge implements the pure, in-memory three-way text merge
// the core engine delegates to when a path changed on both sides of a merge.
// It is a trimmed, single-algorithm adaptation of the teacher's
// modules/diferenco package: the histogram diff (with its O(NP) fallback for
// pathological inputs) and the diff3 hunk-interleaving merge, without the
// unified-diff rendering, the alternate diff algorithms, or any
// filesystem/subprocess content merge path.
package contentmerge

// Operation tags one edit in a diff between two line sequences.
type Operation int8

const (
	Delete Operation = -1
	Insert Operation = 1
	Equal  Operation = 0
)

// Change is one contiguous edit: Del lines from position P1 in the first
// sequence are replaced by Ins lines from position P2 in the second.
type Change struct {
	P1  int
	P2  int
	Del int
	Ins int
}

func commonPrefixLength[E comparable](a, b []E) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixLength[E comparable](a, b []E) int {
	i1, i2 := len(a), len(b)
	n := min(i1, i2)
	i := 0
	for i < n && a[i1-1-i] == b[i2-1-i] {
		i++
	}
	return i
}
