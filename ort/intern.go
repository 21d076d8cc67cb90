package ort

// intern stands in for pointer-identity of directory names (invariant I3,
// design note N1): a shared table owning one copy of each distinct string,
// with a stable integer handle per string. Every path the PATH MAP stores is
// interned here, but records keep their path as a plain string and nothing
// compares handles; path equality in this package is ordinary string
// comparison.
type interner struct {
	handles map[string]int
	strs    []string
}

func newInterner() *interner {
	return &interner{handles: make(map[string]int, 256)}
}

// intern returns the handle for s, allocating a new one if s was not seen
// before. The returned handle is stable for the lifetime of the interner.
func (in *interner) intern(s string) int {
	if h, ok := in.handles[s]; ok {
		return h
	}
	h := len(in.strs)
	in.strs = append(in.strs, s)
	in.handles[s] = h
	return h
}

func (in *interner) str(h int) string {
	return in.strs[h]
}

// pathCompare implements design note N6: compare byte-wise, but when one
// path is exhausted before the other, substitute '/' for its terminator
// instead of treating "ran out of bytes" as automatically less. This is
// exactly the git tree-ordering rule applied to full paths instead of single
// tree-entry names: it makes a directory's own record sort immediately
// before its children ("kind" before "kind/sub"), while still sorting a
// directory after a sibling file whose name it's a byte-prefix of
// ("kind.txt" before "kind", since '.' < '/'). Never delegate to
// sort.Strings, which would get both of those wrong.
func pathCompare(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	if len(a) == len(b) {
		return 0
	}
	const term = '/'
	if len(a) < len(b) {
		switch {
		case term < b[n]:
			return -1
		case term > b[n]:
			return 1
		default:
			return -1 // a is a genuine directory prefix of b
		}
	}
	switch {
	case a[n] < term:
		return -1
	case a[n] > term:
		return 1
	default:
		return 1 // b is a genuine directory prefix of a
	}
}

// pathLess is the convenience boolean form of pathCompare, and also the
// comparator handed to the gods treemap backing the PATH MAP.
func pathLess(a, b string) bool { return pathCompare(a, b) < 0 }

func pathComparator(a, b any) int {
	return pathCompare(a.(string), b.(string))
}
