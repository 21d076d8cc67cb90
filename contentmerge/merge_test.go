package contentmerge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lines(s ...string) []byte {
	return []byte(strings.Join(s, "\n") + "\n")
}

func TestMerge_NonOverlappingEditsCleanlyCombine(t *testing.T) {
	base := lines("one", "two", "three")
	side1 := lines("ONE", "two", "three")
	side2 := lines("one", "two", "THREE")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, Normal, false)
	require.True(t, clean)
	require.Equal(t, string(lines("ONE", "two", "THREE")), string(out))
}

func TestMerge_SameEditOnBothSidesIsClean(t *testing.T) {
	base := lines("one", "two")
	side1 := lines("one", "TWO")
	side2 := lines("one", "TWO")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, Normal, false)
	require.True(t, clean)
	require.Equal(t, string(lines("one", "TWO")), string(out))
}

func TestMerge_OverlappingEditsConflictWithMarkers(t *testing.T) {
	base := lines("one", "two", "three")
	side1 := lines("one", "TWO-OURS", "three")
	side2 := lines("one", "TWO-THEIRS", "three")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, Normal, false)
	require.False(t, clean)

	s := string(out)
	require.True(t, strings.HasPrefix(s, "one\n<<<<<<< ours\n"))
	require.Contains(t, s, "TWO-OURS\n")
	require.Contains(t, s, "=======\n")
	require.Contains(t, s, "TWO-THEIRS\n")
	require.Contains(t, s, ">>>>>>> theirs\n")
	require.True(t, strings.HasSuffix(s, "three\n"))
}

func TestMerge_PreferSide1ResolvesConflictWithoutMarkers(t *testing.T) {
	base := lines("one", "two", "three")
	side1 := lines("one", "OURS", "three")
	side2 := lines("one", "THEIRS", "three")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, PreferSide1, false)
	require.True(t, clean)
	require.Equal(t, string(lines("one", "OURS", "three")), string(out))
}

func TestMerge_PreferSide2ResolvesConflictWithoutMarkers(t *testing.T) {
	base := lines("one", "two", "three")
	side1 := lines("one", "OURS", "three")
	side2 := lines("one", "THEIRS", "three")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, PreferSide2, false)
	require.True(t, clean)
	require.Equal(t, string(lines("one", "THEIRS", "three")), string(out))
}

func TestMerge_RenormalizeShortCircuitsWhenSidesAlreadyEqual(t *testing.T) {
	base := lines("one", "two")
	side1 := lines("one", "two", "three")
	side2 := lines("one", "two", "three")

	out, clean := Merge(base, side1, side2, [3]string{"base", "ours", "theirs"}, 7, Normal, true)
	require.True(t, clean)
	require.Equal(t, string(side1), string(out))
}

func TestMerge_NilBaseTreatedAsEmpty(t *testing.T) {
	side1 := lines("added by side1")
	side2 := lines("added by side1")

	out, clean := Merge(nil, side1, side2, [3]string{"base", "ours", "theirs"}, 7, Normal, false)
	require.True(t, clean)
	require.Equal(t, string(side1), string(out))
}
