// Copyright (c) 2024 epic labs; original JS by Bryan Housel, ported to Go by
// Javier Peletier (https://github.com/epiclabs-io/diff3). Adapted here for
// the three-way tree merge engine's content-merge boundary.
//
// SPDX-License-Identifier: MIT
package contentmerge

import (
	"fmt"
	"sort"
	"strings"
)

// Variant selects which side a conflict should resolve toward when the
// content merger is asked to not emit conflict markers.
type Variant int

const (
	Normal Variant = iota
	PreferSide1
	PreferSide2
)

const (
	sep1 = "<<<<<<<"
	sep2 = "======="
	sep3 = ">>>>>>>"
)

type hunk [5]int
type hunkList []*hunk

func (h hunkList) Len() int           { return len(h) }
func (h hunkList) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h hunkList) Less(i, j int) bool { return h[i][0] < h[j][0] }

// diff3Indices computes, given base O and the two sides A and B, a sequence
// of regions that are either a straight copy from one side or a genuine
// three-way conflict, following Khanna, Kunal & Pierce's formulation (as
// implemented by node-diff3 and ported by the teacher's modules/diferenco).
func diff3Indices(o, a, b []string) [][]int {
	m1 := HistogramDiff(o, a)
	m2 := HistogramDiff(o, b)

	var hunks []*hunk
	for _, h := range m1 {
		hunks = append(hunks, &hunk{h.P1, 0, h.Del, h.P2, h.Ins})
	}
	for _, h := range m2 {
		hunks = append(hunks, &hunk{h.P1, 2, h.Del, h.P2, h.Ins})
	}
	sort.Sort(hunkList(hunks))

	var result [][]int
	commonOffset := 0
	copyCommon := func(targetOffset int) {
		if targetOffset > commonOffset {
			result = append(result, []int{1, commonOffset, targetOffset - commonOffset})
			commonOffset = targetOffset
		}
	}

	for hunkIndex := 0; hunkIndex < len(hunks); hunkIndex++ {
		first := hunkIndex
		h := hunks[hunkIndex]
		regionLhs := h[0]
		regionRhs := regionLhs + h[2]
		for hunkIndex < len(hunks)-1 {
			next := hunks[hunkIndex+1]
			if next[0] > regionRhs {
				break
			}
			regionRhs = max(regionRhs, next[0]+next[2])
			hunkIndex++
		}

		copyCommon(regionLhs)
		if first == hunkIndex {
			// Only one hunk covers this region: either A==O or B==O here, no conflict.
			if h[4] > 0 {
				result = append(result, []int{h[1], h[3], h[4]})
			}
		} else {
			regions := [][]int{{len(a), -1, len(o), -1}, nil, {len(b), -1, len(o), -1}}
			for i := first; i <= hunkIndex; i++ {
				h = hunks[i]
				r := regions[h[1]]
				oLhs, oRhs := h[0], h[0]+h[2]
				abLhs, abRhs := h[3], h[3]+h[4]
				r[0] = min(abLhs, r[0])
				r[1] = max(abRhs, r[1])
				r[2] = min(oLhs, r[2])
				r[3] = max(oRhs, r[3])
			}
			aLhs := regions[0][0] + (regionLhs - regions[0][2])
			aRhs := regions[0][1] + (regionRhs - regions[0][3])
			bLhs := regions[2][0] + (regionLhs - regions[2][2])
			bRhs := regions[2][1] + (regionRhs - regions[2][3])
			result = append(result, []int{-1,
				aLhs, aRhs - aLhs,
				regionLhs, regionRhs - regionLhs,
				bLhs, bRhs - bLhs})
		}
		commonOffset = regionRhs
	}
	copyCommon(len(o))
	return result
}

// conflictRegion is a genuine three-way conflict: the surrounding lines from
// side1 and side2 plus the base lines they both diverged from.
type conflictRegion struct {
	side1 []string
	base  []string
	side2 []string
}

type mergedRegion struct {
	ok       []string
	conflict *conflictRegion
}

func diff3Merge(o, a, b []string) []mergedRegion {
	var result []mergedRegion
	files := [][]string{a, o, b}
	indices := diff3Indices(o, a, b)

	var okLines []string
	flush := func() {
		if len(okLines) != 0 {
			result = append(result, mergedRegion{ok: okLines})
		}
		okLines = nil
	}
	push := func(xs []string) { okLines = append(okLines, xs...) }

	trueConflict := func(rec []int) bool {
		if rec[2] != rec[6] {
			return true
		}
		aoff, boff := rec[1], rec[5]
		for j := 0; j < rec[2]; j++ {
			if a[j+aoff] != b[j+boff] {
				return true
			}
		}
		return false
	}

	for _, x := range indices {
		side := x[0]
		if side != -1 {
			push(files[side][x[1] : x[1]+x[2]])
			continue
		}
		if !trueConflict(x) {
			push(a[x[1] : x[1]+x[2]])
			continue
		}
		flush()
		result = append(result, mergedRegion{conflict: &conflictRegion{
			side1: a[x[1] : x[1]+x[2]],
			base:  o[x[3] : x[3]+x[4]],
			side2: b[x[5] : x[5]+x[6]],
		}})
	}
	flush()
	return result
}

func marker(sep string, size int) string {
	if size <= 0 {
		size = len(sep)
	}
	return strings.Repeat(string(sep[0]), size)
}

// Merge implements the core's content-merger contract: given the base
// (possibly absent), side1 and side2 byte contents, three display labels, a
// conflict-marker width, a resolution variant and a renormalize flag, it
// returns the merged bytes and whether the merge was clean.
//
// When variant is PreferSide1 or PreferSide2, true conflicts resolve to that
// side's lines without emitting markers. The core's resolver always passes
// Normal, including for the recursive wrapper's virtual-ancestor merges.
func Merge(base, side1, side2 []byte, labels [3]string, markerSize int, variant Variant, renormalize bool) ([]byte, bool) {
	if renormalize && base != nil && string(side1) == string(side2) {
		return side1, true
	}

	var baseText string
	if base != nil {
		baseText = string(base)
	}
	o := splitLines(baseText)
	a := splitLines(string(side1))
	b := splitLines(string(side2))

	regions := diff3Merge(o, a, b)

	var out strings.Builder
	out.Grow(len(side1) + len(side2))
	clean := true
	for _, r := range regions {
		if r.conflict == nil {
			writeLines(&out, r.ok...)
			continue
		}
		switch variant {
		case PreferSide1:
			writeLines(&out, r.conflict.side1...)
			continue
		case PreferSide2:
			writeLines(&out, r.conflict.side2...)
			continue
		}
		clean = false
		writeConflict(&out, r.conflict, labels, markerSize)
	}
	return []byte(out.String()), clean
}

func writeConflict(out *strings.Builder, c *conflictRegion, labels [3]string, markerSize int) {
	fmt.Fprintf(out, "%s%s\n", marker(sep1, markerSize), label(labels[1]))
	writeLines(out, c.side1...)
	fmt.Fprintf(out, "%s\n", marker(sep2, markerSize))
	writeLines(out, c.side2...)
	fmt.Fprintf(out, "%s%s\n", marker(sep3, markerSize), label(labels[2]))
}

func label(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
