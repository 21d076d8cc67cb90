// Package recursive wraps the non-recursive core to resolve criss-cross
// merge-base histories (spec §1: "mechanically straightforward once the
// core exists"), grounded on the teacher's merge-tree ancestor resolution:
// when two commits have more than one merge base, those bases are merged
// pairwise into a single synthesized virtual ancestor tree before the real
// three-way merge runs against it.
package recursive

import (
	"context"
	"fmt"

	"github.com/ortmerge/ort/modules/plumbing"
	"github.com/ortmerge/ort/ort"
	"github.com/ortmerge/ort/store"
)

const maxSynthesisDepth = 32

// Merge implements merge_recursive (spec §6): resolve side1Commit and
// side2Commit's merge base(s), synthesizing a single virtual ancestor out of
// a criss-cross set by recursively merging the bases together, then run the
// ordinary non-recursive core against {ancestor, side1, side2}.
func Merge(ctx context.Context, st store.Store, side1Commit, side2Commit plumbing.Hash, opts ort.Options) (*ort.Result, error) {
	side1, err := st.ParseCommit(ctx, side1Commit)
	if err != nil {
		return nil, fmt.Errorf("recursive: parse side1 commit %s: %w", side1Commit, err)
	}
	side2, err := st.ParseCommit(ctx, side2Commit)
	if err != nil {
		return nil, fmt.Errorf("recursive: parse side2 commit %s: %w", side2Commit, err)
	}

	// Apply the core's default marker width before any nested bump, so a
	// zero MarkerSize grows from 7 rather than from 0.
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = 7
	}

	ancestorTree, nestedMarkerBump, err := resolveAncestorTree(ctx, st, side1Commit, side2Commit, opts, 0)
	if err != nil {
		return nil, err
	}

	finalOpts := opts
	finalOpts.MarkerSize += nestedMarkerBump
	return ort.Merge(ctx, st, ancestorTree, side1.Tree, side2.Tree, finalOpts)
}

// resolveAncestorTree returns the tree id to use as the merge base for
// side1Commit/side2Commit, synthesizing one from a criss-cross merge-base
// set when necessary, plus how many nested synthesis levels were required
// (each adds one to the eventual content-merge marker width, per spec
// §4.5's "incremented when this merge is itself a nested merge").
//
// A true git-style fold re-registers each virtual merge result as a
// pseudo-commit so later folds' merge-base queries see its synthesized
// ancestry too; store.Store exposes no path to register a commit object, so
// this folds strictly left to right against the first base's real ancestry
// instead (see DESIGN.md) — exact for the common two-merge-base
// criss-cross case and an approximation beyond that.
func resolveAncestorTree(ctx context.Context, st store.Store, a, b plumbing.Hash, opts ort.Options, depth int) (plumbing.Hash, int, error) {
	if depth > maxSynthesisDepth {
		return plumbing.ZeroHash, 0, fmt.Errorf("recursive: merge-base synthesis exceeded depth %d", maxSynthesisDepth)
	}

	bases, err := st.MergeBases(ctx, a, b)
	if err != nil {
		return plumbing.ZeroHash, 0, fmt.Errorf("recursive: merge bases of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, 0, nil // no common history: merge against the empty tree
	}

	first, err := st.ParseCommit(ctx, bases[0])
	if err != nil {
		return plumbing.ZeroHash, 0, fmt.Errorf("recursive: parse merge base %s: %w", bases[0], err)
	}
	if len(bases) == 1 {
		return first.Tree, 0, nil
	}

	virtualTree := first.Tree
	bump := 0
	for _, next := range bases[1:] {
		nextCommit, err := st.ParseCommit(ctx, next)
		if err != nil {
			return plumbing.ZeroHash, 0, fmt.Errorf("recursive: parse merge base %s: %w", next, err)
		}
		ancestorOfPair, nested, err := resolveAncestorTree(ctx, st, bases[0], next, opts, depth+1)
		if err != nil {
			return plumbing.ZeroHash, 0, err
		}

		pairOpts := opts
		pairOpts.MarkerSize += nested + 1
		result, err := ort.Merge(ctx, st, ancestorOfPair, virtualTree, nextCommit.Tree, pairOpts)
		if err != nil {
			return plumbing.ZeroHash, 0, err
		}
		virtualTree = result.Tree
		if bump < nested+1 {
			bump = nested + 1
		}
	}
	return virtualTree, bump, nil
}
