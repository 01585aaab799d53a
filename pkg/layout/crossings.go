package layout

import (
	"slices"

	"github.com/matzehuels/kintree/pkg/tree"
)

// PosMap creates a position lookup map from a slice of person IDs.
// The returned map maps each ID to its index in the slice. This converts
// level orderings into fast position lookups for crossing calculations.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// CountCrossings returns the total number of parent-edge crossings for the
// given level orderings, summed over each pair of consecutive levels.
func CountCrossings(g *tree.Graph, levels [][]string) int {
	crossings := 0
	for i := 0; i+1 < len(levels); i++ {
		crossings += CountLevelCrossings(g, levels[i], levels[i+1])
	}
	return crossings
}

// CountLevelCrossings counts parent-edge crossings between two adjacent
// levels using a Fenwick tree (binary indexed tree) for O(E log V)
// performance, where E is the number of edges between the levels and V is
// the number of persons in the lower level.
//
// Two edges (u1,v1) and (u2,v2) cross if and only if:
//
//	pos(u1) < pos(u2) AND pos(v1) > pos(v2)
//
// This is equivalent to counting inversions in the sequence of target
// positions when edges are sorted by source position.
//
// Returns 0 if either level is empty, as no crossings can exist without edges.
func CountLevelCrossings(g *tree.Graph, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := PosMap(lower)

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, id := range upper {
		for _, child := range g.Children(id) {
			if pos, ok := lowerPos[child]; ok {
				edges = append(edges, edge{i, pos})
			}
		}
	}
	if len(edges) < 2 {
		return 0
	}

	// Sort edges by source position, then by target position
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	// Count inversions using Fenwick tree
	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, e := range edges {
		// Query: count edges seen so far with target <= e.lower
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		// Crossings = edges seen so far with target > e.lower
		crossings += total - lessOrEqual

		// Update: increment count at target position
		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}

// CountPairCrossings counts the crossings contributed by the adjacent pair
// (left, right) in their level, against a precomputed position map for the
// adjacent level. If useParents is true, edges to the level above are
// considered; otherwise edges to the level below.
//
// The transpose refinement uses this to decide whether swapping two adjacent
// persons would reduce crossings. This function does not modify the graph.
func CountPairCrossings(g *tree.Graph, left, right string, adjPos map[string]int, useParents bool) int {
	var lnbr, rnbr []string
	if useParents {
		lnbr = g.Parents(left)
		rnbr = g.Parents(right)
	} else {
		lnbr = g.Children(left)
		rnbr = g.Children(right)
	}

	crossings := 0
	for _, ln := range lnbr {
		lp, ok := adjPos[ln]
		if !ok {
			continue
		}
		for _, rn := range rnbr {
			// If left's neighbor is to the right of right's neighbor, they cross
			if rp, ok := adjPos[rn]; ok && lp > rp {
				crossings++
			}
		}
	}
	return crossings
}
