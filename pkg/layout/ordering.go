package layout

import (
	"slices"
	"strings"

	"github.com/matzehuels/kintree/pkg/tree"
)

// transposePasses bounds the adjacent-swap refinement. Each pass only
// applies strictly-improving swaps, so the crossing count is monotonically
// decreasing and the loop usually stabilizes after two or three passes.
const transposePasses = 4

// OrderLevels determines the left-to-right order of persons within each
// level to reduce parent-edge crossings.
//
// The top level is ordered by ID. Each subsequent level is ordered by the
// barycenter heuristic: persons are sorted by the mean position of their
// already-placed parents in the level above, with ID as the tiebreak.
// Persons with no placed parent keep their ID-order position.
//
// A transpose pass then swaps adjacent persons whenever the swap strictly
// reduces crossings against the level above. Only strict improvements are
// applied, which keeps the result deterministic.
//
// The input levels must each be sorted by ID; the returned orderings are a
// permutation of the input.
func OrderLevels(g *tree.Graph, levels [][]string) [][]string {
	if len(levels) == 0 {
		return nil
	}

	ordered := make([][]string, len(levels))
	ordered[0] = slices.Clone(levels[0])

	for li := 1; li < len(levels); li++ {
		above := PosMap(ordered[li-1])
		ordered[li] = sortByBarycenter(g, levels[li], above)
		transpose(g, ordered[li], above)
	}
	return ordered
}

// sortByBarycenter orders a level by the mean position of each person's
// parents in the level above. ids must be sorted; the sort is stable so
// persons without placed parents, and barycenter ties, fall back to ID order.
func sortByBarycenter(g *tree.Graph, ids []string, above map[string]int) []string {
	type keyed struct {
		id   string
		key  float64
		free bool // no parent placed in the level above
	}

	keys := make([]keyed, len(ids))
	for i, id := range ids {
		sum, n := 0.0, 0
		for _, parent := range g.Parents(id) {
			if pos, ok := above[parent]; ok {
				sum += float64(pos)
				n++
			}
		}
		if n == 0 {
			// Anchor at the current (ID-order) position so free nodes
			// interleave predictably instead of clumping at one end.
			keys[i] = keyed{id: id, key: float64(i), free: true}
			continue
		}
		keys[i] = keyed{id: id, key: sum / float64(n)}
	}

	slices.SortStableFunc(keys, func(a, b keyed) int {
		if a.key < b.key {
			return -1
		}
		if a.key > b.key {
			return 1
		}
		return strings.Compare(a.id, b.id)
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.id
	}
	return out
}

// transpose swaps adjacent persons in place while the swap strictly reduces
// crossings against the level above.
func transpose(g *tree.Graph, order []string, above map[string]int) {
	for pass := 0; pass < transposePasses; pass++ {
		improved := false
		for i := 0; i+1 < len(order); i++ {
			left, right := order[i], order[i+1]
			current := CountPairCrossings(g, left, right, above, true)
			swapped := CountPairCrossings(g, right, left, above, true)
			if swapped < current {
				order[i], order[i+1] = right, left
				improved = true
			}
		}
		if !improved {
			return
		}
	}
}
