package tree

import (
	"github.com/matzehuels/kintree/pkg/errors"
)

// AssignGenerations computes an integer generation for every person in the
// graph. Generation 0 is a root; children are always strictly below every
// parent (maximum-of-parents policy).
//
// The algorithm is loop-safe by construction: a frontier queue only
// re-expands a person when their generation strictly increases, and
// candidates are capped at the person count (no valid chain is longer),
// so it terminates even on adversarial cyclic input (e.g. A parent-of B,
// B parent-of A) where the increase guard alone would climb forever.
//
// # Algorithm
//
//  1. Root identification: persons with zero parent edges. A fully cyclic
//     graph has none; then the persons with the fewest parent edges are
//     seeded instead, in ascending ID order, to guarantee progress.
//  2. Propagation: breadth-first from each root at generation 0, setting
//     gen(child) = max(gen(child), gen(parent)+1). Edges are re-expanded
//     only on a strict increase within the person-count cap.
//  3. Disconnected components: any person not reached becomes a new root
//     at generation 0 and is propagated independently.
//  4. Spouse pinning: spouses are co-located on one level. If two spouses
//     differ, the numerically lower one is raised to match and their
//     descendants are re-propagated. Steps 2-4 repeat until no generation
//     changes (fixed point), bounded by one round per person.
//
// Returns a LAYOUT_INVARIANT_VIOLATION error if any person is left without
// a generation after the algorithm terminates; this indicates a logic
// defect, not bad data, and is fatal to the layout pass.
func AssignGenerations(g *Graph) (map[string]int, error) {
	ids := g.PersonIDs()
	gens := make(map[string]int, len(ids))

	// A valid generation never exceeds the longest parent chain, which is
	// at most len(ids)-1. Candidates past this cap can only come from a
	// parent cycle pumping itself, so the cap never binds on acyclic data.
	maxGen := len(ids)

	// propagate pushes generations down child edges from the given seeds.
	// Seeds must already have a generation. A child is re-expanded only
	// when its generation strictly increases and stays within the cap, so
	// each person is updated at most maxGen times and the walk terminates
	// even when the data contains parent cycles.
	propagate := func(seeds ...string) {
		queue := append([]string(nil), seeds...)
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			for _, child := range g.Children(curr) {
				cand := gens[curr] + 1
				if cand > maxGen {
					continue
				}
				prev, ok := gens[child]
				if !ok || cand > prev {
					gens[child] = cand
					queue = append(queue, child)
				}
			}
		}
	}

	var roots []string
	for _, id := range ids {
		if g.ParentCount(id) == 0 {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 && len(ids) > 0 {
		// Fully cyclic data: every person has a recorded parent. Seed the
		// persons with the fewest parent edges to guarantee progress.
		minParents := -1
		for _, id := range ids {
			if n := g.ParentCount(id); minParents < 0 || n < minParents {
				minParents = n
			}
		}
		for _, id := range ids {
			if g.ParentCount(id) == minParents {
				roots = append(roots, id)
			}
		}
	}

	for _, id := range roots {
		gens[id] = 0
	}
	propagate(roots...)

	// Anyone not reached (disconnected component, or only reachable
	// against edge direction) anchors a new generation 0.
	for _, id := range ids {
		if _, ok := gens[id]; !ok {
			gens[id] = 0
			propagate(id)
		}
	}

	// Spouse pinning fixed point. Raising a spouse can cascade through
	// already-placed descendants and other spouse chains, so the sweep
	// repeats until stable. Data that makes the constraints unsatisfiable
	// (a person married to their own ancestor in a cycle) would climb
	// forever; the round cap stops it with every person still assigned.
	maxRounds := len(ids) + 1
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, id := range ids {
			for _, sp := range g.Spouses(id) {
				if gens[sp] < gens[id] {
					gens[sp] = gens[id]
					propagate(sp)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for _, id := range ids {
		if _, ok := gens[id]; !ok {
			return nil, errors.New(errors.ErrCodeLayoutInvariant,
				"person %s left without a generation", id)
		}
	}
	return gens, nil
}

// MinGeneration returns the smallest generation value in the map, or 0 for
// an empty map. Layout uses this to normalize levels when ancestors were
// inserted above an existing root (negative generations).
func MinGeneration(gens map[string]int) int {
	first := true
	min := 0
	for _, gen := range gens {
		if first || gen < min {
			min = gen
			first = false
		}
	}
	return min
}
