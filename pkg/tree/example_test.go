package tree_test

import (
	"fmt"
	"slices"

	"github.com/matzehuels/kintree/pkg/tree"
)

func Example() {
	snap := tree.Snapshot{
		Persons: []tree.Person{
			{ID: "ada", FirstName: "Ada", LastName: "Byron"},
			{ID: "anne", FirstName: "Anne", LastName: "King"},
			{ID: "byron", FirstName: "George", LastName: "Byron"},
		},
		Relationships: []tree.Relationship{
			{ID: "r1", Kind: "father", From: "byron", To: "ada"},
			{ID: "r2", Kind: "parent", From: "byron", To: "anne"},
			{ID: "r3", Kind: "sibling", From: "ada", To: "anne"},
		},
	}

	g, dataErrs := tree.Build(snap)
	fmt.Println("excluded:", len(dataErrs))

	gens, err := tree.AssignGenerations(g)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	ids := g.PersonIDs()
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Printf("%s: generation %d\n", id, gens[id])
	}
	// Output:
	// excluded: 0
	// ada: generation 1
	// anne: generation 1
	// byron: generation 0
}
