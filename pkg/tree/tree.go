// Package tree builds an in-memory family graph from a record-store snapshot
// and assigns a generation level to every person.
//
// The graph is rebuilt fresh from a [Snapshot] on every data change - it is
// owned exclusively by one layout pass and never mutated by consumers. Bad
// records (self-relationships, references to unknown persons, duplicates)
// are excluded with per-record data errors and never abort the build.
package tree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/kintree/pkg/errors"
)

// Graph is the derived adjacency view of one snapshot: for every person,
// the IDs of their parents, children, spouses and siblings.
//
// The zero value is not usable - use [Build] to create a Graph.
// Graph is not safe for concurrent mutation, but a completed Graph is
// read-only and may be shared freely.
type Graph struct {
	persons       map[string]Person
	relationships []Relationship // accepted records, sorted by ID
	parents       map[string][]string
	children      map[string][]string
	spouses       map[string][]string
	siblings      map[string][]string
}

// Build converts a snapshot into a Graph. The returned error slice contains
// one structured data error per excluded record (self-relationships, unknown
// endpoints, duplicates); the build itself never fails. Duplicate
// relationships of the same kind between the same pair are idempotent: the
// first record wins, later ones are reported and dropped.
//
// Adjacency lists are sorted by ID so that identical snapshots always
// produce identical graphs regardless of record order.
func Build(snap Snapshot) (*Graph, []error) {
	g := &Graph{
		persons:  make(map[string]Person, len(snap.Persons)),
		parents:  make(map[string][]string),
		children: make(map[string][]string),
		spouses:  make(map[string][]string),
		siblings: make(map[string][]string),
	}
	var dataErrs []error

	for _, p := range snap.Persons {
		g.persons[p.ID] = p
	}

	// pairKey is canonical for unordered kinds so that (a,b) and (b,a)
	// deduplicate to the same edge.
	seen := make(map[string]bool, len(snap.Relationships))
	pairKey := func(kind, a, b string) string {
		if kind != KindParent && b < a {
			a, b = b, a
		}
		return kind + "\x00" + a + "\x00" + b
	}

	rels := slices.Clone(snap.Relationships)
	slices.SortFunc(rels, func(a, b Relationship) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	for _, r := range rels {
		kind, ok := NormalizeKind(r.Kind)
		if !ok {
			dataErrs = append(dataErrs, errors.New(errors.ErrCodeInvalidKind,
				"relationship %s has unknown kind %q", r.ID, r.Kind))
			continue
		}
		if r.From == r.To {
			dataErrs = append(dataErrs, errors.New(errors.ErrCodeSelfRelationship,
				"relationship %s links %s to itself", r.ID, r.From))
			continue
		}
		if _, ok := g.persons[r.From]; !ok {
			dataErrs = append(dataErrs, errors.New(errors.ErrCodeUnknownPerson,
				"relationship %s references unknown person %s", r.ID, r.From))
			continue
		}
		if _, ok := g.persons[r.To]; !ok {
			dataErrs = append(dataErrs, errors.New(errors.ErrCodeUnknownPerson,
				"relationship %s references unknown person %s", r.ID, r.To))
			continue
		}
		key := pairKey(kind, r.From, r.To)
		if seen[key] {
			dataErrs = append(dataErrs, errors.New(errors.ErrCodeDuplicateRecord,
				"relationship %s duplicates an existing %s edge between %s and %s", r.ID, kind, r.From, r.To))
			continue
		}
		seen[key] = true

		r.Kind = kind
		g.relationships = append(g.relationships, r)
		switch kind {
		case KindParent:
			g.children[r.From] = append(g.children[r.From], r.To)
			g.parents[r.To] = append(g.parents[r.To], r.From)
		case KindSpouse:
			g.spouses[r.From] = append(g.spouses[r.From], r.To)
			g.spouses[r.To] = append(g.spouses[r.To], r.From)
		case KindSibling:
			g.siblings[r.From] = append(g.siblings[r.From], r.To)
			g.siblings[r.To] = append(g.siblings[r.To], r.From)
		}
	}

	for _, adj := range []map[string][]string{g.parents, g.children, g.spouses, g.siblings} {
		for id := range adj {
			slices.Sort(adj[id])
		}
	}

	return g, dataErrs
}

// Person returns the person with the given ID and true, or the zero Person
// and false if not found.
func (g *Graph) Person(id string) (Person, bool) {
	p, ok := g.persons[id]
	return p, ok
}

// PersonIDs returns all person IDs in sorted ascending order.
func (g *Graph) PersonIDs() []string {
	return slices.Sorted(maps.Keys(g.persons))
}

// PersonCount returns the number of persons in the graph.
func (g *Graph) PersonCount() int { return len(g.persons) }

// Relationships returns the accepted relationship records sorted by ID.
// Excluded records (self-relationships, unknown endpoints, duplicates) are
// not present. The returned slice must not be modified.
func (g *Graph) Relationships() []Relationship { return g.relationships }

// RelationshipCount returns the number of accepted relationships.
func (g *Graph) RelationshipCount() int { return len(g.relationships) }

// Parents returns the IDs of the person's recorded parents in sorted order.
// Returns nil if the person has no parents or doesn't exist. The returned
// slice must not be modified.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Children returns the IDs of the person's recorded children in sorted order.
// Returns nil if the person has no children or doesn't exist. The returned
// slice must not be modified.
func (g *Graph) Children(id string) []string { return g.children[id] }

// Spouses returns the IDs of the person's spouses in sorted order.
func (g *Graph) Spouses(id string) []string { return g.spouses[id] }

// Siblings returns the IDs of the person's siblings in sorted order.
func (g *Graph) Siblings(id string) []string { return g.siblings[id] }

// ParentCount returns the number of recorded parents for the person.
// Returns 0 if the person doesn't exist.
func (g *Graph) ParentCount(id string) int { return len(g.parents[id]) }

// String returns a short summary for logging.
func (g *Graph) String() string {
	return fmt.Sprintf("graph(%d persons, %d relationships)", len(g.persons), len(g.relationships))
}
