package layout

import (
	"bytes"
	"math"
	"testing"

	"github.com/matzehuels/kintree/pkg/tree"
)

func buildGraph(t *testing.T, persons []string, rels ...tree.Relationship) (*tree.Graph, map[string]int) {
	t.Helper()
	s := tree.Snapshot{}
	for _, id := range persons {
		s.Persons = append(s.Persons, tree.Person{ID: id, FirstName: id, LastName: "Example"})
	}
	s.Relationships = rels
	g, errs := tree.Build(s)
	if len(errs) != 0 {
		t.Fatalf("Build() returned errors: %v", errs)
	}
	gens, err := tree.AssignGenerations(g)
	if err != nil {
		t.Fatalf("AssignGenerations() error: %v", err)
	}
	return g, gens
}

func TestBuild_FamilyTriangle(t *testing.T) {
	// Spouses a and b, child c: c sits below and between its parents.
	g, gens := buildGraph(t, []string{"a", "b", "c"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "a", To: "c"},
		tree.Relationship{ID: "r2", Kind: "parent", From: "b", To: "c"},
		tree.Relationship{ID: "r3", Kind: "spouse", From: "a", To: "b"},
	)
	cfg := DefaultConfig()
	m := Build(g, gens, cfg)

	na, _ := m.Node("a")
	nb, _ := m.Node("b")
	nc, _ := m.Node("c")

	if nc.Y <= na.Y || nc.Y <= nb.Y {
		t.Errorf("c (y=%v) should be below a (y=%v) and b (y=%v)", nc.Y, na.Y, nb.Y)
	}
	lo, hi := math.Min(na.X, nb.X), math.Max(na.X, nb.X)
	if nc.X < lo || nc.X > hi {
		t.Errorf("c (x=%v) should be between a (x=%v) and b (x=%v)", nc.X, na.X, nb.X)
	}
	if na.Generation != 0 || nb.Generation != 0 || nc.Generation != 1 {
		t.Errorf("generations = a:%d b:%d c:%d, want 0 0 1", na.Generation, nb.Generation, nc.Generation)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	g, gens := buildGraph(t, []string{"a", "b", "c", "d", "e"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "a", To: "c"},
		tree.Relationship{ID: "r2", Kind: "parent", From: "b", To: "d"},
		tree.Relationship{ID: "r3", Kind: "parent", From: "b", To: "e"},
		tree.Relationship{ID: "r4", Kind: "spouse", From: "a", To: "b"},
	)
	cfg := DefaultConfig()

	m1 := Build(g, gens, cfg)
	m2 := Build(g, gens, cfg)

	j1, err := MarshalModel(m1)
	if err != nil {
		t.Fatalf("MarshalModel() error: %v", err)
	}
	j2, err := MarshalModel(m2)
	if err != nil {
		t.Fatalf("MarshalModel() error: %v", err)
	}
	if !bytes.Equal(j1, j2) {
		t.Error("two runs on identical input produced different models")
	}
}

func TestBuild_NoOverlapWithinLevel(t *testing.T) {
	g, gens := buildGraph(t, []string{"p", "c1", "c2", "c3", "c4", "c5"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "p", To: "c1"},
		tree.Relationship{ID: "r2", Kind: "parent", From: "p", To: "c2"},
		tree.Relationship{ID: "r3", Kind: "parent", From: "p", To: "c3"},
		tree.Relationship{ID: "r4", Kind: "parent", From: "p", To: "c4"},
		tree.Relationship{ID: "r5", Kind: "parent", From: "p", To: "c5"},
	)
	cfg := DefaultConfig()
	m := Build(g, gens, cfg)

	for i, n1 := range m.Nodes {
		for _, n2 := range m.Nodes[i+1:] {
			if n1.Generation != n2.Generation {
				continue
			}
			if d := math.Abs(n1.X - n2.X); d < cfg.SpacingX() {
				t.Errorf("|x(%s) - x(%s)| = %v, want >= %v", n1.PersonID, n2.PersonID, d, cfg.SpacingX())
			}
		}
	}
}

func TestBuild_LevelsCenteredOnAxis(t *testing.T) {
	// One node on the top level, three below: both levels share a center.
	g, gens := buildGraph(t, []string{"p", "c1", "c2", "c3"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "p", To: "c1"},
		tree.Relationship{ID: "r2", Kind: "parent", From: "p", To: "c2"},
		tree.Relationship{ID: "r3", Kind: "parent", From: "p", To: "c3"},
	)
	cfg := DefaultConfig()
	m := Build(g, gens, cfg)

	np, _ := m.Node("p")
	if np.X != cfg.AxisX {
		t.Errorf("single top node x = %v, want axis %v", np.X, cfg.AxisX)
	}

	var sum float64
	for _, id := range []string{"c1", "c2", "c3"} {
		n, _ := m.Node(id)
		sum += n.X
	}
	if mean := sum / 3; math.Abs(mean-cfg.AxisX) > 1e-9 {
		t.Errorf("lower level mean x = %v, want centered on axis %v", mean, cfg.AxisX)
	}
}

func TestBuild_DisconnectedComponentsDoNotOverlap(t *testing.T) {
	g, gens := buildGraph(t, []string{"a", "b", "d"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "b", To: "d"},
	)
	cfg := DefaultConfig()
	m := Build(g, gens, cfg)

	na, _ := m.Node("a")
	nb, _ := m.Node("b")
	if na.Generation != 0 || nb.Generation != 0 {
		t.Fatalf("generations = a:%d b:%d, want both 0", na.Generation, nb.Generation)
	}
	if d := math.Abs(na.X - nb.X); d < cfg.SpacingX() {
		t.Errorf("|x(a) - x(b)| = %v, want >= %v", d, cfg.SpacingX())
	}
}

func TestBuild_ParentEdgeTwoPoints(t *testing.T) {
	g, gens := buildGraph(t, []string{"a", "b"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
	)
	m := Build(g, gens, DefaultConfig())

	if len(m.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(m.Edges))
	}
	e := m.Edges[0]
	if !e.Arrow {
		t.Error("parent edge should carry an arrow")
	}
	if len(e.Points) != 2 {
		t.Errorf("adjacent-level parent edge has %d points, want 2", len(e.Points))
	}
	na, _ := m.Node("a")
	nb, _ := m.Node("b")
	if e.Points[0].Y != na.Bounds.Bottom || e.Points[len(e.Points)-1].Y != nb.Bounds.Top {
		t.Errorf("edge should run from parent bottom to child top, got %v", e.Points)
	}
}

func TestBuild_ParentEdgeElbowAcrossGap(t *testing.T) {
	// b is pulled two generations down via a second parent chain, so the
	// a→b edge spans non-adjacent levels and routes with an elbow.
	g, gens := buildGraph(t, []string{"a", "b", "m", "n"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
		tree.Relationship{ID: "r2", Kind: "parent", From: "a", To: "m"},
		tree.Relationship{ID: "r3", Kind: "parent", From: "m", To: "n"},
		tree.Relationship{ID: "r4", Kind: "parent", From: "n", To: "b"},
	)
	m := Build(g, gens, DefaultConfig())

	var ab RenderEdge
	for _, e := range m.Edges {
		if e.RelationshipID == "r1" {
			ab = e
		}
	}
	if len(ab.Points) != 3 {
		t.Errorf("gap-spanning parent edge has %d points, want 3 (elbow)", len(ab.Points))
	}
}

func TestBuild_SpouseConnector(t *testing.T) {
	g, gens := buildGraph(t, []string{"a", "b"},
		tree.Relationship{ID: "r1", Kind: "spouse", From: "a", To: "b"},
	)
	m := Build(g, gens, DefaultConfig())

	if len(m.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(m.Edges))
	}
	e := m.Edges[0]
	if e.Arrow {
		t.Error("spouse edge should not carry an arrow")
	}
	if len(e.Points) != 2 {
		t.Fatalf("spouse connector has %d points, want 2", len(e.Points))
	}
	if e.Points[0].Y != e.Points[1].Y {
		t.Errorf("spouse connector should be horizontal, got %v", e.Points)
	}
	// Connector spans the gap between the facing box edges, not the centers.
	na, _ := m.Node("a")
	nb, _ := m.Node("b")
	left, right := na, nb
	if right.X < left.X {
		left, right = right, left
	}
	if e.Points[0].X != left.Bounds.Right || e.Points[1].X != right.Bounds.Left {
		t.Errorf("connector = %v, want from %v to %v", e.Points, left.Bounds.Right, right.Bounds.Left)
	}
}

func TestBuild_EmptyGraph(t *testing.T) {
	g, gens := buildGraph(t, nil)
	m := Build(g, gens, DefaultConfig())

	if len(m.Nodes) != 0 || len(m.Edges) != 0 {
		t.Errorf("empty graph produced %d nodes, %d edges", len(m.Nodes), len(m.Edges))
	}
}

func TestModelRoundTrip(t *testing.T) {
	g, gens := buildGraph(t, []string{"a", "b"},
		tree.Relationship{ID: "r1", Kind: "parent", From: "a", To: "b"},
	)
	m := Build(g, gens, DefaultConfig())

	data, err := MarshalModel(m)
	if err != nil {
		t.Fatalf("MarshalModel() error: %v", err)
	}
	got, err := UnmarshalModel(data)
	if err != nil {
		t.Fatalf("UnmarshalModel() error: %v", err)
	}

	if len(got.Nodes) != len(m.Nodes) {
		t.Fatalf("round trip nodes = %d, want %d", len(got.Nodes), len(m.Nodes))
	}
	// The person index must be rebuilt so hit-testing still works.
	if _, ok := got.Node("a"); !ok {
		t.Error("Node(a) not found after round trip")
	}
}
