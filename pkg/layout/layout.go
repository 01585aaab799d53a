// Package layout computes the render model for a family graph: a
// collision-free 2D position for every person, routed relationship edges,
// and the viewport transform used to map model space to the screen.
//
// Layout is a pure function of its inputs - identical Graph and generation
// assignments always yield byte-identical positions. Every ordering in the
// pipeline uses person or relationship IDs as the tiebreak, and no map is
// iterated without sorting its keys first.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/matzehuels/kintree/pkg/tree"
)

// =============================================================================
// Config - Layout Geometry
// =============================================================================

// Config holds the fixed geometry of the layered layout.
// All values are in model-space units (pixels at zoom 1).
type Config struct {
	NodeWidth   float64 `json:"node_width" toml:"node_width"`
	NodeHeight  float64 `json:"node_height" toml:"node_height"`
	GapX        float64 `json:"gap_x" toml:"gap_x"`               // horizontal gap between node boxes in a level
	LevelHeight float64 `json:"level_height" toml:"level_height"` // vertical distance between level centers
	TopMargin   float64 `json:"top_margin" toml:"top_margin"`     // y of the first level's centers
	AxisX       float64 `json:"axis_x" toml:"axis_x"`             // vertical axis every level is centered on
	MinZoom     float64 `json:"min_zoom" toml:"min_zoom"`
	MaxZoom     float64 `json:"max_zoom" toml:"max_zoom"`
}

// DefaultConfig returns the standard geometry: 80x80 nodes on a 150 unit
// horizontal pitch, 200 units between generations.
func DefaultConfig() Config {
	return Config{
		NodeWidth:   80,
		NodeHeight:  80,
		GapX:        70,
		LevelHeight: 200,
		TopMargin:   100,
		AxisX:       0,
		MinZoom:     0.1,
		MaxZoom:     5.0,
	}
}

// SpacingX returns the center-to-center horizontal pitch within a level.
func (c Config) SpacingX() float64 { return c.NodeWidth + c.GapX }

// =============================================================================
// Render Model
// =============================================================================

// Point is a location in model or screen space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Box is an axis-aligned bounding box. Top < Bottom: y grows downward.
type Box struct {
	Left   float64 `json:"left" bson:"left"`
	Top    float64 `json:"top" bson:"top"`
	Right  float64 `json:"right" bson:"right"`
	Bottom float64 `json:"bottom" bson:"bottom"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Box) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Top && p.Y <= b.Bottom
}

// Width returns the horizontal span of the box.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the vertical span of the box.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// RenderNode is one positioned person in the render model.
type RenderNode struct {
	PersonID   string  `json:"person_id" bson:"person_id"`
	Label      string  `json:"label" bson:"label"`
	X          float64 `json:"x" bson:"x"` // model-space center
	Y          float64 `json:"y" bson:"y"`
	Bounds     Box     `json:"bounds" bson:"bounds"`
	Generation int     `json:"generation" bson:"generation"`
}

// RenderEdge is one routed relationship in the render model. Points has at
// least two entries; Arrow is true for parent→child edges, drawn at the
// child end.
type RenderEdge struct {
	RelationshipID string  `json:"relationship_id" bson:"relationship_id"`
	Kind           string  `json:"kind" bson:"kind"`
	Points         []Point `json:"points" bson:"points"`
	Arrow          bool    `json:"arrow,omitempty" bson:"arrow,omitempty"`
}

// Model is the computed set of node positions and edge paths, independent
// of the viewport. Nodes are in draw order: levels top to bottom, left to
// right within a level. The model is immutable once built; any data change
// produces a fresh model.
type Model struct {
	Nodes  []RenderNode `json:"nodes" bson:"nodes"`
	Edges  []RenderEdge `json:"edges" bson:"edges"`
	Bounds Box          `json:"bounds" bson:"bounds"`

	byID map[string]int // person ID -> index into Nodes
}

// Node returns the render node for the person and true, or a zero node and
// false if the person is not in the model.
func (m *Model) Node(personID string) (RenderNode, bool) {
	if i, ok := m.byID[personID]; ok {
		return m.Nodes[i], true
	}
	return RenderNode{}, false
}

// HitTest returns the person whose transformed bounds contain the screen
// point, or "" and false if the point hits nothing. When nodes overlap
// (possible across levels at extreme pan positions), the topmost node wins:
// the one drawn last.
func (m *Model) HitTest(v ViewportState, screen Point) (string, bool) {
	p := v.ToModel(screen)
	for i := len(m.Nodes) - 1; i >= 0; i-- {
		if m.Nodes[i].Bounds.Contains(p) {
			return m.Nodes[i].PersonID, true
		}
	}
	return "", false
}

// =============================================================================
// Layout Engine
// =============================================================================

// Build computes the render model for a graph and its generation map.
//
// Persons are grouped into levels by ascending generation (top to bottom),
// ordered within each level by the barycenter heuristic, and spaced on a
// fixed pitch with each level centered on the configured vertical axis.
// Edges are routed afterwards: parent→child as a direct two-point path (or
// a three-point elbow across generation gaps), spouse and sibling edges as
// horizontal connectors within a level.
func Build(g *tree.Graph, gens map[string]int, cfg Config) *Model {
	levels, levelOf := groupLevels(g, gens)
	ordered := OrderLevels(g, levels)

	m := &Model{byID: make(map[string]int, g.PersonCount())}

	for li, order := range ordered {
		y := cfg.TopMargin + float64(li)*cfg.LevelHeight
		startX := cfg.AxisX - float64(len(order)-1)/2*cfg.SpacingX()
		for i, id := range order {
			x := startX + float64(i)*cfg.SpacingX()
			p, _ := g.Person(id)
			n := RenderNode{
				PersonID: id,
				Label:    p.DisplayName(),
				X:        x,
				Y:        y,
				Bounds: Box{
					Left:   x - cfg.NodeWidth/2,
					Top:    y - cfg.NodeHeight/2,
					Right:  x + cfg.NodeWidth/2,
					Bottom: y + cfg.NodeHeight/2,
				},
				Generation: gens[id],
			}
			m.byID[id] = len(m.Nodes)
			m.Nodes = append(m.Nodes, n)
		}
	}

	for _, r := range g.Relationships() {
		if e, ok := routeEdge(m, levelOf, r); ok {
			m.Edges = append(m.Edges, e)
		}
	}

	m.Bounds = modelBounds(m.Nodes)
	return m
}

// groupLevels buckets persons by generation, normalized so the smallest
// generation maps to level 0. Each level is sorted by ID.
func groupLevels(g *tree.Graph, gens map[string]int) (levels [][]string, levelOf map[string]int) {
	levelOf = make(map[string]int, len(gens))
	if len(gens) == 0 {
		return nil, levelOf
	}

	min := tree.MinGeneration(gens)
	max := min
	for _, gen := range gens {
		if gen > max {
			max = gen
		}
	}

	levels = make([][]string, max-min+1)
	for _, id := range g.PersonIDs() {
		gen, ok := gens[id]
		if !ok {
			continue
		}
		li := gen - min
		levelOf[id] = li
		levels[li] = append(levels[li], id)
	}
	for li := range levels {
		slices.Sort(levels[li])
	}
	return levels, levelOf
}

// routeEdge builds the polyline for one relationship. Both endpoints are
// guaranteed present: Build only receives relationships that survived the
// graph build.
func routeEdge(m *Model, levelOf map[string]int, r tree.Relationship) (RenderEdge, bool) {
	from, ok := m.Node(r.From)
	if !ok {
		return RenderEdge{}, false
	}
	to, ok := m.Node(r.To)
	if !ok {
		return RenderEdge{}, false
	}

	e := RenderEdge{RelationshipID: r.ID, Kind: r.Kind}
	switch r.Kind {
	case tree.KindParent:
		e.Arrow = true
		start := Point{from.X, from.Bounds.Bottom}
		end := Point{to.X, to.Bounds.Top}
		if gap := levelOf[r.To] - levelOf[r.From]; gap > 1 || gap < 0 {
			// Non-adjacent levels (missing-ancestor gap or cyclic data):
			// elbow at the child's x halfway down.
			elbow := Point{end.X, (start.Y + end.Y) / 2}
			e.Points = []Point{start, elbow, end}
		} else {
			e.Points = []Point{start, end}
		}
	case tree.KindSpouse, tree.KindSibling:
		if levelOf[r.From] == levelOf[r.To] {
			// Short horizontal connector between the facing box edges.
			left, right := from, to
			if right.X < left.X {
				left, right = right, left
			}
			e.Points = []Point{{left.Bounds.Right, left.Y}, {right.Bounds.Left, right.Y}}
		} else {
			// Adversarial data can leave spouses unpinned (see the
			// generation assigner's round cap); connect centers.
			e.Points = []Point{{from.X, from.Y}, {to.X, to.Y}}
		}
	default:
		return RenderEdge{}, false
	}
	return e, true
}

func modelBounds(nodes []RenderNode) Box {
	if len(nodes) == 0 {
		return Box{}
	}
	b := nodes[0].Bounds
	for _, n := range nodes[1:] {
		if n.Bounds.Left < b.Left {
			b.Left = n.Bounds.Left
		}
		if n.Bounds.Top < b.Top {
			b.Top = n.Bounds.Top
		}
		if n.Bounds.Right > b.Right {
			b.Right = n.Bounds.Right
		}
		if n.Bounds.Bottom > b.Bottom {
			b.Bottom = n.Bounds.Bottom
		}
	}
	return b
}

// =============================================================================
// Model Serialization API
// =============================================================================

// MarshalModel serializes a render model to pretty-printed JSON bytes.
func MarshalModel(m *Model) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalModel deserializes JSON bytes into a render model and rebuilds
// the person index.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	m.byID = make(map[string]int, len(m.Nodes))
	for i, n := range m.Nodes {
		m.byID[n.PersonID] = i
	}
	return &m, nil
}

// WriteModelFile writes a render model to a JSON file.
func WriteModelFile(m *Model, path string) error {
	data, err := MarshalModel(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadModelFile reads a render model from a JSON file.
func ReadModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalModel(data)
}
