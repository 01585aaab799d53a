package layout

// ViewportState is the pan/zoom mapping between model space and screen
// space: screen = model * Zoom + Pan. It is a small value type; the
// interaction handlers return updated copies, which keeps re-rendering
// idempotent - applying the same state twice draws the same frame.
type ViewportState struct {
	PanX    float64 `json:"pan_x" bson:"pan_x"`
	PanY    float64 `json:"pan_y" bson:"pan_y"`
	Zoom    float64 `json:"zoom" bson:"zoom"`
	MinZoom float64 `json:"min_zoom" bson:"min_zoom"`
	MaxZoom float64 `json:"max_zoom" bson:"max_zoom"`
}

// NewViewport returns a viewport at zoom 1 with no pan, using the zoom
// bounds from cfg.
func NewViewport(cfg Config) ViewportState {
	return ViewportState{Zoom: 1, MinZoom: cfg.MinZoom, MaxZoom: cfg.MaxZoom}
}

// ToScreen maps a model-space point to screen space.
func (v ViewportState) ToScreen(p Point) Point {
	return Point{p.X*v.Zoom + v.PanX, p.Y*v.Zoom + v.PanY}
}

// ToModel maps a screen-space point back to model space (hit-testing).
func (v ViewportState) ToModel(p Point) Point {
	return Point{(p.X - v.PanX) / v.Zoom, (p.Y - v.PanY) / v.Zoom}
}

// TransformBox maps a model-space box to screen space.
func (v ViewportState) TransformBox(b Box) Box {
	tl := v.ToScreen(Point{b.Left, b.Top})
	br := v.ToScreen(Point{b.Right, b.Bottom})
	return Box{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// Pan shifts the viewport by a screen-space delta. Pan is unclamped: the
// canvas is unbounded.
func (v ViewportState) Pan(dx, dy float64) ViewportState {
	v.PanX += dx
	v.PanY += dy
	return v
}

// ZoomAt applies a zoom step anchored at the given screen point: the model
// point under the cursor before the step stays under it afterwards. The
// resulting zoom is clamped to [MinZoom, MaxZoom]; out-of-range factors are
// absorbed silently rather than surfaced as errors.
func (v ViewportState) ZoomAt(screen Point, factor float64) ViewportState {
	anchor := v.ToModel(screen)

	v.Zoom = clamp(v.Zoom*factor, v.MinZoom, v.MaxZoom)

	// Solve screen = anchor*zoom + pan for the new pan.
	v.PanX = screen.X - anchor.X*v.Zoom
	v.PanY = screen.Y - anchor.Y*v.Zoom
	return v
}

func clamp(x, lo, hi float64) float64 {
	if lo > 0 && x < lo {
		return lo
	}
	if hi > 0 && x > hi {
		return hi
	}
	return x
}
