package render

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/kintree/pkg/layout"
	"github.com/matzehuels/kintree/pkg/tree"
)

// SVGOption configures direct model rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	margin    float64
	fontSize  float64
	nodeFill  string
	lineColor string
}

// WithMargin sets the padding around the model bounds in SVG units.
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// WithFontSize sets the label font size in SVG units.
func WithFontSize(s float64) SVGOption { return func(r *svgRenderer) { r.fontSize = s } }

// ModelSVG draws a computed layout model as a standalone SVG document.
// Nodes and edges keep their model coordinates; the viewBox is shifted so
// the whole drawing is visible. Output is deterministic for a given model.
func ModelSVG(m *layout.Model, opts ...SVGOption) []byte {
	r := svgRenderer{
		margin:    40,
		fontSize:  13,
		nodeFill:  "#ffffff",
		lineColor: "#444444",
	}
	for _, opt := range opts {
		opt(&r)
	}

	left := m.Bounds.Left - r.margin
	top := m.Bounds.Top - r.margin
	w := m.Bounds.Width() + 2*r.margin
	h := m.Bounds.Height() + 2*r.margin
	if w <= 0 || h <= 0 {
		w, h = 2*r.margin, 2*r.margin
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		left, top, w, h, w, h)
	fmt.Fprintf(&buf, `  <defs><marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="7" markerHeight="7" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker></defs>`+"\n",
		r.lineColor)

	// Edges behind nodes.
	for _, e := range m.Edges {
		r.renderEdge(&buf, e)
	}
	for _, n := range m.Nodes {
		r.renderNode(&buf, n)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderEdge(buf *bytes.Buffer, e layout.RenderEdge) {
	var points bytes.Buffer
	for i, p := range e.Points {
		if i > 0 {
			points.WriteByte(' ')
		}
		fmt.Fprintf(&points, "%.1f,%.1f", p.X, p.Y)
	}

	dash := ""
	switch e.Kind {
	case tree.KindSpouse:
		dash = ` stroke-dasharray="6,3"`
	case tree.KindSibling:
		dash = ` stroke-dasharray="2,3"`
	}
	marker := ""
	if e.Arrow {
		marker = ` marker-end="url(#arrow)"`
	}
	fmt.Fprintf(buf, `  <polyline id="edge-%s" points="%s" fill="none" stroke="%s" stroke-width="1.5"%s%s/>`+"\n",
		escapeAttr(e.RelationshipID), points.String(), r.lineColor, dash, marker)
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, n layout.RenderNode) {
	b := n.Bounds
	fmt.Fprintf(buf, `  <rect id="node-%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" fill="%s" stroke="%s" stroke-width="1.5"/>`+"\n",
		escapeAttr(n.PersonID), b.Left, b.Top, b.Width(), b.Height(), r.nodeFill, r.lineColor)
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="%.0f">%s</text>`+"\n",
		n.X, n.Y, r.fontSize, escapeText(n.Label))
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		switch c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		switch c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}
