package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kintree/pkg/tree"
)

// DOTOptions configures DOT export.
type DOTOptions struct {
	// Detailed includes birth and death dates in node labels.
	// When false, only the display name is shown.
	Detailed bool
}

// ToDOT converts a family graph to Graphviz DOT format. Parent edges are
// directed top to bottom; spouse and sibling records become undirected
// dashed connectors that do not influence ranking, so Graphviz's own
// hierarchy roughly matches generation order.
func ToDOT(g *tree.Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph family {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, id := range g.PersonIDs() {
		p, _ := g.Person(id)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", id, fmtLabel(p, opts.Detailed))
	}

	buf.WriteString("\n")
	for _, r := range g.Relationships() {
		switch r.Kind {
		case tree.KindParent:
			fmt.Fprintf(&buf, "  %q -> %q;\n", r.From, r.To)
		case tree.KindSpouse:
			fmt.Fprintf(&buf, "  %q -> %q [dir=none, style=dashed, constraint=false];\n", r.From, r.To)
		case tree.KindSibling:
			fmt.Fprintf(&buf, "  %q -> %q [dir=none, style=dotted, constraint=false];\n", r.From, r.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(p tree.Person, detailed bool) string {
	label := p.DisplayName()
	if !detailed {
		return label
	}

	var parts []string
	if p.BirthDate != "" {
		parts = append(parts, "b. "+p.BirthDate)
	}
	if p.DeathDate != "" {
		parts = append(parts, "d. "+p.DeathDate)
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz SVG root element so the viewBox
// starts at the origin and the pixel size matches the viewBox size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
