// Package render converts family graphs and layout models into exportable
// artifacts.
//
// Two export paths are supported:
//   - DOT/Graphviz: [ToDOT] emits the relationship graph in DOT format and
//     [RenderSVG] rasterizes it through Graphviz. Graphviz computes its own
//     positions, so this path is useful for debugging the graph structure
//     independently of the layout engine.
//   - Direct SVG: [ModelSVG] draws a computed [layout.Model] exactly as the
//     interactive viewer would place it, nodes and routed edges at their
//     model coordinates.
package render
