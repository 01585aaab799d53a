// Package pkg contains the public libraries of kintree, a family-tree
// layout engine.
//
// The packages are organized in layers. At the bottom, [tree] defines the
// domain model: persons, relationships between them, and the graph built
// from a validated snapshot, including generation assignment. On top of
// that, [layout] turns an assigned graph into collision-free 2D geometry
// with ordered levels, routed edges, and a pannable, zoomable viewport.
// [render] serializes models and graphs to SVG and Graphviz DOT.
//
// The remaining packages are infrastructure. [store] persists snapshots
// behind memory, file, and MongoDB backends and publishes change
// notifications. [cache] provides content-addressed caching of computed
// models and rendered artifacts with file and Redis backends. [pipeline]
// ties everything together: it runs snapshot through build, layout, and
// render with caching, and can follow a store for live recomputation.
// [errors] carries the structured error type used across all of them, and
// [buildinfo] holds version metadata injected at build time.
//
// Typical usage goes through [pipeline]:
//
//	runner := pipeline.NewRunner(cache.NewFileCache(dir), nil, logger)
//	result, err := runner.Execute(ctx, snap, pipeline.Options{
//		Formats: []string{pipeline.FormatSVG},
//	})
//
// For finer control, call the layers directly: tree.Build, then
// tree.AssignGenerations, then layout.Build, then render.ModelSVG.
package pkg
