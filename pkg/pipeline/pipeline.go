// Package pipeline provides the core layout pipeline for kintree.
//
// This package implements the complete build → generations → layout →
// render pipeline shared by the CLI, the HTTP API, and the TUI viewer.
// Centralizing it keeps behavior identical across entry points.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Build: Validate the record snapshot into a relationship graph
//  2. Generations: Assign a generation index to every person
//  3. Layout: Compute collision-free positions and routed edges
//  4. Render: Generate output artifacts (SVG, DOT, JSON)
//
// The first three stages are pure functions of the snapshot, so their
// combined result is cached under the snapshot content hash.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, snapshot, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kintree/pkg/cache"
	"github.com/matzehuels/kintree/pkg/layout"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// SVG rendering engines. The native engine draws the computed render
// model directly, so SVG geometry matches the interactive viewer. The
// graphviz engine hands the DOT export to Graphviz and lets it choose
// its own layout.
const (
	EngineNative   = "native"
	EngineGraphviz = "graphviz"
)

// ValidEngines is the set of supported SVG rendering engines.
var ValidEngines = map[string]bool{
	EngineNative:   true,
	EngineGraphviz: true,
}

// Options contains all configuration for the layout pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options
	Config layout.Config `json:"config"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Engine   string   `json:"engine,omitempty"`   // SVG engine: "native" (default) or "graphviz"
	Detailed bool     `json:"detailed,omitempty"` // Include dates in DOT labels

	// Refresh bypasses the cache and recomputes everything.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Model is the computed render model.
	Model *layout.Model

	// SnapshotHash is the content hash of the input snapshot.
	SnapshotHash string

	// DataErrors lists records excluded during graph construction.
	// A non-empty list does not fail the run; the layout covers the
	// records that survived validation.
	DataErrors []string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	PersonCount       int
	RelationshipCount int
	BuildTime         time.Duration
	LayoutTime        time.Duration
	RenderTime        time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ModelHit  bool // Whether the render model came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks fields and applies defaults. This method
// is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Config == (layout.Config{}) {
		o.Config = layout.DefaultConfig()
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Engine == "" {
		o.Engine = EngineNative
	}
	if !ValidEngines[o.Engine] {
		return fmt.Errorf("invalid engine: %q (must be one of: native, graphviz)", o.Engine)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ModelKeyOpts returns cache key options for the render model.
func (o *Options) ModelKeyOpts() cache.ModelKeyOpts {
	return cache.ModelKeyOpts{
		NodeWidth:   o.Config.NodeWidth,
		NodeHeight:  o.Config.NodeHeight,
		GapX:        o.Config.GapX,
		LevelHeight: o.Config.LevelHeight,
		TopMargin:   o.Config.TopMargin,
		AxisX:       o.Config.AxisX,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Engine:   o.Engine,
		Detailed: o.Detailed,
	}
}
