package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kintree/pkg/cache"
	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/layout"
	"github.com/matzehuels/kintree/pkg/render"
	"github.com/matzehuels/kintree/pkg/tree"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, the logger, and the last
// successfully computed model. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	mu       sync.Mutex
	lastGood *layout.Model
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → generations → layout → render
// pipeline with caching.
//
// Excluded records (self references, unknown persons, duplicates) are
// reported in Result.DataErrors without failing the run. If generation
// assignment fails, the last successfully computed model is returned in
// the result alongside the error, so viewers can keep showing a stale
// layout instead of going blank.
func (r *Runner) Execute(ctx context.Context, snap tree.Snapshot, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	snap.Normalize()
	snapData, err := tree.MarshalSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("serialize snapshot: %w", err)
	}

	result := &Result{
		SnapshotHash: cache.Hash(snapData),
		Artifacts:    make(map[string][]byte),
	}

	// Stage 1: Build
	buildStart := time.Now()
	g, dataErrs := tree.Build(snap)
	for _, e := range dataErrs {
		result.DataErrors = append(result.DataErrors, e.Error())
	}
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.PersonCount = g.PersonCount()
	result.Stats.RelationshipCount = g.RelationshipCount()

	opts.Logger.Info("built graph",
		"persons", g.PersonCount(),
		"relationships", g.RelationshipCount(),
		"excluded", len(result.DataErrors),
		"duration", result.Stats.BuildTime)

	// Stages 2+3: Generations and Layout
	layoutStart := time.Now()
	model, modelHit, err := r.computeModel(ctx, g, result.SnapshotHash, opts)
	if err != nil {
		result.Model = r.LastGoodModel()
		return result, fmt.Errorf("layout: %w", err)
	}
	result.Model = model
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.ModelHit = modelHit
	r.setLastGood(model)

	opts.Logger.Info("computed layout",
		"nodes", len(model.Nodes),
		"edges", len(model.Edges),
		"cached", modelHit,
		"duration", result.Stats.LayoutTime)

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.renderArtifacts(ctx, model, g, opts)
	if err != nil {
		return result, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComputeModel runs only the build and layout stages, skipping artifact
// rendering. Interactive viewers use this on every data change.
func (r *Runner) ComputeModel(ctx context.Context, snap tree.Snapshot, opts Options) (*layout.Model, error) {
	result, err := r.Execute(ctx, snap, Options{
		Config:  opts.Config,
		Formats: []string{FormatJSON},
		Refresh: opts.Refresh,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return result.Model, nil
}

// computeModel assigns generations and builds the render model, keyed in
// the cache by the snapshot hash and layout geometry.
func (r *Runner) computeModel(ctx context.Context, g *tree.Graph, snapshotHash string, opts Options) (*layout.Model, bool, error) {
	cacheKey := r.Keyer.ModelKey(snapshotHash, opts.ModelKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if model, err := layout.UnmarshalModel(data); err == nil {
				return model, true, nil
			}
			// Undecodable entry, recompute.
		}
	}

	gens, err := tree.AssignGenerations(g)
	if err != nil {
		return nil, false, err
	}
	model := layout.Build(g, gens, opts.Config)

	if data, err := layout.MarshalModel(model); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLModel)
	}
	return model, false, nil
}

// renderArtifacts produces every requested format, each cached under the
// model content hash.
func (r *Runner) renderArtifacts(ctx context.Context, model *layout.Model, g *tree.Graph, opts Options) (map[string][]byte, bool, error) {
	modelData, err := layout.MarshalModel(model)
	if err != nil {
		return nil, false, fmt.Errorf("serialize model for cache key: %w", err)
	}
	modelHash := cache.Hash(modelData)

	allCached := true
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(modelHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit && !opts.Refresh {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	artifacts = make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		switch format {
		case FormatSVG:
			if opts.Engine == EngineGraphviz {
				dot := render.ToDOT(g, render.DOTOptions{Detailed: opts.Detailed})
				data, err = render.RenderSVG(ctx, dot)
				if err != nil {
					return nil, false, fmt.Errorf("graphviz render: %w", err)
				}
			} else {
				data = render.ModelSVG(model)
			}
		case FormatDOT:
			data = []byte(render.ToDOT(g, render.DOTOptions{Detailed: opts.Detailed}))
		case FormatJSON:
			data = modelData
		default:
			return nil, false, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
		}
		artifacts[format] = data
		cacheKey := r.Keyer.ArtifactKey(modelHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}
	return artifacts, false, nil
}

// LastGoodModel returns the most recent successfully computed model, or
// nil if no run has succeeded yet.
func (r *Runner) LastGoodModel() *layout.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastGood
}

func (r *Runner) setLastGood(m *layout.Model) {
	r.mu.Lock()
	r.lastGood = m
	r.mu.Unlock()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
