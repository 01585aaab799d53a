package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kintree/pkg/cache"
	"github.com/matzehuels/kintree/pkg/pipeline"
	"github.com/matzehuels/kintree/pkg/tree"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file path (or base path for multiple formats)
	formats  []string // output formats: "svg", "dot", "json"
	engine   string   // SVG engine: "native" or "graphviz"
	detailed bool     // include dates in DOT labels
	refresh  bool     // bypass the layout cache
	noCache  bool     // disable caching entirely
	config   string   // config file path
}

// newRenderCmd creates the render command for generating layout artifacts
// from a snapshot file.
func newRenderCmd() *cobra.Command {
	var formatsStr string
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a record snapshot to SVG, DOT, or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json (comma-separated)")
	cmd.Flags().StringVar(&opts.engine, "engine", pipeline.EngineNative, "SVG rendering engine: native or graphviz")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include birth and death dates in DOT labels")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().StringVar(&opts.config, "config", "", "config file (default ~/.config/kintree/config.toml)")

	return cmd
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// basePath derives the base output path from the output and input paths.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// runRender loads the snapshot, runs the pipeline, and writes each
// requested artifact.
func runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := LoadConfig(opts.config)
	if err != nil {
		return err
	}

	snap, err := tree.ReadSnapshotFile(input)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %s: %d persons, %d relationships", input, len(snap.Persons), len(snap.Relationships))

	var c cache.Cache
	if !opts.noCache {
		if c, err = openCache(ctx, cfg); err != nil {
			return err
		}
	}
	runner := pipeline.NewRunner(c, nil, logger)
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, snap, pipeline.Options{
		Config:   cfg.Layout,
		Formats:  opts.formats,
		Engine:   opts.engine,
		Detailed: opts.detailed,
		Refresh:  opts.refresh,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Computed layout: %d nodes, %d edges", len(result.Model.Nodes), len(result.Model.Edges)))

	for _, msg := range result.DataErrors {
		printWarning("excluded: %s", msg)
	}

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := opts.output
		if path == "" || len(opts.formats) > 1 {
			path = base + "." + format
		}
		if err := os.WriteFile(path, result.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	printSuccess("Rendered %d format(s)", len(opts.formats))
	return nil
}
