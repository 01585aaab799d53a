package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kintree/pkg/layout"
	"github.com/matzehuels/kintree/pkg/pipeline"
	"github.com/matzehuels/kintree/pkg/tree"
)

// Terminal cells are roughly twice as tall as wide; these factors convert
// screen-space pixels into cells so zoom feels uniform.
const (
	cellPxX = 10.0
	cellPxY = 20.0

	panStep    = 40.0 // screen pixels per pan key press
	zoomInStep = 1.1
	zoomOutLim = 0.9
)

// newViewCmd creates the view command, an interactive terminal viewer
// with pan, zoom, and a crosshair probe.
func newViewCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Explore a family tree interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), args[0], configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/kintree/config.toml)")
	return cmd
}

func runView(ctx context.Context, input, configPath string) error {
	logger := loggerFromContext(ctx)
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	snap, err := tree.ReadSnapshotFile(input)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(nil, nil, logger)
	defer runner.Close()
	model, err := runner.ComputeModel(ctx, snap, pipeline.Options{Config: cfg.Layout, Logger: logger})
	if err != nil {
		return err
	}

	m := newTreeViewModel(model, cfg.Layout)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// treeViewModel is the bubbletea model for the interactive viewer. The
// viewport maps model space to screen space; the terminal grid is a
// coarse sampling of that screen space.
type treeViewModel struct {
	model  *layout.Model
	cfg    layout.Config
	vp     layout.ViewportState
	width  int
	height int
}

func newTreeViewModel(m *layout.Model, cfg layout.Config) treeViewModel {
	vp := layout.NewViewport(cfg)
	// Start with the tree centered on the crosshair.
	center := layout.Point{
		X: (m.Bounds.Left + m.Bounds.Right) / 2,
		Y: (m.Bounds.Top + m.Bounds.Bottom) / 2,
	}
	vp = vp.Pan(-center.X, -center.Y)
	return treeViewModel{model: m, cfg: cfg, vp: vp, width: 80, height: 24}
}

func (m treeViewModel) Init() tea.Cmd {
	return nil
}

func (m treeViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.vp = m.vp.Pan(panStep, 0)
		case "right", "l":
			m.vp = m.vp.Pan(-panStep, 0)
		case "up", "k":
			m.vp = m.vp.Pan(0, panStep)
		case "down", "j":
			m.vp = m.vp.Pan(0, -panStep)
		case "+", "=":
			m.vp = m.vp.ZoomAt(m.crosshair(), zoomInStep)
		case "-", "_":
			m.vp = m.vp.ZoomAt(m.crosshair(), zoomOutLim)
		case "0":
			m = newTreeViewModel(m.model, m.cfg)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// crosshair returns the screen-space point at the center of the canvas.
func (m treeViewModel) crosshair() layout.Point {
	return layout.Point{
		X: float64(m.width) / 2 * cellPxX,
		Y: float64(m.canvasHeight()) / 2 * cellPxY,
	}
}

// canvasHeight leaves two rows for the status bar.
func (m treeViewModel) canvasHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m treeViewModel) View() string {
	rows := m.canvasHeight()
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = make([]rune, m.width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	// Nodes are in draw order, so later labels overwrite earlier ones the
	// same way overlapping boxes stack on screen.
	for _, n := range m.model.Nodes {
		screen := m.vp.ToScreen(layout.Point{X: n.X, Y: n.Y})
		col := int(screen.X / cellPxX)
		row := int(screen.Y / cellPxY)
		m.drawLabel(grid, row, col, "["+n.Label+"]")
	}

	// Crosshair marks the probe point.
	cr, cc := rows/2, m.width/2
	if cr >= 0 && cr < rows && cc >= 0 && cc < m.width && grid[cr][cc] == ' ' {
		grid[cr][cc] = '+'
	}

	var b strings.Builder
	for _, line := range grid {
		b.WriteString(string(line))
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

// drawLabel writes s centered on col into the grid row, clipped to the
// canvas.
func (m treeViewModel) drawLabel(grid [][]rune, row, col int, s string) {
	if row < 0 || row >= len(grid) {
		return
	}
	runes := []rune(s)
	start := col - len(runes)/2
	for i, r := range runes {
		c := start + i
		if c < 0 || c >= m.width {
			continue
		}
		grid[row][c] = r
	}
}

func (m treeViewModel) statusBar() string {
	probe := "nothing under crosshair"
	if id, ok := m.model.HitTest(m.vp, m.crosshair()); ok {
		if n, found := m.model.Node(id); found {
			probe = fmt.Sprintf("%s (generation %d)", n.Label, n.Generation)
		}
	}

	left := StyleTitle.Render("kintree") + "  " +
		StyleDim.Render(fmt.Sprintf("zoom %.2fx", m.vp.Zoom)) + "  " +
		StyleValue.Render(probe)
	help := StyleDim.Render("arrows pan  +/- zoom  0 reset  q quit")
	return left + "\n" + help
}
