// Package export writes static snapshots of a laid-out graph.
package export

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/graph"
	"github.com/vanderheijden86/spangraph/pkg/layout"
	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

// Layout names accepted by SnapshotOptions.Layout.
const (
	LayoutForce    = "force"
	LayoutCircular = "circular"
)

const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional first line of the summary block
	Graph  model.Graph
	Width  int
	Height int
	Layout string // "force" (default) or "circular"
	Seed   int64  // jitter seed for the force layout; 0 uses 1
	// Duration is the simulated animation budget. Zero uses the layout default.
	Duration time.Duration
	// NoSummary drops the summary block.
	NoSummary bool
}

// ResolveFormat returns the output format and path, inferring one from the
// other like the snapshot command does.
func ResolveFormat(path, format string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = FormatSVG
		case ".png":
			format = FormatPNG
		default:
			format = FormatSVG
			if path != "" && filepath.Ext(path) == "" {
				path = path + ".svg"
			}
		}
	}
	if format != FormatSVG && format != FormatPNG {
		return "", path, fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, path, nil
}

// SaveSnapshot lays out opts.Graph and writes it to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	defer debug.LogEnterExit("SaveSnapshot")()

	format, path, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("output path is required")
	}
	opts.Format, opts.Path = format, path

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteSnapshot(f, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	debug.Event("snapshot written", "path", path, "format", format)
	return nil
}

// WriteSnapshot lays out opts.Graph and writes it to w in opts.Format
// (svg when empty).
func WriteSnapshot(w io.Writer, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	format, _, err := ResolveFormat("", opts.Format)
	if err != nil {
		return err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", opts.Width, opts.Height)
	}

	positions, err := Positions(opts)
	if err != nil {
		return err
	}

	switch format {
	case FormatPNG:
		surface := render.NewPNGSurface(opts.Width, opts.Height)
		paint(surface, opts, positions)
		return surface.EncodePNG(w)
	default:
		surface := render.NewSVGSurface(opts.Width, opts.Height)
		surface.SetBackground(render.ColorBackdrop)
		paint(surface, opts, positions)
		_, err := surface.WriteTo(w)
		return err
	}
}

// Positions computes final node positions for opts.Graph. The force layout
// replays the animation headlessly on a simulated clock until the
// simulator stops.
func Positions(opts SnapshotOptions) ([]r2.Vec, error) {
	if err := opts.Graph.Validate(); err != nil {
		return nil, err
	}
	w, h := float64(opts.Width), float64(opts.Height)

	switch strings.ToLower(opts.Layout) {
	case LayoutCircular:
		return layout.Circular(opts.Graph, w, h), nil
	case "", LayoutForce:
	default:
		return nil, fmt.Errorf("unknown layout %q", opts.Layout)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = layout.DefaultDuration
	}

	start := time.Unix(0, 0)
	scratch := render.NewSVGSurface(opts.Width, opts.Height)
	sim, err := layout.NewSimulator(opts.Graph, scratch,
		layout.WithRand(rand.New(rand.NewSource(seed))),
		layout.WithClock(func() time.Time { return start }),
		layout.WithDuration(duration),
	)
	if err != nil {
		return nil, err
	}
	now := start
	for sim.Frame(now) {
		now = now.Add(layout.DefaultFrameInterval)
	}
	return sim.Positions(), nil
}

func paint(surface render.Surface, opts SnapshotOptions, positions []r2.Vec) {
	layout.DrawStatic(surface, opts.Graph, positions)
	if opts.NoSummary {
		return
	}
	style := render.LabelStyle
	style.Fill = render.ColorSubtle
	style.Class = "summary"

	lines := []string{graph.Summarize(opts.Graph).String()}
	if opts.Title != "" {
		lines = append([]string{opts.Title}, lines...)
	}
	for i, line := range lines {
		surface.Text(8, float64(16+14*i), line, style)
	}
}
