package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/spangraph/internal/datasource"
	"github.com/vanderheijden86/spangraph/pkg/analysis"
	"github.com/vanderheijden86/spangraph/pkg/config"
	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/export"
	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/spans"
	"github.com/vanderheijden86/spangraph/pkg/ui"
	"github.com/vanderheijden86/spangraph/pkg/version"
	"github.com/vanderheijden86/spangraph/pkg/watcher"
)

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

type options struct {
	text       string
	out        string
	format     string
	db         string
	configPath string
	seed       int64
	width      int
	height     int
	jsonOut    bool
	list       bool
	label      string
	show       int64
	preview    bool
	refresh    bool
	batch      string
	watch      string
	tui        bool
	random     bool
	cpuProfile string
	metrics    bool
	version    bool
	help       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("spangraph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.text, "text", "", "Sentence to analyse")
	fs.BoolVar(&o.random, "random", false, "Analyse a random example sentence")
	fs.StringVar(&o.out, "out", "", "Write a snapshot (format from extension: .svg or .png)")
	fs.StringVar(&o.format, "format", "", "Snapshot format: svg or png")
	fs.BoolVar(&o.preview, "preview", false, "Use the static circular layout for snapshots")
	fs.StringVar(&o.db, "db", "", "Graph database path (\":memory:\" for none)")
	fs.StringVar(&o.configPath, "config", "", "Config file (default: XDG config dir)")
	fs.Int64Var(&o.seed, "seed", 0, "Random seed for span generation and layout (0 = clock)")
	fs.IntVar(&o.width, "width", 0, "Canvas width in pixels")
	fs.IntVar(&o.height, "height", 0, "Canvas height in pixels")
	fs.BoolVar(&o.jsonOut, "json", false, "Print JSON instead of text")
	fs.BoolVar(&o.refresh, "refresh", false, "Regenerate even when the sentence is stored")
	fs.BoolVar(&o.list, "list", false, "List stored graphs")
	fs.StringVar(&o.label, "label", "", "With -list, only graphs with an entity of this label")
	fs.Int64Var(&o.show, "show", 0, "Print the stored graph with this id")
	fs.StringVar(&o.batch, "batch", "", "Analyse every line of a file (\"-\" for stdin)")
	fs.StringVar(&o.watch, "watch", "", "Re-analyse a sentence file whenever it changes")
	fs.BoolVar(&o.tui, "tui", false, "Start the interactive viewer")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.metrics, "metrics", false, "Print timing metrics to stderr on exit")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.help, "help", false, "Show help")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.help {
		fmt.Fprintln(stdout, "Usage: spangraph [options]")
		fmt.Fprintln(stdout, "\nGenerate a span graph for a sentence and lay it out.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if o.version {
		fmt.Fprintf(stdout, "spangraph %s\n", version.Version)
		return 0
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}
	if o.metrics {
		defer metrics.WriteReport(stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, o, stdin, stdout, stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "Error: nothing to do. Use -text, -random, -batch, -watch, -list, -show or -tui.")
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(o options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}

	if o.width > 0 {
		cfg.Canvas.Width = o.width
	}
	if o.height > 0 {
		cfg.Canvas.Height = o.height
	}
	if o.seed != 0 {
		cfg.Generator.Seed = o.seed
	}
	if o.db != "" {
		cfg.Store.Path = o.db
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newGenerator(cfg config.Config) *spans.Generator {
	opts := []spans.Option{spans.WithLabels(cfg.Labels())}
	if cfg.Generator.Seed != 0 {
		return spans.NewSeeded(cfg.Generator.Seed, opts...)
	}
	return spans.New(rand.New(rand.NewSource(time.Now().UnixNano())), opts...)
}

func execute(ctx context.Context, o options, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	debug.Dump("config", cfg)

	store, err := datasource.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer store.Close()
	debug.Event("store opened", "path", store.Path())

	analyzer := analysis.New(store, newGenerator(cfg), analysis.WithRefresh(o.refresh))

	if o.random && o.text == "" {
		seed := cfg.Generator.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.text = spans.RandomExample(rand.New(rand.NewSource(seed)))
	}

	switch {
	case o.list:
		return listGraphs(ctx, store, o.label, o.jsonOut, stdout)
	case o.show != 0:
		rec, err := store.Get(ctx, o.show)
		if err != nil {
			return fmt.Errorf("graph %d: %w", o.show, err)
		}
		res := analysis.Result{Text: rec.Text, ID: rec.ID, Graph: rec.Graph, Spans: analysis.SpansOf(rec.Graph), Cached: true}
		return emit(res, o, cfg, stdout)
	case o.batch != "":
		return runBatch(ctx, analyzer, o.batch, stdin, o.jsonOut, stdout)
	case o.watch != "":
		return runWatch(ctx, analyzer, o.watch, o.jsonOut, stdout, stderr)
	case o.tui:
		if !isTerminal(stdout) {
			return errors.New("-tui needs an interactive terminal")
		}
		return runTUI(analyzer, o.text)
	case o.text != "":
		res, err := analyzer.Analyze(ctx, o.text)
		if err != nil {
			return err
		}
		return emit(res, o, cfg, stdout)
	case isTerminal(stdout) && isTerminal(stdin):
		return runTUI(analyzer, "")
	}
	return errUsage
}

// emit prints a result and writes the snapshot when -out is set.
func emit(res analysis.Result, o options, cfg config.Config, stdout io.Writer) error {
	if o.out != "" {
		layout := export.LayoutForce
		if o.preview {
			layout = export.LayoutCircular
		}
		path, format := o.out, o.format
		if format == "" && filepath.Ext(path) == "" {
			format = cfg.Export.Format
			path += "." + format
		}
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:   path,
			Format: format,
			Title:  res.Text,
			Graph:  res.Graph,
			Width:  cfg.Canvas.Width,
			Height: cfg.Canvas.Height,
			Layout: layout,
			Seed:   cfg.Generator.Seed,
		})
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}
	if o.jsonOut {
		return writeJSON(stdout, newResultOutput(res))
	}
	writeText(stdout, res)
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUI(a *analysis.Analyzer, text string) error {
	var opts []ui.Option
	if text != "" {
		opts = append(opts, ui.WithInitialText(text))
	}
	return runTUIProgram(ui.New(a, opts...))
}

func runTUIProgram(m ui.Model) error {
	// The program owns the terminal; send debug output to a file.
	if debug.Enabled() {
		f, err := tea.LogToFile("spangraph-debug.log", "")
		if err != nil {
			return err
		}
		defer f.Close()
		debug.SetOutput(f)
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set SPANGRAPH_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("SPANGRAPH_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func runBatch(ctx context.Context, a *analysis.Analyzer, path string, stdin io.Reader, jsonOut bool, stdout io.Writer) error {
	texts, err := readSentences(path, stdin)
	if err != nil {
		return err
	}
	results, err := a.AnalyzeAll(ctx, texts)
	if err != nil {
		return err
	}
	return writeBatch(stdout, results, jsonOut)
}

func readSentences(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return analysis.ReadLines(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return analysis.ReadLines(f)
}

// runWatch analyses path now and again after every content change, until
// ctx is cancelled.
func runWatch(ctx context.Context, a *analysis.Analyzer, path string, jsonOut bool, stdout, stderr io.Writer) error {
	w, err := watcher.NewWatcher(path,
		watcher.WithOnError(func(err error) {
			debug.Warn("watch error", "path", path, "err", err)
			fmt.Fprintf(stderr, "watch: %v\n", err)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	analyse := func() error {
		texts, err := readSentences(path, nil)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(stderr, "watch: %s does not exist yet\n", path)
				return nil
			}
			return err
		}
		results, err := a.AnalyzeAll(ctx, texts)
		if err != nil {
			return err
		}
		return writeBatch(stdout, results, jsonOut)
	}

	if err := analyse(); err != nil {
		return err
	}
	if w.IsPolling() {
		fmt.Fprintf(stderr, "watching %s (polling every %s)\n", w.Path(), w.PollInterval())
	} else {
		fmt.Fprintf(stderr, "watching %s\n", w.Path())
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			if err := analyse(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
