package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/libmodel/internal/output"
	"github.com/panbanda/libmodel/internal/progress"
	"github.com/panbanda/libmodel/internal/report"
	"github.com/panbanda/libmodel/internal/service/synthesis"
	"github.com/panbanda/libmodel/pkg/session"
	"github.com/panbanda/libmodel/pkg/watch"
)

// ErrDegraded is returned by generate --strict when a member was emitted
// without a valid body.
var ErrDegraded = errors.New("model is degraded")

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate the library model of an application",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out-dir",
				Aliases: []string{"d"},
				Usage:   "Directory receiving the model (default from config output.dir)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Run the pipeline without writing the model",
			},
			&cli.StringFlag{
				Name:  "html",
				Usage: "Also render an HTML page of the model to this file",
			},
			&cli.IntFlag{
				Name:  "max-diagnostics",
				Usage: "Maximum diagnostics listed in the summary (0 lists all)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail when the model is degraded",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Regenerate when inputs change",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before regenerating in watch mode",
			},
		},
		Action: runGenerateCmd,
	}
}

type generateRun struct {
	svc    *synthesis.Service
	paths  []string
	outDir string
	html   string
	format output.Format
	output string
	limit  int
	strict bool
}

func runGenerateCmd(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	cfg := svc.Config()

	run := generateRun{
		svc:    svc,
		paths:  getPaths(c),
		outDir: c.String("out-dir"),
		html:   c.String("html"),
		format: output.ParseFormat(cfg.Output.Format),
		output: c.String("output"),
		limit:  c.Int("max-diagnostics"),
		strict: c.Bool("strict"),
	}
	if c.IsSet("format") {
		run.format = output.ParseFormat(c.String("format"))
	}
	if run.outDir == "" {
		run.outDir = cfg.Output.Dir
	}
	if c.Bool("dry-run") {
		run.outDir = ""
		run.html = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.Bool("watch") {
		return run.once(ctx)
	}
	return run.watch(ctx, c.Duration("debounce"))
}

func (r generateRun) once(ctx context.Context) error {
	rep, err := r.generate(ctx)
	if err != nil {
		return err
	}
	if err := r.print(rep); err != nil {
		return err
	}
	if r.html != "" && rep.Output != nil {
		renderer, err := report.NewRenderer()
		if err != nil {
			return err
		}
		if err := renderer.RenderToFile(rep.Output.Dir, r.html); err != nil {
			return fmt.Errorf("render %s: %w", r.html, err)
		}
		color.Green("HTML written to %s", r.html)
	}
	if r.strict && rep.Degraded {
		return ErrDegraded
	}
	return nil
}

// generate runs the pipeline with a bar over the input files followed by a
// spinner over synthesized bodies.
func (r generateRun) generate(ctx context.Context) (*session.Report, error) {
	loader, err := r.svc.NewSession(nil, nil).Loader()
	if err != nil {
		return nil, err
	}
	files, err := loader.Expand(r.paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files in %v", session.ErrNoInput, r.paths)
	}

	load := progress.NewTracker("Loading universe...", len(files))
	var (
		once   sync.Once
		bodies *progress.Tracker
	)
	onBody := func() {
		once.Do(func() {
			load.FinishSuccess()
			bodies = progress.NewSpinner("Synthesizing bodies...")
		})
		bodies.Tick()
	}

	rep, err := r.svc.Generate(ctx, r.paths, synthesis.GenerateOptions{
		OutputDir: r.outDir,
		OnLoad:    load.Tick,
		OnBody:    onBody,
	})
	current := load
	if bodies != nil {
		current = bodies
	}
	if err != nil {
		current.FinishError(err)
		return nil, err
	}
	current.FinishSuccess()
	return rep, nil
}

func (r generateRun) print(rep *session.Report) error {
	formatter, err := output.NewFormatter(r.format, r.output, true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(report.Summary(rep, r.limit)); err != nil {
		return err
	}
	if formatter.Format() != output.FormatText {
		return nil
	}
	for _, e := range rep.LoadErrors {
		formatter.Warning("skipped %v", e)
	}
	if rep.Degraded {
		formatter.Warning("model is degraded: some members have no valid body")
	}
	if rep.Output != nil {
		formatter.Success("Model written to %s in %s", rep.Output.Dir, rep.Elapsed.Round(time.Millisecond))
	}
	return nil
}

func (r generateRun) watch(ctx context.Context, debounce time.Duration) error {
	if err := r.once(ctx); err != nil {
		color.Red("Error: %v", err)
	}

	root, err := filepath.Abs(r.paths[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if len(r.paths) > 1 {
		log.WithField("root", root).Warn("watching the first path only")
	}
	loader, err := r.svc.NewSession(nil, nil).Loader()
	if err != nil {
		return err
	}

	var exclude []string
	if r.outDir != "" {
		exclude = append(exclude, filepath.Base(r.outDir))
	}
	watcher, err := watch.NewWatcher(root, debounce, loader.Supports, exclude...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetCallback(func(changed []string) {
		log.WithField("files", len(changed)).Debug("regenerating")
		if err := r.once(ctx); err != nil {
			color.Red("Error: %v", err)
		}
	})

	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nStopping watch...")
		return nil
	}
	return err
}
