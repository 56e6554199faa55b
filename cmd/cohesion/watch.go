package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/internal/report"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/cohesion/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:  "debounce",
			Value: watch.DefaultDebounce,
			Usage: "Quiet period before a changed file is analyzed",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print per-variable usage for each method",
		},
	}
	flags = append(flags, analysisFlags()...)
	flags = append(flags, globalFlags()...)

	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-analyze Python files as they change",
		ArgsUsage: "[path]",
		Description: `Watches a directory tree and prints the cohesion report of each Python
file when it is saved. Press Ctrl-C to stop.

Examples:
  cohesion watch
  cohesion watch src --debounce 1s -v`,
		Flags:  flags,
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	path := "."
	if c.Args().Present() {
		path = c.Args().First()
	}

	a, err := sess.newAnalyzer()
	if err != nil {
		return err
	}
	f, err := sess.formatter(c)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := watch.NewWatcher(path, sess.cfg, c.Duration("debounce"), c.App.Writer)
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	verbose := c.Bool("verbose") || sess.cfg.Output.Verbose
	w.SetCallback(func(file string) {
		if err := reanalyze(ctx, a, f, file, verbose, sess.cfg.Lint.Threshold); err != nil {
			color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Error: %v\n", err)
		}
	})

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func reanalyze(ctx context.Context, a *cohesion.Analyzer, f *output.Formatter, file string, verbose bool, threshold float64) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	s, err := a.AnalyzeSource(ctx, file, content)
	if err != nil {
		return err
	}
	return f.Output(report.NewFileReport([]*cohesion.Structure{s}, verbose, threshold))
}
