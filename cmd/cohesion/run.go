package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/cohesion/internal/cache"
	"github.com/panbanda/cohesion/internal/fileproc"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/internal/progress"
	"github.com/panbanda/cohesion/internal/report"
	"github.com/panbanda/cohesion/internal/vcs"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/panbanda/cohesion/pkg/scanner"
	"github.com/panbanda/cohesion/pkg/source"
	"github.com/urfave/cli/v2"
)

var (
	errNoSelection      = errors.New("one of --files or --directory is required")
	errSelectionOverlap = errors.New("--files and --directory are mutually exclusive")
)

// session is the configuration and logging shared by one command run.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
}

// newSession loads the config file and applies command-line overrides.
func newSession(c *cli.Context) (*session, error) {
	logger, err := newLogger(c.String("log-level"), c.App.ErrWriter)
	if err != nil {
		return nil, err
	}

	cfg, path, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	if c.IsSet("bound-name") {
		cfg.Analysis.BoundName = c.String("bound-name")
	}
	if c.IsSet("jobs") {
		cfg.Analysis.Jobs = c.Int("jobs")
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger}, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// formatter writes to --output when given, otherwise to the app's writer.
func (s *session) formatter(c *cli.Context) (*output.Formatter, error) {
	format := output.ParseFormat(s.cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, s.cfg.Output.Color), nil
}

// selectFiles resolves --files/--directory, reading from the working tree or
// from --ref.
func (s *session) selectFiles(c *cli.Context) ([]string, source.ContentSource, error) {
	files := c.StringSlice("files")
	dir := c.String("directory")
	switch {
	case len(files) > 0 && dir != "":
		return nil, nil, errSelectionOverlap
	case len(files) == 0 && dir == "":
		return nil, nil, errNoSelection
	}

	sc := scanner.NewScanner(s.cfg)
	ref := c.String("ref")
	if ref == "" {
		if dir == "" {
			return files, source.NewFilesystem(), nil
		}
		var spinner *progress.Tracker
		if !c.Bool("no-progress") {
			spinner = progress.NewSpinner(c.App.ErrWriter, "Scanning")
			sc.SetProgress(func(string) { spinner.Tick() })
		}
		found, err := sc.ScanDir(dir)
		if err != nil {
			err = fmt.Errorf("failed to scan %s: %w", dir, err)
			if spinner != nil {
				spinner.FinishError(err)
			}
			return nil, nil, err
		}
		if spinner != nil {
			spinner.FinishSuccess()
		}
		return found, source.NewFilesystem(), nil
	}

	start := dir
	if start == "" {
		start = filepath.Dir(files[0])
	}
	repo, err := vcs.NewGitOpener().PlainOpenWithDetect(start)
	if err != nil {
		return nil, nil, err
	}
	tree, err := repo.ResolveTree(ref)
	if err != nil {
		return nil, nil, err
	}
	src := source.NewTree(tree, repo.Root())
	s.logger.Debug("reading from revision", "ref", ref, "root", repo.Root())

	if dir == "" {
		return files, src, nil
	}
	found, err := src.List(dir, func(path string) bool { return sc.Keep(dir, path) })
	if err != nil {
		return nil, nil, err
	}
	return found, src, nil
}

// newAnalyzer builds an analyzer from the session config.
func (s *session) newAnalyzer(extra ...cohesion.Option) (*cohesion.Analyzer, error) {
	opts := []cohesion.Option{
		cohesion.WithReceiver(s.cfg.Analysis.BoundName),
		cohesion.WithWorkers(s.cfg.Analysis.Jobs),
		cohesion.WithMaxFileSize(s.cfg.Analysis.MaxFileSize),
		cohesion.WithLogger(s.logger),
	}

	ttl := time.Duration(s.cfg.Cache.TTL) * time.Hour
	c, err := cache.New(s.cfg.Cache.Dir, ttl, s.cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if c.Enabled() {
		opts = append(opts, cohesion.WithCache(c))
	}

	return cohesion.New(append(opts, extra...)...), nil
}

// analyze runs the analyzer over files with a progress bar and Ctrl-C
// handling.
func (s *session) analyze(c *cli.Context, files []string, src source.ContentSource) ([]*cohesion.Structure, *fileproc.ProcessingErrors, error) {
	var extra []cohesion.Option
	var tracker *progress.Tracker
	if !c.Bool("no-progress") && len(files) > 1 {
		tracker = progress.NewTracker(c.App.ErrWriter, "Analyzing", len(files))
		extra = append(extra, cohesion.WithProgress(tracker.FileDone))
	}

	a, err := s.newAnalyzer(extra...)
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	structures, errs := a.Analyze(ctx, files, src)
	if tracker != nil {
		switch {
		case ctx.Err() != nil:
			tracker.FinishSkipped("interrupted")
		case errs != nil && len(structures) == 0:
			tracker.FinishError(fmt.Errorf("all %d file(s) failed", len(files)))
		default:
			tracker.FinishSuccess()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return structures, errs, nil
}

// reportFailures prints each failed file and returns an error when any did.
func reportFailures(c *cli.Context, errs *fileproc.ProcessingErrors) error {
	lines := report.ErrorLines(errs)
	for _, line := range lines {
		color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Error: %s\n", line)
	}
	if len(lines) > 0 {
		return fmt.Errorf("%d file(s) failed to analyze", len(lines))
	}
	return nil
}

// warn writes a warning to the app's error stream.
func (s *session) warn(c *cli.Context, format string, args ...any) {
	output.NewWriterFormatter(output.FormatText, c.App.ErrWriter, s.cfg.Output.Color).Warning(format, args...)
}
