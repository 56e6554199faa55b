package cohesion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panbanda/cohesion/internal/fileproc"
	"github.com/panbanda/cohesion/pkg/parser"
	"github.com/panbanda/cohesion/pkg/source"
)

// StructureCache stores built structures keyed by file, receiver name and
// content. *cache.Cache implements it.
type StructureCache interface {
	Get(path, boundName string, content []byte) (*Structure, bool)
	Set(path, boundName string, content []byte, s *Structure) error
}

// Analyzer builds class structures for many files in parallel.
type Analyzer struct {
	boundName   string
	workers     int
	maxFileSize int64
	cache       StructureCache
	onProgress  fileproc.ProgressFunc
	logger      *slog.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithReceiver sets the receiver name that marks bound methods.
func WithReceiver(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.boundName = name
		}
	}
}

// WithWorkers sets the number of files analyzed concurrently (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
// Larger files are skipped.
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithCache reuses structures from c for unchanged files.
func WithCache(c StructureCache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithProgress calls fn after each file.
func WithProgress(fn func(path string)) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates a new cohesion analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		boundName: DefaultBoundName,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BoundName returns the receiver name the analyzer uses.
func (a *Analyzer) BoundName() string {
	return a.boundName
}

// Analyze reads and builds every file from src. Structures come back in the
// order of files, skipping files that failed or were too large. Failures are
// reported per file in the returned *fileproc.ProcessingErrors, which is nil
// when nothing failed.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src source.ContentSource) ([]*Structure, *fileproc.ProcessingErrors) {
	results, errs := fileproc.MapFiles(ctx, files, a.workers, func(ctx context.Context, psr *parser.Parser, path string) (*Structure, error) {
		content, err := src.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return a.analyzeContent(ctx, psr, path, content)
	}, a.onProgress)

	structures := make([]*Structure, 0, len(results))
	for _, s := range results {
		if s != nil {
			structures = append(structures, s)
		}
	}
	if errs != nil {
		for _, e := range errs.Sorted() {
			a.logger.Debug("file failed", "path", e.Path, "error", e.Err)
		}
	}
	return structures, errs
}

// AnalyzeSource builds the structure of one in-memory file.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, content []byte) (*Structure, error) {
	psr := parser.New()
	defer psr.Close()
	s, err := a.analyzeContent(ctx, psr, path, content)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return NewStructure(path), nil
	}
	return s, nil
}

// analyzeContent returns nil without error for skipped files.
func (a *Analyzer) analyzeContent(ctx context.Context, psr *parser.Parser, path string, content []byte) (*Structure, error) {
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		a.logger.Debug("skipping large file", "path", path, "size", len(content), "limit", a.maxFileSize)
		return nil, nil
	}

	if a.cache != nil {
		if s, ok := a.cache.Get(path, a.boundName, content); ok {
			a.logger.Debug("cache hit", "path", path)
			return s, nil
		}
	}

	result, err := psr.ParseCtx(ctx, content, path)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	s, err := Build(result, WithBoundName(a.boundName))
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(path, a.boundName, content, s); err != nil {
			a.logger.Warn("failed to write cache entry", "path", path, "error", err)
		}
	}
	return s, nil
}
