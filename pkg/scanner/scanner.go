// Package scanner discovers Python source files.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/panbanda/cohesion/pkg/parser"
)

// ErrIsDirectory is returned by ScanFile for directories.
var ErrIsDirectory = errors.New("is a directory")

// Scanner finds source files in a directory.
type Scanner struct {
	config  *config.Config
	matcher gitignore.Matcher
	root    string // absolute scan root the matcher was loaded for
	base    string // directory the matcher's patterns are relative to
	onFile  func(path string)
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// SetProgress sets a function called with each file ScanDir accepts.
func (s *Scanner) SetProgress(fn func(path string)) {
	s.onFile = fn
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config patterns with the repository's
// .gitignore files when gitignore support is enabled.
func (s *Scanner) loadExcludePatterns(absRoot string) {
	s.root = absRoot
	s.base = absRoot
	s.matcher = nil
	var patterns []gitignore.Pattern

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(absRoot); gitRoot != "" {
			s.base = gitRoot
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	// Config patterns are parsed as gitignore syntax and take precedence.
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if len(patterns) > 0 {
		s.matcher = gitignore.NewMatcher(patterns)
	}
}

// isExcluded checks an absolute path against the configured exclusions.
func (s *Scanner) isExcluded(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(s.base, absPath)
	if err != nil || rel == "." {
		return false
	}

	if isDir {
		name := filepath.Base(absPath)
		for _, dir := range s.config.Exclude.Dirs {
			if name == dir {
				return true
			}
		}
	} else if s.config.ShouldExclude(rel) {
		return true
	}

	if s.matcher == nil {
		return false
	}
	return s.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// ScanDir recursively scans a directory for Python files, in the order the
// walk visits them. Paths keep the form of root (relative stays relative).
// Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		abs := filepath.Join(absRoot, rel)

		// Security: validate path stays within root (prevent symlink traversal)
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(abs, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if parser.IsSourceFile(path) && !s.isExcluded(abs, false) {
			files = append(files, path)
			if s.onFile != nil {
				s.onFile(path)
			}
		}
		return nil
	})

	return files, walkErr
}

// Keep reports whether a file found outside ScanDir, such as in a git tree
// listing under root, passes the same filters.
func (s *Scanner) Keep(root, path string) bool {
	if !parser.IsSourceFile(path) {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	if s.root != absRoot {
		s.loadExcludePatterns(absRoot)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	// Excluded directories apply to every ancestor below the base.
	for dir := filepath.Dir(absPath); isWithinRoot(dir, s.base) && dir != s.base; dir = filepath.Dir(dir) {
		if s.isExcluded(dir, true) {
			return false
		}
	}
	return !s.isExcluded(absPath, false)
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks that path names a regular file. A single file named
// explicitly is analyzed whatever its extension.
func (s *Scanner) ScanFile(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	return []string{path}, nil
}

// ScanPaths expands each path: directories are scanned recursively, files are
// taken as given. An empty list scans the current directory.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		var found []string
		if info.IsDir() {
			found, err = s.ScanDir(path)
		} else {
			found, err = s.ScanFile(path)
		}
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
