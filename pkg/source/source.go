// Package source abstracts where file content is read from.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panbanda/cohesion/internal/vcs"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree. Paths are given as on the local
// filesystem and mapped onto the tree relative to the repository root.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	root string
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree checked out at root.
func NewTree(tree vcs.Tree, root string) *TreeSource {
	return &TreeSource{tree: tree, root: root}
}

// Read implements ContentSource.
func (t *TreeSource) Read(path string) ([]byte, error) {
	name, err := t.treePath(path)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(name)
}

// List returns the files of the tree under dir whose names satisfy keep,
// as local paths under the repository root.
func (t *TreeSource) List(dir string, keep func(string) bool) ([]string, error) {
	prefix, err := t.treePath(dir)
	if err != nil {
		return nil, err
	}
	if prefix == "." {
		prefix = ""
	}

	t.mu.Lock()
	names, err := t.tree.Files(prefix)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range names {
		local := filepath.Join(t.root, filepath.FromSlash(name))
		if keep == nil || keep(local) {
			files = append(files, local)
		}
	}
	return files, nil
}

func (t *TreeSource) treePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(t.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", vcs.ErrNotInTree, path)
	}
	return filepath.ToSlash(rel), nil
}
