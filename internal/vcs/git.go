// Package vcs resolves git revisions to file trees.
package vcs

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotInTree is returned when a path is outside the repository or absent
// from the resolved tree.
var ErrNotInTree = errors.New("path not in tree")

// Repository provides read access to a git repository.
type Repository interface {
	// Root returns the working tree root directory.
	Root() string
	// ResolveTree returns the tree of the commit that rev names. rev accepts
	// anything git rev-parse does for commits: HEAD~2, a branch, a tag, a hash.
	ResolveTree(rev string) (Tree, error)
}

// Tree is a snapshot of files at one commit.
type Tree interface {
	// File returns the content of the slash-separated, root-relative path.
	File(name string) ([]byte, error)
	// Files lists root-relative paths under prefix ("" for all), in tree order.
	Files(prefix string) ([]string, error)
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpenWithDetect opens the repository containing path, searching
	// parent directories for .git.
	PlainOpenWithDetect(path string) (Repository, error)
}

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(dir string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	return &gitRepository{repo: repo, root: wt.Filesystem.Root()}, nil
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
	root string
}

func (r *gitRepository) Root() string {
	return r.root
}

func (r *gitRepository) ResolveTree(rev string) (Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for %s: %w", hash, err)
	}
	return &gitTree{tree: tree}, nil
}

// gitTree wraps go-git Tree.
type gitTree struct {
	tree *object.Tree
}

func (t *gitTree) File(name string) ([]byte, error) {
	f, err := t.tree.File(name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotInTree, name)
		}
		return nil, err
	}
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (t *gitTree) Files(prefix string) ([]string, error) {
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	var names []string
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if prefix == "" || f.Name == prefix || strings.HasPrefix(f.Name, prefix+"/") {
			names = append(names, f.Name)
		}
		return nil
	})
	return names, err
}
