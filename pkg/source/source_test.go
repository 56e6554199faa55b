package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/cohesion/internal/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ContentSource = (*FilesystemSource)(nil)
	_ ContentSource = (*TreeSource)(nil)
)

type fakeTree struct {
	files map[string]string
	order []string
}

func (f *fakeTree) File(name string) ([]byte, error) {
	content, ok := f.files[name]
	if !ok {
		return nil, vcs.ErrNotInTree
	}
	return []byte(content), nil
}

func (f *fakeTree) Files(prefix string) ([]string, error) {
	var out []string
	for _, name := range f.order {
		if prefix == "" || strings.HasPrefix(name, prefix+"/") {
			out = append(out, name)
		}
	}
	return out, nil
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		files: map[string]string{
			"pkg/a.py":   "a = 1\n",
			"pkg/b.txt":  "b",
			"top.py":     "",
			"other/c.py": "c = 3\n",
		},
		order: []string{"other/c.py", "pkg/a.py", "pkg/b.txt", "top.py"},
	}
}

func TestFilesystemSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	src := NewFilesystem()
	content, err := src.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))

	_, err = src.Read(filepath.Join(dir, "missing.py"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTreeSourceRead(t *testing.T) {
	root := t.TempDir()
	src := NewTree(newFakeTree(), root)

	content, err := src.Read(filepath.Join(root, "pkg", "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", string(content))

	_, err = src.Read(filepath.Join(root, "pkg", "zzz.py"))
	assert.ErrorIs(t, err, vcs.ErrNotInTree)

	_, err = src.Read(filepath.Join(filepath.Dir(root), "outside.py"))
	assert.ErrorIs(t, err, vcs.ErrNotInTree)
}

func TestTreeSourceList(t *testing.T) {
	root := t.TempDir()
	src := NewTree(newFakeTree(), root)
	isPy := func(p string) bool { return strings.HasSuffix(p, ".py") }

	files, err := src.List(filepath.Join(root, "pkg"), isPy)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "pkg", "a.py")}, files)

	files, err = src.List(root, isPy)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "other", "c.py"),
		filepath.Join(root, "pkg", "a.py"),
		filepath.Join(root, "top.py"),
	}, files)
}
