package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New()
	if p == nil {
		t.Fatal("New() returned nil")
	}
	if p.parser == nil {
		t.Error("parser field is nil")
	}
	p.Close()
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"script.py", true},
		{"pkg/module/__init__.py", true},
		{"dir.py/inner.txt", false},
		{"module.pyc", false},
		{"types.pyi", false},
		{"README.md", false},
		{"py", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSourceFile(tt.path); got != tt.want {
				t.Errorf("IsSourceFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"assignment", "a = 5\n"},
		{"function", "def hello():\n    print('hello')\n"},
		{"class", "class Cls(object):\n    pass\n"},
		{"empty", ""},
	}

	p := New()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Parse([]byte(tt.source), "test.py")
			require.NoError(t, err)
			defer result.Close()

			require.NotNil(t, result.Tree)
			assert.Equal(t, tt.source, string(result.Source))
			assert.Equal(t, "test.py", result.Path)
			assert.Equal(t, "module", result.Root().Type())
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse([]byte("\na )= 5\n"), "bad.py")
	require.Error(t, err)

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr), "expected *SyntaxError, got %T", err)
	assert.Equal(t, "bad.py", synErr.Path)
	assert.Equal(t, 2, synErr.Line)
	assert.GreaterOrEqual(t, synErr.Offset, 1)
	assert.Contains(t, synErr.Error(), "bad.py:2:")
}

func TestParseRejectsPython2Statements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"print statement", "print \"hello\"\n", 1},
		{"exec statement", "x = 1\nexec \"x\"\n", 2},
		{"print inside method", "class A:\n    def f(self):\n        print self.x\n", 3},
		{"first of several", "print \"hello\"\nexec \"x\"\n", 1},
	}

	p := New()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.src), "py2.py")
			var synErr *SyntaxError
			require.True(t, errors.As(err, &synErr), "expected *SyntaxError, got %v", err)
			assert.Equal(t, tt.line, synErr.Line)
		})
	}
}

func TestParseAcceptsPrintCall(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("print(\"hello\")\nexec(\"x\")\n"), "py3.py")
	require.NoError(t, err)
	result.Close()
}

func TestSyntaxErrorPointsAtBreak(t *testing.T) {
	p := New()
	defer p.Close()

	src := "class A:\n    def f(self):\n        pass\n    x = (\n"
	_, err := p.Parse([]byte(src), "p.py")
	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr), "expected *SyntaxError, got %v", err)
	assert.Equal(t, 4, synErr.Line)
	assert.Greater(t, synErr.Offset, len("class A:\n"))
}

func TestSyntaxErrorWithoutPath(t *testing.T) {
	err := &SyntaxError{Line: 3, Column: 4}
	assert.Equal(t, "<string>:3:4: invalid syntax", err.Error())
}

func TestParseFile(t *testing.T) {
	tmpDir := t.TempDir()
	pyFile := filepath.Join(tmpDir, "test.py")
	content := "class Cls:\n    pass\n"

	if err := os.WriteFile(pyFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	p := New()
	defer p.Close()

	result, err := p.ParseFile(pyFile)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	defer result.Close()

	if result.Path != pyFile {
		t.Errorf("result.Path = %v, want %v", result.Path, pyFile)
	}
}

func TestParseFileErrors(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.ParseFile("/nonexistent/path/file.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWalk(t *testing.T) {
	p := New()
	defer p.Close()

	source := "class A:\n    def f(self):\n        self.x = 1\n"
	result, err := p.Parse([]byte(source), "test.py")
	require.NoError(t, err)
	defer result.Close()

	count := 0
	Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		count++
		return true
	})
	assert.Positive(t, count)

	found := make(map[string]bool)
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		found[nodeType] = true
		return true
	})
	for _, want := range []string{"class_definition", "function_definition", "attribute", "assignment"} {
		assert.True(t, found[want], "WalkTyped() missed %s", want)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("class A:\n    class B:\n        pass\n"), "test.py")
	require.NoError(t, err)
	defer result.Close()

	var classes []string
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nodeType == "class_definition" {
			classes = append(classes, GetNodeText(node.ChildByFieldName("name"), source))
			return false
		}
		return true
	})
	assert.Equal(t, []string{"A"}, classes)
}

func TestFindNodesByType(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("class A:\n    pass\nclass B:\n    class C:\n        pass\n"), "test.py")
	require.NoError(t, err)
	defer result.Close()

	nodes := FindNodesByType(result.Root(), result.Source, "class_definition")
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, GetNodeText(n.ChildByFieldName("name"), result.Source))
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)

	calls := FindNodes(result.Root(), result.Source, func(n *sitter.Node) bool {
		return n.Type() == "call"
	})
	assert.Empty(t, calls)
}

func TestNamedChildrenSkipsComments(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("# leading\na = 1\n# trailing\n"), "test.py")
	require.NoError(t, err)
	defer result.Close()

	children := NamedChildren(result.Root())
	require.Len(t, children, 1)
	assert.Equal(t, "expression_statement", children[0].Type())
	assert.Nil(t, NamedChildren(nil))
}

func TestGetNodeText(t *testing.T) {
	assert.Equal(t, "", GetNodeText(nil, []byte("abc")))

	p := New()
	defer p.Close()

	result, err := p.Parse([]byte("value = 42\n"), "test.py")
	require.NoError(t, err)
	defer result.Close()

	ids := FindNodesByType(result.Root(), result.Source, "identifier")
	require.Len(t, ids, 1)
	assert.Equal(t, "value", GetNodeText(ids[0], result.Source))
	assert.Equal(t, "", GetNodeText(ids[0], []byte("v")))
}
