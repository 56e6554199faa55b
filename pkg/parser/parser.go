package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SourceExtension is the suffix that marks a file as Python source.
const SourceExtension = ".py"

// ErrEmptyTree is returned when tree-sitter produces no tree at all.
var ErrEmptyTree = errors.New("parser produced no syntax tree")

// SyntaxError reports malformed source text. Line is 1-based, Column and
// Offset are 0-based byte positions of the first error node.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
	Offset int
	Near   string
}

func (e *SyntaxError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<string>"
	}
	if e.Near != "" {
		return fmt.Sprintf("%s:%d:%d: invalid syntax near %q", loc, e.Line, e.Column, e.Near)
	}
	return fmt.Sprintf("%s:%d:%d: invalid syntax", loc, e.Line, e.Column)
}

// Parser wraps a tree-sitter parser configured for Python.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// Root returns the module node of the parsed file.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// Close releases the underlying tree.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
	}
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(source, path)
}

// Parse parses Python source. Input that does not form a valid module yields
// a *SyntaxError; no partial tree is returned.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	return p.ParseCtx(context.Background(), source, path)
}

// ParseCtx is Parse with a context that can abort a long parse.
func (p *Parser) ParseCtx(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if tree == nil {
		return nil, ErrEmptyTree
	}

	if bad := invalidNode(tree.RootNode(), source); bad != nil {
		synErr := syntaxErrorAt(bad, source, path)
		tree.Close()
		return nil, synErr
	}

	return &ParseResult{
		Tree:   tree,
		Source: source,
		Path:   path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// IsSourceFile reports whether path names a Python source file.
func IsSourceFile(path string) bool {
	return strings.HasSuffix(path, SourceExtension)
}

// legacyStatements are Python 2 statements the grammar still accepts.
var legacyStatements = map[string]bool{
	"print_statement": true,
	"exec_statement":  true,
}

// invalidNode returns the earliest node that makes source invalid Python 3,
// or nil.
func invalidNode(root *sitter.Node, source []byte) *sitter.Node {
	var bad *sitter.Node
	if root.HasError() {
		if node := firstErrorNode(root); node != nil {
			bad = breakPoint(node, source)
		}
	}
	legacy := FindNodes(root, source, func(n *sitter.Node) bool {
		return legacyStatements[n.Type()]
	})
	if len(legacy) > 0 && (bad == nil || legacy[0].StartByte() < bad.StartByte()) {
		bad = legacy[0]
	}
	return bad
}

// breakPoint narrows an error node to where parsing broke: the last error
// nested inside it or, for an error spanning several lines, its last token.
func breakPoint(node *sitter.Node, source []byte) *sitter.Node {
	if node.IsMissing() {
		return node
	}
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(i)
		if child.Type() == "ERROR" || child.IsMissing() {
			return breakPoint(child, source)
		}
	}
	if node.StartPoint().Row == node.EndPoint().Row {
		return node
	}
	if leaf := lastToken(node, source); leaf != nil {
		return leaf
	}
	return node
}

// lastToken returns the last leaf under node with visible text.
func lastToken(node *sitter.Node, source []byte) *sitter.Node {
	if node.ChildCount() == 0 {
		if strings.TrimSpace(GetNodeText(node, source)) == "" {
			return nil
		}
		return node
	}
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		if leaf := lastToken(node.Child(i), source); leaf != nil {
			return leaf
		}
	}
	return nil
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	WalkTyped(root, nil, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if found != nil {
			return false
		}
		if nodeType == "ERROR" || node.IsMissing() {
			found = node
			return false
		}
		// Only descend into subtrees that contain the error.
		return node.HasError()
	})
	if found == nil {
		return root
	}
	return found
}

func syntaxErrorAt(node *sitter.Node, source []byte, path string) *SyntaxError {
	pt := node.StartPoint()
	near := GetNodeText(node, source)
	if i := strings.IndexByte(near, '\n'); i >= 0 {
		near = near[:i]
	}
	if len(near) > 40 {
		near = near[:40]
	}
	return &SyntaxError{
		Path:   path,
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column),
		Offset: int(node.StartByte()),
		Near:   strings.TrimSpace(near),
	}
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST depth-first in document order, calling visitor for
// each node. Returning false skips the node's children.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
// Use this when you need to check node types frequently.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type() // Cache the type once per node
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, source []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of a specific type in document order.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	WalkTyped(root, source, func(node *sitter.Node, t string, _ []byte) bool {
		if t == nodeType {
			results = append(results, node)
		}
		return true
	})
	return results
}

// NamedChildren returns the named children of node, skipping comments.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	children := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		children = append(children, child)
	}
	return children
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
