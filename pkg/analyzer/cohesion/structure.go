package cohesion

import (
	"fmt"
	"slices"

	"github.com/panbanda/cohesion/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	boundName string
}

// WithBoundName sets the receiver name that marks bound methods and
// instance attribute accesses. The default is "self".
func WithBoundName(name string) BuildOption {
	return func(c *buildConfig) {
		if name != "" {
			c.boundName = name
		}
	}
}

// Build extracts the class structure of a parsed file.
func Build(result *parser.ParseResult, opts ...BuildOption) (*Structure, error) {
	cfg := buildConfig{boundName: DefaultBoundName}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := NewStructure(result.Path)
	for _, node := range FindClasses(result.Root()) {
		class, err := buildClass(node, result.Source, cfg.boundName)
		if err != nil {
			return nil, err
		}
		s.put(class)
	}
	return s, nil
}

func buildClass(node *sitter.Node, source []byte, boundName string) (*Class, error) {
	name, err := ResolveName(node, source)
	if err != nil {
		return nil, err
	}
	pt := node.StartPoint()
	class := newClass(name, int(pt.Row)+1, int(pt.Column))

	vars := make([]string, 0)
	for _, target := range DeclaredClassVariables(node) {
		v, err := ResolveName(target, source)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		vars = append(vars, v)
	}
	for _, attr := range AllAttributeAccesses(node, boundName, source) {
		v, err := ResolveName(attr, source)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		vars = append(vars, v)
	}
	class.Variables = sortedUnique(vars)

	for _, fn := range FindMethods(node) {
		method, err := buildMethod(fn, source, boundName)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		class.addMethod(method)
	}
	return class, nil
}

func buildMethod(fn *sitter.Node, source []byte, boundName string) (*Method, error) {
	name, err := ResolveName(fn, source)
	if err != nil {
		return nil, err
	}
	static, err := IsStaticMethod(fn, source)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}
	classMethod, err := IsClassMethod(fn, source)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}

	accesses, err := ReferencedAttributeAccesses(fn, boundName, source)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}
	vars := make([]string, 0, len(accesses))
	for _, attr := range accesses {
		v, err := ResolveName(attr, source)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		vars = append(vars, v)
	}

	return &Method{
		Name:         name,
		Bound:        IsBound(fn, boundName, source) && !static,
		StaticMethod: static,
		ClassMethod:  classMethod,
		Variables:    sortedUnique(vars),
	}, nil
}

func sortedUnique(names []string) []string {
	slices.Sort(names)
	return slices.Compact(names)
}
