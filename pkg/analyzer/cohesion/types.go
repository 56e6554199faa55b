package cohesion

import (
	"slices"
)

// Method is one method definition directly inside a class body.
type Method struct {
	Name         string
	Bound        bool
	StaticMethod bool
	ClassMethod  bool

	// Variables holds the attribute names the method reads or writes through
	// the bound receiver, sorted and deduplicated.
	Variables []string
}

// Uses reports whether the method references the named variable.
func (m *Method) Uses(variable string) bool {
	_, found := slices.BinarySearch(m.Variables, variable)
	return found
}

// scoreState memoizes a class's cohesion. It is written at most once.
type scoreState struct {
	computed bool
	value    float64
}

// Class is the extracted structure of one class definition.
type Class struct {
	Name   string
	Line   int // 1-based
	Column int // 0-based byte column

	// Variables holds every declared variable name, sorted and deduplicated.
	Variables []string

	methods     []*Method
	methodIndex map[string]int
	score       scoreState
}

func newClass(name string, line, column int) *Class {
	return &Class{
		Name:        name,
		Line:        line,
		Column:      column,
		methodIndex: make(map[string]int),
	}
}

// Methods returns the class's methods in source order.
func (c *Class) Methods() []*Method {
	return c.methods
}

// Method returns the named method, or nil.
func (c *Class) Method(name string) *Method {
	if i, ok := c.methodIndex[name]; ok {
		return c.methods[i]
	}
	return nil
}

// addMethod inserts m, replacing an earlier method of the same name in place.
func (c *Class) addMethod(m *Method) {
	if i, ok := c.methodIndex[m.Name]; ok {
		c.methods[i] = m
		return
	}
	c.methodIndex[m.Name] = len(c.methods)
	c.methods = append(c.methods, m)
}

// Structure holds the classes of one source file keyed by name, in the order
// each name was first seen.
type Structure struct {
	Path string

	order   []string
	classes map[string]*Class
}

// NewStructure returns an empty structure for path.
func NewStructure(path string) *Structure {
	return &Structure{
		Path:    path,
		classes: make(map[string]*Class),
	}
}

// Len returns the number of classes.
func (s *Structure) Len() int {
	return len(s.order)
}

// Each calls fn for every class in insertion order.
func (s *Structure) Each(fn func(*Class)) {
	for _, name := range s.order {
		fn(s.classes[name])
	}
}

// put stores c under its name. A class of the same name already present is
// replaced but keeps its position.
func (s *Structure) put(c *Class) {
	if _, ok := s.classes[c.Name]; !ok {
		s.order = append(s.order, c.Name)
	}
	s.classes[c.Name] = c
}

// retain drops every class for which keep returns false.
func (s *Structure) retain(keep func(*Class) bool) {
	kept := s.order[:0]
	for _, name := range s.order {
		if keep(s.classes[name]) {
			kept = append(kept, name)
			continue
		}
		delete(s.classes, name)
	}
	s.order = kept
}

// MethodSnapshot is the serializable form of a Method.
type MethodSnapshot struct {
	Name         string   `json:"name" yaml:"name" toon:"name"`
	Variables    []string `json:"variables" yaml:"variables" toon:"variables"`
	Bounded      bool     `json:"bounded" yaml:"bounded" toon:"bounded"`
	StaticMethod bool     `json:"staticmethod" yaml:"staticmethod" toon:"staticmethod"`
	ClassMethod  bool     `json:"classmethod" yaml:"classmethod" toon:"classmethod"`
}

// ClassSnapshot is the serializable form of a Class.
type ClassSnapshot struct {
	Name      string           `json:"name" yaml:"name" toon:"name"`
	Cohesion  float64          `json:"cohesion" yaml:"cohesion" toon:"cohesion"`
	Line      int              `json:"lineno" yaml:"lineno" toon:"lineno"`
	Column    int              `json:"col_offset" yaml:"col_offset" toon:"col_offset"`
	Variables []string         `json:"variables" yaml:"variables" toon:"variables"`
	Functions []MethodSnapshot `json:"functions" yaml:"functions" toon:"functions"`
}

// FileSnapshot is the serializable form of a Structure.
type FileSnapshot struct {
	Path    string          `json:"path" yaml:"path" toon:"path"`
	Classes []ClassSnapshot `json:"classes" yaml:"classes" toon:"classes"`
}

// Snapshot returns a plain-data copy of the structure with every score
// computed, suitable for JSON, YAML or TOON encoding.
func (s *Structure) Snapshot() FileSnapshot {
	snap := FileSnapshot{Path: s.Path, Classes: make([]ClassSnapshot, 0, s.Len())}
	s.Each(func(c *Class) {
		cs := ClassSnapshot{
			Name:      c.Name,
			Cohesion:  c.Score(),
			Line:      c.Line,
			Column:    c.Column,
			Variables: nonNil(c.Variables),
			Functions: make([]MethodSnapshot, 0, len(c.methods)),
		}
		for _, m := range c.methods {
			cs.Functions = append(cs.Functions, MethodSnapshot{
				Name:         m.Name,
				Variables:    nonNil(m.Variables),
				Bounded:      m.Bound,
				StaticMethod: m.StaticMethod,
				ClassMethod:  m.ClassMethod,
			})
		}
		snap.Classes = append(snap.Classes, cs)
	})
	return snap
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FromSnapshot rebuilds a structure from its serialized form. Scores are
// recomputed on demand.
func FromSnapshot(snap FileSnapshot) *Structure {
	s := NewStructure(snap.Path)
	for _, cs := range snap.Classes {
		c := newClass(cs.Name, cs.Line, cs.Column)
		c.Variables = cs.Variables
		for _, ms := range cs.Functions {
			c.addMethod(&Method{
				Name:         ms.Name,
				Bound:        ms.Bounded,
				StaticMethod: ms.StaticMethod,
				ClassMethod:  ms.ClassMethod,
				Variables:    ms.Variables,
			})
		}
		s.put(c)
	}
	return s
}
