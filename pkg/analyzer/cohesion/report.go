package cohesion

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"
)

// Lookup errors returned by the report queries.
var (
	ErrClassNotFound  = errors.New("class not found")
	ErrMethodNotFound = errors.New("method not found")
)

// Classes returns the class names in insertion order.
func (s *Structure) Classes() []string {
	return slices.Clone(s.order)
}

// Class returns the named class.
func (s *Structure) Class(name string) (*Class, error) {
	c, ok := s.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrClassNotFound, name)
	}
	return c, nil
}

// Methods returns the method names of a class in source order.
func (s *Structure) Methods(class string) ([]string, error) {
	c, err := s.Class(class)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(c.methods))
	for i, m := range c.methods {
		names[i] = m.Name
	}
	return names, nil
}

// ClassVariables returns the declared variables of a class, sorted.
func (s *Structure) ClassVariables(class string) ([]string, error) {
	c, err := s.Class(class)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.Variables), nil
}

// MethodVariables returns the variables a method uses, sorted.
func (s *Structure) MethodVariables(class, method string) ([]string, error) {
	c, err := s.Class(class)
	if err != nil {
		return nil, err
	}
	m := c.Method(method)
	if m == nil {
		return nil, fmt.Errorf("%w: %q in class %q", ErrMethodNotFound, method, class)
	}
	return slices.Clone(m.Variables), nil
}

// Cohesion returns the score of a class.
func (s *Structure) Cohesion(class string) (float64, error) {
	c, err := s.Class(class)
	if err != nil {
		return 0, err
	}
	return c.Score(), nil
}

// UnusedVariables returns the declared variables of a class that no method
// uses, sorted.
func (s *Structure) UnusedVariables(class string) ([]string, error) {
	c, err := s.Class(class)
	if err != nil {
		return nil, err
	}

	index := make(map[string]uint32, len(c.Variables))
	for i, v := range c.Variables {
		index[v] = uint32(i)
	}

	used := roaring.New()
	for _, m := range c.methods {
		for _, v := range m.Variables {
			if i, ok := index[v]; ok {
				used.Add(i)
			}
		}
	}

	unused := roaring.New()
	unused.AddRange(0, uint64(len(c.Variables)))
	unused.AndNot(used)

	names := make([]string, 0, unused.GetCardinality())
	for _, i := range unused.ToArray() {
		names = append(names, c.Variables[i])
	}
	return names, nil
}

// Components returns the number of connected groups of methods, where two
// methods are connected when they use a common variable. A class whose
// methods all share state has one component; a value above one suggests the
// class could be split.
func (c *Class) Components() int {
	if len(c.methods) == 0 {
		return 0
	}

	g := simple.NewUndirectedGraph()
	varIDs := make(map[string]int64, len(c.Variables))
	for i := range c.methods {
		g.AddNode(simple.Node(int64(i)))
	}
	next := int64(len(c.methods))
	for i, m := range c.methods {
		for _, v := range m.Variables {
			id, ok := varIDs[v]
			if !ok {
				id = next
				next++
				varIDs[v] = id
				g.AddNode(simple.Node(id))
			}
			g.SetEdge(simple.Edge{F: simple.Node(int64(i)), T: simple.Node(id)})
		}
	}

	methodCount := int64(len(c.methods))
	components := 0
	for _, comp := range topo.ConnectedComponents(g) {
		for _, n := range comp {
			if n.ID() < methodCount {
				components++
				break
			}
		}
	}
	return components
}

// Summary aggregates scores across one or more structures.
type Summary struct {
	Files          int     `json:"files" yaml:"files" toon:"files"`
	Classes        int     `json:"classes" yaml:"classes" toon:"classes"`
	Methods        int     `json:"methods" yaml:"methods" toon:"methods"`
	Variables      int     `json:"variables" yaml:"variables" toon:"variables"`
	MeanCohesion   float64 `json:"mean_cohesion" yaml:"mean_cohesion" toon:"mean_cohesion"`
	MedianCohesion float64 `json:"median_cohesion" yaml:"median_cohesion" toon:"median_cohesion"`
	StdDevCohesion float64 `json:"stddev_cohesion" yaml:"stddev_cohesion" toon:"stddev_cohesion"`
	MinCohesion    float64 `json:"min_cohesion" yaml:"min_cohesion" toon:"min_cohesion"`
	MaxCohesion    float64 `json:"max_cohesion" yaml:"max_cohesion" toon:"max_cohesion"`
}

// Summary returns statistics for this structure alone.
func (s *Structure) Summary() Summary {
	return Summarize(s)
}

// Summarize computes statistics over every class in the given structures.
// Median is the empirical (lower) median. Scores are rounded to two decimals.
func Summarize(structures ...*Structure) Summary {
	sum := Summary{Files: len(structures)}

	var scores []float64
	for _, s := range structures {
		s.Each(func(c *Class) {
			sum.Classes++
			sum.Methods += len(c.methods)
			sum.Variables += len(c.Variables)
			scores = append(scores, c.Score())
		})
	}
	if len(scores) == 0 {
		return sum
	}

	slices.Sort(scores)
	sum.MeanCohesion = roundPercent(stat.Mean(scores, nil))
	sum.MedianCohesion = stat.Quantile(0.5, stat.Empirical, scores, nil)
	sum.MinCohesion = floats.Min(scores)
	sum.MaxCohesion = floats.Max(scores)
	if len(scores) > 1 {
		sum.StdDevCohesion = roundPercent(stat.StdDev(scores, nil))
	}
	return sum
}
