package cohesion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedScores = `
	class Zero:
	    pass

	class Half:
	    a = 1
	    def f(self):
	        self.b = 2

	class Full:
	    def f(self):
	        return self.x
`

func TestFilterBelowAndAboveIntersect(t *testing.T) {
	for _, threshold := range []float64{0, 50, 75, 100} {
		s := build(t, mixedScores)
		s.FilterBelow(threshold)
		s.FilterAbove(threshold)

		s.Each(func(c *Class) {
			assert.Equal(t, threshold, c.Score())
		})
	}

	s := build(t, mixedScores)
	s.FilterBelow(50)
	s.FilterAbove(50)
	assert.Equal(t, []string{"Half"}, s.Classes())

	s = build(t, mixedScores)
	s.FilterBelow(75)
	s.FilterAbove(75)
	assert.Empty(t, s.Classes())
}

func TestFilterBounds(t *testing.T) {
	s := build(t, mixedScores)
	s.FilterBelow(100)
	assert.Equal(t, []string{"Zero", "Half", "Full"}, s.Classes())

	s.FilterAbove(0)
	assert.Equal(t, []string{"Zero", "Half", "Full"}, s.Classes())
}

func TestFilterKeepsOrder(t *testing.T) {
	s := build(t, mixedScores)
	s.FilterBelow(50)
	assert.Equal(t, []string{"Zero", "Half"}, s.Classes())

	s = build(t, mixedScores)
	s.FilterAbove(50)
	assert.Equal(t, []string{"Half", "Full"}, s.Classes())

	_, err := s.Class("Zero")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestLookupErrors(t *testing.T) {
	s := build(t, "class Cls:\n    def f(self):\n        pass\n")

	_, err := s.Methods("Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = s.ClassVariables("Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = s.Cohesion("Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = s.UnusedVariables("Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)
	_, err = s.MethodVariables("Missing", "f")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = s.MethodVariables("Cls", "g")
	assert.ErrorIs(t, err, ErrMethodNotFound)
	assert.Contains(t, err.Error(), `"g" in class "Cls"`)
}

func TestQueriesReturnCopies(t *testing.T) {
	s := build(t, "class Cls:\n    a = 1\n")

	vars, err := s.ClassVariables("Cls")
	require.NoError(t, err)
	vars[0] = "mutated"

	again, err := s.ClassVariables("Cls")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again)
}

func TestUnusedVariables(t *testing.T) {
	s := build(t, `
		class Cls:
		    a = b = c = 1
		    def f(self):
		        return self.a
		    def g(self):
		        self.d = self.c
	`)

	unused, err := s.UnusedVariables("Cls")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, unused)

	empty := build(t, "class Cls:\n    pass\n")
	unused, err = empty.UnusedVariables("Cls")
	require.NoError(t, err)
	assert.Empty(t, unused)
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"no methods", "class Cls:\n    a = 1\n", 0},
		{
			"shared state",
			`
			class Cls:
			    def f(self):
			        self.a = 1
			    def g(self):
			        return self.a + self.b
			    def h(self):
			        return self.b
			`,
			1,
		},
		{
			"split",
			`
			class Cls:
			    def f(self):
			        self.a = 1
			    def g(self):
			        return self.a
			    def h(self):
			        return self.b
			    def i(self):
			        pass
			`,
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := build(t, tt.src).Class("Cls")
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Components())
		})
	}
}

func TestSummary(t *testing.T) {
	s := build(t, mixedScores)
	sum := s.Summary()

	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 3, sum.Classes)
	assert.Equal(t, 2, sum.Methods)
	assert.Equal(t, 3, sum.Variables)
	assert.Equal(t, 50.0, sum.MeanCohesion)
	assert.Equal(t, 50.0, sum.MedianCohesion)
	assert.Equal(t, 0.0, sum.MinCohesion)
	assert.Equal(t, 100.0, sum.MaxCohesion)
	assert.Equal(t, 50.0, sum.StdDevCohesion)
}

func TestSummarizeAcrossFiles(t *testing.T) {
	empty := Summarize()
	assert.Zero(t, empty.Classes)

	one := build(t, "class A:\n    def f(self):\n        return self.x\n")
	sum := Summarize(one, build(t, ""))
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, 1, sum.Classes)
	assert.Equal(t, 100.0, sum.MeanCohesion)
	assert.Equal(t, 0.0, sum.StdDevCohesion)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := build(t, `
		class Cls:
		    a = 1
		    @staticmethod
		    def s():
		        pass
		    def f(self):
		        return self.a
	`)

	snap := s.Snapshot()
	require.Len(t, snap.Classes, 1)
	cls := snap.Classes[0]
	assert.Equal(t, "Cls", cls.Name)
	assert.Equal(t, 50.0, cls.Cohesion)
	assert.Equal(t, 1, cls.Line)
	assert.Equal(t, 0, cls.Column)
	require.Len(t, cls.Functions, 2)
	assert.True(t, cls.Functions[0].StaticMethod)
	assert.Equal(t, []string{}, cls.Functions[0].Variables)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lineno":1`)
	assert.Contains(t, string(data), `"bounded":true`)

	var decoded FileSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	restored := FromSnapshot(decoded)
	assert.Equal(t, snap, restored.Snapshot())
}
