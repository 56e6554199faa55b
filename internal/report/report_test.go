package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/panbanda/cohesion/internal/fileproc"
	"github.com/panbanda/cohesion/internal/testutil"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, path, src string) *cohesion.Structure {
	t.Helper()
	s, err := cohesion.New().AnalyzeSource(context.Background(), path, []byte(testutil.Dedent(src)))
	require.NoError(t, err)
	return s
}

const sample = `
	class Cls(object):
	    class_variable = 'foo'
	    def func(self):
	        self.instance_variable = 'bar'
	    @staticmethod
	    def helper():
	        pass
	    @classmethod
	    def build(cls):
	        pass
	    def free():
	        pass
`

func TestFileReportText(t *testing.T) {
	var buf bytes.Buffer
	r := NewFileReport([]*cohesion.Structure{analyze(t, "cls.py", sample)}, false, 50)
	require.NoError(t, r.RenderText(&buf, false))

	want := strings.Join([]string{
		"File: cls.py",
		"  Class: Cls (1:0)",
		"    Function: func 1/2 50.00%",
		"    Function: helper staticmethod",
		"    Function: build classmethod",
		"    Function: free 0/2 0.00%",
		"    Total: 12.5%",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestFileReportVerbose(t *testing.T) {
	var buf bytes.Buffer
	src := `
		class Cls:
		    b = 1
		    a = 2
		    def f(self):
		        return self.b
	`
	r := NewFileReport([]*cohesion.Structure{analyze(t, "v.py", src)}, true, 50)
	require.NoError(t, r.RenderText(&buf, false))

	assert.Contains(t, buf.String(), "    Function: f 1/2 50.00%\n      Variable: a False\n      Variable: b True\n    Total: 50.0%\n")
}

func TestFileReportMultipleFilesKeepOrder(t *testing.T) {
	var buf bytes.Buffer
	r := NewFileReport([]*cohesion.Structure{
		analyze(t, "b.py", "class B:\n    pass\n"),
		analyze(t, "a.py", ""),
	}, false, 50)
	require.NoError(t, r.RenderText(&buf, false))
	assert.Equal(t, "File: b.py\n  Class: B (1:0)\n    Total: 0.0%\nFile: a.py\n", buf.String())
}

func TestFileReportMarkdownAndData(t *testing.T) {
	s := analyze(t, "cls.py", sample)
	r := NewFileReport([]*cohesion.Structure{s}, false, 50)

	var md bytes.Buffer
	require.NoError(t, r.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "## cls.py")
	assert.Contains(t, md.String(), "| Cls | 1:0 | 4 | 2 | 12.5 |")

	snaps, ok := r.RenderData().([]cohesion.FileSnapshot)
	require.True(t, ok)
	require.Len(t, snaps, 1)
	assert.Equal(t, 12.5, snaps[0].Classes[0].Cohesion)
}

func TestMethodLine(t *testing.T) {
	tests := []struct {
		name     string
		method   cohesion.Method
		declared int
		want     string
	}{
		{"bound", cohesion.Method{Name: "f", Bound: true, Variables: []string{"a"}}, 3, "Function: f 1/3 33.33%"},
		{"bound no variables", cohesion.Method{Name: "f", Bound: true}, 0, "Function: f 0/0 0.00%"},
		{"unbound", cohesion.Method{Name: "f", Variables: []string{"a"}}, 1, "Function: f 1/1 0.00%"},
		{"static wins", cohesion.Method{Name: "s", StaticMethod: true}, 1, "Function: s staticmethod"},
		{"classmethod", cohesion.Method{Name: "c", ClassMethod: true}, 1, "Function: c classmethod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MethodLine(&tt.method, tt.declared))
		})
	}
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.0", FormatScore(0))
	assert.Equal(t, "50.0", FormatScore(50))
	assert.Equal(t, "33.33", FormatScore(33.33))
	assert.Equal(t, "100.0", FormatScore(100))
}

func TestDump(t *testing.T) {
	d := &Dump{Structures: []*cohesion.Structure{analyze(t, "cls.py", sample)}}

	var buf bytes.Buffer
	require.NoError(t, d.RenderText(&buf, false))
	assert.Contains(t, buf.String(), "\n    \"path\": \"cls.py\"")

	var snap cohesion.FileSnapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	assert.Equal(t, "Cls", snap.Classes[0].Name)
	assert.Len(t, snap.Classes[0].Functions, 4)

	var md bytes.Buffer
	require.NoError(t, d.RenderMarkdown(&md))
	assert.True(t, strings.HasPrefix(md.String(), "## cls.py\n\n```json\n"))
}

func TestLint(t *testing.T) {
	structures := []*cohesion.Structure{
		analyze(t, "a.py", `
			class Low:
			    pass

			class High:
			    def f(self):
			        return self.x
		`),
		analyze(t, "b.py", `
			class Edge:
			    a = 1
			    def f(self):
			        self.b = 2
		`),
	}

	findings := Lint(structures, 50, "C501")
	require.Len(t, findings, 2)
	assert.Equal(t, Finding{Path: "a.py", Line: 1, Column: 0, Message: "C501 Class has low (0.0%) cohesion", Checker: "cohesion"}, findings[0])
	assert.Equal(t, "C501 Class has low (50.0%) cohesion", findings[1].Message)

	var buf bytes.Buffer
	require.NoError(t, Findings(findings).RenderText(&buf, false))
	assert.Equal(t, "a.py:1:1: C501 Class has low (0.0%) cohesion\nb.py:1:1: C501 Class has low (50.0%) cohesion\n", buf.String())
}

func TestLintCustomCodeAndThreshold(t *testing.T) {
	s := analyze(t, "a.py", "class Low:\n    pass\n")
	findings := Lint([]*cohesion.Structure{s}, 0, "X100")
	require.Len(t, findings, 1)
	assert.True(t, strings.HasPrefix(findings[0].Message, "X100 "))

	assert.Equal(t, []Finding{}, Findings(nil).RenderData())
}

func TestSummaryTable(t *testing.T) {
	s := analyze(t, "a.py", "class A:\n    def f(self):\n        return self.x\n")
	table := SummaryTable(cohesion.Summarize(s))

	assert.Equal(t, []string{"Mean cohesion", "100.0%"}, table.Rows[4])
	sum, ok := table.RenderData().(cohesion.Summary)
	require.True(t, ok)
	assert.Equal(t, 1, sum.Classes)
}

func TestErrorLines(t *testing.T) {
	assert.Nil(t, ErrorLines(nil))

	_, err := cohesion.New().AnalyzeSource(context.Background(), "bad.py", []byte("class C(:\n"))
	require.Error(t, err)

	errs := &fileproc.ProcessingErrors{}
	errs.Add("z.py", os.ErrNotExist)
	errs.Add("bad.py", err)

	lines := ErrorLines(errs)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "bad.py:1:"))
	assert.NotContains(t, lines[0], "bad.py: bad.py")
	assert.Equal(t, "z.py: file does not exist", lines[1])
}
