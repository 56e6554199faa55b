package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
)

// Checker names the source of every finding.
const Checker = "cohesion"

// Finding is one low-cohesion class.
type Finding struct {
	Path    string `json:"path" yaml:"path" toon:"path"`
	Line    int    `json:"line" yaml:"line" toon:"line"`
	Column  int    `json:"column" yaml:"column" toon:"column"`
	Message string `json:"message" yaml:"message" toon:"message"`
	Checker string `json:"checker" yaml:"checker" toon:"checker"`
}

// Lint reports every class scoring at or below threshold. Each structure is
// filtered in place.
func Lint(structures []*cohesion.Structure, threshold float64, code string) []Finding {
	var findings []Finding
	for _, s := range structures {
		s.FilterBelow(threshold)
		s.Each(func(c *cohesion.Class) {
			findings = append(findings, Finding{
				Path:    s.Path,
				Line:    c.Line,
				Column:  c.Column,
				Message: fmt.Sprintf("%s Class has low (%s%%) cohesion", code, FormatScore(c.Score())),
				Checker: Checker,
			})
		})
	}
	return findings
}

// Findings renders lint results.
type Findings []Finding

// RenderText writes one line per finding in the usual linter layout. Columns
// are shown 1-based.
func (f Findings) RenderText(w io.Writer, colored bool) error {
	for _, fd := range f {
		loc := fmt.Sprintf("%s:%d:%d:", fd.Path, fd.Line, fd.Column+1)
		if colored {
			loc = color.RedString(loc)
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", loc, fd.Message); err != nil {
			return err
		}
	}
	return nil
}

func (f Findings) RenderMarkdown(w io.Writer) error {
	rows := make([][]string, 0, len(f))
	for _, fd := range f {
		rows = append(rows, []string{fd.Path, fmt.Sprintf("%d:%d", fd.Line, fd.Column+1), fd.Message})
	}
	return output.NewTable("Findings", []string{"File", "Position", "Message"}, rows, nil, nil).RenderMarkdown(w)
}

func (f Findings) RenderData() any {
	if f == nil {
		return []Finding{}
	}
	return []Finding(f)
}
