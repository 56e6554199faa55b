// Package report renders analyzed structures for people and tools.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
)

// FileReport is the per-file cohesion report.
type FileReport struct {
	Structures []*cohesion.Structure
	Verbose    bool
	// Threshold picks the color of each class total.
	Threshold float64
}

// NewFileReport creates a report over the given structures.
func NewFileReport(structures []*cohesion.Structure, verbose bool, threshold float64) *FileReport {
	return &FileReport{Structures: structures, Verbose: verbose, Threshold: threshold}
}

// RenderText writes the indented report:
//
//	File: <path>
//	  Class: <name> (<line>:<col>)
//	    Function: <name> <used>/<declared> <percent>%
//	    Total: <score>%
func (r *FileReport) RenderText(w io.Writer, colored bool) error {
	for _, s := range r.Structures {
		fmt.Fprintf(w, "File: %s\n", s.Path)
		var err error
		s.Each(func(c *cohesion.Class) {
			if err == nil {
				err = r.renderClass(w, c, colored)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *FileReport) renderClass(w io.Writer, c *cohesion.Class, colored bool) error {
	if _, err := fmt.Fprintf(w, "  Class: %s (%d:%d)\n", c.Name, c.Line, c.Column); err != nil {
		return err
	}

	declared := len(c.Variables)
	for _, m := range c.Methods() {
		fmt.Fprintf(w, "    %s\n", MethodLine(m, declared))
		if r.Verbose {
			for _, v := range sortedCopy(c.Variables) {
				fmt.Fprintf(w, "      Variable: %s %s\n", v, pyBool(m.Uses(v)))
			}
		}
	}

	total := fmt.Sprintf("Total: %s%%", FormatScore(c.Score()))
	if colored {
		total = output.ScoreColor(c.Score(), r.Threshold, total)
	}
	_, err := fmt.Fprintf(w, "    %s\n", total)
	return err
}

// MethodLine describes one method and its share of the class's variables.
// Unbound methods without a decorator always show 0.00%.
func MethodLine(m *cohesion.Method, declared int) string {
	line := "Function: " + m.Name
	switch {
	case m.StaticMethod:
		return line + " staticmethod"
	case m.ClassMethod:
		return line + " classmethod"
	case !m.Bound:
		return fmt.Sprintf("%s %d/%d 0.00%%", line, len(m.Variables), declared)
	default:
		return fmt.Sprintf("%s %d/%d %.2f%%", line, len(m.Variables), declared, percentage(len(m.Variables), declared))
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// FormatScore prints a score with at least one decimal place: 50.0, 33.33.
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func sortedCopy(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return out
}

// RenderMarkdown writes one table of classes per file.
func (r *FileReport) RenderMarkdown(w io.Writer) error {
	for _, s := range r.Structures {
		if err := classTable(s).RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderData returns one snapshot per file.
func (r *FileReport) RenderData() any {
	snaps := make([]cohesion.FileSnapshot, 0, len(r.Structures))
	for _, s := range r.Structures {
		snaps = append(snaps, s.Snapshot())
	}
	return snaps
}

func classTable(s *cohesion.Structure) *output.Table {
	var rows [][]string
	s.Each(func(c *cohesion.Class) {
		rows = append(rows, []string{
			c.Name,
			fmt.Sprintf("%d:%d", c.Line, c.Column),
			strconv.Itoa(len(c.Methods())),
			strconv.Itoa(len(c.Variables)),
			FormatScore(c.Score()),
		})
	})
	return output.NewTable(s.Path, []string{"Class", "Position", "Methods", "Variables", "Cohesion"}, rows, nil, nil)
}
