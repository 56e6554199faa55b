package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
)

// Dump is the full structure of each file, for debugging.
type Dump struct {
	Structures []*cohesion.Structure
}

// RenderText writes each file's snapshot as indented JSON.
func (d *Dump) RenderText(w io.Writer, _ bool) error {
	for _, s := range d.Structures {
		if err := writeJSON(w, s.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dump) RenderMarkdown(w io.Writer) error {
	for _, s := range d.Structures {
		fmt.Fprintf(w, "## %s\n\n```json\n", s.Path)
		if err := writeJSON(w, s.Snapshot()); err != nil {
			return err
		}
		fmt.Fprint(w, "```\n\n")
	}
	return nil
}

func (d *Dump) RenderData() any {
	return (&FileReport{Structures: d.Structures}).RenderData()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
