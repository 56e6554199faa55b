package report

import (
	"errors"

	"github.com/panbanda/cohesion/internal/fileproc"
	"github.com/panbanda/cohesion/pkg/parser"
)

// ErrorLine formats a per-file failure. Syntax errors already carry their
// location and are shown as is.
func ErrorLine(e fileproc.ProcessingError) string {
	var synErr *parser.SyntaxError
	if errors.As(e.Err, &synErr) {
		return synErr.Error()
	}
	return e.Error()
}

// ErrorLines formats every failure in errs, ordered by path.
func ErrorLines(errs *fileproc.ProcessingErrors) []string {
	if errs == nil {
		return nil
	}
	var lines []string
	for _, e := range errs.Sorted() {
		lines = append(lines, ErrorLine(e))
	}
	return lines
}
