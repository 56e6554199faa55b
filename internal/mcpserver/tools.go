package mcpserver

import (
	"context"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/cohesion/internal/output"
	"github.com/panbanda/cohesion/internal/report"
	"github.com/panbanda/cohesion/pkg/analyzer/cohesion"
	"github.com/panbanda/cohesion/pkg/config"
	"github.com/panbanda/cohesion/pkg/scanner"
	"github.com/panbanda/cohesion/pkg/source"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Paths     []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
	Format    string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
	BoundName string   `json:"bound_name,omitempty" jsonschema:"Receiver parameter name marking instance methods. Default self."`
}

// CohesionInput adds filters for analyze_cohesion.
type CohesionInput struct {
	AnalyzeInput
	Below *float64 `json:"below,omitempty" jsonschema:"Only classes scoring at or below this percentage (0-100)."`
	Above *float64 `json:"above,omitempty" jsonschema:"Only classes scoring at or above this percentage (0-100)."`
	Top   int      `json:"top,omitempty" jsonschema:"Show only the N least cohesive classes. Default all."`
}

// LintInput adds the threshold for lint_cohesion.
type LintInput struct {
	AnalyzeInput
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Report classes at or below this percentage. Default from config (50)."`
}

// ClassResult is one class in the analyze_cohesion result.
type ClassResult struct {
	Path            string                    `json:"path" toon:"path"`
	Name            string                    `json:"name" toon:"name"`
	Line            int                       `json:"lineno" toon:"lineno"`
	Column          int                       `json:"col_offset" toon:"col_offset"`
	Cohesion        float64                   `json:"cohesion" toon:"cohesion"`
	Variables       []string                  `json:"variables" toon:"variables"`
	Functions       []cohesion.MethodSnapshot `json:"functions" toon:"functions"`
	Components      int                       `json:"components" toon:"components"`
	UnusedVariables []string                  `json:"unused_variables" toon:"unused_variables"`
}

// CohesionResult is the analyze_cohesion payload.
type CohesionResult struct {
	Classes []ClassResult    `json:"classes" toon:"classes"`
	Summary cohesion.Summary `json:"summary" toon:"summary"`
	Errors  []string         `json:"errors,omitempty" toon:"errors"`
}

// LintResult is the lint_cohesion payload.
type LintResult struct {
	Findings []report.Finding `json:"findings" toon:"findings"`
	Errors   []string         `json:"errors,omitempty" toon:"errors"`
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	if format == output.FormatMarkdown {
		out, err := output.Marshal(output.FormatTOON, data)
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "```", nil
	}
	out, err := output.Marshal(format, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// analyze scans the input paths and builds every file. Per-file failures are
// returned as messages next to the structures that did build.
func (s *Server) analyze(ctx context.Context, input AnalyzeInput) ([]*cohesion.Structure, []string, error) {
	files, err := scanner.NewScanner(s.config).ScanPaths(input.Paths)
	if err != nil {
		return nil, nil, err
	}

	boundName := s.config.Analysis.BoundName
	if input.BoundName != "" {
		boundName = input.BoundName
	}
	a := cohesion.New(
		cohesion.WithReceiver(boundName),
		cohesion.WithWorkers(s.config.Analysis.Jobs),
		cohesion.WithMaxFileSize(s.config.Analysis.MaxFileSize),
		cohesion.WithLogger(s.logger),
	)

	structures, errs := a.Analyze(ctx, files, source.NewFilesystem())
	return structures, report.ErrorLines(errs), nil
}

func checkPercentage(v *float64) (string, bool) {
	if v == nil || (*v >= 0 && *v <= 100) {
		return "", true
	}
	_, err := config.ParsePercentage(report.FormatScore(*v))
	return err.Error(), false
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, input CohesionInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)

	if input.Below != nil && input.Above != nil {
		return toolError("below and above are mutually exclusive")
	}
	for _, v := range []*float64{input.Below, input.Above} {
		if msg, ok := checkPercentage(v); !ok {
			return toolError(msg)
		}
	}

	structures, messages, err := s.analyze(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	result := CohesionResult{Classes: []ClassResult{}, Errors: messages}
	for _, st := range structures {
		switch {
		case input.Below != nil:
			st.FilterBelow(*input.Below)
		case input.Above != nil:
			st.FilterAbove(*input.Above)
		}

		snap := st.Snapshot()
		for _, cs := range snap.Classes {
			c, err := st.Class(cs.Name)
			if err != nil {
				return toolError(err.Error())
			}
			unused, err := st.UnusedVariables(cs.Name)
			if err != nil {
				return toolError(err.Error())
			}
			result.Classes = append(result.Classes, ClassResult{
				Path:            st.Path,
				Name:            cs.Name,
				Line:            cs.Line,
				Column:          cs.Column,
				Cohesion:        cs.Cohesion,
				Variables:       cs.Variables,
				Functions:       cs.Functions,
				Components:      c.Components(),
				UnusedVariables: unused,
			})
		}
	}
	result.Summary = cohesion.Summarize(structures...)

	slices.SortStableFunc(result.Classes, func(a, b ClassResult) int {
		switch {
		case a.Cohesion < b.Cohesion:
			return -1
		case a.Cohesion > b.Cohesion:
			return 1
		}
		return 0
	})
	if input.Top > 0 && len(result.Classes) > input.Top {
		result.Classes = result.Classes[:input.Top]
	}

	return toolResult(result, format)
}

func (s *Server) handleLint(ctx context.Context, req *mcp.CallToolRequest, input LintInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)

	threshold := s.config.Lint.Threshold
	if input.Threshold != nil {
		if msg, ok := checkPercentage(input.Threshold); !ok {
			return toolError(msg)
		}
		threshold = *input.Threshold
	}

	structures, messages, err := s.analyze(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	findings := report.Lint(structures, threshold, s.config.Lint.Code)
	if findings == nil {
		findings = []report.Finding{}
	}
	return toolResult(LintResult{Findings: findings, Errors: messages}, format)
}
