package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/cohesion/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"shapes.py": "class Low:\n    a = 1\n    def f(self):\n        pass\n\nclass High:\n    def f(self):\n        return self.x\n",
		"broken.py": "class C(:\n",
	})
	return root
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func ptr(v float64) *float64 { return &v }

func TestServerCreation(t *testing.T) {
	s := NewServer("", nil, nil)
	require.NotNil(t, s.server)
	assert.NotNil(t, s.config)
}

func TestToolDescriptions(t *testing.T) {
	for name, fn := range map[string]func() string{"analyze": describeAnalyze, "lint": describeLint} {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			assert.Contains(t, desc, "USE WHEN:")
			assert.Contains(t, desc, "INTERPRETING RESULTS:")
			assert.Contains(t, desc, "METRICS RETURNED:")
		})
	}
}

func TestGenerateManifest(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"1.2.3", "1.2.3"},
		{"dev", "0.0.0"},
		{"", "0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.version, func(t *testing.T) {
			data, err := GenerateManifest(tt.version)
			require.NoError(t, err)

			var m Manifest
			require.NoError(t, json.Unmarshal(data, &m))
			assert.Equal(t, "io.github.panbanda/cohesion", m.Name)
			assert.Equal(t, tt.want, m.Version)
			require.Len(t, m.Packages, 1)
			pkg := m.Packages[0]
			assert.Equal(t, "ghcr.io/panbanda/cohesion:"+tt.want, pkg.Identifier)
			assert.Equal(t, []Argument{{Type: "positional", Value: "mcp"}}, pkg.PackageArguments)
			assert.Equal(t, "stdio", pkg.Transport.Type)
			require.Len(t, pkg.EnvironmentVariables, 1)
			assert.Equal(t, "COHESION_CONFIG", pkg.EnvironmentVariables[0].Name)
		})
	}
}

func TestHandleAnalyze(t *testing.T) {
	root := writeProject(t)
	s := NewServer("test", nil, nil)

	result, _, err := s.handleAnalyze(context.Background(), nil, CohesionInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{root}, Format: "json"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var got CohesionResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &got))

	require.Len(t, got.Classes, 2)
	assert.Equal(t, "Low", got.Classes[0].Name)
	assert.Equal(t, 0.0, got.Classes[0].Cohesion)
	assert.Equal(t, []string{"a"}, got.Classes[0].UnusedVariables)
	assert.Equal(t, filepath.Join(root, "shapes.py"), got.Classes[0].Path)
	assert.Equal(t, "High", got.Classes[1].Name)
	assert.Equal(t, 1, got.Classes[1].Components)

	assert.Equal(t, 2, got.Summary.Classes)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "broken.py")
}

func TestHandleAnalyzeFilters(t *testing.T) {
	root := writeProject(t)
	s := NewServer("test", nil, nil)

	tests := []struct {
		name  string
		input CohesionInput
		want  []string
	}{
		{"below", CohesionInput{Below: ptr(50)}, []string{"Low"}},
		{"above", CohesionInput{Above: ptr(50)}, []string{"High"}},
		{"top", CohesionInput{Top: 1}, []string{"Low"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Paths = []string{filepath.Join(root, "shapes.py")}
			tt.input.Format = "json"

			result, _, err := s.handleAnalyze(context.Background(), nil, tt.input)
			require.NoError(t, err)
			require.False(t, result.IsError)

			var got CohesionResult
			require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &got))
			var names []string
			for _, c := range got.Classes {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestHandleAnalyzeRejectsBadInput(t *testing.T) {
	s := NewServer("test", nil, nil)

	tests := []struct {
		name  string
		input CohesionInput
		want  string
	}{
		{"both filters", CohesionInput{Below: ptr(10), Above: ptr(20)}, "mutually exclusive"},
		{"out of range", CohesionInput{Below: ptr(101)}, `invalid percentage "101.0" please specify a number between 0 and 100`},
		{"missing path", CohesionInput{AnalyzeInput: AnalyzeInput{Paths: []string{filepath.Join(t.TempDir(), "nope")}}}, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := s.handleAnalyze(context.Background(), nil, tt.input)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, textOf(t, result), tt.want)
		})
	}
}

func TestHandleLint(t *testing.T) {
	root := writeProject(t)
	s := NewServer("test", nil, nil)

	result, _, err := s.handleLint(context.Background(), nil, LintInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{filepath.Join(root, "shapes.py")}, Format: "json"},
	})
	require.NoError(t, err)

	var got LintResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &got))
	require.Len(t, got.Findings, 1)
	assert.Equal(t, "C501 Class has low (0.0%) cohesion", got.Findings[0].Message)
	assert.Equal(t, "cohesion", got.Findings[0].Checker)

	result, _, err = s.handleLint(context.Background(), nil, LintInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{filepath.Join(root, "shapes.py")}, Format: "json"},
		Threshold:    ptr(-1),
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestFormatOutput(t *testing.T) {
	data := LintResult{Findings: nil}

	out, err := formatOutput(data, getFormat(AnalyzeInput{Format: "markdown"}))
	require.NoError(t, err)
	assert.Contains(t, out, "```\n")

	out, err = formatOutput(data, getFormat(AnalyzeInput{Format: "yaml"}))
	require.NoError(t, err)
	assert.Contains(t, out, "findings:")
}

func TestParseFrontmatter(t *testing.T) {
	desc, body := parseFrontmatter([]byte("---\ndescription: Check things.\n---\nDo it.\n"))
	assert.Equal(t, "Check things.", desc)
	assert.Equal(t, "Do it.\n", body)

	desc, body = parseFrontmatter([]byte("No frontmatter"))
	assert.Empty(t, desc)
	assert.Equal(t, "No frontmatter", body)
}

func TestInMemoryTransport(t *testing.T) {
	root := writeProject(t)
	srv := NewServer("test", nil, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.RunWithTransport(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema)
	}
	assert.ElementsMatch(t, []string{"analyze_cohesion", "lint_cohesion"}, names)

	prompts, err := session.ListPrompts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, prompts.Prompts, 2)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "analyze_cohesion",
		Arguments: map[string]any{"paths": []string{filepath.Join(root, "shapes.py")}},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "High")

	require.NoError(t, session.Close())
	cancel()
	<-serverDone
}
