// File: cmd/report_test.go
package cmd

import (
	"context"
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/results"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readReport(t *testing.T, path string) schemas.Report {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var report schemas.Report
	require.NoError(t, stdjson.Unmarshal(content, &report))
	return report
}

func TestRunReport_StateFile(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	input := writeTestFile(t, dir, "state.json",
		`{"query":"TSLA delivery outlook","enhanced_result":{"ticker":"TSLA","sentiment":"positive","recommendation":"accumulate","confidence":0.72}}`)
	outPath := filepath.Join(dir, "out.json")

	err := runReport(context.Background(), zaptest.NewLogger(t), newTestConfig(), input, outPath, "auto", true)
	require.NoError(t, err)

	report := readReport(t, outPath)
	assert.Equal(t, 0.72, report.ConfidenceLevel)
	assert.Equal(t, []string{"Buy"}, report.ActionableRecommendations)
	assert.Equal(t, "TSLA delivery outlook", report.ExecutionTrace.Query)
}

func TestRunReport_TextFile(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	input := writeTestFile(t, dir, "analysis.md",
		"## Market Analysis\nMomentum remains strong.\n\n**Confidence:** 8/10\n")
	outPath := filepath.Join(dir, "out.json")

	err := runReport(context.Background(), zaptest.NewLogger(t), newTestConfig(), input, outPath, "auto", true)
	require.NoError(t, err)

	report := readReport(t, outPath)
	assert.Equal(t, 0.8, report.ConfidenceLevel)
	assert.Equal(t, "No external tools were invoked.", report.DataQualityNote)
	assert.Empty(t, report.FailedAgents)
}

func TestRunReport_MissingInput(t *testing.T) {
	err := runReport(context.Background(), zaptest.NewLogger(t), newTestConfig(),
		filepath.Join(t.TempDir(), "absent.json"), "", "auto", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input file")
}

func TestRunReport_ExplicitStateOnText(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "notes.md", "just some notes, not json")

	err := runReport(context.Background(), zaptest.NewLogger(t), newTestConfig(), input, filepath.Join(dir, "out.json"), "state", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode state input")
}

func TestDecodeInput(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("text format passes through", func(t *testing.T) {
		in, err := decodeInput(logger, []byte(`{"query":"still text"}`), "text")
		require.NoError(t, err)
		assert.Equal(t, results.InputText, in.Kind)
		assert.Equal(t, `{"query":"still text"}`, in.Text)
	})

	t.Run("state format decodes strictly", func(t *testing.T) {
		in, err := decodeInput(logger, []byte(`{"query":"AAPL"}`), "state")
		require.NoError(t, err)
		assert.Equal(t, results.InputState, in.Kind)
		require.NotNil(t, in.State)
		assert.Equal(t, "AAPL", in.State.Query)
	})

	t.Run("auto detects json state", func(t *testing.T) {
		in, err := decodeInput(logger, []byte("  \n\t"+`{"query":"AAPL"}`), "auto")
		require.NoError(t, err)
		assert.Equal(t, results.InputState, in.Kind)
	})

	t.Run("auto treats markdown as text", func(t *testing.T) {
		in, err := decodeInput(logger, []byte("## Key Findings\n- growth\n"), "auto")
		require.NoError(t, err)
		assert.Equal(t, results.InputText, in.Kind)
	})

	t.Run("auto falls back to text when state decode fails", func(t *testing.T) {
		// An object whose query field has the wrong type cannot become a
		// state snapshot, repaired or not.
		raw := []byte(`{"query": {"nested": true}}`)
		in, err := decodeInput(logger, raw, "auto")
		require.NoError(t, err)
		assert.Equal(t, results.InputText, in.Kind)
		assert.Equal(t, string(raw), in.Text)
	})
}

func TestDecodeState_RepairsAlmostJSON(t *testing.T) {
	state, err := decodeState([]byte(`{'query': 'NVDA earnings', 'agent_invocations': [],}`))
	require.NoError(t, err)
	assert.Equal(t, "NVDA earnings", state.Query)
}

func TestLooksLikeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"object", `{"a":1}`, true},
		{"leading whitespace", "\n\t {}", true},
		{"markdown", "## Section", false},
		{"array", `[1,2]`, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeJSON([]byte(tt.raw)))
		})
	}
}
