// internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/reporting"
)

func sampleReport() *schemas.Report {
	return &schemas.Report{
		ExecutiveSummary:          "Recommendation: Buy. Sentiment: Positive (84%).",
		AgentFindings:             []schemas.AgentFinding{},
		FailedAgents:              []string{},
		ActionableRecommendations: []string{"Buy"},
		RiskAssessment:            "Regulatory risk",
		CrossAgentInsights:        "Analysis completed.",
		ConfidenceLevel:           0.84,
		DataQualityNote:           "No external tools were invoked.",
	}
}

func TestNew_Stdout(t *testing.T) {
	// Explicit stdout.
	r, err := reporting.New("json", "stdout", true)
	require.NoError(t, err)
	assert.NotNil(t, r)
	// Close must be a no-op for the stdout wrapper.
	assert.NoError(t, r.Close())

	// Implicit stdout (empty path).
	r, err = reporting.New("ndjson", "", false)
	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.NoError(t, r.Close())
}

func TestNew_JSONFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "report.json")

	r, err := reporting.New("json", tmpFile, true)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	var decoded schemas.Report
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "Recommendation: Buy. Sentiment: Positive (84%).", decoded.ExecutiveSummary)
	assert.Equal(t, 0.84, decoded.ConfidenceLevel)
	assert.Equal(t, []string{"Buy"}, decoded.ActionableRecommendations)

	// Pretty output carries the two-space indent.
	assert.Contains(t, string(content), "\n  \"executive_summary\"")
}

func TestNew_CompactJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "report.json")

	r, err := reporting.New("json", tmpFile, false)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	// Compact output is a single line.
	assert.Equal(t, 1, bytes.Count(content, []byte("\n")))
	assert.NotContains(t, string(content), "  \"executive_summary\"")
}

func TestNDJSONReporter_OneLinePerReport(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "reports.ndjson")

	r, err := reporting.New("ndjson", tmpFile, false)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSuffix(content, []byte("\n")), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var decoded schemas.Report
		require.NoError(t, json.Unmarshal(line, &decoded))
		assert.Equal(t, 0.84, decoded.ConfidenceLevel)
	}

	// Identical reports must serialize to identical bytes.
	assert.Equal(t, lines[0], lines[1])
}

func TestNew_Failure_UnsupportedFormat(t *testing.T) {
	// Stdout path, no file involved.
	r, err := reporting.New("yaml", "stdout", false)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format: yaml")

	// File path. The file is created before the format switch, so it must
	// still exist, empty, with its handle closed.
	tmpFile := filepath.Join(t.TempDir(), "report.yaml")
	r, err = reporting.New("yaml", tmpFile, false)
	assert.Error(t, err)
	assert.Nil(t, r)

	info, statErr := os.Stat(tmpFile)
	require.NoError(t, statErr, "file should still exist after failure")
	assert.Equal(t, int64(0), info.Size(), "file should be empty as initialization failed")
}

func TestNew_Failure_FileCreation(t *testing.T) {
	// A directory path cannot be created as a file.
	invalidPath := t.TempDir()

	r, err := reporting.New("json", invalidPath, false)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "failed to create output file")
}
