// File: cmd/batch_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestRunBatch_ProcessesDirectory(t *testing.T) {
	quietLogs(t)
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeTestFile(t, dir, "aapl.json",
		`{"query":"AAPL","enhanced_result":{"ticker":"AAPL","sentiment":"positive","recommendation":"buy","confidence":0.8}}`)
	writeTestFile(t, dir, "msft.json",
		`{"query":"MSFT","enhanced_result":{"ticker":"MSFT","sentiment":"neutral","recommendation":"hold","confidence":0.6}}`)
	// A report left over from a previous run must not be treated as input.
	writeTestFile(t, dir, "stale.report.json", `{}`)

	err := runBatch(context.Background(), zaptest.NewLogger(t), newTestConfig(), dir, "*.json", "", 2)
	require.NoError(t, err)

	aapl := readReport(t, filepath.Join(dir, "aapl.report.json"))
	assert.Equal(t, 0.8, aapl.ConfidenceLevel)
	assert.Equal(t, []string{"Buy"}, aapl.ActionableRecommendations)

	msft := readReport(t, filepath.Join(dir, "msft.report.json"))
	assert.Equal(t, 0.6, msft.ConfidenceLevel)
	assert.Equal(t, []string{"Hold"}, msft.ActionableRecommendations)

	_, err = os.Stat(filepath.Join(dir, "stale.report.report.json"))
	assert.True(t, os.IsNotExist(err), "stale report output should not have been reprocessed")
}

func TestRunBatch_WritesToOutDir(t *testing.T) {
	quietLogs(t)
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	outDir := filepath.Join(dir, "reports", "nested")
	writeTestFile(t, dir, "query.json", `{"query":"AMZN"}`)

	err := runBatch(context.Background(), zaptest.NewLogger(t), newTestConfig(), dir, "*.json", outDir, 1)
	require.NoError(t, err)

	report := readReport(t, filepath.Join(outDir, "query.report.json"))
	assert.Equal(t, "AMZN", report.ExecutionTrace.Query)
}

func TestRunBatch_MixedInputKinds(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "snapshot.json", `{"query":"GOOG"}`)
	writeTestFile(t, dir, "narrative.md", "## Market Analysis\nSteady.\n\n**Confidence:** 9/10\n")

	err := runBatch(context.Background(), zaptest.NewLogger(t), newTestConfig(), dir, "*", "", 2)
	require.NoError(t, err)

	snapshot := readReport(t, filepath.Join(dir, "snapshot.report.json"))
	assert.Equal(t, "GOOG", snapshot.ExecutionTrace.Query)

	narrative := readReport(t, filepath.Join(dir, "narrative.report.json"))
	assert.Equal(t, 0.9, narrative.ConfidenceLevel)
}

func TestRunBatch_NoMatches(t *testing.T) {
	err := runBatch(context.Background(), zaptest.NewLogger(t), newTestConfig(), t.TempDir(), "*.json", "", 2)
	require.NoError(t, err)
}

func TestRunBatch_InvalidConcurrency(t *testing.T) {
	err := runBatch(context.Background(), zaptest.NewLogger(t), newTestConfig(), t.TempDir(), "*.json", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be positive")
}

func TestRunBatch_PropagatesDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "broken.json", "definitely not a state snapshot")

	cfg := newTestConfig()
	cfg.ReportCfg.Format = "state"

	err := runBatch(context.Background(), zaptest.NewLogger(t), cfg, dir, "*.json", "", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch run failed")
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"query.json", "query.report.json"},
		{"/data/in/query.json", "query.report.json"},
		{"narrative.md", "narrative.report.json"},
		{"noext", "noext.report.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reportFileName(tt.path))
	}
}
