// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/config"
	"github.com/xkilldash9x/fintel-cli/internal/observability"
)

// quietLogs initializes the global logger at fatal level so command paths
// that reach for it stay silent. The first initialization wins, so this
// must run before any command executes.
func quietLogs(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
}

// newTestConfig creates a default configuration for driving the run
// functions directly, with logging silenced.
func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LoggerCfg.Level = "fatal"
	return cfg
}

// executeCommand runs a fresh root command with the full PersistentPreRunE
// chain, capturing combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	quietLogs(t)

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	root.PersistentPreRunE = nil // Disable config loading for simple validation tests.

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig helper
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpfile.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestReportCmd_RequiresArg(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "report")
	require.Error(t, err)
	assert.Contains(t, output, "accepts 1 arg(s), received 0")
}

func TestBatchCmd_RequiresArg(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "batch")
	require.Error(t, err)
	assert.Contains(t, output, "accepts 1 arg(s), received 0")
}

func TestWatchCmd_RequiresArg(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "watch")
	require.Error(t, err)
	assert.Contains(t, output, "accepts 1 arg(s), received 0")
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommandNoPreRun(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCmd(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "fintel "+Version)
}

func TestGetConfigFromContext_Missing(t *testing.T) {
	cfg, err := getConfigFromContext(context.Background())
	require.Error(t, err)
	assert.Nil(t, cfg)
}

// TestReportCommand_EndToEnd drives the report command through cobra with an
// explicit config file, from state snapshot to report file.
func TestReportCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "state.json")
	stateJSON := `{
		"query": "AAPL outlook",
		"enhanced_result": {"ticker": "AAPL", "recommendation": "buy", "sentiment": "positive", "confidence": 0.9},
		"trace": {"task_results": {"final_synthesis": {"recommendation": "buy", "sentiment": "positive", "confidence": 0.9}}}
	}`
	require.NoError(t, os.WriteFile(input, []byte(stateJSON), 0644))

	outPath := filepath.Join(dir, "report.json")
	cfgFile := createTempConfig(t, "logger:\n  level: fatal\n")

	output, err := executeCommand(t, "--config", cfgFile, "report", input, "--output", outPath)
	require.NoError(t, err, output)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report schemas.Report
	require.NoError(t, stdjson.Unmarshal(content, &report))
	assert.Equal(t, 0.9, report.ConfidenceLevel)
	assert.Equal(t, []string{"Buy"}, report.ActionableRecommendations)
	assert.Contains(t, report.ExecutiveSummary, "Recommendation: Buy.")
	assert.Equal(t, "AAPL outlook", report.ExecutionTrace.Query)
	require.Len(t, report.AgentFindings, 1)
	assert.Equal(t, "Investment Advisor", report.AgentFindings[0].AgentName)
}

// TestReportCommand_ProviderFromEnv checks that FINTEL_ env bindings reach
// the pipeline through the config layer.
func TestReportCommand_ProviderFromEnv(t *testing.T) {
	t.Setenv("FINTEL_REPORT_PROVIDER", "Gemini")

	dir := t.TempDir()
	input := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"query": "msft"}`), 0644))

	outPath := filepath.Join(dir, "report.json")
	cfgFile := createTempConfig(t, "logger:\n  level: fatal\n")

	output, err := executeCommand(t, "--config", cfgFile, "report", input, "--output", outPath)
	require.NoError(t, err, output)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report schemas.Report
	require.NoError(t, stdjson.Unmarshal(content, &report))
	assert.Equal(t, "Analysis completed using Gemini.", report.CrossAgentInsights)
}

func TestRootCommand_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(input, []byte(`{}`), 0644))

	cfgFile := createTempConfig(t, "report:\n  format: yaml\n")

	_, err := executeCommand(t, "--config", cfgFile, "report", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}
