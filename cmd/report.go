// File: cmd/report.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"unicode"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/config"
	"github.com/xkilldash9x/fintel-cli/internal/observability"
	"github.com/xkilldash9x/fintel-cli/internal/reporting"
	"github.com/xkilldash9x/fintel-cli/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newReportCmd creates and configures the `report` command.
func newReportCmd() *cobra.Command {
	var outputPath string
	var format string
	var pretty bool

	reportCmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Normalize one analysis document or state snapshot into a report",
		Long: `Reads a raw multi-agent analysis document (markdown) or a workflow state
snapshot (JSON) from a file, or from stdin when the argument is "-", runs it
through the normalization pipeline, and emits the report as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			// Flags win over config; unset flags fall back to the config.
			if format == "" {
				format = cfg.Report().Format
			}
			if !cmd.Flags().Changed("pretty") {
				pretty = cfg.Report().Pretty
			}

			// Delegate to the testable core logic function.
			return runReport(ctx, logger, cfg, args[0], outputPath, format, pretty)
		},
	}

	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.Flags().StringVarP(&format, "format", "f", "", "Input format: auto, text, or state. Defaults to the configured value.")
	reportCmd.Flags().BoolVar(&pretty, "pretty", true, "Pretty-print the JSON output.")

	return reportCmd
}

// runReport contains the core, testable logic for generating a report.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	inputPath, outputPath, format string,
	pretty bool,
) error {
	logger.Info("Starting report generation",
		zap.String("input", inputPath),
		zap.String("format", format),
	)

	raw, err := readInput(inputPath)
	if err != nil {
		return err
	}

	input, err := decodeInput(logger, raw, format)
	if err != nil {
		return err
	}

	builder := results.NewBuilder(logger, results.Options{
		ProviderLabel: cfg.Report().Provider,
		RoleNames:     cfg.Report().RoleNames,
	})
	report := builder.Build(input)

	return writeReport(logger, report, outputPath, pretty)
}

// readInput loads the raw input bytes from a file or stdin ("-").
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

// decodeInput interprets the raw bytes per the requested format. In auto
// mode, input that looks like JSON is decoded as a state snapshot and falls
// back to raw text when it cannot be repaired into one.
func decodeInput(logger *zap.Logger, raw []byte, format string) (results.Input, error) {
	switch format {
	case "text":
		return results.TextInput(string(raw)), nil
	case "state":
		state, err := decodeState(raw)
		if err != nil {
			return results.Input{}, fmt.Errorf("failed to decode state input: %w", err)
		}
		return results.StateInput(state), nil
	default: // auto
		if !looksLikeJSON(raw) {
			return results.TextInput(string(raw)), nil
		}
		state, err := decodeState(raw)
		if err != nil {
			logger.Warn("Input looks like JSON but does not decode as a state snapshot, treating it as text", zap.Error(err))
			return results.TextInput(string(raw)), nil
		}
		return results.StateInput(state), nil
	}
}

// looksLikeJSON reports whether the input's first significant byte opens a
// JSON object.
func looksLikeJSON(raw []byte) bool {
	trimmed := bytes.TrimLeftFunc(raw, unicode.IsSpace)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// decodeState parses a workflow state snapshot, repairing almost-JSON input
// before giving up.
func decodeState(raw []byte) (*schemas.WorkflowState, error) {
	var state schemas.WorkflowState
	if err := json.Unmarshal(raw, &state); err == nil {
		return &state, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &state); err != nil {
		return nil, fmt.Errorf("repaired input does not decode as a state snapshot: %w", err)
	}
	return &state, nil
}

// writeReport emits the report to a file or stdout via the reporting module.
func writeReport(logger *zap.Logger, report *schemas.Report, outputPath string, pretty bool) error {
	path := outputPath
	if path != "" {
		if expanded, err := homedir.Expand(path); err == nil {
			path = expanded
		}
	}

	reporter, err := reporting.New("json", path, pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := reporter.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if path != "" && path != "stdout" {
		logger.Info("Report successfully written to file", zap.String("path", path))
	}
	return nil
}
