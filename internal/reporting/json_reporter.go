// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/observability"
)

// json uses the stdlib-compatible config so map keys are sorted and repeated
// marshals of the same report produce identical bytes.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter implements the Reporter interface for plain JSON output.
// Each Write emits one complete report document. It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	pretty bool

	// mu serializes writes so concurrent reports never interleave.
	mu      sync.Mutex
	reports int
}

// NewJSONReporter creates a reporter that writes each report as a JSON
// document, indented when pretty is set.
func NewJSONReporter(writer io.WriteCloser, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: observability.GetLogger().Named("json_reporter"),
		pretty: pretty,
	}
}

// Write encodes the report and appends it to the output.
func (r *JSONReporter) Write(report *schemas.Report) error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if r.pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		r.logger.Error("Failed to encode report to JSON", zap.Error(err))
		return fmt.Errorf("failed to encode report: %w", err)
	}

	data = append(data, '\n')
	if _, err := r.writer.Write(data); err != nil {
		r.logger.Error("Failed to write report", zap.Error(err))
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.reports++
	r.logger.Debug("Wrote report",
		zap.Int("bytes", len(data)),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// Close closes the underlying writer.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Finalizing report output", zap.Int("total_reports", r.reports))

	if err := r.writer.Close(); err != nil {
		r.logger.Error("Failed to close output writer", zap.Error(err))
		return fmt.Errorf("failed to close output writer: %w", err)
	}
	return nil
}

// NDJSONReporter implements the Reporter interface for newline-delimited
// JSON: one compact report per line. It is thread safe.
type NDJSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu    sync.Mutex
	lines int
}

// NewNDJSONReporter creates a reporter that writes one compact JSON report
// per line, suitable for streaming consumers.
func NewNDJSONReporter(writer io.WriteCloser) *NDJSONReporter {
	return &NDJSONReporter{
		writer: writer,
		logger: observability.GetLogger().Named("ndjson_reporter"),
	}
}

// Write encodes the report as a single line.
func (r *NDJSONReporter) Write(report *schemas.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Error("Failed to encode report to JSON", zap.Error(err))
		return fmt.Errorf("failed to encode report: %w", err)
	}

	data = append(data, '\n')
	if _, err := r.writer.Write(data); err != nil {
		r.logger.Error("Failed to write report line", zap.Error(err))
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.lines++
	return nil
}

// Close closes the underlying writer.
func (r *NDJSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("Finalizing report stream", zap.Int("total_lines", r.lines))

	if err := r.writer.Close(); err != nil {
		r.logger.Error("Failed to close output writer", zap.Error(err))
		return fmt.Errorf("failed to close output writer: %w", err)
	}
	return nil
}
