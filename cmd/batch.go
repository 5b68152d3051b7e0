// File: cmd/batch.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/fintel-cli/internal/config"
	"github.com/xkilldash9x/fintel-cli/internal/observability"
	"github.com/xkilldash9x/fintel-cli/internal/results"
)

// batchOutputSuffix marks files produced by a previous batch run so they are
// never picked up as inputs again.
const batchOutputSuffix = ".report.json"

// newBatchCmd creates and configures the `batch` command.
func newBatchCmd() *cobra.Command {
	var glob string
	var outDir string
	var concurrency int

	batchCmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Normalize every matching document in a directory",
		Long: `Matches files in the given directory against the configured glob, runs each
through the normalization pipeline concurrently, and writes one report file
per input next to it (or into --out-dir).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			// Flags win over config; unset flags fall back to the config.
			if glob == "" {
				glob = cfg.Batch().Glob
			}
			if outDir == "" {
				outDir = cfg.Batch().OutDir
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Batch().Concurrency
			}

			return runBatch(ctx, logger, cfg, args[0], glob, outDir, concurrency)
		},
	}

	batchCmd.Flags().StringVar(&glob, "glob", "", "Glob matched against file names in the directory. Defaults to the configured value.")
	batchCmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for report files. Defaults to the input directory.")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of files processed in parallel. Defaults to the configured value.")

	return batchCmd
}

// runBatch contains the core, testable logic for the batch command. It fans
// the matched files out over a bounded worker group.
func runBatch(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	dir, glob, outDir string,
	concurrency int,
) error {
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	expanded, err := homedir.Expand(dir)
	if err == nil {
		dir = expanded
	}

	pattern := filepath.Join(dir, glob)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern %s: %w", pattern, err)
	}

	// Deterministic processing and output order.
	sort.Strings(matches)

	inputs := make([]string, 0, len(matches))
	for _, match := range matches {
		if strings.HasSuffix(match, batchOutputSuffix) {
			continue
		}
		inputs = append(inputs, match)
	}
	if len(inputs) == 0 {
		logger.Warn("No input files matched", zap.String("pattern", pattern))
		return nil
	}

	if outDir == "" {
		outDir = dir
	} else {
		if expanded, err := homedir.Expand(outDir); err == nil {
			outDir = expanded
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Info("Starting batch run",
		zap.Int("files", len(inputs)),
		zap.Int("concurrency", concurrency),
		zap.String("out_dir", outDir),
	)

	builder := results.NewBuilder(logger, results.Options{
		ProviderLabel: cfg.Report().Provider,
		RoleNames:     cfg.Report().RoleNames,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return processBatchFile(logger, builder, cfg, input, outDir)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	logger.Info("Batch run complete", zap.Int("files", len(inputs)))
	return nil
}

// processBatchFile normalizes one input file into its per-file report.
func processBatchFile(logger *zap.Logger, builder *results.Builder, cfg config.Interface, path, outDir string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	input, err := decodeInput(logger, raw, cfg.Report().Format)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	report := builder.Build(input)

	outPath := filepath.Join(outDir, reportFileName(path))
	if err := writeReport(logger, report, outPath, cfg.Report().Pretty); err != nil {
		return fmt.Errorf("failed to write report for %s: %w", path, err)
	}

	logger.Debug("Processed file", zap.String("input", path), zap.String("output", outPath))
	return nil
}

// reportFileName derives the per-file output name: "query.json" maps to
// "query.report.json".
func reportFileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + batchOutputSuffix
}
