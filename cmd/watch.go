// File: cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/config"
	"github.com/xkilldash9x/fintel-cli/internal/eventlog"
	"github.com/xkilldash9x/fintel-cli/internal/observability"
	"github.com/xkilldash9x/fintel-cli/internal/reporting"
	"github.com/xkilldash9x/fintel-cli/internal/results"
)

// newWatchCmd creates and configures the `watch` command.
func newWatchCmd() *cobra.Command {
	var statePath string
	var outputPath string

	watchCmd := &cobra.Command{
		Use:   "watch [events.jsonl]",
		Short: "Follow a live event log and keep a report up to date",
		Long: `Tails a JSONL event log, folds each decoded event onto an optional base
workflow state, and rebuilds the report at a bounded rate. With --output the
report file is rewritten atomically on every rebuild; otherwise snapshots
stream to stdout as NDJSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			return runWatch(ctx, logger, cfg, args[0], statePath, outputPath)
		},
	}

	watchCmd.Flags().StringVar(&statePath, "state", "", "Optional workflow state snapshot (JSON) to build on top of.")
	watchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report file rewritten on updates. If unset, snapshots stream to stdout as NDJSON.")

	return watchCmd
}

// runWatch contains the core, testable logic for the watch command. It
// follows the event log and rebuilds the report until the context is
// cancelled or the log stream ends.
func runWatch(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	eventLogPath, statePath, outputPath string,
) error {
	var base *schemas.WorkflowState
	if statePath != "" {
		raw, err := readInput(statePath)
		if err != nil {
			return err
		}
		base, err = decodeState(raw)
		if err != nil {
			return fmt.Errorf("failed to decode base state: %w", err)
		}
	}
	acc := eventlog.NewAccumulator(base)

	events := make(chan schemas.TimelineEvent, 256)
	follower, err := eventlog.NewFollower(logger, eventLogPath, events)
	if err != nil {
		return err
	}
	if err := follower.Start(ctx); err != nil {
		return err
	}

	builder := results.NewBuilder(logger, results.Options{
		ProviderLabel: cfg.Report().Provider,
		RoleNames:     cfg.Report().RoleNames,
	})

	toStdout := outputPath == "" || outputPath == "stdout"
	if !toStdout {
		if expanded, err := homedir.Expand(outputPath); err == nil {
			outputPath = expanded
		}
	}

	var stream reporting.Reporter
	if toStdout {
		stream, err = reporting.New("ndjson", "", false)
		if err != nil {
			return err
		}
		defer stream.Close()
	}

	rebuild := func() error {
		report := builder.Build(results.StateInput(acc.State()))
		if stream != nil {
			return stream.Write(report)
		}
		return rewriteReportFile(logger, report, outputPath, cfg.Report().Pretty)
	}

	// Emit an initial report so consumers always have a current snapshot.
	if err := rebuild(); err != nil {
		return err
	}

	watchCfg := cfg.Watch()
	limiter := rate.NewLimiter(rate.Every(watchCfg.Interval), watchCfg.Burst)

	// Timer used to coalesce rebuilds the limiter denied, so the last
	// events of a burst always reach the output.
	flush := time.NewTimer(watchCfg.Interval)
	if !flush.Stop() {
		<-flush.C
	}
	defer flush.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watch.", zap.Int("events", acc.Len()))
			if pending {
				return rebuild()
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("Event stream ended.")
				if pending {
					return rebuild()
				}
				return nil
			}
			acc.Append(ev)

			if limiter.Allow() {
				if pending {
					// The immediate rebuild covers the scheduled one.
					if !flush.Stop() {
						select {
						case <-flush.C:
						default:
						}
					}
					pending = false
				}
				if err := rebuild(); err != nil {
					return err
				}
			} else if !pending {
				flush.Reset(watchCfg.Interval)
				pending = true
			}

		case <-flush.C:
			pending = false
			if err := rebuild(); err != nil {
				return err
			}
		}
	}
}

// rewriteReportFile replaces the report file via temp file and rename, so
// readers never observe a half-written report.
func rewriteReportFile(logger *zap.Logger, report *schemas.Report, path string, pretty bool) error {
	tmp := path + ".tmp"

	reporter, err := reporting.New("json", tmp, pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(report); err != nil {
		reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace report file: %w", err)
	}

	logger.Debug("Report file updated", zap.String("path", path))
	return nil
}
