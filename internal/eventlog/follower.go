// internal/eventlog/follower.go
package eventlog

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpcloud/tail"
	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Follower tails a JSONL event log and delivers each decoded timeline event
// in file order. Lines that cannot be decoded, even after repair, are
// skipped so a partially written or hand-edited log never stalls the
// stream.
type Follower struct {
	// logger is the application's logger instance.
	logger *zap.Logger
	// path is the JSONL event log to monitor.
	path string
	// events receives decoded events. Closed when the follower stops.
	events chan<- schemas.TimelineEvent
}

// NewFollower initializes a follower for the given event log path.
// Decoded events are sent on the provided channel; the follower owns the
// channel and closes it when its loop exits.
func NewFollower(logger *zap.Logger, path string, events chan<- schemas.TimelineEvent) (*Follower, error) {
	if path == "" {
		return nil, fmt.Errorf("event log path must be configured")
	}
	return &Follower{
		logger: logger.Named("event_follower"),
		path:   path,
		events: events,
	}, nil
}

// Start begins tailing the event log in a separate goroutine. The file is
// read from the beginning so events recorded before startup are replayed,
// then new writes are followed until the context is cancelled.
func (f *Follower) Start(ctx context.Context) error {
	f.logger.Info("Starting event log follower...", zap.String("path", f.path))

	t, err := tail.TailFile(f.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail event log: %w", err)
	}

	go f.followLoop(ctx, t)
	return nil
}

// The core loop that reads log lines, decodes them, and forwards events.
func (f *Follower) followLoop(ctx context.Context, t *tail.Tail) {
	var decoded, skipped int
	defer func() {
		t.Stop()
		t.Cleanup()
		close(f.events)
		f.logger.Info("Stopping event log follower.",
			zap.Int("events", decoded),
			zap.Int("skipped", skipped),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case line, ok := <-t.Lines:
			if !ok {
				f.logger.Info("Event log tailer channel closed.")
				return
			}
			if line.Err != nil {
				f.logger.Warn("Error reading from event log", zap.Error(line.Err))
				continue
			}

			ev, ok := f.decodeLine(line.Text)
			if !ok {
				if strings.TrimSpace(line.Text) != "" {
					skipped++
				}
				continue
			}
			decoded++

			select {
			case f.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// decodeLine parses one log line into a timeline event. Strict JSON is
// tried first; almost-JSON lines go through repair. Only object lines
// qualify, anything else is skipped.
func (f *Follower) decodeLine(text string) (schemas.TimelineEvent, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return schemas.TimelineEvent{}, false
	}

	var ev schemas.TimelineEvent
	if strings.HasPrefix(text, "{") {
		if err := json.UnmarshalFromString(text, &ev); err == nil {
			return ev, true
		}
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil || !strings.HasPrefix(strings.TrimSpace(repaired), "{") {
		f.logger.Warn("Skipping undecodable event line", zap.String("line", text))
		return schemas.TimelineEvent{}, false
	}
	if err := json.UnmarshalFromString(repaired, &ev); err != nil {
		f.logger.Warn("Skipping undecodable event line", zap.String("line", text))
		return schemas.TimelineEvent{}, false
	}
	return ev, true
}
