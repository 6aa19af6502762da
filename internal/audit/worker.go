package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher's inbox and fans events out to the configured
// sinks. A failing sink is logged and skipped; audit persistence must never
// take the registry down.
type Worker struct {
	inbox  <-chan Event
	sinks  []Appender
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Appender) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil && w.logger != nil {
					w.logger.ErrorContext(ctx, "audit append failed",
						"event_id", event.ID,
						"event_type", event.Type,
						"error", err,
					)
				}
			}
		}
	}
}
