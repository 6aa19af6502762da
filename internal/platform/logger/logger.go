package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON to stdout, with the
// service name stamped on every line.
func New(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", service)
}
