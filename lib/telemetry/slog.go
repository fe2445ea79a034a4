package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the process-wide text log handler. Verbose drops the
// level floor to debug, which also surfaces per-request http logging.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
