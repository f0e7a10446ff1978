package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a session log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// RunAttrs returns a ContextProvider reporting the current run and tick.
// Both callbacks are read on every record.
func RunAttrs(runID func() string, tick func() uint64) ContextProvider {
	return func() []slog.Attr {
		attrs := make([]slog.Attr, 0, 2)
		if id := runID(); id != "" {
			attrs = append(attrs, slog.String("run", id))
		}
		attrs = append(attrs, slog.Uint64("tick", tick()))
		return attrs
	}
}
