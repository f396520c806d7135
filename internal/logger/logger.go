package logger

import (
	"log/slog"
	"os"
)

// New builds the service-wide JSON logger and installs it as the slog
// default. Unknown level strings fall back to info rather than failing
// startup.
func New(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(log)

	return log
}
