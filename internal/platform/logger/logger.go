package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Development environments
// get debug level; everything else info.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
