// Package logger configures the process-wide structured logger. All
// packages log through the helpers here so output is uniformly JSON.
package logger

import (
	"log/slog"
	"os"

	"qa-agent/internal/config"
)

// InitLogger installs a JSON slog handler as the default logger. Debug
// mode lowers the level and annotates records with source locations.
func InitLogger(cfg *config.Config) {
	level := slog.LevelInfo
	addSource := false
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
		addSource = true
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("Structured logging initialized", "level", level.String())
}

func Debug(msg string, args ...any) { slog.Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Default().Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Default().Error(msg, args...) }
