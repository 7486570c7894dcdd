// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/lumberjack.v2"

	"healthmate/internal/config"
)

// Init installs a JSON logger writing to the rotating log file and, when
// enabled, to stderr. Stdout is left to command output. The returned closer
// flushes the file.
func Init(cfg config.LogConfig) io.Closer {
	level := parseLevel(cfg.Level)

	var (
		writers []io.Writer
		file    *lumberjack.Logger
	)
	if cfg.Console {
		writers = append(writers, os.Stderr)
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err == nil {
			file = &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				LocalTime:  true,
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	slog.SetDefault(New(io.MultiWriter(writers...), level))
	slog.Debug("logger initialized", "level", cfg.Level, "file", cfg.File)

	if file == nil {
		return nopCloser{}
	}
	return file
}

// New returns a JSON logger at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
