package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the optional rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup installs a JSON slog logger writing to stdout and, when opts.Path is
// set, to a lumberjack-rotated file. The returned handler is the base
// handler so callers can fan it out further with NewMultiHandler.
func Setup(opts FileOptions) slog.Handler {
	handler := slog.NewJSONHandler(Writer(opts), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	return handler
}

// Writer returns stdout, or stdout plus a rotating file.
func Writer(opts FileOptions) io.Writer {
	if opts.Path == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	})
}
