package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// Logger writes JSON records to stderr until Init or InitWithLevel replaces it.
// Call those before starting goroutines that log.
var Logger = newLogger(os.Stderr, slog.LevelInfo)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true, // Include file and line number in logs
	})
	return slog.New(handler)
}

// Init initializes the logger to output to stderr with JSON format
func Init() {
	InitWithLevel(os.Stderr, slog.LevelInfo)
}

// InitWithLevel is Init with an explicit destination and minimum level.
func InitWithLevel(w io.Writer, level slog.Level) {
	Logger = newLogger(w, level)
	slog.SetDefault(Logger)
}

// ParseLevel maps a LOG_LEVEL value to a slog level, falling back to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// log records the caller of the exported helper as the record's source.
func log(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !Logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // runtime.Callers, log, Log*
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = Logger.Handler().Handle(ctx, record)
}

// LogError logs an error with a message and optional key-value pairs
func LogError(msg string, err error, args ...any) {
	attrs := []any{"error", err}
	attrs = append(attrs, args...)
	log(slog.LevelError, msg, attrs...)
}

// LogInfo logs an informational message with optional key-value pairs
func LogInfo(msg string, args ...any) {
	log(slog.LevelInfo, msg, args...)
}

// LogWarn logs a warning message with optional key-value pairs
func LogWarn(msg string, args ...any) {
	log(slog.LevelWarn, msg, args...)
}

// LogDebug logs a debug message with optional key-value pairs
func LogDebug(msg string, args ...any) {
	log(slog.LevelDebug, msg, args...)
}
