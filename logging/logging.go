package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
)

var (
	logger  = slog.New(slog.NewTextHandler(os.Stderr, nil))
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

// Setup initializes the process logger. When logFilePath is non-empty, log
// output is duplicated to that file. When debug is true, debug-level records
// are emitted.
func Setup(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	isSetup = true
	return nil
}

// Close closes the log file, if one was opened.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	isSetup = false
}

// Debug logs a debug-level message with optional key/value attributes.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info-level message with optional key/value attributes.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warn-level message with optional key/value attributes.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error-level message with optional key/value attributes.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// Recover is a deferred guard for worker goroutines. A panic is logged
// with its stack and swallowed so one bad record cannot take down a scan.
func Recover(scope string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered",
			"scope", scope,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}
