package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
	level  slog.LevelVar
)

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Without Init all log calls are no-ops.
func Init(dir string) error {
	path := filepath.Join(dir, "tabcounter.log")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	logger = newLogger(f)
	mu.Unlock()
	return nil
}

// InitWriter routes log lines to w instead of a file. Used by tests and by
// `serve --log-stderr`.
func InitWriter(w io.Writer) {
	mu.Lock()
	logger = newLogger(w)
	mu.Unlock()
}

// SetDebug toggles Debug output.
func SetDebug(on bool) {
	if on {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	logger = nil
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("settings.migrated", "from", "0.4.2", "to", "0.6.0")
func Info(event string, kv ...any) {
	if l := current(); l != nil {
		l.Info(event, kv...)
	}
}

// Debug logs a high-volume event line (scheduler firings, queries).
func Debug(event string, kv ...any) {
	if l := current(); l != nil {
		l.Debug(event, kv...)
	}
}

// Error logs an event with an error.
//
//	applog.Error("ws.send", err, "action", "setBadgeText")
func Error(event string, err error, kv ...any) {
	if l := current(); l != nil {
		l.Error(event, append([]any{"err", err}, kv...)...)
	}
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       &level,
		ReplaceAttr: truncate,
	}))
}

func truncate(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString && a.Value.Kind() != slog.KindAny {
		return a
	}
	s := a.Value.String()
	if len(s) > maxValueLen {
		return slog.String(a.Key, s[:maxValueLen]+truncSuffix)
	}
	return a
}
