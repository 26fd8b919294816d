// Package logging provides colored, leveled log output.
//
// Lines go to stderr by default. While the TUI owns the terminal the output
// is redirected to a file with SetOutput so log lines never tear the screen.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	verbose bool
	stamp   bool
)

var (
	infoPrefix  = color.New(color.FgBlue).SprintFunc()
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	errorPrefix = color.New(color.FgRed).SprintFunc()
	debugPrefix = color.New(color.FgCyan).SprintFunc()
)

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects log lines. Timestamps are added when w is not a
// terminal stream, since file logs outlive the session that wrote them.
func SetOutput(w io.Writer, timestamps bool) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	stamp = timestamps
}

// OpenFile redirects output to an append-only log file and returns a closer
// that restores stderr.
func OpenFile(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	SetOutput(f, true)
	return func() error {
		SetOutput(os.Stderr, false)
		return f.Close()
	}, nil
}

// Info logs an informational message.
func Info(format string, args ...any) {
	write(infoPrefix("[INFO]"), format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	write(warnPrefix("[WARN]"), format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	write(errorPrefix("[ERROR]"), format, args...)
}

// Debug logs only when verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	write(debugPrefix("[DEBUG]"), format, args...)
}

func write(prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	line := prefix + " " + fmt.Sprintf(format, args...)
	if stamp {
		line = time.Now().Format(time.RFC3339) + " " + line
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		// Best-effort logging.
		_ = err
	}
}
