// Package logger provides process-wide levelled logging for driveroute.
// Info, Warn and Error lines are always written; Debug lines only when
// verbose mode is enabled via the --verbose flag or log.verbose setting.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps           = true
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetTimestamps toggles the RFC 3339 timestamp prefix.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		write("DEBUG", format, args...)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("INFO", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("WARN", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("ERROR", format, args...)
}

// write must be called with mu held.
func write(level, format string, args ...any) {
	if timestamps {
		fmt.Fprintf(output, "%s [%s] "+format+"\n", append([]any{now().UTC().Format(time.RFC3339), level}, args...)...)
		return
	}
	fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
}
