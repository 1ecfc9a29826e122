// Package diagnostics provides the run's single logging surface: plain,
// unstructured messages to stderr, matching how the rest of the pipeline's
// warnings and fatal diagnostics are meant to surface (spec.md §7).
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger writes warnings and optional debug traces to an underlying writer.
// It is safe for concurrent use: value generation runs on a worker pool and
// several workers may warn (e.g. pool exhaustion) at once.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
}

// New creates a Logger writing to out. When debug is false, Debugf is a no-op.
func New(out io.Writer, debug bool) *Logger {
	return &Logger{out: out, debug: debug}
}

// Default returns a Logger writing to os.Stderr with debug tracing disabled.
func Default() *Logger {
	return New(os.Stderr, false)
}

// Warnf logs a non-fatal warning. Per spec.md §7, warnings never abort a run.
func (l *Logger) Warnf(format string, args ...any) {
	l.println("WARNING: " + fmt.Sprintf(format, args...))
}

// Debugf logs a trace message, visible only when the logger was built with
// debug tracing enabled (the CLI's --debug flag).
func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.println("DEBUG: " + fmt.Sprintf(format, args...))
}

func (l *Logger) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, s)
}
