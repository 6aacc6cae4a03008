// Package logx provides three small logging verbs — print, debug, fatal —
// parameterized by an io.Writer and a program name prefix, so both the
// wasm and wavm commands can share one implementation instead of each
// hardwiring os.Stderr and a literal prefix.
package logx

import (
	"fmt"
	"io"
	"os"
)

// Logger prints diagnostics with a fixed prefix to a fixed writer.
type Logger struct {
	prefix string
	out    io.Writer
	debug  bool
}

// New returns a Logger that writes "prefix: message\n" to out.
func New(prefix string, out io.Writer) *Logger {
	return &Logger{prefix: prefix, out: out}
}

// SetDebug toggles whether Debug actually prints.
func (l *Logger) SetDebug(on bool) {
	l.debug = on
}

// Pr prints a message unconditionally.
func (l *Logger) Pr(format string, args ...any) {
	fmt.Fprintf(l.out, "%s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

// Debug prints only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.Pr(format, args...)
}

// Fatal prints a message to out and exits the process with status 1. Kept
// distinct from Pr so call sites read as an intentional hard stop.
func Fatal(out io.Writer, format string, args ...any) {
	fmt.Fprintf(out, "%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
