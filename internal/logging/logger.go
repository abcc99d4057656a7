package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger is a small leveled logger writing tagged lines to stdout/stderr.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

func New(debug bool) *Logger {
	return &Logger{
		info:         log.New(os.Stdout, "", 0),
		warn:         log.New(os.Stdout, "", 0),
		err:          log.New(os.Stderr, "", 0),
		debug:        log.New(os.Stdout, "", 0),
		debugEnabled: debug,
	}
}

// NewWriter sends every level to w.
func NewWriter(w io.Writer, debug bool) *Logger {
	l := log.New(w, "", 0)
	return &Logger{info: l, warn: l, err: l, debug: l, debugEnabled: debug}
}

// Discard returns a logger that writes nowhere. Used by tests.
func Discard() *Logger {
	l := log.New(io.Discard, "", 0)
	return &Logger{info: l, warn: l, err: l, debug: l}
}

func (l *Logger) line(level, format string) string {
	return fmt.Sprintf("%s %-5s %s", time.Now().Format("2006-01-02 15:04:05"), level, format)
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(l.line("INFO", format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(l.line("WARN", format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(l.line("ERROR", format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(l.line("DEBUG", format), args...)
}

// Writer exposes the info stream, e.g. for gin's request logger.
func (l *Logger) Writer() io.Writer {
	return l.info.Writer()
}
