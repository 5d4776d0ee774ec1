// Package logx provides leveled logging over a rotating file writer, mirroring
// output to stderr for foreground runs.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level orders log severity from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger wraps the standard library logger with a minimum level filter.
type Logger struct {
	std *log.Logger
	min Level
}

// New builds a Logger writing to w (typically os.Stderr, or a MultiWriter that
// also feeds a RotatingWriter) with the given prefix and minimum level name
// ("debug", "info", "warn", "error"; unrecognized values default to "info").
func New(w io.Writer, prefix, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		std: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		min: parseLevel(level),
	}
}

func (l *Logger) logf(lvl Level, tag, format string, args ...any) {
	if l == nil || lvl < l.min {
		return
	}
	l.std.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }

// Nop returns a Logger that discards everything, useful as a default in tests.
func Nop() *Logger {
	return &Logger{std: log.New(io.Discard, "", 0), min: LevelError + 1}
}
