/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type LogLevel int

const LevelTrace LogLevel = -8
const LevelDebug LogLevel = -4
const LevelInfo LogLevel = 0
const LevelWarn LogLevel = 4
const LevelError LogLevel = 8
const LevelFatal LogLevel = 12

// ParseLogLevel parses a string representation of a log level.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// Returns the human-readable string representation of a logging level.
func (level LogLevel) String() string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Log is the global logger.
var Log = NewLogger(os.Stderr, LevelInfo)

// Logger wraps slog with TRACE and FATAL levels and a source tag derived
// from the calling module's String method.
type Logger struct {
	slog  *slog.Logger
	level *slog.LevelVar
}

// NewLogger creates a logger writing text records to w.
func NewLogger(w *os.File, level LogLevel) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				a.Value = slog.StringValue(LogLevel(a.Value.Any().(slog.Level)).String())
			}
			return a
		},
	})
	return &Logger{slog: slog.New(handler), level: lv}
}

// SetLevel changes the minimum level emitted by the logger.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(slog.Level(level))
}

// Level returns the minimum level emitted by the logger.
func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Level())
}

// HasTrace returns whether trace records are emitted. Fast-path call sites
// check this before building attribute lists.
func (l *Logger) HasTrace() bool {
	return l.level.Level() <= slog.Level(LevelTrace)
}

func (l *Logger) log(level LogLevel, src any, msg string, v ...any) {
	if slog.Level(level) < l.level.Level() {
		return
	}
	if src != nil {
		v = append(v, "src", fmt.Sprintf("%v", src))
	}
	l.slog.Log(context.Background(), slog.Level(level), msg, v...)
}

func (l *Logger) Trace(src any, msg string, v ...any) { l.log(LevelTrace, src, msg, v...) }
func (l *Logger) Debug(src any, msg string, v ...any) { l.log(LevelDebug, src, msg, v...) }
func (l *Logger) Info(src any, msg string, v ...any)  { l.log(LevelInfo, src, msg, v...) }
func (l *Logger) Warn(src any, msg string, v ...any)  { l.log(LevelWarn, src, msg, v...) }
func (l *Logger) Error(src any, msg string, v ...any) { l.log(LevelError, src, msg, v...) }

// Fatal logs the message and terminates the process. Reserved for
// unrecoverable initialization failures.
func (l *Logger) Fatal(src any, msg string, v ...any) {
	l.log(LevelFatal, src, msg, v...)
	os.Exit(1)
}
