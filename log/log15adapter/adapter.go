// Package log15adapter provides a logger that writes to a
// gopkg.in/inconshreveable/log15.v2.Logger.
package log15adapter

import (
	"context"

	"github.com/polydb/pg/tracelog"
)

// Log15Logger interface defines the subset of
// gopkg.in/inconshreveable/log15.v2.Logger that this adapter uses.
type Log15Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type Logger struct {
	l Log15Logger
}

func NewLogger(l Log15Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	logCtx := make([]interface{}, 0, 2*len(data))
	for k, v := range data {
		logCtx = append(logCtx, k, v)
	}

	switch level {
	case tracelog.LogLevelTrace:
		l.l.Debug(msg, append(logCtx, "LOG_LEVEL", level)...)
	case tracelog.LogLevelDebug:
		l.l.Debug(msg, logCtx...)
	case tracelog.LogLevelInfo:
		l.l.Info(msg, logCtx...)
	case tracelog.LogLevelWarn:
		l.l.Warn(msg, logCtx...)
	case tracelog.LogLevelError:
		l.l.Error(msg, logCtx...)
	default:
		l.l.Error(msg, append(logCtx, "INVALID_LOG_LEVEL", level)...)
	}
}
