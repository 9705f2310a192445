// Package tracelog provides a pg.Tracer that writes every query and
// reconnect event to a structured Logger.
package tracelog

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/polydb/pg"
)

// LogLevel is the severity a log line is emitted at.
type LogLevel int

// The values for log levels are chosen such that the zero value means that no
// log level was specified.
const (
	LogLevelTrace = LogLevel(6)
	LogLevelDebug = LogLevel(5)
	LogLevelInfo  = LogLevel(4)
	LogLevelWarn  = LogLevel(3)
	LogLevelError = LogLevel(2)
	LogLevelNone  = LogLevel(1)
)

func (ll LogLevel) String() string {
	switch ll {
	case LogLevelTrace:
		return "trace"
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelNone:
		return "none"
	default:
		return fmt.Sprintf("invalid level %d", ll)
	}
}

// Logger is the interface used to get log output from the connector.
type Logger interface {
	Log(ctx context.Context, level LogLevel, msg string, data map[string]any)
}

// LoggerFunc adapts a plain function to the Logger interface.
type LoggerFunc func(ctx context.Context, level LogLevel, msg string, data map[string]any)

func (f LoggerFunc) Log(ctx context.Context, level LogLevel, msg string, data map[string]any) {
	f(ctx, level, msg, data)
}

// LogLevelFromString converts a log level name ("trace", "debug", "info",
// "warn", "error", "none") to its LogLevel constant.
func LogLevelFromString(s string) (LogLevel, error) {
	switch s {
	case "trace":
		return LogLevelTrace, nil
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none":
		return LogLevelNone, nil
	default:
		return 0, errors.New("invalid log level")
	}
}

func truncateArg(a any) any {
	switch v := a.(type) {
	case []byte:
		if len(v) < 64 {
			return hex.EncodeToString(v)
		}
		return fmt.Sprintf("%x (truncated %d bytes)", v[:64], len(v)-64)
	case string:
		if len(v) <= 64 {
			return v
		}
		l := 0
		for w := 0; l < 64; l += w {
			_, w = utf8.DecodeRuneInString(v[l:])
		}
		return fmt.Sprintf("%s (truncated %d bytes)", v[:l], len(v)-l)
	default:
		return a
	}
}

// Config holds the configuration for key names.
type Config struct {
	TimeKey string
}

// DefaultConfig returns the default configuration for TraceLog.
func DefaultConfig() *Config {
	return &Config{TimeKey: "time"}
}

// TraceLog implements pg.Tracer, writing every query and reconnect to a
// Logger at a configurable verbosity.
type TraceLog struct {
	Logger   Logger
	LogLevel LogLevel
	Config   *Config
}

func (tl *TraceLog) ensureConfig() *Config {
	if tl.Config == nil {
		tl.Config = DefaultConfig()
	}
	return tl.Config
}

func (tl *TraceLog) shouldLog(lvl LogLevel) bool {
	return tl.LogLevel >= lvl
}

// TraceQuery implements pg.Tracer: it logs the query text, its duration
// and row count at Info, or the error at Error.
func (tl *TraceLog) TraceQuery(ctx context.Context, conn *pg.Conn, query string, dur time.Duration, rows int, err error) {
	cfg := tl.ensureConfig()
	if err != nil {
		if tl.shouldLog(LogLevelError) {
			tl.Logger.Log(ctx, LogLevelError, "Query", map[string]any{
				"sql": query, "uri": conn.URI(), cfg.TimeKey: dur, "err": err,
			})
		}
		return
	}
	if tl.shouldLog(LogLevelInfo) {
		tl.Logger.Log(ctx, LogLevelInfo, "Query", map[string]any{
			"sql": query, "uri": conn.URI(), cfg.TimeKey: dur, "rows": rows,
		})
	}
}

// TraceReconnect implements pg.Tracer: it logs a successful or failed
// reconnect attempt at Warn.
func (tl *TraceLog) TraceReconnect(ctx context.Context, conn *pg.Conn, err error) {
	if !tl.shouldLog(LogLevelWarn) {
		return
	}
	data := map[string]any{"uri": conn.URI()}
	if err != nil {
		data["err"] = err
	}
	tl.Logger.Log(ctx, LogLevelWarn, "Reconnect", data)
}

// LogArgsForDisplay truncates long byte/string parameter values the same
// way query logging does, for callers that want consistent display
// outside of TraceQuery itself.
func LogArgsForDisplay(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, truncateArg(a))
	}
	return out
}
