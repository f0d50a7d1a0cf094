// Package obs provides small, dependency-light logging and metrics
// interfaces shared by the pool and the manager.
package obs

import (
	"fmt"
	"log"

	"go.uber.org/zap"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a minimal logging interface for observability.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(Level, string, ...interface{}) {}

// StdLogger adapts the standard library logger. Useful for CLIs and
// tests where pulling in zap's config machinery is overkill.
type StdLogger struct {
	L    *log.Logger
	Min  Level
	Pref string
}

func (s StdLogger) Logf(level Level, format string, args ...interface{}) {
	if s.L == nil || level < s.Min {
		return
	}
	if s.Pref != "" {
		s.L.Printf("%s[%s] "+format, append([]interface{}{s.Pref, level.String()}, args...)...)
		return
	}
	s.L.Printf("[%s] "+format, append([]interface{}{level.String()}, args...)...)
}

// ZapLogger adapts a *zap.Logger, the production default.
type ZapLogger struct {
	L *zap.Logger
}

func (z ZapLogger) Logf(level Level, format string, args ...interface{}) {
	if z.L == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	switch level {
	case Debug:
		z.L.Debug(msg)
	case Info:
		z.L.Info(msg)
	case Warn:
		z.L.Warn(msg)
	case Error:
		z.L.Error(msg)
	default:
		z.L.Info(msg)
	}
}
