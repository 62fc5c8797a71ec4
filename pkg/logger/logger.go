// Package logger provides the structured, leveled logger shared by every
// component of the control plane: the document validator, the transition
// registry, the execution planner, the RPC fabric, the plan writer, and the
// executor runtime all log through a *Logger rather than fmt/log, so a
// single sink configuration controls the whole process.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the control plane's own level enum, mapped onto zapcore.Level so
// callers never import zap directly.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	// FailLevel logs at Fatal and exits the process. Reserved for startup
	// failures (bad config, unreachable database) that leave nothing useful
	// to keep running.
	FailLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FailLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options configures a Logger.
type Options struct {
	ConsoleLevel Level
	// Development enables human-friendly console output instead of JSON. Production deployments want JSON for log aggregation.
	Development bool
}

func DefaultOptions() Options {
	return Options{ConsoleLevel: InfoLevel, Development: true}
}

// Logger wraps zap.SugaredLogger with the fields every control-plane log
// line carries an opinion about: command id, job name, step id.
type Logger struct {
	*zap.SugaredLogger
}

var (
	global     *Logger
	globalOnce sync.Once
)

// Init sets up the global logger. Safe to call multiple times; only the
// first call takes effect.
func Init(opts Options) {
	globalOnce.Do(func() {
		l, err := New(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: falling back to basic console logging: %v\n", err)
			fallback, _ := zap.NewDevelopment()
			l = &Logger{SugaredLogger: fallback.Sugar()}
		}
		global = l
	})
}

// Get returns the global logger, initializing it with defaults if Init was
// never called.
func Get() *Logger {
	if global == nil {
		Init(DefaultOptions())
	}
	return global
}

// New builds a standalone Logger instance, for components (tests, one-off
// CLI tools) that want their own configuration instead of the global.
func New(opts Options) (*Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(opts.ConsoleLevel.zapLevel())

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// With returns a child logger with the given structured fields attached to
// every subsequent call, matching zap.SugaredLogger.With's key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// Sync flushes any buffered log entries. Callers should defer it from main.
func (l *Logger) Sync() error {
	return l.SugaredLogger.Sync()
}
