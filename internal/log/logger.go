package log

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Verbosity levels
const (
	LevelQuiet = iota // Default: only errors and warnings
	LevelInfo         // -v: search lifecycle, pin changes
	LevelDebug        // -vv: API calls, debounce scheduling, stale drops
	LevelTrace        // -vvv: full details, rate limit headers
)

// traceLevel sits below charm's debug level.
const traceLevel = charmlog.DebugLevel - 4

var (
	verbosity int
	logger    *charmlog.Logger
)

// Initialize sets up the global logger with the specified verbosity level
func Initialize(level int, w io.Writer) {
	verbosity = level
	logger = newLogger(w, level)
}

func newLogger(w io.Writer, level int) *charmlog.Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: level >= LevelDebug,
		Prefix:          "repopin",
	})

	switch {
	case level >= LevelTrace:
		l.SetLevel(traceLevel)
	case level >= LevelDebug:
		l.SetLevel(charmlog.DebugLevel)
	case level >= LevelInfo:
		l.SetLevel(charmlog.InfoLevel)
	default:
		l.SetLevel(charmlog.WarnLevel)
	}
	return l
}

// Info logs at info level (-v)
func Info(msg string, args ...any) {
	if verbosity >= LevelInfo {
		logger.Info(msg, args...)
	}
}

// Debug logs at debug level (-vv)
func Debug(msg string, args ...any) {
	if verbosity >= LevelDebug {
		logger.Debug(msg, args...)
	}
}

// Trace logs at trace level (-vvv)
func Trace(msg string, args ...any) {
	if verbosity >= LevelTrace {
		logger.Log(traceLevel, msg, args...)
	}
}

// Warn logs at warn level (always visible)
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs at error level (always visible)
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

func init() {
	// Default initialization with quiet mode to stderr
	Initialize(LevelQuiet, os.Stderr)
}
