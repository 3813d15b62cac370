// Package log provides the structured logging facade for glassboost,
// backed by zerolog. Logging is advisory: nothing in the trainer changes
// behavior based on the configured level.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
)

// SetupLogger configures the global level: "debug", "info", "warn", "error",
// or "disabled". Unknown levels fall back to "warn".
func SetupLogger(level string) {
	lvl := zerolog.WarnLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn", "warning":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	case "disabled", "off":
		lvl = zerolog.Disabled
	}
	mu.Lock()
	root = root.Level(lvl)
	mu.Unlock()
}

// Logger is a named logger with slog-style key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

// GetLoggerWithName returns a logger tagged with a component name, e.g.
// "boost.trainer".
func GetLoggerWithName(name string) *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &Logger{zl: root.With().Str("logger", name).Logger()}
}

// LogError logs err at error level with the global logger.
func LogError(err error, msg string, keysAndValues ...interface{}) {
	mu.RLock()
	zl := root
	mu.RUnlock()
	withFields(zl.Error().Err(err), keysAndValues).Msg(msg)
}

// Debug logs at debug level with alternating key/value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Debug(), keysAndValues).Msg(msg)
}

// Info logs at info level with alternating key/value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Info(), keysAndValues).Msg(msg)
}

// Warn logs at warn level with alternating key/value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Warn(), keysAndValues).Msg(msg)
}

// Error logs at error level with alternating key/value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.zl.Error(), keysAndValues).Msg(msg)
}

func withFields(ev *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	return ev
}
