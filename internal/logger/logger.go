package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// VerboseChecker interface for checking verbose state
type VerboseChecker interface {
	IsVerbose() bool
}

// Logger provides component-scoped structured logging with verbose support.
// Debug and Info are dropped unless the checker reports verbose mode.
type Logger struct {
	component      string
	verboseChecker VerboseChecker
	base           zerolog.Logger
	zl             zerolog.Logger
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger instance writing to stderr
func New(component string, verboseChecker VerboseChecker) *Logger {
	return NewWithWriter(component, verboseChecker, os.Stderr)
}

// NewWithCallback creates a new logger instance with a callback function
func NewWithCallback(component string, verboseCheck func() bool) *Logger {
	return New(component, &callbackChecker{callback: verboseCheck})
}

// NewWithWriter creates a logger that writes console-formatted lines to w
func NewWithWriter(component string, verboseChecker VerboseChecker, w io.Writer) *Logger {
	if component == "" {
		component = "main"
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05.000",
		NoColor:    os.Getenv("NO_COLOR") != "" || w != os.Stderr,
	}
	base := zerolog.New(console).With().Timestamp().Logger()
	return &Logger{
		component:      component,
		verboseChecker: verboseChecker,
		base:           base,
		zl:             base.With().Str("component", component).Logger(),
	}
}

// WithComponent creates a logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: l.verboseChecker,
		base:           l.base,
		zl:             l.base.With().Str("component", component).Logger(),
	}
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

// callbackChecker implements VerboseChecker with a callback function
type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	if c.callback == nil {
		return false
	}
	return c.callback()
}

func (l *Logger) verbose() bool {
	return l.verboseChecker != nil && l.verboseChecker.IsVerbose()
}

// Debug logs debug messages (only when verbose=true)
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.verbose() {
		l.zl.Debug().Msg(fmt.Sprintf(msg, args...))
	}
}

// Info logs informational messages (only when verbose=true)
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.verbose() {
		l.zl.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(msg, args...))
}

// Error logs error messages (always shown)
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(msg, args...))
}

// DebugWithFields logs debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		withFields(l.zl.Debug(), fields).Msg(fmt.Sprintf(msg, args...))
	}
}

// InfoWithFields logs info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	if l.verbose() {
		withFields(l.zl.Info(), fields).Msg(fmt.Sprintf(msg, args...))
	}
}

// WarnWithFields logs warning message with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	withFields(l.zl.Warn(), fields).Msg(fmt.Sprintf(msg, args...))
}

func withFields(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, field := range fields {
		switch v := field.Value.(type) {
		case error:
			e = e.AnErr(field.Key, v)
		case time.Duration:
			e = e.Dur(field.Key, v)
		case string:
			e = e.Str(field.Key, v)
		case int:
			e = e.Int(field.Key, v)
		default:
			e = e.Interface(field.Key, v)
		}
	}
	return e
}

// Helper functions for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}
