package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	// FieldPackage is the log field that holds the name of the package
	// that emitted the entry.
	FieldPackage = "package"

	// FieldFunction is the log field that holds the name of the function
	// that emitted the entry.
	FieldFunction = "function"

	// FieldError is the log field that holds the error message.
	FieldError = "error"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Config
type Config struct {
	// Level is one of trace, debug, info, warn, error.
	Level string

	// Format is either "text" or "json".
	Format string
}

// Log is a structured leveled logger.
//
// Error level methods take the error as the first argument so that
// the error is always attached to the entry as a field.
type Log interface {
	WithField(key string, value interface{}) Log
	WithFields(fields Fields) Log

	Trace(msg string)
	Debug(msg string)
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Error(err error, msg string)
	Errorf(err error, format string, args ...interface{})
}

// entry adapts logrus.Entry to the Log interface.
type entry struct {
	e *logrus.Entry
}

// New creates a logger writing to stderr.
func New(conf Config) (Log, error) {
	return NewWithOutput(conf, os.Stderr)
}

// NewWithOutput creates a logger writing to the given output.
func NewWithOutput(conf Config, out io.Writer) (Log, error) {
	l := logrus.New()
	l.SetOutput(out)

	level := strings.TrimSpace(conf.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(conf.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", conf.Format)
	}

	return &entry{e: logrus.NewEntry(l)}, nil
}

// NewNullLogger creates a discarding logger and a hook that records
// every entry, for use in tests.
func NewNullLogger() (Log, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.TraceLevel)
	return &entry{e: logrus.NewEntry(l)}, hook
}

func (l *entry) WithField(key string, value interface{}) Log {
	return &entry{e: l.e.WithField(key, value)}
}

func (l *entry) WithFields(fields Fields) Log {
	return &entry{e: l.e.WithFields(logrus.Fields(fields))}
}

func (l *entry) Trace(msg string) { l.e.Trace(msg) }

func (l *entry) Debug(msg string) { l.e.Debug(msg) }

func (l *entry) Info(msg string) { l.e.Info(msg) }

func (l *entry) Infof(format string, args ...interface{}) { l.e.Infof(format, args...) }

func (l *entry) Warn(msg string) { l.e.Warn(msg) }

func (l *entry) Error(err error, msg string) {
	l.e.WithError(err).Error(msg)
}

func (l *entry) Errorf(err error, format string, args ...interface{}) {
	l.e.WithError(err).Errorf(format, args...)
}
