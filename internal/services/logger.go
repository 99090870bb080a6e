// File: internal/services/logger.go
package services

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// LogrusLogger adapts logrus to the key/value Logger interface.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds a logger writing to out. structured selects the JSON
// formatter; otherwise a human-readable text formatter is used.
func NewLogrusLogger(service string, level logrus.Level, structured bool, out io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if structured {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &LogrusLogger{entry: l.WithField("service", service)}
}

func (p *LogrusLogger) Info(msg string, keysAndValues ...interface{}) {
	p.entry.WithFields(toFields(keysAndValues)).Info(msg)
}

func (p *LogrusLogger) Error(msg string, keysAndValues ...interface{}) {
	p.entry.WithFields(toFields(keysAndValues)).Error(msg)
}

func (p *LogrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (p *LogrusLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.entry.WithFields(toFields(keysAndValues)).Warn(msg)
}

// toFields pairs up keysAndValues. A trailing key without a value is dropped,
// non-string keys are skipped.
func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// ParseLevel maps LOG_LEVEL values onto logrus levels, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger is the environment-based logger factory
func NewLogger(service, env, level string) Logger {
	if env == "test" || os.Getenv("GO_ENV") == "test" {
		return &NoOpLogger{}
	}
	return NewLogrusLogger(service, ParseLevel(level), strings.EqualFold(env, "production"), os.Stdout)
}
