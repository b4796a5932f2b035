// Package logger wraps logrus with a small chaining API so call sites read
// log.WithPrefix("scheduler").WithField("error", err).Error("...") instead
// of threading logrus.Fields by hand at every call site.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Logger is a thin, chainable wrapper around a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

// New builds a Logger scoped to the given component name.
func New(base logrus.FieldLogger, component string) *Logger {
	return &Logger{entry: base.WithField("component", component)}
}

// WithPrefix tags subsequent log lines with a sub-component prefix, e.g.
// the "scheduler" or "periodic" slice of a larger package.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{entry: l.entry.WithField("prefix", prefix)}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{})   { l.entry.Debug(args...) }
func (l *Logger) Debugf(f string, a ...interface{}) { l.entry.Debugf(f, a...) }
func (l *Logger) Info(args ...interface{})    { l.entry.Info(args...) }
func (l *Logger) Infof(f string, a ...interface{})  { l.entry.Infof(f, a...) }
func (l *Logger) Warning(args ...interface{}) { l.entry.Warning(args...) }
func (l *Logger) Warningf(f string, a ...interface{}) { l.entry.Warningf(f, a...) }
func (l *Logger) Error(args ...interface{})   { l.entry.Error(args...) }
func (l *Logger) Errorf(f string, a ...interface{}) { l.entry.Errorf(f, a...) }
func (l *Logger) Fatal(args ...interface{})   { l.entry.Fatal(args...) }
