// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging provides the structured logger used throughout the
// synchronization engine, wrapping logrus the way the reference backend
// wraps its logging crate: one process-wide level, a pluggable formatter,
// and a request-scoped field logger handed down to each pipeline step.
package logging

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus levels under names that read naturally at call sites.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case Debug:
		return logrus.DebugLevel
	case Warn:
		return logrus.WarnLevel
	case Error:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel parses a case-insensitive level name, defaulting to Info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("invalid log level: %v", s)
	}
}

// Logger is the interface every component logs through, so tests can swap
// in a no-op implementation without pulling in logrus.
type Logger interface {
	WithFields(fields Fields) Logger
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Fields attaches structured key/value context to a log line.
type Fields map[string]interface{}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a logger at the given level, JSON-formatted unless pretty is
// requested (useful for local development, mirroring the teacher's
// text-vs-JSON formatter choice).
func New(level Level, pretty bool) Logger {
	l := logrus.New()
	l.SetLevel(level.logrusLevel())
	if pretty {
		l.SetFormatter(&prettyFormatter{})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) Debug(msg string) { l.entry.Debug(msg) }
func (l *logrusLogger) Info(msg string)  { l.entry.Info(msg) }
func (l *logrusLogger) Warn(msg string)  { l.entry.Warn(msg) }
func (l *logrusLogger) Error(msg string) { l.entry.Error(msg) }

// prettyFormatter is a terser alternative to logrus.TextFormatter for local
// development, matching the reference backend's habit of human-readable
// single-line request logs.
type prettyFormatter struct{}

func (p *prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", strings.ToUpper(e.Level.String()), e.Message))
	for k, v := range e.Data {
		b.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

type ctxKey struct{}

// NewContext returns a copy of parent carrying logger as the request-scoped
// logger, so handlers and pipeline steps downstream log with the same
// fields (tenant, request id) without threading them explicitly.
func NewContext(parent context.Context, logger Logger) context.Context {
	return context.WithValue(parent, ctxKey{}, logger)
}

// FromContext returns the logger stashed in ctx, or a discarding no-op
// logger if none was set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return noop{}
}

type noop struct{}

func (noop) WithFields(Fields) Logger { return noop{} }
func (noop) Debug(string)             {}
func (noop) Info(string)              {}
func (noop) Warn(string)              {}
func (noop) Error(string)             {}
