// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a key/value structured logger backed by logrus:
//
//	logger.Info("fix_classified", "cv", 7.5, "classification", "warning")
type Logger struct {
	entry *logrus.Entry
}

// NewLogger builds a logger writing to stdout. level is one of debug, info,
// warn, error (default info); format is text or json (default text).
func NewLogger(level, format string) *Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(w io.Writer, level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(kv))}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Debug(msg) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.entry.WithFields(fields(kv)).Info(msg) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.entry.WithFields(fields(kv)).Warn(msg) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Error(msg) }

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Fatal(msg) }

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 == len(kv) {
			f[key] = "(missing)"
			break
		}
		if err, ok := kv[i+1].(error); ok {
			f[key] = err.Error()
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
