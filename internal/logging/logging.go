// Package logging configures the process logger.
//
// Hook invocations run inside the host's event loop, and the host treats
// stdout/stderr as part of the hook protocol, so logs go to a file under the
// data directory instead of the terminal.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// NewFileLogger returns a component logger appending JSON lines to path.
// If the file cannot be opened the logger is silenced rather than failing
// the invocation.
func NewFileLogger(path, component string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(levelFromEnv())

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		logger.SetOutput(io.Discard)
		return logger.WithField("component", component)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(f)
	}

	return logger.WithField("component", component)
}

func levelFromEnv() logrus.Level {
	if raw := os.Getenv("CCRELAY_LOG_LEVEL"); raw != "" {
		if level, err := logrus.ParseLevel(raw); err == nil {
			return level
		}
	}
	return logrus.InfoLevel
}
