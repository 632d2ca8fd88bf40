package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a text logger writing to out at the given level.
// An unparseable level falls back to info and is reported as a warning.
func NewLogger(out io.Writer, levelStr string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// BadgerLogrusAdapter implements badger.Logger on top of a logrus entry.
// Badger's informational chatter (compactions, value log GC) is logged at debug level.
type BadgerLogrusAdapter struct {
	entry *logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry: entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.entry.Warnf(f, v...) }

// Infof logs badger's informational messages at debug level
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.entry.Debugf(f, v...) }

// Debugf logs badger's debug messages at trace level
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.entry.Tracef(f, v...) }
