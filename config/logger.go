package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process logger, set by InitLogger.
var Log *logrus.Logger

// InitLogger builds the process logger. Unknown levels fall back to info.
func InitLogger(level string) *logrus.Logger {
	Log = NewLogger(os.Stdout, level)
	return Log
}

// NewLogger returns a JSON logrus logger writing to out.
func NewLogger(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
