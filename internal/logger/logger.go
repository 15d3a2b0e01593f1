// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init initializes the logger
func Init() {
	if lvl := os.Getenv("GEOTAG_LOG_LEVEL"); lvl != "" {
		SetLevel(lvl)
	}
}

// SetOutput sets the output for all levels
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	log.Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	log.Errorf(format, v...)
}
