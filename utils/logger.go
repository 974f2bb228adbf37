package utils

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// ServiceName is attached to every log line
const ServiceName = "secured-auction"

var (
	logger = newLogger()
	base   = logger.WithField("service", ServiceName)
)

func newLogger() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetOutput(os.Stdout)
	l.SetLevel(log.InfoLevel)
	return l
}

// SetLogLevel changes the level, e.g. "debug" or "warn"
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return nil
}

func Debug(message string, fields map[string]any) {
	base.WithFields(fields).Debug(message)
}

func Info(message string, fields map[string]any) {
	base.WithFields(fields).Info(message)
}

func Warn(message string, fields map[string]any) {
	base.WithFields(fields).Warn(message)
}

func Error(message string, fields map[string]any) {
	base.WithFields(fields).Error(message)
}

// Fatal logs and exits the process
func Fatal(message string, fields map[string]any) {
	base.WithFields(fields).Fatal(message)
}
