package obs

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(jsonFormatter())
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// Configure applies level (trace|debug|info|warn|error) and format (json|text)
// to the shared logger.
func Configure(level, format string) error {
	l := Logger()
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		l.SetFormatter(jsonFormatter())
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// LogRequest emits the access log line with common HTTP fields.
func LogRequest(fields logrus.Fields) {
	Logger().WithFields(fields).Info("request_complete")
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	}
}
