package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const logsDir = "logs"

type Options struct {
	// Component names the log file: logs/<component>.log.
	Component string
	// Level falls back to the LOG_LEVEL environment variable, then info.
	Level string
	// DisableFile keeps logging on the console only.
	DisableFile bool
}

// Closer flushes the asynchronous writers.
type Closer func()

func NewLogger(opts Options) (*logrus.Logger, Closer, error) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(parseLevel(opts.Level))

	consoleHook := NewAsyncConsoleHook(4096)
	logger.AddHook(consoleHook)

	if opts.DisableFile {
		logger.SetOutput(discard{})
		return logger, consoleHook.Close, nil
	}

	component := opts.Component
	if component == "" {
		component = "sentinel"
	}
	logFile := filepath.Clean(filepath.Join(logsDir, component+".log"))
	if !strings.HasPrefix(logFile, logsDir+string(filepath.Separator)) {
		consoleHook.Close()
		return nil, nil, fmt.Errorf("invalid log file path %q: must be in %s directory", logFile, logsDir)
	}
	if err := os.MkdirAll(logsDir, 0750); err != nil {
		consoleHook.Close()
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	asyncWriter, err := NewAsyncFileWriter(logFile, 32*1024)
	if err != nil {
		consoleHook.Close()
		return nil, nil, fmt.Errorf("failed to initialize async log writer: %w", err)
	}
	logger.SetOutput(asyncWriter)

	return logger, func() {
		consoleHook.Close()
		asyncWriter.Close()
	}, nil
}

func parseLevel(level string) logrus.Level {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
