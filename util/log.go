package util

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/netbirdio/minion-installer/formatter"
)

// ConsoleLog is the log file name that redirects log output to stderr
const ConsoleLog = "console"

// Logger wraps the installer logger together with its sinks so the caller can
// flush them on exit
type Logger struct {
	*log.Logger
	closers []io.Closer
}

// Close releases every file sink of the logger
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Component returns an entry tagged with the component name
func (l *Logger) Component(name string) *log.Entry {
	return l.WithField("component", name)
}

// InitLog parses the log-level input and builds a logger writing to every given log path.
// Log files are append-only and rotated.
func InitLog(logLevel string, logPaths ...string) (*Logger, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return nil, err
	}

	logger := &Logger{Logger: log.New()}

	var writers []io.Writer
	for _, logPath := range logPaths {
		switch logPath {
		case "":
			continue
		case ConsoleLog:
			writers = append(writers, os.Stderr)
		default:
			lumberjackLogger := &lumberjack.Logger{
				// Log file absolute path, os agnostic
				Filename:   filepath.ToSlash(logPath),
				MaxSize:    5, // MB
				MaxBackups: 10,
				MaxAge:     30, // days
				Compress:   true,
			}
			writers = append(writers, lumberjackLogger)
			logger.closers = append(logger.closers, lumberjackLogger)
		}
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	formatter.SetTextFormatter(logger.Logger)
	logger.SetLevel(level)
	return logger, nil
}

// NewDiscardLogger returns a logger that drops every entry
func NewDiscardLogger() *Logger {
	logger := &Logger{Logger: log.New()}
	logger.SetOutput(io.Discard)
	return logger
}
