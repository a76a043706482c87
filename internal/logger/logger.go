package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	output  io.Writer = os.Stderr
	logFile *os.File
	log     zerolog.Logger
)

func init() {
	initLogger()
}

func initLogger() {
	w := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		NoColor:    logFile != nil,
	}
	log = zerolog.New(w).With().Timestamp().Logger()
}

// SetOutputFile redirects all logging to the given file. The TUI owns the
// terminal while running, so this is the default sink in interactive mode.
func SetOutputFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	output = f
	initLogger()
	return nil
}

// CloseLogFile closes the log file and reverts to stderr.
func CloseLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
		output = os.Stderr
		initLogger()
	}
}

// SetLevel sets the global log level from a config string.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Debug logs a debug message.
func Debug(msg string) {
	log.Debug().Msg(msg)
}

// Debugf logs a debug message with formatting.
func Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

// Info logs an info message.
func Info(msg string) {
	log.Info().Msg(msg)
}

// Infof logs an info message with formatting.
func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(msg string) {
	log.Warn().Msg(msg)
}

// Warnf logs a warning message with formatting.
func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Error logs an error message with the error object.
func Error(msg string, err error) {
	log.Error().Err(err).Msg(msg)
}

// Errorf logs an error message with formatting and the error object.
func Errorf(format string, err error, v ...interface{}) {
	log.Error().Err(err).Msgf(format, v...)
}
