package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

var (
	// logFile is the file opened by EnableFileLogging, if any
	logFile *os.File

	// console receives log lines besides the log file
	console io.Writer = os.Stderr
)

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "displaytoggle",
	})
	Logger.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLevel maps a level name to a log level, defaulting to INFO
func ParseLevel(level string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel overrides the level picked from LOG_LEVEL. An empty string keeps the current level.
func SetLevel(level string) {
	if level == "" {
		return
	}
	Logger.SetLevel(ParseLevel(level))
}

// SetOutput redirects log output, used by the menu so log lines don't tear the alt screen
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// EnableFileLogging sends log output to path in addition to stderr
func EnableFileLogging(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	CloseFileLogging()
	logFile = f
	applyOutput()
	return nil
}

// CloseFileLogging closes the log file opened by EnableFileLogging
func CloseFileLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
		applyOutput()
	}
}

// Quiet stops writing to stderr while a full screen menu owns the terminal.
// Lines still reach the log file when file logging is on.
func Quiet(quiet bool) {
	if quiet {
		console = io.Discard
	} else {
		console = os.Stderr
	}
	applyOutput()
}

func applyOutput() {
	if logFile != nil {
		Logger.SetOutput(io.MultiWriter(console, logFile))
		return
	}
	Logger.SetOutput(console)
}

// DefaultLogPath returns the log file location under the user cache dir
func DefaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "displaytoggle", "displaytoggle.log")
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
