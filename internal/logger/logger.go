// Package logger provides the process-wide structured logger used by the CLI
// and long-running download tasks.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is an alias for logrus fields to make the API cleaner.
type Fields = logrus.Fields

var (
	logger *logrus.Logger
	mu     sync.Mutex

	// testOutput is used to capture log output during tests
	testOutput io.Writer
)

// SetTestOutput sets the output writer for testing purposes.
func SetTestOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	testOutput = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// UnsetTestOutput resets the output to stdout.
func UnsetTestOutput() {
	mu.Lock()
	defer mu.Unlock()
	testOutput = nil
	if logger != nil {
		logger.SetOutput(os.Stdout)
	}
}

// InitLogger initializes the global logger. Unknown levels fall back to info.
func InitLogger(logLevel string) {
	mu.Lock()
	defer mu.Unlock()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if testOutput != nil {
		l.SetOutput(testOutput)
	} else {
		l.SetOutput(os.Stdout)
	}
	logger = l
}

// GetLogger returns the configured logger instance.
func GetLogger() *logrus.Logger {
	mu.Lock()
	uninitialized := logger == nil
	mu.Unlock()
	if uninitialized {
		InitLogger("info")
	}
	return logger
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Info(msg)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Debug logs a debug message (only shown when debug level is enabled).
func Debug(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Debug(msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Warn(msg)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Error(msg)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Success logs a success message as info with a success indicator.
func Success(msg string, fields ...Fields) {
	merged := mergeFields(fields...)
	merged["status"] = "success"
	GetLogger().WithFields(merged).Info(msg)
}

// Successf logs a formatted success message.
func Successf(format string, args ...interface{}) {
	GetLogger().Infof("SUCCESS: "+format, args...)
}

func mergeFields(fields ...Fields) Fields {
	result := Fields{}
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}
