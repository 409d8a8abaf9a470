// Package logging provides the structured leveled logger used
// throughout the engine. No component writes to stdio directly;
// everything goes through Debug/Info/Warn/Error here.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
)

// SetLevel sets the minimum level that will be emitted. Accepts
// "debug", "info", "warn", "error" (case-insensitive); unrecognized
// values leave the level unchanged.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	}
}

// Debug logs at debug level with optional structured key/value pairs.
func Debug(msg string, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Debug(msg, keyvals...)
}

// Info logs at info level with optional structured key/value pairs.
func Info(msg string, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Info(msg, keyvals...)
}

// Warn logs at warn level with optional structured key/value pairs.
func Warn(msg string, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Warn(msg, keyvals...)
}

// Error logs at error level with optional structured key/value pairs.
func Error(msg string, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.Error(msg, keyvals...)
}
