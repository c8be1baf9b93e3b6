// Package obs holds the service's logging and metrics plumbing.
package obs

import (
	"log/slog"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the shared structured logger. The first call initialises a
// JSON handler on stdout.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	})
	return logger
}

// SetLevel reinitialises the shared logger with the given minimum level.
// Call before the first Logger use; later calls replace the handler.
func SetLevel(level slog.Level) {
	Logger()
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
