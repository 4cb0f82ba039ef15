package hallway

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the monitor's host-side logger. It uses a no-op logger by
// default; nothing here is ever written to the console.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the monitor's logger.
// This must be called before any monitor is started.
func SetLogger(l *zap.Logger) {
	logger = l
}
