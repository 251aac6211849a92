// Package osutils holds process-wide platform setup and privilege helpers.
package osutils

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu       sync.Mutex
	started  bool
	stopped  bool
	startErr error
)

// Startup performs the platform's one-time initialization. It runs at most
// once per process; later calls return the first call's result.
func Startup(log zerolog.Logger) error {
	mu.Lock()
	defer mu.Unlock()

	if started || stopped {
		return startErr
	}
	started = true
	startErr = platformStartup(log.With().Str("component", "osutils").Logger())
	return startErr
}

// Shutdown undoes a successful Startup. After Shutdown, Startup does
// nothing; the subsystems are not brought back up within one process.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if stopped {
		return
	}
	stopped = true
	if started && startErr == nil {
		platformShutdown()
	}
}
