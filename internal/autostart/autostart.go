// Package autostart registers the agent to start at user login.
package autostart

import (
	"errors"
	"fmt"
	"os"
)

// Label identifies the agent's login item on every platform.
const Label = "com.hostbridge.agent"

// ErrUnsupported is returned on platforms without a login item mechanism.
var ErrUnsupported = errors.New("autostart not supported on this platform")

// Enable enables auto-start on login. args are passed to the executable.
func Enable(args ...string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return enable(execPath, args)
}

// Disable disables auto-start on login. Disabling when not enabled is not an
// error.
func Disable() error {
	return disable()
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	return isEnabled()
}
