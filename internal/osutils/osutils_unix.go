//go:build !windows

package osutils

import (
	"os"

	"github.com/rs/zerolog"
)

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// EnsureFirewallRule is a no-op outside Windows.
func EnsureFirewallRule(port int, log zerolog.Logger) error {
	log.Debug().Int("port", port).Msg("Firewall: automatic rule management is only supported on Windows")
	return nil
}
