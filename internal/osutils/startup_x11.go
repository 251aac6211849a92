//go:build linux || freebsd

package osutils

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
)

// ErrNoDisplay is returned by Startup when no X display is configured.
var ErrNoDisplay = errors.New("DISPLAY is not set")

// The X connection itself is opened per command; here we only check that one
// can be found so that a headless start is reported once instead of on
// every command.
func platformStartup(log zerolog.Logger) error {
	display := os.Getenv("DISPLAY")
	if display == "" {
		log.Warn().Msg("Startup: DISPLAY is not set, input and capture commands will fail")
		return ErrNoDisplay
	}
	log.Debug().Str("display", display).Msg("Startup: using X display")
	return nil
}

func platformShutdown() {}
