//go:build !linux && !freebsd && !windows

package osutils

import "github.com/rs/zerolog"

func platformStartup(zerolog.Logger) error { return nil }

func platformShutdown() {}
