//go:build !darwin && !windows && !linux && !freebsd

package autostart

func enable(string, []string) error { return ErrUnsupported }

func disable() error { return ErrUnsupported }

func isEnabled() bool { return false }
