//go:build !windows

package shell

import "os/exec"

// DefaultInterpreter returns the POSIX shell.
func DefaultInterpreter() []string {
	return []string{"/bin/sh", "-c"}
}

func interpreterCommand(interpreter []string, command string) *exec.Cmd {
	args := append(append([]string(nil), interpreter[1:]...), command)
	return exec.Command(interpreter[0], args...)
}
