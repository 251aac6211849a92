//go:build windows

package shell

import (
	"os/exec"
	"strings"
	"syscall"
)

// DefaultInterpreter returns the Windows command processor.
func DefaultInterpreter() []string {
	return []string{"cmd", "/c"}
}

// cmd.exe does its own parsing of the command line, so the command is
// appended verbatim instead of being quoted as an argument.
func interpreterCommand(interpreter []string, command string) *exec.Cmd {
	cmd := exec.Command(interpreter[0])
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:    strings.Join(interpreter, " ") + " " + command,
		HideWindow: true,
	}
	return cmd
}
