//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

const firewallRuleName = "HostBridge API"

// IsElevated checks if the current process has administrative privileges
func IsElevated() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// EnsureFirewallRule makes sure an inbound rule allows the API port. Without
// elevation the rule is created through a UAC prompt.
func EnsureFirewallRule(port int, log zerolog.Logger) error {
	portStr := strconv.Itoa(port)
	log.Info().Str("rule", firewallRuleName).Int("port", port).Msg("Firewall: checking rule")

	checkCmd := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+firewallRuleName)
	output, err := checkCmd.CombinedOutput()
	outputStr := string(output)

	if err == nil && strings.Contains(outputStr, firewallRuleName) {
		if strings.Contains(outputStr, portStr) && strings.Contains(outputStr, "Allow") {
			log.Info().Msg("Firewall: rule already matches")
			return nil
		}
		log.Info().Msg("Firewall: rule exists with a different port, updating")
	} else {
		log.Info().Msg("Firewall: rule not found, creating")
	}

	psCommand := fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Any",
		firewallRuleName, firewallRuleName, port,
	)

	if !IsElevated() {
		log.Info().Msg("Firewall: process is not elevated, requesting UAC elevation")

		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, windows.SW_HIDE); err != nil {
			return fmt.Errorf("launch elevated powershell: %w", err)
		}
		return nil
	}

	cmd := exec.Command("powershell", "-NoProfile", "-Command", psCommand)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("create firewall rule: %w (output: %s)", err, output)
	}
	log.Info().Int("port", port).Msg("Firewall: rule applied")
	return nil
}

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2
const perMonitorAwareV2 = ^uintptr(3) // (DPI_AWARENESS_CONTEXT)-4

var (
	user32                            = windows.NewLazySystemDLL("user32.dll")
	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procSetProcessDPIAware            = user32.NewProc("SetProcessDPIAware")
)

// GDI reports scaled metrics to DPI-unaware processes, which would make
// captures and cursor coordinates disagree with the physical display.
func platformStartup(log zerolog.Logger) error {
	if procSetProcessDpiAwarenessContext.Find() == nil {
		ok, _, err := procSetProcessDpiAwarenessContext.Call(perMonitorAwareV2)
		if ok != 0 {
			log.Debug().Msg("Startup: per-monitor DPI awareness enabled")
			return nil
		}
		log.Debug().Err(err).Msg("Startup: SetProcessDpiAwarenessContext failed, falling back")
	}

	ok, _, err := procSetProcessDPIAware.Call()
	if ok == 0 {
		return fmt.Errorf("SetProcessDPIAware: %w", err)
	}
	log.Debug().Msg("Startup: system DPI awareness enabled")
	return nil
}

// DPI awareness is fixed for the lifetime of the process.
func platformShutdown() {}
