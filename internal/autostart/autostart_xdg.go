//go:build linux || freebsd

package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

var desktopEntry = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=HostBridge Agent
Comment=Remote host automation agent
Exec={{.Exec}}
Terminal=false
X-GNOME-Autostart-enabled=true
`))

func desktopPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", Label+".desktop"), nil
}

// execQuote quotes an argument for the Exec key of a desktop entry.
func execQuote(s string) string {
	if !strings.ContainsAny(s, " \t\n\"'\\><~|&;$*?#()`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}

func enable(execPath string, args []string) error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	parts := []string{execQuote(execPath)}
	for _, a := range args {
		parts = append(parts, execQuote(a))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return desktopEntry.Execute(f, struct{ Exec string }{strings.Join(parts, " ")})
}

func disable() error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isEnabled() bool {
	path, err := desktopPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
