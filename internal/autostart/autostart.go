// Package autostart registers displaytoggle to start with the user session:
// a launchd agent on macOS and an XDG autostart entry on Linux
package autostart

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform
const Label = "io.github.bnema.displaytoggle"

// Manager provides platform-specific autostart installation
type Manager interface {
	IsInstalled() (bool, error)
	Install(execPath string) error
	Uninstall() error
	ServiceName() string
}

// New returns the login item manager for the running OS, or nil when the
// platform has none
func New() Manager {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return &LaunchAgent{Dir: filepath.Join(home, "Library", "LaunchAgents")}
	case "linux", "freebsd", "openbsd", "netbsd":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			dir = filepath.Join(home, ".config")
		}
		return &DesktopEntry{Dir: filepath.Join(dir, "autostart")}
	default:
		return nil
	}
}

// fileItem is a login item backed by a single file
type fileItem struct {
	path string
	tmpl *template.Template
}

func (f fileItem) isInstalled() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", f.path, err)
}

func (f fileItem) install(execPath string) error {
	if execPath == "" {
		return fmt.Errorf("executable path is empty")
	}
	if !filepath.IsAbs(execPath) {
		return fmt.Errorf("executable path must be absolute: %s", execPath)
	}

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, struct {
		Label    string
		ExecPath string
	}{Label: Label, ExecPath: execPath}); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(f.path), err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.path), err)
	}
	if err := os.WriteFile(f.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

func (f fileItem) uninstall() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", f.path, err)
	}
	return nil
}

var funcs = template.FuncMap{
	"xml": template.HTMLEscapeString,
	"quote": func(s string) string {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", "$", `\$`).Replace(s) + `"`
	},
}
