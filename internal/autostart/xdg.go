package autostart

import (
	"path/filepath"
	"text/template"
)

var desktopTemplate = template.Must(template.New("desktop").Funcs(funcs).Parse(`[Desktop Entry]
Type=Application
Name=displaytoggle
Comment=Turn displays on and off
Exec={{quote .ExecPath}} run --headless
Terminal=false
NoDisplay=true
X-GNOME-Autostart-enabled=true
`))

// DesktopEntry installs an XDG autostart entry
type DesktopEntry struct {
	Dir string
}

func (d *DesktopEntry) item() fileItem {
	return fileItem{path: filepath.Join(d.Dir, "displaytoggle.desktop"), tmpl: desktopTemplate}
}

func (d *DesktopEntry) IsInstalled() (bool, error) { return d.item().isInstalled() }

func (d *DesktopEntry) Install(execPath string) error { return d.item().install(execPath) }

func (d *DesktopEntry) Uninstall() error { return d.item().uninstall() }

func (d *DesktopEntry) ServiceName() string { return "displaytoggle.desktop" }
