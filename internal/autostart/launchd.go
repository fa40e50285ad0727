package autostart

import (
	"path/filepath"
	"text/template"
)

var plistTemplate = template.Must(template.New("plist").Funcs(funcs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{xml .ExecPath}}</string>
		<string>run</string>
		<string>--headless</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>ProcessType</key>
	<string>Interactive</string>
</dict>
</plist>
`))

// LaunchAgent installs a per-user launchd agent, loaded at the next login
type LaunchAgent struct {
	Dir string
}

func (l *LaunchAgent) item() fileItem {
	return fileItem{path: filepath.Join(l.Dir, Label+".plist"), tmpl: plistTemplate}
}

func (l *LaunchAgent) IsInstalled() (bool, error) { return l.item().isInstalled() }

func (l *LaunchAgent) Install(execPath string) error { return l.item().install(execPath) }

func (l *LaunchAgent) Uninstall() error { return l.item().uninstall() }

func (l *LaunchAgent) ServiceName() string { return Label }
