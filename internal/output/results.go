package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/ui"
)

// DisplayList is the output of the list command
type DisplayList struct {
	Backend  string            `yaml:"backend,omitempty" json:"backend,omitempty"`
	Displays []display.Display `yaml:"displays"          json:"displays"`
}

// Text renders the displays as a table
func (l DisplayList) Text() string {
	if len(l.Displays) == 0 {
		return ui.SubtleStyle.Render("No displays found")
	}

	rows := make([][]string, 0, len(l.Displays))
	for _, d := range l.Displays {
		rows = append(rows, []string{d.ID.String(), d.Name, d.Kind(), onOff(d.On)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Foreground(ui.ColorPrimary).Bold(true)
			case col == 0:
				return base.Foreground(ui.ColorInfo)
			case col == 3 && rows[row][3] == "on":
				return base.Foreground(ui.ColorSuccess).Bold(true)
			case col == 3:
				return base.Foreground(ui.ColorSubtle)
			default:
				return base.Foreground(ui.ColorText)
			}
		}).
		Headers("ID", "NAME", "KIND", "STATE").
		Rows(rows...)

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	summary := fmt.Sprintf("%d of %d on", display.OnCount(l.Displays), len(l.Displays))
	if l.Backend != "" {
		summary += " · backend " + l.Backend
	}
	b.WriteString(ui.SubtleStyle.Render(summary))
	return b.String()
}

// Preferences is the output of the prefs command
type Preferences struct {
	AutoDisableBuiltin bool `yaml:"auto_disable_builtin" json:"auto_disable_builtin"`
	LaunchAtLogin      bool `yaml:"launch_at_login"      json:"launch_at_login"`
}

// Text renders one preference per line
func (p Preferences) Text() string {
	return fmt.Sprintf("%s %s\n%s %s",
		ui.SubheaderStyle.Render("Auto-disable built-in display:"), onOff(p.AutoDisableBuiltin),
		ui.SubheaderStyle.Render("Launch at login:              "), onOff(p.LaunchAtLogin))
}

// Status is the output of the status command
type Status struct {
	Running   bool   `yaml:"running"              json:"running"`
	Backend   string `yaml:"backend,omitempty"    json:"backend,omitempty"`
	Displays  int    `yaml:"displays"             json:"displays"`
	On        int    `yaml:"on"                   json:"on"`
	LastError string `yaml:"last_error,omitempty" json:"last_error,omitempty"`
}

// Text renders the daemon status
func (s Status) Text() string {
	var b strings.Builder
	if s.Running {
		b.WriteString(ui.SuccessStyle.Render("● Running"))
	} else {
		b.WriteString(ui.ErrorStyle.Render("○ Not running"))
	}
	if s.Backend != "" {
		b.WriteString(ui.SubtleStyle.Render(" (" + s.Backend + ")"))
	}
	if s.Running {
		b.WriteString(fmt.Sprintf("\n%d of %d displays on", s.On, s.Displays))
	}
	if s.LastError != "" {
		b.WriteString("\n" + ui.ErrorStyle.Render("Last error: "+s.LastError))
	}
	return b.String()
}

// Change is the output of the on, off and restore commands
type Change struct {
	Action  string     `yaml:"action"            json:"action"`
	ID      display.ID `yaml:"id,omitempty"      json:"id,omitempty"`
	Name    string     `yaml:"name,omitempty"    json:"name,omitempty"`
	Enabled bool       `yaml:"enabled"           json:"enabled"`
}

// Text renders a one line confirmation
func (c Change) Text() string {
	if c.Action == "restore" {
		return ui.SuccessStyle.Render(ui.IconSuccess) + " All displays on"
	}
	return ui.SuccessStyle.Render(ui.IconSuccess) + fmt.Sprintf(" %s turned %s", c.Name, onOff(c.Enabled))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
