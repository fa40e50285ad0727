package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar is the title line of the menu, with an optional busy spinner
type StatusBar struct {
	Width   int
	Title   string
	Status  string
	Busy    bool
	spinner spinner.Model
}

// NewStatusBar creates a new status bar
func NewStatusBar(title string) *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerDot,
		FPS:    time.Second / 10,
	}
	s.Style = SpinnerStyle

	return &StatusBar{
		Title:   title,
		spinner: s,
	}
}

// Init implements tea.Model
func (s *StatusBar) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update implements tea.Model
func (s *StatusBar) Update(msg tea.Msg) (*StatusBar, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	case tea.WindowSizeMsg:
		s.Width = msg.Width
	}
	return s, nil
}

// View renders the status bar
func (s *StatusBar) View() string {
	title := TitleStyle.Render(s.Title)

	status := SubtleStyle.Render(s.Status)
	if s.Busy {
		status = s.spinner.View() + " " + status
	}

	gap := s.Width - lipgloss.Width(title) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + status
}

// ControlsHelp displays keyboard controls on one line
type ControlsHelp struct {
	Controls []Control
	Width    int
}

// Control represents a keyboard control
type Control struct {
	Key  string
	Desc string
}

// View renders the controls help
func (c *ControlsHelp) View() string {
	parts := make([]string, 0, len(c.Controls))
	for _, ctrl := range c.Controls {
		parts = append(parts, FormatControl(ctrl.Key, ctrl.Desc))
	}

	line := strings.Join(parts, SubtleStyle.Render(" · "))
	if c.Width > 0 {
		return lipgloss.NewStyle().Width(c.Width).Render(line)
	}
	return line
}

// Message displays a styled one-line notice
type Message struct {
	Type    MessageType
	Content string
}

// MessageType represents the type of message
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// View renders the message
func (m *Message) View() string {
	if m.Content == "" {
		return ""
	}

	var style lipgloss.Style
	var prefix string

	switch m.Type {
	case MessageSuccess:
		style = SuccessStyle
		prefix = IconSuccess
	case MessageWarning:
		style = WarningStyle
		prefix = IconWarning
	case MessageError:
		style = ErrorStyle
		prefix = IconError
	default:
		style = InfoStyle
		prefix = "i"
	}

	return style.Render(fmt.Sprintf("%s %s", prefix, m.Content))
}
