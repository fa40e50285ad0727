// Package ui provides the display menu and the styling shared by every
// displaytoggle terminal surface
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	// Primary colors
	ColorPrimary   = lipgloss.Color("39")  // Bright blue
	ColorSecondary = lipgloss.Color("205") // Pink/magenta
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("86")  // Cyan

	// Neutral colors
	ColorText      = lipgloss.Color("252") // Light gray
	ColorSubtle    = lipgloss.Color("241") // Medium gray
	ColorMuted     = lipgloss.Color("238") // Dark gray
	ColorHighlight = lipgloss.Color("255") // White

	// Switch colors
	ColorOn       = ColorSuccess
	ColorOff      = ColorSubtle
	ColorDisabled = ColorMuted
)

// Base styles - building blocks for other styles
var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubheaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorMuted).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)
)

// Menu styles
var (
	MenuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)

	RowStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			PaddingLeft(1)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Background(ColorMuted).
				Bold(true).
				PaddingLeft(1)

	DangerRowStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			PaddingLeft(1)

	IconStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(3).
			Align(lipgloss.Center)

	SwitchOnStyle = lipgloss.NewStyle().
			Foreground(ColorOn).
			Bold(true)

	SwitchOffStyle = lipgloss.NewStyle().
			Foreground(ColorOff)

	SwitchDisabledStyle = lipgloss.NewStyle().
				Foreground(ColorDisabled)

	ControlKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	ControlDescStyle = lipgloss.NewStyle().
				Foreground(ColorText)
)

// Icons used by the menu rows (simple Unicode so every terminal renders them)
var (
	IconBuiltin  = "▭"
	IconExternal = "▣"
	IconAllOn    = "☀"
	IconPrefs    = "⚙"
	IconExit     = "⏻"
	IconBack     = "‹"
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "!"
)

// Spinner presets
var (
	SpinnerDot  = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	SpinnerLine = []string{"|", "/", "-", "\\"}
)

// FormatControl renders a key binding hint
func FormatControl(key, desc string) string {
	return ControlKeyStyle.Render(key) + " - " + ControlDescStyle.Render(desc)
}

// FormatSwitch renders a toggle switch. A disabled switch keeps its position
// but is dimmed.
func FormatSwitch(on, disabled bool) string {
	text := "[ ○  off ]"
	if on {
		text = "[ on  ● ]"
	}

	switch {
	case disabled:
		return SwitchDisabledStyle.Render(text)
	case on:
		return SwitchOnStyle.Render(text)
	default:
		return SwitchOffStyle.Render(text)
	}
}

// Center places content in the middle of width columns
func Center(width int, content string) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
