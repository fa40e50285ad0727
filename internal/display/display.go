// Package display enumerates physical displays and powers them on or off
// through the OS display-configuration APIs
package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ID is the opaque handle the OS assigns to a physical display
type ID uint32

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a display identifier given on the command line or over IPC
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid display id %q: %w", s, err)
	}
	return ID(v), nil
}

// Display is one entry of a display snapshot. Snapshots are rebuilt on every
// enumeration pass and never persisted.
type Display struct {
	ID      ID     `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	On      bool   `json:"on" yaml:"on"`
	BuiltIn bool   `json:"built_in" yaml:"built_in"`
}

// Kind returns a short label for the kind of panel
func (d Display) Kind() string {
	if d.BuiltIn {
		return "built-in"
	}
	return "external"
}

var (
	// ErrLastDisplayOn is returned when a request would power off every display
	ErrLastDisplayOn = errors.New("refusing to turn off the last display that is on")

	// ErrUnknownDisplay is returned for identifiers missing from the snapshot
	ErrUnknownDisplay = errors.New("unknown display")
)

// PlaceholderName is the name used for displays missing from the active screen metadata
func PlaceholderName(id ID) string {
	return fmt.Sprintf("Offline Display (%d)", id)
}

// Find returns the display with the given identifier
func Find(displays []Display, id ID) (Display, bool) {
	for _, d := range displays {
		if d.ID == id {
			return d, true
		}
	}
	return Display{}, false
}

// FindByName returns the first display whose name matches, ignoring case
func FindByName(displays []Display, name string) (Display, bool) {
	for _, d := range displays {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Display{}, false
}

// Lookup resolves a display reference given by a user: an identifier or a
// display name
func Lookup(displays []Display, ref string) (Display, error) {
	if id, err := ParseID(ref); err == nil {
		if d, ok := Find(displays, id); ok {
			return d, nil
		}
		return Display{}, fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
	}
	if d, ok := FindByName(displays, ref); ok {
		return d, nil
	}
	return Display{}, fmt.Errorf("%w: %q", ErrUnknownDisplay, ref)
}

// FindBuiltin returns the first built-in display of the snapshot
func FindBuiltin(displays []Display) (Display, bool) {
	for _, d := range displays {
		if d.BuiltIn {
			return d, true
		}
	}
	return Display{}, false
}

// OnCount returns how many displays are on
func OnCount(displays []Display) int {
	n := 0
	for _, d := range displays {
		if d.On {
			n++
		}
	}
	return n
}

// AnyExternalOn reports whether at least one non-built-in display is on
func AnyExternalOn(displays []Display) bool {
	for _, d := range displays {
		if d.On && !d.BuiltIn {
			return true
		}
	}
	return false
}

// CanDisable reports whether the display may be switched off. The last
// display that is on can never be switched off.
func CanDisable(displays []Display, id ID) bool {
	d, ok := Find(displays, id)
	if !ok {
		return false
	}
	return !(d.On && OnCount(displays) == 1)
}

// Clone returns a copy of the snapshot
func Clone(displays []Display) []Display {
	if displays == nil {
		return nil
	}
	out := make([]Display, len(displays))
	copy(out, displays)
	return out
}
