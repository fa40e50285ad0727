// Package state holds the observable display snapshot and preferences that
// every interface renders from
package state

import (
	"sort"
	"sync"

	"github.com/bnema/displaytoggle/internal/display"
)

// State is what an interface needs to render the menu
type State struct {
	Displays           []display.Display `json:"displays" yaml:"displays"`
	AutoDisableBuiltin bool              `json:"auto_disable_builtin" yaml:"auto_disable_builtin"`
	LaunchAtLogin      bool              `json:"launch_at_login" yaml:"launch_at_login"`
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	s.Displays = display.Clone(s.Displays)
	return s
}

// Store publishes state changes to subscribers. Subscribers are called
// outside the lock, in subscription order, with their own copy.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{subs: make(map[int]func(State))}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Publish replaces the display snapshot
func (s *Store) Publish(displays []display.Display) {
	s.mu.Lock()
	s.state.Displays = display.Clone(displays)
	s.mu.Unlock()

	s.notify()
}

// Update flips the on flag of a single display. It reports false when the
// display is not part of the snapshot.
func (s *Store) Update(id display.ID, on bool) bool {
	s.mu.Lock()
	found := false
	for i := range s.state.Displays {
		if s.state.Displays[i].ID == id {
			s.state.Displays[i].On = on
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

// SetPreferences records the preference flags
func (s *Store) SetPreferences(autoDisableBuiltin, launchAtLogin bool) {
	s.mu.Lock()
	changed := s.state.AutoDisableBuiltin != autoDisableBuiltin || s.state.LaunchAtLogin != launchAtLogin
	s.state.AutoDisableBuiltin = autoDisableBuiltin
	s.state.LaunchAtLogin = launchAtLogin
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Subscribe registers fn for every change and returns a function that
// removes it
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snapshot := s.state.Clone()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}
