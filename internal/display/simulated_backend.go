package display

import (
	"context"
	"sync"
)

// SimulatedDisplay describes one display of the simulated backend
type SimulatedDisplay struct {
	ID      ID
	Name    string
	BuiltIn bool
	Online  bool
}

// SimulatedRequest records a SetEnabled call made against the simulated backend
type SimulatedRequest struct {
	ID      ID
	Enabled bool
}

// DefaultSimulatedDisplays returns a laptop with two external monitors, the
// second of which is powered off
func DefaultSimulatedDisplays() []SimulatedDisplay {
	return []SimulatedDisplay{
		{ID: 1, Name: "Built-in Retina Display", BuiltIn: true, Online: true},
		{ID: 2, Name: "DELL U2720Q", Online: true},
		{ID: 3, Name: "LG HDR 4K", Online: false},
	}
}

// SimulatedBackend is an in-memory display configuration. It backs the
// "simulated" backend name and the tests of everything above this package.
type SimulatedBackend struct {
	mu       sync.Mutex
	displays []SimulatedDisplay
	requests []SimulatedRequest
	failures map[Stage]int32
	queryErr error
	watchers map[chan Event]struct{}
}

// NewSimulatedBackend creates a simulated backend holding the given displays
func NewSimulatedBackend(displays ...SimulatedDisplay) *SimulatedBackend {
	return &SimulatedBackend{
		displays: append([]SimulatedDisplay(nil), displays...),
		failures: make(map[Stage]int32),
		watchers: make(map[chan Event]struct{}),
	}
}

func (s *SimulatedBackend) Name() string {
	return "simulated"
}

func (s *SimulatedBackend) AllDisplays() ([]ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryErr != nil {
		return nil, &QueryError{Op: "list displays", Status: 1001, Err: s.queryErr}
	}

	ids := make([]ID, 0, len(s.displays))
	for _, d := range s.displays {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *SimulatedBackend) OnlineDisplays() ([]ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryErr != nil {
		return nil, &QueryError{Op: "list online displays", Status: 1001, Err: s.queryErr}
	}

	var ids []ID
	for _, d := range s.displays {
		if d.Online {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (s *SimulatedBackend) IsBuiltin(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := s.find(id); d != nil {
		return d.BuiltIn
	}
	return false
}

// ScreenNames only reports online displays, like an OS screen list does
func (s *SimulatedBackend) ScreenNames() map[ID]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[ID]string)
	for _, d := range s.displays {
		if d.Online {
			names[d.ID] = d.Name
		}
	}
	return names
}

func (s *SimulatedBackend) BeginConfiguration() (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code := s.failures[StageBegin]; code != 0 {
		return nil, &StatusError{Op: "begin configuration", Code: code}
	}
	return &simulatedTransaction{backend: s}, nil
}

func (s *SimulatedBackend) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 32)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *SimulatedBackend) Close() error {
	return nil
}

// Requests returns every SetEnabled call made so far
func (s *SimulatedBackend) Requests() []SimulatedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SimulatedRequest(nil), s.requests...)
}

// ResetRequests forgets recorded SetEnabled calls
func (s *SimulatedBackend) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Displays returns the current simulated hardware state
func (s *SimulatedBackend) Displays() []SimulatedDisplay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SimulatedDisplay(nil), s.displays...)
}

// FailStage makes the given transaction stage return code. Zero clears it.
func (s *SimulatedBackend) FailStage(stage Stage, code int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code == 0 {
		delete(s.failures, stage)
		return
	}
	s.failures[stage] = code
}

// FailQueries makes enumeration fail with err until called with nil
func (s *SimulatedBackend) FailQueries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// SetOnline changes a display outside of any transaction, the way a user
// unplugging a cable or another tool would, and notifies watchers
func (s *SimulatedBackend) SetOnline(id ID, online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.find(id)
	if d == nil || d.Online == online {
		return false
	}
	d.Online = online
	s.notifyLocked(Event{Display: id, Kind: eventKindFor(online)})
	return true
}

// Connect adds a display, as if it was plugged in
func (s *SimulatedBackend) Connect(d SimulatedDisplay) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.find(d.ID); existing != nil {
		*existing = d
	} else {
		s.displays = append(s.displays, d)
	}
	s.notifyLocked(Event{Display: d.ID, Kind: EventAdded})
}

// Notify delivers an arbitrary event to watchers
func (s *SimulatedBackend) Notify(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(ev)
}

func (s *SimulatedBackend) find(id ID) *SimulatedDisplay {
	for i := range s.displays {
		if s.displays[i].ID == id {
			return &s.displays[i]
		}
	}
	return nil
}

func (s *SimulatedBackend) notifyLocked(ev Event) {
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func eventKindFor(online bool) EventKind {
	if online {
		return EventAdded
	}
	return EventRemoved
}

type simulatedTransaction struct {
	backend *SimulatedBackend
	changes []SimulatedRequest
	closed  bool
}

func (t *simulatedTransaction) SetEnabled(id ID, enabled bool) error {
	s := t.backend
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.closed {
		return errTransactionClosed
	}
	s.requests = append(s.requests, SimulatedRequest{ID: id, Enabled: enabled})

	if code := s.failures[StageConfigure]; code != 0 {
		return &StatusError{Op: "configure display", Code: code}
	}
	if s.find(id) == nil {
		return &StatusError{Op: "configure display", Code: 1001}
	}

	t.changes = append(t.changes, SimulatedRequest{ID: id, Enabled: enabled})
	return nil
}

func (t *simulatedTransaction) Complete() error {
	s := t.backend
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.closed {
		return errTransactionClosed
	}
	t.closed = true

	if code := s.failures[StageCommit]; code != 0 {
		return &StatusError{Op: "complete configuration", Code: code}
	}

	for _, c := range t.changes {
		d := s.find(c.ID)
		if d == nil || d.Online == c.Enabled {
			continue
		}
		d.Online = c.Enabled
		s.notifyLocked(Event{Display: c.ID, Kind: eventKindFor(c.Enabled)})
	}
	return nil
}

func (t *simulatedTransaction) Cancel() error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	if t.closed {
		return errTransactionClosed
	}
	t.closed = true
	t.changes = nil
	return nil
}
