package manager

import (
	"sort"
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/display"
)

// fakeClock runs scheduled callbacks only when the test advances time
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves time forward by d, firing due timers in order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of armed timers
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type fakePrefs struct {
	enabled bool
	err     error
}

func (p *fakePrefs) AutoDisableBuiltin() bool {
	return p.enabled
}

func (p *fakePrefs) SetAutoDisableBuiltin(enabled bool) error {
	if p.err != nil {
		return p.err
	}
	p.enabled = enabled
	return nil
}

type fakeLogin struct {
	installed bool
	err       error
	execPath  string
}

func (l *fakeLogin) IsInstalled() (bool, error) {
	return l.installed, nil
}

func (l *fakeLogin) Install(execPath string) error {
	if l.err != nil {
		return l.err
	}
	l.installed = true
	l.execPath = execPath
	return nil
}

func (l *fakeLogin) Uninstall() error {
	if l.err != nil {
		return l.err
	}
	l.installed = false
	return nil
}

// countingBackend counts enumeration passes
type countingBackend struct {
	*display.SimulatedBackend

	mu      sync.Mutex
	queries int
}

func (c *countingBackend) AllDisplays() ([]display.ID, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
	return c.SimulatedBackend.AllDisplays()
}

func (c *countingBackend) Queries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}
