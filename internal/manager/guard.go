package manager

import (
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// guard tells self-caused change notifications apart from external ones.
// Each change the manager issues holds a token for the whole window, failed
// changes included. While any token is held every notification is
// suppressed; a notification for a token's display only marks it
// acknowledged, so repeated reports of one change stay silent.
//
// All methods except the expiry callback run with the manager lock held.
type guard struct {
	locker sync.Locker
	window time.Duration
	after  AfterFunc

	tokens  []*guardToken
	dropped int

	// onIdle runs, lock held, when the last token expires with the number
	// of suppressed notifications that matched no pending display
	onIdle func(dropped int)
}

type guardToken struct {
	display display.ID
	acked   bool
}

func newGuard(locker sync.Locker, window time.Duration, after AfterFunc, onIdle func(int)) *guard {
	return &guard{
		locker: locker,
		window: window,
		after:  after,
		onIdle: onIdle,
	}
}

// begin registers a pending self-change for id
func (g *guard) begin(id display.ID) {
	tok := &guardToken{display: id}
	g.tokens = append(g.tokens, tok)

	g.after(g.window, func() {
		g.locker.Lock()
		defer g.locker.Unlock()

		if !tok.acked {
			logger.Debugf("Self-change guard for display %d expired without acknowledgment", tok.display)
		}
		g.expire(tok)
	})
}

// expire drops a token, firing onIdle when none remain
func (g *guard) expire(tok *guardToken) {
	for i, t := range g.tokens {
		if t == tok {
			g.tokens = append(g.tokens[:i], g.tokens[i+1:]...)
			break
		}
	}
	if len(g.tokens) > 0 {
		return
	}

	dropped := g.dropped
	g.dropped = 0
	if g.onIdle != nil {
		g.onIdle(dropped)
	}
}

// active reports whether a self-change is pending
func (g *guard) active() bool {
	return len(g.tokens) > 0
}

// absorb reports whether ev must be ignored. A notification for a display
// with a pending token acknowledges it; one without a display acknowledges
// the oldest unacknowledged token. Anything else counts as dropped.
func (g *guard) absorb(ev display.Event) bool {
	if len(g.tokens) == 0 {
		return false
	}

	if ev.Display == 0 {
		for _, tok := range g.tokens {
			if !tok.acked {
				tok.acked = true
				break
			}
		}
		return true
	}

	matched := false
	for _, tok := range g.tokens {
		if tok.display == ev.Display {
			tok.acked = true
			matched = true
		}
	}
	if !matched {
		g.dropped++
	}
	return true
}
