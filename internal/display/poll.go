package display

import (
	"context"
	"time"

	"github.com/bnema/displaytoggle/internal/logger"
)

// PollOnline emits an event for every display whose online state changes
// between two queries. Used by backends that have no change notification.
func PollOnline(ctx context.Context, interval time.Duration, query func() ([]ID, error)) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last, err := query()
		if err != nil {
			logger.Debugf("Initial online query failed: %v", err)
		}
		lastSet := idSet(last)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := query()
				if err != nil {
					logger.Debugf("Online query failed: %v", err)
					continue
				}
				currentSet := idSet(current)

				for _, ev := range diffOnline(lastSet, currentSet) {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
				lastSet = currentSet
			}
		}
	}()

	return events
}

// diffOnline returns one event per display that came online or went offline
func diffOnline(before, after map[ID]bool) []Event {
	var events []Event
	for id := range after {
		if !before[id] {
			events = append(events, Event{Display: id, Kind: EventAdded})
		}
	}
	for id := range before {
		if !after[id] {
			events = append(events, Event{Display: id, Kind: EventRemoved})
		}
	}
	return events
}

func idSet(ids []ID) map[ID]bool {
	set := make(map[ID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
