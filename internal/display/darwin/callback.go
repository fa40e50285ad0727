//go:build darwin && cgo

package darwin

/*
#include <stdint.h>
*/
import "C"

import (
	"sync"

	"github.com/bnema/displaytoggle/internal/display"
)

// kCGDisplayBeginConfigurationFlag
const beginConfigurationFlag = 1 << 0

var (
	subscribersMu sync.Mutex
	subscribers   = make(map[chan display.Event]struct{})
)

func subscribe(ch chan display.Event) func() {
	subscribersMu.Lock()
	subscribers[ch] = struct{}{}
	subscribersMu.Unlock()

	return func() {
		subscribersMu.Lock()
		delete(subscribers, ch)
		subscribersMu.Unlock()
	}
}

//export goDisplayReconfigured
func goDisplayReconfigured(id C.uint32_t, flags C.uint32_t) {
	// the callback fires once before and once after each change
	if uint32(flags)&beginConfigurationFlag != 0 {
		return
	}

	ev := display.Event{Display: display.ID(id), Kind: display.EventChanged}

	subscribersMu.Lock()
	defer subscribersMu.Unlock()
	for ch := range subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
