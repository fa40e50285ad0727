//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework AppKit
#include <CoreGraphics/CoreGraphics.h>
#include <AppKit/AppKit.h>
#include <stdbool.h>
#include <stdlib.h>
#include <string.h>

extern CGError CGSGetDisplayList(int maxDisplays, CGDirectDisplayID *displays, int *count);
extern CGError CGSConfigureDisplayEnabled(CGDisplayConfigRef config, CGDirectDisplayID display, bool enabled);

extern void goDisplayReconfigured(uint32_t display, uint32_t flags);

static int dt_display_count(int *count) {
	return (int)CGSGetDisplayList(0, NULL, count);
}

static int dt_display_list(CGDirectDisplayID *ids, int max, int *count) {
	return (int)CGSGetDisplayList(max, ids, count);
}

static int dt_is_active(CGDirectDisplayID id) {
	return CGDisplayIsActive(id) ? 1 : 0;
}

static int dt_is_builtin(CGDirectDisplayID id) {
	return CGDisplayIsBuiltin(id) ? 1 : 0;
}

// dt_screen_names fills ids and names for the active screens. Names are
// strdup'ed and must be freed by the caller.
static int dt_screen_names(uint32_t *ids, char **names, int max) {
	int n = 0;
	@autoreleasepool {
		for (NSScreen *screen in [NSScreen screens]) {
			if (n >= max) {
				break;
			}
			NSNumber *number = [[screen deviceDescription] objectForKey:@"NSScreenNumber"];
			if (number == nil) {
				continue;
			}
			NSString *name = @"";
			if (@available(macOS 10.15, *)) {
				name = [screen localizedName];
			}
			ids[n] = [number unsignedIntValue];
			names[n] = strdup([name UTF8String]);
			n++;
		}
	}
	return n;
}

static int dt_begin(CGDisplayConfigRef *config) {
	return (int)CGBeginDisplayConfiguration(config);
}

static int dt_configure(CGDisplayConfigRef config, CGDirectDisplayID id, int enabled) {
	return (int)CGSConfigureDisplayEnabled(config, id, enabled != 0);
}

static int dt_complete(CGDisplayConfigRef config) {
	return (int)CGCompleteDisplayConfiguration(config, kCGConfigurePermanently);
}

static int dt_cancel(CGDisplayConfigRef config) {
	return (int)CGCancelDisplayConfiguration(config);
}

static void dt_reconfigured(CGDirectDisplayID display, CGDisplayChangeSummaryFlags flags, void *info) {
	goDisplayReconfigured(display, (uint32_t)flags);
}

static int dt_register_callback(void) {
	return (int)CGDisplayRegisterReconfigurationCallback(dt_reconfigured, NULL);
}

static void dt_remove_callback(void) {
	CGDisplayRemoveReconfigurationCallback(dt_reconfigured, NULL);
}

static void dt_run_loop(double seconds) {
	CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, true);
}
*/
import "C"

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
)

// maxScreens bounds the active-screen metadata query
const maxScreens = 32

func init() {
	display.RegisterBackend("darwin", func(opts display.Options) (display.Backend, error) {
		return &Backend{pollInterval: opts.PollInterval}, nil
	})
}

// Backend implements display.Backend with CoreGraphics
type Backend struct {
	pollInterval time.Duration
}

func (b *Backend) Name() string {
	return "darwin"
}

// AllDisplays lists online and offline displays with the private display
// list call, counting first and then filling
func (b *Backend) AllDisplays() ([]display.ID, error) {
	var count C.int
	if status := C.dt_display_count(&count); status != 0 {
		return nil, &display.QueryError{Op: "CGSGetDisplayList", Status: int32(status)}
	}
	if count == 0 {
		return nil, nil
	}

	ids := make([]C.CGDirectDisplayID, int(count))
	if status := C.dt_display_list(&ids[0], count, &count); status != 0 {
		return nil, &display.QueryError{Op: "CGSGetDisplayList", Status: int32(status)}
	}

	out := make([]display.ID, 0, int(count))
	for i := 0; i < int(count) && i < len(ids); i++ {
		out = append(out, display.ID(ids[i]))
	}
	return out, nil
}

func (b *Backend) OnlineDisplays() ([]display.ID, error) {
	all, err := b.AllDisplays()
	if err != nil {
		return nil, err
	}

	var online []display.ID
	for _, id := range all {
		if C.dt_is_active(C.CGDirectDisplayID(id)) != 0 {
			online = append(online, id)
		}
	}
	return online, nil
}

func (b *Backend) IsBuiltin(id display.ID) bool {
	return C.dt_is_builtin(C.CGDirectDisplayID(id)) != 0
}

func (b *Backend) ScreenNames() map[display.ID]string {
	var ids [maxScreens]C.uint32_t
	var names [maxScreens]*C.char

	n := int(C.dt_screen_names(&ids[0], &names[0], C.int(maxScreens)))

	result := make(map[display.ID]string, n)
	for i := 0; i < n; i++ {
		result[display.ID(ids[i])] = C.GoString(names[i])
		C.free(unsafe.Pointer(names[i]))
	}
	return result
}

func (b *Backend) BeginConfiguration() (display.Transaction, error) {
	var config C.CGDisplayConfigRef
	if status := C.dt_begin(&config); status != 0 {
		return nil, &display.StatusError{Op: "CGBeginDisplayConfiguration", Code: int32(status)}
	}
	return &transaction{config: config}, nil
}

// Watch registers the reconfiguration callback and services a run loop on a
// dedicated OS thread. Polling runs alongside because callbacks are not
// delivered to every kind of process.
func (b *Backend) Watch(ctx context.Context) (<-chan display.Event, error) {
	if status := C.dt_register_callback(); status != 0 {
		return nil, fmt.Errorf("CGDisplayRegisterReconfigurationCallback returned status %d", int32(status))
	}

	events := make(chan display.Event, 32)
	unsubscribe := subscribe(events)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		for ctx.Err() == nil {
			C.dt_run_loop(C.double(0.25))
		}
	}()

	polled := display.PollOnline(ctx, b.pollInterval, b.OnlineDisplays)

	out := make(chan display.Event, 32)
	go func() {
		defer close(out)
		defer C.dt_remove_callback()
		defer unsubscribe()

		for {
			var ev display.Event
			var ok bool
			select {
			case <-ctx.Done():
				return
			case ev = <-events:
			case ev, ok = <-polled:
				if !ok {
					return
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Debug("Registered CoreGraphics reconfiguration callback")
	return out, nil
}

func (b *Backend) Close() error {
	return nil
}

type transaction struct {
	config C.CGDisplayConfigRef
	closed bool
}

func (t *transaction) SetEnabled(id display.ID, enabled bool) error {
	var flag C.int
	if enabled {
		flag = 1
	}
	if status := C.dt_configure(t.config, C.CGDirectDisplayID(id), flag); status != 0 {
		return &display.StatusError{Op: "CGSConfigureDisplayEnabled", Code: int32(status)}
	}
	return nil
}

func (t *transaction) Complete() error {
	if t.closed {
		return fmt.Errorf("display configuration already closed")
	}
	t.closed = true
	if status := C.dt_complete(t.config); status != 0 {
		return &display.StatusError{Op: "CGCompleteDisplayConfiguration", Code: int32(status)}
	}
	return nil
}

func (t *transaction) Cancel() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if status := C.dt_cancel(t.config); status != 0 {
		return &display.StatusError{Op: "CGCancelDisplayConfiguration", Code: int32(status)}
	}
	return nil
}
