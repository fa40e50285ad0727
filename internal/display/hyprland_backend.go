package display

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/logger"
)

// hyprlandBackend drives Hyprland through hyprctl and its event socket
type hyprlandBackend struct {
	run        commandRunner
	socketPath string

	mu      sync.Mutex
	outputs *outputTable
	last    []hyprMonitor
}

// hyprMonitor is the subset of `hyprctl -j monitors all` this backend reads
type hyprMonitor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Disabled    bool   `json:"disabled"`
}

func newHyprlandBackend(opts Options) (Backend, error) {
	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return nil, fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE is not set")
	}
	if _, err := exec.LookPath("hyprctl"); err != nil {
		return nil, fmt.Errorf("hyprctl not found in PATH")
	}

	return &hyprlandBackend{
		run:        execRunner,
		socketPath: hyprlandEventSocket(signature),
		outputs:    newOutputTable(),
	}, nil
}

// hyprlandEventSocket returns the path of the socket2 event stream
func hyprlandEventSocket(signature string) string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		path := filepath.Join(runtimeDir, "hypr", signature, ".socket2.sock")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join("/tmp", "hypr", signature, ".socket2.sock")
}

func (h *hyprlandBackend) Name() string {
	return "hyprland"
}

func (h *hyprlandBackend) query() ([]hyprMonitor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.run(ctx, "hyprctl", "-j", "monitors", "all")
	if err != nil {
		return nil, &QueryError{Op: "hyprctl monitors", Status: exitStatus(err), Err: err}
	}

	var monitors []hyprMonitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return nil, &QueryError{Op: "hyprctl monitors", Status: -1, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range monitors {
		h.outputs.add(m.Name)
	}
	h.last = monitors

	return monitors, nil
}

func (h *hyprlandBackend) AllDisplays() ([]ID, error) {
	monitors, err := h.query()
	if err != nil {
		return nil, err
	}

	ids := make([]ID, 0, len(monitors))
	for _, m := range monitors {
		ids = append(ids, connectorID(m.Name))
	}
	return ids, nil
}

func (h *hyprlandBackend) OnlineDisplays() ([]ID, error) {
	monitors, err := h.query()
	if err != nil {
		return nil, err
	}

	var ids []ID
	for _, m := range monitors {
		if !m.Disabled {
			ids = append(ids, connectorID(m.Name))
		}
	}
	return ids, nil
}

func (h *hyprlandBackend) IsBuiltin(id ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, ok := h.outputs.name(id)
	return ok && isBuiltinConnector(name)
}

func (h *hyprlandBackend) ScreenNames() map[ID]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make(map[ID]string)
	for _, m := range h.last {
		if m.Disabled {
			continue
		}
		names[connectorID(m.Name)] = outputLabel(m.Name, m.Description, m.Make, m.Model)
	}
	return names
}

func (h *hyprlandBackend) BeginConfiguration() (Transaction, error) {
	return &commandTransaction{
		resolve: func(id ID) (string, bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.outputs.name(id)
		},
		commit: h.commit,
	}, nil
}

// commit sends one keyword per change as a hyprctl batch
func (h *hyprlandBackend) commit(changes []outputChange) error {
	commands := make([]string, 0, len(changes))
	for _, c := range changes {
		commands = append(commands, "keyword monitor "+monitorRule(c.Output, c.Enabled))
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	batch := strings.Join(commands, " ; ")
	logger.Debugf("Running hyprctl --batch %q", batch)

	output, err := h.run(ctx, "hyprctl", "--batch", batch)
	if err != nil {
		return &StatusError{Op: "hyprctl keyword monitor", Code: exitStatus(err)}
	}

	// hyprctl exits 0 even when a keyword is rejected
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && line != "ok" {
			return fmt.Errorf("hyprctl: %s", line)
		}
	}
	return nil
}

// monitorRule returns the monitor keyword value that powers an output on or off
func monitorRule(output string, enabled bool) string {
	if enabled {
		return output + ",preferred,auto,1"
	}
	return output + ",disable"
}

func (h *hyprlandBackend) Watch(ctx context.Context) (<-chan Event, error) {
	conn, err := net.Dial("unix", h.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hyprland event socket %s: %w", h.socketPath, err)
	}

	events := make(chan Event, 16)
	go h.readEvents(ctx, conn, events)
	return events, nil
}

// readEvents forwards monitor events until ctx is done, reconnecting when
// the compositor drops the socket
func (h *hyprlandBackend) readEvents(ctx context.Context, conn net.Conn, events chan<- Event) {
	defer close(events)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			ev, ok := parseHyprlandEvent(scanner.Text())
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		logger.Warnf("Hyprland event socket closed: %v, reconnecting", scanner.Err())

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}

			next, err := net.Dial("unix", h.socketPath)
			if err != nil {
				logger.Debugf("Reconnect to hyprland event socket failed: %v", err)
				continue
			}
			conn = next
			go func(c net.Conn) {
				<-ctx.Done()
				c.Close()
			}(conn)
			break
		}
	}
}

// parseHyprlandEvent maps one socket2 line to a display event
func parseHyprlandEvent(line string) (Event, bool) {
	name, data, found := strings.Cut(line, ">>")
	if !found {
		return Event{}, false
	}

	switch name {
	case "monitoradded":
		return Event{Display: connectorID(data), Kind: EventAdded}, true
	case "monitorremoved":
		return Event{Display: connectorID(data), Kind: EventRemoved}, true
	case "monitoraddedv2", "monitorremovedv2":
		kind := EventAdded
		if name == "monitorremovedv2" {
			kind = EventRemoved
		}
		// id,name,description
		fields := strings.SplitN(data, ",", 3)
		if len(fields) < 2 {
			return Event{Kind: kind}, true
		}
		return Event{Display: connectorID(fields[1]), Kind: kind}, true
	case "configreloaded":
		return Event{Kind: EventChanged}, true
	}
	return Event{}, false
}

func (h *hyprlandBackend) Close() error {
	return nil
}
