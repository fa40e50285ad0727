package display

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bnema/displaytoggle/internal/logger"
)

// wlrRandrBackend drives wlroots compositors through the wlr-randr tool
type wlrRandrBackend struct {
	run          commandRunner
	pollInterval time.Duration

	mu      sync.Mutex
	outputs *outputTable
	last    []wlrOutput
}

// wlrOutput is the subset of `wlr-randr --json` this backend reads
type wlrOutput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Enabled     bool   `json:"enabled"`
}

func newWlrRandrBackend(opts Options) (Backend, error) {
	// Check if wlr-randr is available
	if _, err := exec.LookPath("wlr-randr"); err != nil {
		return nil, fmt.Errorf("wlr-randr not found. Please install wlr-randr: https://gitlab.freedesktop.org/emersion/wlr-randr")
	}
	if os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("WAYLAND_DISPLAY is not set")
	}

	return &wlrRandrBackend{
		run:          execRunner,
		pollInterval: opts.PollInterval,
		outputs:      newOutputTable(),
	}, nil
}

func (w *wlrRandrBackend) Name() string {
	return "wlr-randr"
}

func (w *wlrRandrBackend) query() ([]wlrOutput, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := w.run(ctx, "wlr-randr", "--json")
	if err != nil {
		return nil, &QueryError{Op: "wlr-randr --json", Status: exitStatus(err), Err: err}
	}

	var outputs []wlrOutput
	if err := json.Unmarshal(output, &outputs); err != nil {
		return nil, &QueryError{Op: "wlr-randr --json", Status: -1, Err: err}
	}
	logger.Debugf("wlr-randr reported %d outputs", len(outputs))

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range outputs {
		w.outputs.add(o.Name)
	}
	w.last = outputs

	return outputs, nil
}

func (w *wlrRandrBackend) AllDisplays() ([]ID, error) {
	outputs, err := w.query()
	if err != nil {
		return nil, err
	}

	ids := make([]ID, 0, len(outputs))
	for _, o := range outputs {
		ids = append(ids, connectorID(o.Name))
	}
	return ids, nil
}

func (w *wlrRandrBackend) OnlineDisplays() ([]ID, error) {
	outputs, err := w.query()
	if err != nil {
		return nil, err
	}

	var ids []ID
	for _, o := range outputs {
		if o.Enabled {
			ids = append(ids, connectorID(o.Name))
		}
	}
	return ids, nil
}

func (w *wlrRandrBackend) IsBuiltin(id ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	name, ok := w.outputs.name(id)
	return ok && isBuiltinConnector(name)
}

func (w *wlrRandrBackend) ScreenNames() map[ID]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make(map[ID]string)
	for _, o := range w.last {
		if !o.Enabled {
			continue
		}
		names[connectorID(o.Name)] = outputLabel(o.Name, o.Description, o.Make, o.Model)
	}
	return names
}

func (w *wlrRandrBackend) BeginConfiguration() (Transaction, error) {
	return &commandTransaction{
		resolve: func(id ID) (string, bool) {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.outputs.name(id)
		},
		commit: w.commit,
	}, nil
}

func (w *wlrRandrBackend) commit(changes []outputChange) error {
	args := make([]string, 0, len(changes)*3)
	for _, c := range changes {
		state := "--off"
		if c.Enabled {
			state = "--on"
		}
		args = append(args, "--output", c.Output, state)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	logger.Debugf("Running wlr-randr %s", strings.Join(args, " "))
	if _, err := w.run(ctx, "wlr-randr", args...); err != nil {
		return &StatusError{Op: "wlr-randr", Code: exitStatus(err)}
	}
	return nil
}

func (w *wlrRandrBackend) Watch(ctx context.Context) (<-chan Event, error) {
	return PollOnline(ctx, w.pollInterval, w.OnlineDisplays), nil
}

func (w *wlrRandrBackend) Close() error {
	return nil
}

// outputLabel picks the most descriptive name a compositor reports for an output
func outputLabel(connector, description, make, model string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	if mm := strings.TrimSpace(make + " " + model); mm != "" {
		return mm
	}
	return connector
}
