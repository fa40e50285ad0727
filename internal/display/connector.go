package display

import (
	"hash/fnv"
	"strings"
)

// builtinConnectors are the connector prefixes used for laptop panels
var builtinConnectors = []string{"eDP", "LVDS", "DSI"}

// connectorID derives a stable identifier from a compositor output name.
// Compositors name outputs by connector (eDP-1, DP-2), so the hash survives
// reconnects the way a CoreGraphics display ID does.
func connectorID(name string) ID {
	h := fnv.New32a()
	h.Write([]byte(name))
	id := ID(h.Sum32())
	if id == 0 {
		id = 1
	}
	return id
}

// isBuiltinConnector reports whether the output name belongs to an integrated panel
func isBuiltinConnector(name string) bool {
	for _, prefix := range builtinConnectors {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// outputTable keeps the last enumeration of a compositor backend so that
// identifiers can be mapped back to connector names
type outputTable struct {
	names map[ID]string
	order []ID
}

func newOutputTable() *outputTable {
	return &outputTable{names: make(map[ID]string)}
}

func (t *outputTable) add(name string) ID {
	id := connectorID(name)
	if _, ok := t.names[id]; !ok {
		t.order = append(t.order, id)
	}
	t.names[id] = name
	return id
}

func (t *outputTable) name(id ID) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}
