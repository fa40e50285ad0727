package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/displaytoggle/internal/display"
)

func TestStorePublishAndUpdate(t *testing.T) {
	store := NewStore()

	var seen []State
	cancel := store.Subscribe(func(s State) {
		seen = append(seen, s)
	})

	store.Publish([]display.Display{
		{ID: 1, Name: "Built-in Retina Display", On: true, BuiltIn: true},
		{ID: 2, Name: "DELL U2720Q", On: true},
	})
	require.Len(t, seen, 1)

	assert.True(t, store.Update(2, false))
	assert.False(t, store.Update(9, false), "unknown display is not added")
	require.Len(t, seen, 2)

	d, ok := display.Find(seen[1].Displays, 2)
	require.True(t, ok)
	assert.False(t, d.On)

	// Only display 2 changed
	d, _ = display.Find(seen[1].Displays, 1)
	assert.True(t, d.On)

	cancel()
	store.Publish(nil)
	assert.Len(t, seen, 2, "cancelled subscriber must not be called")
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Publish([]display.Display{{ID: 1, On: true}})

	snap := store.Snapshot()
	snap.Displays[0].On = false

	assert.True(t, store.Snapshot().Displays[0].On)
}

func TestStorePreferences(t *testing.T) {
	store := NewStore()

	calls := 0
	store.Subscribe(func(State) { calls++ })

	store.SetPreferences(true, false)
	store.SetPreferences(true, false)

	assert.Equal(t, 1, calls, "unchanged preferences do not notify")
	assert.True(t, store.Snapshot().AutoDisableBuiltin)
	assert.False(t, store.Snapshot().LaunchAtLogin)
}

func TestSubscriberMayReadStore(t *testing.T) {
	store := NewStore()

	var inner State
	store.Subscribe(func(State) {
		inner = store.Snapshot()
	})
	store.Publish([]display.Display{{ID: 7, On: true}})

	require.Len(t, inner.Displays, 1)
	assert.Equal(t, display.ID(7), inner.Displays[0].ID)
}
