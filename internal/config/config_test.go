package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		Reset()
		SetConfigPath(filepath.Join(t.TempDir(), "displaytoggle.toml"))
		t.Cleanup(Reset)

		require.NoError(t, Init())

		config := Get()
		require.NotNil(t, config)
		assert.Equal(t, "auto", config.Displays.Backend)
		assert.False(t, config.Displays.AutoDisableBuiltin)
		assert.True(t, config.Displays.RestoreOnExit)
		assert.Equal(t, 500*time.Millisecond, config.Timing.ToggleDelay)
		assert.Equal(t, 500*time.Millisecond, config.Timing.PolicySettle)
		assert.Equal(t, 500*time.Millisecond, config.Timing.RestoreRepeat)
		assert.Equal(t, time.Second, config.Timing.RefreshDelay)
		assert.Equal(t, time.Second, config.Guard.Window)
		assert.False(t, config.Guard.ReplaySuppressed)
	})

	t.Run("reads values from file", func(t *testing.T) {
		Reset()
		path := filepath.Join(t.TempDir(), "displaytoggle.toml")
		content := `[displays]
backend = "simulated"
auto_disable_builtin = true

[timing]
toggle_delay = "250ms"

[guard]
replay_suppressed = true
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		SetConfigPath(path)
		t.Cleanup(Reset)

		require.NoError(t, Init())

		config := Get()
		assert.Equal(t, "simulated", config.Displays.Backend)
		assert.True(t, config.Displays.AutoDisableBuiltin)
		assert.Equal(t, 250*time.Millisecond, config.Timing.ToggleDelay)
		assert.True(t, config.Guard.ReplaySuppressed)

		// Unset keys keep their defaults
		assert.Equal(t, 500*time.Millisecond, config.Timing.RestoreRepeat)
		assert.Equal(t, "127.0.0.1:23235", config.Remote.Address)
	})

	t.Run("rejects invalid TOML", func(t *testing.T) {
		Reset()
		path := filepath.Join(t.TempDir(), "displaytoggle.toml")
		require.NoError(t, os.WriteFile(path, []byte("[displays\nbackend = 1"), 0644))
		SetConfigPath(path)
		t.Cleanup(Reset)

		err := Init()
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "error reading config file"))
	})
}

func TestGetWithoutInit(t *testing.T) {
	Reset()

	config := Get()
	require.NotNil(t, config)
	assert.Equal(t, DefaultConfig.Displays.Backend, config.Displays.Backend)

	// Mutating the returned defaults must not leak into DefaultConfig
	config.Displays.Backend = "simulated"
	assert.Equal(t, "auto", DefaultConfig.Displays.Backend)
}

func TestSetAutoDisableBuiltinPersists(t *testing.T) {
	Reset()
	path := filepath.Join(t.TempDir(), "nested", "displaytoggle.toml")
	SetConfigPath(path)
	t.Cleanup(Reset)

	require.NoError(t, Init())
	require.NoError(t, Preferences{}.SetAutoDisableBuiltin(true))
	assert.True(t, Preferences{}.AutoDisableBuiltin())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_disable_builtin = true")

	// A fresh load sees the persisted value
	Reset()
	SetConfigPath(path)
	require.NoError(t, Init())
	assert.True(t, Get().Displays.AutoDisableBuiltin)
}

func TestSetAutoDisableBuiltinKeepsFlagOverridesOut(t *testing.T) {
	Reset()
	path := filepath.Join(t.TempDir(), "displaytoggle.toml")
	content := `[displays]
backend = "hyprland"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	SetConfigPath(path)
	t.Cleanup(Reset)

	require.NoError(t, Init())

	// As bound by run --backend and --remote
	viper.Set("displays.backend", "simulated")
	viper.Set("remote.enabled", true)

	require.NoError(t, SetAutoDisableBuiltin(true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_disable_builtin = true")
	assert.Contains(t, string(data), "hyprland")
	assert.NotContains(t, string(data), "simulated")
	assert.NotContains(t, string(data), "[remote]")
}

func TestConfigPathResolution(t *testing.T) {
	tests := []struct {
		name     string
		xdg      string
		override string
		want     string
	}{
		{
			name: "xdg config home",
			xdg:  "/tmp/xdg-config",
			want: filepath.Join("/tmp/xdg-config", "displaytoggle", "displaytoggle.toml"),
		},
		{
			name:     "explicit override",
			xdg:      "/tmp/xdg-config",
			override: "/etc/displaytoggle.toml",
			want:     "/etc/displaytoggle.toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			t.Cleanup(Reset)
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)
			if tt.override != "" {
				SetConfigPath(tt.override)
			}

			assert.Equal(t, tt.want, GetConfigPath())
		})
	}
}
