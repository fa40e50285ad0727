// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Display handling and the persisted auto-disable preference
	Displays DisplaysConfig `mapstructure:"displays"`

	// Delays used around configuration changes
	Timing TimingConfig `mapstructure:"timing"`

	// Self-change guard settings
	Guard GuardConfig `mapstructure:"guard"`

	// Menu served over SSH
	Remote RemoteConfig `mapstructure:"remote"`

	// MCP tool server
	MCP MCPConfig `mapstructure:"mcp"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DisplaysConfig contains display backend settings and preferences
type DisplaysConfig struct {
	Backend            string        `mapstructure:"backend"`              // auto, darwin, hyprland, wlr-randr, simulated
	AutoDisableBuiltin bool          `mapstructure:"auto_disable_builtin"` // Turn the built-in panel off while an external display is on
	RestoreOnExit      bool          `mapstructure:"restore_on_exit"`      // Turn every display back on when the daemon exits
	PollInterval       time.Duration `mapstructure:"poll_interval"`        // Change detection interval for backends without notifications
}

// TimingConfig contains the fixed delays applied around display changes
type TimingConfig struct {
	ToggleDelay   time.Duration `mapstructure:"toggle_delay"`   // Menu switch to applier
	PolicySettle  time.Duration `mapstructure:"policy_settle"`  // Policy evaluation after enabling auto-disable
	RestoreRepeat time.Duration `mapstructure:"restore_repeat"` // Second pass of "all displays on"
	RefreshDelay  time.Duration `mapstructure:"refresh_delay"`  // Re-enumeration after an applied change
}

// GuardConfig contains the self-change guard settings
type GuardConfig struct {
	Window           time.Duration `mapstructure:"window"`            // Fallback release of a pending self-change
	ReplaySuppressed bool          `mapstructure:"replay_suppressed"` // Refresh once after the guard if foreign events were dropped
}

// RemoteConfig contains settings for serving the menu over SSH
type RemoteConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Address            string `mapstructure:"address"`
	HostKeyPath        string `mapstructure:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path"`
}

// MCPConfig contains settings for the MCP tool server
type MCPConfig struct {
	Transport string `mapstructure:"transport"` // stdio or streamable-http
	Port      int    `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Displays: DisplaysConfig{
			Backend:            "auto",
			AutoDisableBuiltin: false,
			RestoreOnExit:      true,
			PollInterval:       time.Second,
		},
		Timing: TimingConfig{
			ToggleDelay:   500 * time.Millisecond,
			PolicySettle:  500 * time.Millisecond,
			RestoreRepeat: 500 * time.Millisecond,
			RefreshDelay:  time.Second,
		},
		Guard: GuardConfig{
			Window:           time.Second,
			ReplaySuppressed: false,
		},
		Remote: RemoteConfig{
			Enabled:            false,
			Address:            "127.0.0.1:23235",
			HostKeyPath:        filepath.Join(configDir(), "host_key"),
			AuthorizedKeysPath: filepath.Join(configDir(), "authorized_keys"),
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      8765,
		},
		Logging: LoggingConfig{
			FileLogging: false,
			LogLevel:    "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg   *Config
	cfgMu sync.RWMutex

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	// Set config name and type
	viper.SetConfigName("displaytoggle")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	return reload()
}

func setDefaults() {
	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("displays.backend", DefaultConfig.Displays.Backend)
	viper.SetDefault("displays.auto_disable_builtin", DefaultConfig.Displays.AutoDisableBuiltin)
	viper.SetDefault("displays.restore_on_exit", DefaultConfig.Displays.RestoreOnExit)
	viper.SetDefault("displays.poll_interval", DefaultConfig.Displays.PollInterval)

	viper.SetDefault("timing.toggle_delay", DefaultConfig.Timing.ToggleDelay)
	viper.SetDefault("timing.policy_settle", DefaultConfig.Timing.PolicySettle)
	viper.SetDefault("timing.restore_repeat", DefaultConfig.Timing.RestoreRepeat)
	viper.SetDefault("timing.refresh_delay", DefaultConfig.Timing.RefreshDelay)

	viper.SetDefault("guard.window", DefaultConfig.Guard.Window)
	viper.SetDefault("guard.replay_suppressed", DefaultConfig.Guard.ReplaySuppressed)

	viper.SetDefault("remote.enabled", DefaultConfig.Remote.Enabled)
	viper.SetDefault("remote.address", DefaultConfig.Remote.Address)
	viper.SetDefault("remote.host_key_path", DefaultConfig.Remote.HostKeyPath)
	viper.SetDefault("remote.authorized_keys_path", DefaultConfig.Remote.AuthorizedKeysPath)

	viper.SetDefault("mcp.transport", DefaultConfig.MCP.Transport)
	viper.SetDefault("mcp.port", DefaultConfig.MCP.Port)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// reload unmarshals the viper state into the global config
func reload() error {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
	return nil
}

// Get returns the current configuration
func Get() *Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Reset drops the loaded configuration and every viper setting
func Reset() {
	viper.Reset()
	configPathOverride = ""

	cfgMu.Lock()
	cfg = nil
	cfgMu.Unlock()
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	// If override is set, use that
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(configDir(), "displaytoggle.toml")
}

// SetAutoDisableBuiltin persists the auto-disable preference
func SetAutoDisableBuiltin(enabled bool) error {
	viper.Set("displays.auto_disable_builtin", enabled)

	cfgMu.Lock()
	if cfg == nil {
		d := DefaultConfig
		cfg = &d
	}
	cfg.Displays.AutoDisableBuiltin = enabled
	cfgMu.Unlock()

	return savePreference("displays.auto_disable_builtin", enabled)
}

// savePreference writes one key into the config file and keeps every other
// value as the file has it. Flag overrides of the current run stay out.
func savePreference(key string, value interface{}) error {
	configPath := GetConfigPath()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Watch re-reads the config file whenever it changes on disk and hands the
// new configuration to onChange
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := reload(); err != nil {
			return
		}
		onChange(Get())
	})
	viper.WatchConfig()
}

// Preferences exposes the persisted user preferences to the display manager
type Preferences struct{}

// AutoDisableBuiltin reports the persisted auto-disable flag
func (Preferences) AutoDisableBuiltin() bool {
	return Get().Displays.AutoDisableBuiltin
}

// SetAutoDisableBuiltin persists the auto-disable flag
func (Preferences) SetAutoDisableBuiltin(enabled bool) error {
	return SetAutoDisableBuiltin(enabled)
}

// configDir returns ~/.config/displaytoggle, or the OS equivalent
func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "displaytoggle")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "displaytoggle")
}
