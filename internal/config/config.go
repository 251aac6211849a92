// Package config provides configuration management for the host agent.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Agent identifies this host to controllers
	Agent AgentConfig `json:"agent" yaml:"agent"`

	// API is the local HTTP/WebSocket command surface
	API APIConfig `json:"api" yaml:"api"`

	// Controller is the remote controller this agent dials into
	Controller ControllerConfig `json:"controller" yaml:"controller"`

	// Input, Capture and Process switch the engines on or off
	Input   EngineConfig  `json:"input" yaml:"input"`
	Capture EngineConfig  `json:"capture" yaml:"capture"`
	Process ProcessConfig `json:"process" yaml:"process"`

	// General contains general application settings
	General GeneralConfig `json:"general" yaml:"general"`
}

// AgentConfig describes this device
type AgentConfig struct {
	// DeviceID is generated on first run and persisted
	DeviceID string `json:"device_id" yaml:"device_id"`

	// DeviceName defaults to the host name
	DeviceName string `json:"device_name,omitempty" yaml:"device_name,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error)
	LogLevel string `json:"log_level" yaml:"log_level"`

	// JournalSize is the number of recent commands kept for /api/history
	JournalSize int `json:"journal_size" yaml:"journal_size"`
}

// APIConfig configures the local API server
type APIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Listen is the bind address; empty binds all interfaces
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`

	// Port is the port for the API server (default: 18090)
	Port int `json:"port" yaml:"port"`

	// Token is an optional bearer token required on every request
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Codec is the default WebSocket codec, "json" or "cbor"
	Codec string `json:"codec,omitempty" yaml:"codec,omitempty"`
}

// ControllerConfig configures the outbound controller link
type ControllerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Address is host:port of the controller
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Path is the WebSocket endpoint path on the controller
	Path string `json:"path" yaml:"path"`

	// Codec is "json" (text frames) or "cbor" (binary frames)
	Codec string `json:"codec,omitempty" yaml:"codec,omitempty"`

	// ReconnectInterval is the delay between connection attempts
	ReconnectInterval Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
}

// EngineConfig enables or disables a capability engine
type EngineConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// ProcessConfig configures the process execution engine
type ProcessConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Interpreter overrides the platform shell, e.g. ["/bin/bash", "-c"]
	Interpreter []string `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// StartOnBoot determines if the agent starts at login
	StartOnBoot bool `json:"start_on_boot" yaml:"start_on_boot"`

	// Tray shows the system tray icon
	Tray bool `json:"tray" yaml:"tray"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain numbers are nanoseconds
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(n)
		return nil
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			LogLevel:    "info",
			JournalSize: 500,
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1",
			Port:    18090,
			Codec:   "json",
		},
		Controller: ControllerConfig{
			Path:              "/api/ws/device",
			Codec:             "json",
			ReconnectInterval: Duration(5 * time.Second),
		},
		Input:   EngineConfig{Enabled: true},
		Capture: EngineConfig{Enabled: true},
		Process: ProcessConfig{Enabled: true},
	}
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Controller.Enabled && c.Controller.Address == "" {
		return fmt.Errorf("controller.address is required when the controller link is enabled")
	}
	for _, codec := range []string{c.API.Codec, c.Controller.Codec} {
		switch codec {
		case "", "json", "cbor":
		default:
			return fmt.Errorf("unknown codec %q", codec)
		}
	}
	if _, err := zerolog.ParseLevel(c.Agent.LogLevel); err != nil {
		return fmt.Errorf("agent.log_level: %w", err)
	}
	return nil
}

// ErrUnreadable is returned by Save after the file on disk failed to load.
var ErrUnreadable = errors.New("config file could not be loaded")

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	loadErr    error
	onChanged  func()
}

// NewManager creates a configuration manager for path. An empty path selects
// config.json in the per-user configuration directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// getConfigPath returns the path to the default configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "hostbridge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "hostbridge")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, "hostbridge")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	return m.configPath
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.configPath))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the configuration from disk. A missing file leaves the defaults
// in place. A missing device ID is generated. After a failed Load, Save
// refuses to overwrite the file until a later Load succeeds.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if err != nil && !os.IsNotExist(err) {
		m.loadErr = err
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err == nil {
		if m.isYAML() {
			err = yaml.Unmarshal(data, cfg)
		} else {
			err = json.Unmarshal(data, cfg)
		}
		if err != nil {
			m.loadErr = fmt.Errorf("parse %s: %w", m.configPath, err)
			m.mu.Unlock()
			return m.loadErr
		}
	}
	if cfg.Agent.DeviceID == "" {
		cfg.Agent.DeviceID = uuid.NewString()
	}
	m.config = cfg
	m.loadErr = nil
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, m.loadErr)
	}

	var data []byte
	var err error
	if m.isYAML() {
		data, err = yaml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0600)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.config
	cfg.Process.Interpreter = append([]string(nil), m.config.Process.Interpreter...)
	return cfg
}

// Set updates the configuration
func (m *Manager) Set(config Config) {
	m.mu.Lock()
	m.config = &config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// Update applies fn to the configuration under the lock
func (m *Manager) Update(fn func(*Config)) {
	m.mu.Lock()
	fn(m.config)
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
