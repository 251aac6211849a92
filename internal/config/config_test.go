package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, 18090, cfg.API.Port)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Controller.ReconnectInterval))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.API.Port = 70000 }},
		{"controller address", func(c *Config) { c.Controller.Enabled = true }},
		{"codec", func(c *Config) { c.API.Codec = "xml" }},
		{"log level", func(c *Config) { c.Agent.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, DefaultConfig().API, cfg.API)
	_, err = uuid.Parse(cfg.Agent.DeviceID)
	assert.NoError(t, err, "a device id is generated")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			m, err := NewManager(path)
			require.NoError(t, err)
			require.NoError(t, m.Load())

			m.Update(func(c *Config) {
				c.Controller.Enabled = true
				c.Controller.Address = "10.0.0.5:8080"
				c.Controller.ReconnectInterval = Duration(1500 * time.Millisecond)
				c.Process.Interpreter = []string{"/bin/bash", "-c"}
			})
			require.NoError(t, m.Save())

			loaded, err := NewManager(path)
			require.NoError(t, err)
			require.NoError(t, loaded.Load())

			assert.Equal(t, m.Get(), loaded.Get())
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  device_id: fixed-id
  log_level: debug
api:
  enabled: false
controller:
  enabled: true
  address: controller.lan:8080
  reconnect_interval: 30s
`), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "fixed-id", cfg.Agent.DeviceID)
	assert.False(t, cfg.API.Enabled)
	assert.Equal(t, "controller.lan:8080", cfg.Controller.Address)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Controller.ReconnectInterval))
	// untouched sections keep their defaults
	assert.Equal(t, "/api/ws/device", cfg.Controller.Path)
	assert.True(t, cfg.Capture.Enabled)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Error(t, m.Load())
}

func TestSaveKeepsUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	original := []byte(`{"agent":{"device_id":"keep-me"},"api":{"port":9999,"token":"s3cret"},}`)
	require.NoError(t, os.WriteFile(path, original, 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Error(t, m.Load())

	m.Update(func(c *Config) { c.Agent.DeviceName = "lab-pc" })
	assert.ErrorIs(t, m.Save(), ErrUnreadable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data, "file is left untouched")

	// once the file is fixed, saving works again
	require.NoError(t, os.WriteFile(path, []byte(`{"agent":{"device_id":"keep-me"},"api":{"port":9999,"token":"s3cret"}}`), 0600))
	require.NoError(t, m.Load())
	require.NoError(t, m.Save())

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())
	cfg := reloaded.Get()
	assert.Equal(t, "keep-me", cfg.Agent.DeviceID)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, "s3cret", cfg.API.Token)
}

func TestDurationAcceptsNanoseconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte("2000000000")))
	assert.Equal(t, 2*time.Second, time.Duration(d))

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestChangeCallback(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	calls := 0
	m.RegisterChangeCallback(func() { calls++ })

	m.Set(*DefaultConfig())
	m.Update(func(c *Config) { c.General.Tray = true })
	require.NoError(t, m.Load())

	assert.Equal(t, 3, calls)
}

func TestGetReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	m.Update(func(c *Config) { c.Process.Interpreter = []string{"sh", "-c"} })

	cfg := m.Get()
	cfg.Process.Interpreter[0] = "zsh"
	cfg.API.Port = 1

	assert.Equal(t, "sh", m.Get().Process.Interpreter[0])
	assert.Equal(t, 18090, m.Get().API.Port)
}
