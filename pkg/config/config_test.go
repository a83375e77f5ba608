package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger for testing
type mockLogger struct {
	debugMessages []string
}

func (m *mockLogger) Debug(msg string, fields ...interface{}) {
	m.debugMessages = append(m.debugMessages, msg)
}
func (m *mockLogger) Info(msg string, fields ...interface{})  {}
func (m *mockLogger) Warn(msg string, fields ...interface{})  {}
func (m *mockLogger) Error(msg string, fields ...interface{}) {}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewManager(t *testing.T) {
	manager := NewManager(&mockLogger{})
	assert.NotNil(t, manager)
	assert.Nil(t, manager.GetConfig())
}

func TestLoadConfig(t *testing.T) {
	t.Run("no config path", func(t *testing.T) {
		manager := NewManager(&mockLogger{})
		cfg, err := manager.LoadConfig("-")
		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.False(t, cfg.Policy.AllowOnlyPolicyNetworks)
	})

	t.Run("file not exists", func(t *testing.T) {
		manager := NewManager(&mockLogger{})
		cfg, err := manager.LoadConfig("/nonexistent/config.yaml")
		require.NoError(t, err)
		assert.NotNil(t, cfg)
	})

	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `daemon:
  bus-name: net.connman
  manager-path: /
  session-bus: true
policy:
  allow-only-policy-networks: true
  blocked-hex-ssids:
    - "7769666930"
  prohibited-technologies:
    - vpn
  configured-hex-ssids:
    - AABBCC
connect:
  cert-load-timeout: 30
metrics:
  enabled: true
  listen: localhost:9477
`)
		manager := NewManager(&mockLogger{})
		cfg, err := manager.LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "net.connman", cfg.Daemon.BusName)
		assert.True(t, cfg.Daemon.SessionBus)
		assert.True(t, cfg.Policy.AllowOnlyPolicyNetworks)
		assert.Equal(t, []string{"7769666930"}, cfg.Policy.BlockedHexSSIDs)
		assert.Equal(t, []string{"vpn"}, cfg.Policy.ProhibitedTechnologies)
		assert.Equal(t, []string{"AABBCC"}, cfg.Policy.ConfiguredHexSSIDs)
		assert.Equal(t, 30, cfg.Connect.CertLoadTimeout)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "localhost:9477", cfg.Metrics.Listen)

		assert.Same(t, cfg, manager.GetConfig())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "daemon: [unterminated")
		manager := NewManager(&mockLogger{})
		_, err := manager.LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		path := writeConfig(t, `connect:
  cert-load-timout: 30
`)
		manager := NewManager(&mockLogger{})
		_, err := manager.LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cert-load-timout")
		assert.Contains(t, err.Error(), "did you mean 'cert-load-timeout'?")
	})

	t.Run("unknown section rejected", func(t *testing.T) {
		path := writeConfig(t, `polcy:
  allow-only-policy-networks: true
`)
		manager := NewManager(&mockLogger{})
		_, err := manager.LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "polcy")
		assert.Contains(t, err.Error(), "did you mean 'policy'?")
	})

	t.Run("tilde expansion", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.WriteFile(filepath.Join(home, "connd.yaml"), []byte("metrics:\n  enabled: true\n"), 0644))

		manager := NewManager(&mockLogger{})
		cfg, err := manager.LoadConfig("~/connd.yaml")
		require.NoError(t, err)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("default path", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".connd"), 0755))
		require.NoError(t, os.WriteFile(
			filepath.Join(home, ".connd", "config.yaml"),
			[]byte("daemon:\n  bus-name: org.example.net\n"), 0644))

		manager := NewManager(&mockLogger{})
		cfg, err := manager.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "org.example.net", cfg.Daemon.BusName)
	})
}

func TestValidateRawConfig(t *testing.T) {
	t.Run("valid config has no errors", func(t *testing.T) {
		errs := validateRawConfig(map[string]interface{}{
			"daemon": map[string]interface{}{"bus-name": "net.connman"},
			"policy": map[string]interface{}{"blocked-hex-ssids": []string{"AA"}},
		})
		assert.Empty(t, errs)
	})

	t.Run("misspelled field gets suggestion", func(t *testing.T) {
		errs := validateRawConfig(map[string]interface{}{
			"daemon": map[string]interface{}{"bus-nam": "net.connman"},
		})
		require.Len(t, errs, 1)
		assert.Equal(t, "daemon", errs[0].Section)
		assert.Equal(t, "bus-nam", errs[0].Field)
		assert.Equal(t, "bus-name", errs[0].Suggestion)
	})

	t.Run("distant field gets no suggestion", func(t *testing.T) {
		errs := validateRawConfig(map[string]interface{}{
			"metrics": map[string]interface{}{"zzzzzzzz": true},
		})
		require.Len(t, errs, 1)
		assert.Equal(t, "", errs[0].Suggestion)
	})
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"listen", "listen", 0},
		{"listen", "lisen", 1},
		{"enabled", "enbaled", 2},
		{"BUS-NAME", "bus-name", 0}, // case insensitive
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshteinDistance(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestValidationErrorMessages(t *testing.T) {
	withSuggestion := ValidationError{Section: "connect", Field: "timout", Suggestion: "cert-load-timeout"}
	assert.Equal(t, "unknown field 'timout' in connect (did you mean 'cert-load-timeout'?)", withSuggestion.Error())

	without := ValidationError{Section: "connect", Field: "bogus"}
	assert.Equal(t, "unknown field 'bogus' in connect", without.Error())

	errs := ValidationErrors{withSuggestion, without}
	assert.Contains(t, errs.Error(), "config validation errors:")
	assert.Contains(t, errs.Error(), "bogus")
}
