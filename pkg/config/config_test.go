package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Settings.ModelsDir)
	assert.NotEmpty(t, cfg.Settings.ManifestPath)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultMaxConcurrent, cfg.Settings.MaxConcurrent)
	assert.Equal(t, "text", cfg.Settings.OutputFormat)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Settings.MaxConcurrent, cfg.Settings.MaxConcurrent)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigFromReader(t *testing.T) {
	yamlData := `
registries:
  - name: main
    url: https://models.example.com
    enabled: true
settings:
  models_dir: /opt/models
  http_timeout: 10s
  max_concurrent_downloads: 2
  max_retries: 5
  log_level: debug
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yamlData))
	require.NoError(t, err)

	require.Len(t, cfg.Registries, 1)
	assert.Equal(t, "main", cfg.Registries[0].Name)
	assert.Equal(t, "/opt/models", cfg.Settings.ModelsDir)
	assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 2, cfg.Settings.MaxConcurrent)
	assert.Equal(t, uint(5), cfg.Settings.MaxRetries)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	// Unset fields pick up defaults.
	assert.Equal(t, DefaultUserAgent, cfg.Settings.UserAgent)
	assert.NotEmpty(t, cfg.Settings.ManifestPath)
}

func TestLoadConfigFromReader_ParseError(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("settings: ["))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigParse)
}

func TestLoadConfigFromReader_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"registry without name", "registries:\n  - url: https://x.example.com\n    enabled: true\n"},
		{"registry without url", "registries:\n  - name: main\n    enabled: true\n"},
		{"duplicate registry", "registries:\n  - name: main\n    url: https://a.example.com\n  - name: main\n    url: https://b.example.com\n"},
		{"bad output format", "settings:\n  output_format: xml\n"},
		{"bad log level", "settings:\n  log_level: loud\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfigValidation)
		})
	}
}

func TestSaveAndLoadConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.ModelsDir = "/opt/models"
	cfg.Settings.MaxRetries = 7
	require.NoError(t, cfg.AddRegistry("main", "https://models.example.com", true))

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/models", loaded.Settings.ModelsDir)
	assert.Equal(t, uint(7), loaded.Settings.MaxRetries)
	require.Len(t, loaded.Registries, 1)
	assert.Equal(t, "https://models.example.com", loaded.Registries[0].URL)

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestAddRegistry_Duplicate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.AddRegistry("main", "https://a.example.com", true))
	err := cfg.AddRegistry("main", "https://b.example.com", true)
	require.Error(t, err)
}

func TestRemoveRegistry(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.AddRegistry("main", "https://a.example.com", true))

	assert.True(t, cfg.RemoveRegistry("main"))
	assert.False(t, cfg.RemoveRegistry("main"))
	assert.Empty(t, cfg.Registries)
}

func TestHostedRegistry(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.HostedRegistry())

	require.NoError(t, cfg.AddRegistry("disabled", "https://old.example.com", false))
	require.NoError(t, cfg.AddRegistry("main", "https://models.example.com", true))

	reg := cfg.HostedRegistry()
	require.NotNil(t, reg)
	assert.Equal(t, "main", reg.Name)
}

func TestSetGetValue(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetValue("models_dir", "/data/models"))
	require.NoError(t, cfg.SetValue("log_level", "debug"))

	got, err := cfg.GetValue("models_dir")
	require.NoError(t, err)
	assert.Equal(t, "/data/models", got)

	got, err = cfg.GetValue("log_level")
	require.NoError(t, err)
	assert.Equal(t, "debug", got)

	require.Error(t, cfg.SetValue("bogus", "x"))
	_, err = cfg.GetValue("bogus")
	require.Error(t, err)
}

func TestToAuthMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registries = []*RegistryConfig{
		{Name: "anon", URL: "https://a.example.com", Enabled: true},
		{Name: "tokened", URL: "https://b.example.com", Enabled: true, Auth: &AuthConfig{
			BearerAuth: &BearerAuth{Token: "secret"},
		}},
		{Name: "basic", URL: "https://c.example.com", Enabled: true, Auth: &AuthConfig{
			BasicAuth: &BasicAuth{Username: "u", Password: "p"},
		}},
	}

	m := cfg.ToAuthMap()
	require.NotNil(t, m)
	assert.Len(t, m, 2)
	assert.IsType(t, &auth.BearerAuth{}, m["tokened"])
	assert.IsType(t, &auth.BasicAuth{}, m["basic"])
	_, ok := m["anon"]
	assert.False(t, ok)
}

func TestToAuthMap_Empty(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.ToAuthMap())
}
