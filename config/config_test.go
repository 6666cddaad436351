package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.dinetap.example.com", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Empty(t, cfg.TableCode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DINETAP_BASE_URL", "https://staging.dinetap.example.com")
	t.Setenv("DINETAP_TABLE_CODE", "T7")
	t.Setenv("DINETAP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.dinetap.example.com", cfg.BaseURL)
	assert.Equal(t, "T7", cfg.TableCode)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DINETAP_BASE_URL", "not-a-url")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://api.example.com", HTTPTimeout: time.Second}, false},
		{"plain http", Config{BaseURL: "http://localhost:3010"}, false},
		{"empty base url", Config{}, true},
		{"scheme missing", Config{BaseURL: "api.example.com"}, true},
		{"negative timeout", Config{BaseURL: "https://api.example.com", HTTPTimeout: -time.Second}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
