package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad url", func(c *Config) { c.APIURL = "not a url" }, true},
		{"missing url online", func(c *Config) { c.APIURL = "" }, true},
		{"missing url offline", func(c *Config) { c.APIURL = ""; c.Offline = true }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"max wait below initial", func(c *Config) { c.Retry.MaxWait = time.Millisecond }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "selfeval.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"api_url: https://eval.example.edu/api\n"+
			"timeout: 5s\n"+
			"retry:\n"+
			"  max_attempts: 5\n"), 0o600))

	t.Setenv("SELFEVAL_TIMEOUT", "9s")

	cfg, err := Load(Options{File: file, DotEnv: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "https://eval.example.edu/api", cfg.APIURL)
	assert.Equal(t, 9*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultConfig().Retry.Multiplier, cfg.Retry.Multiplier)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dotEnv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotEnv, []byte("SELFEVAL_OFFLINE=true\nSELFEVAL_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SELFEVAL_OFFLINE")
		os.Unsetenv("SELFEVAL_LOG_LEVEL")
	})
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(Options{DotEnv: dotEnv})
	require.NoError(t, err)
	assert.True(t, cfg.Offline)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml"), DotEnv: "/nonexistent/.env"})
	assert.Error(t, err)
}
