package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable build() reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "SERVER_PORT", "ALLOWED_ORIGINS", "MAX_UPLOAD_BYTES", "SUBMIT_PER_MINUTE",
		"MUSICFETCH_URL", "MUSICFETCH_TOKEN", "MUSICFETCH_TOKEN_HEADER", "MUSICFETCH_ISRC_SERVICES",
		"MUSICFETCH_URL_SERVICES", "MUSICBRAINZ_URL", "MUSICBRAINZ_USER_AGENT", "MUSICBRAINZ_BURST",
		"MUSICBRAINZ_RATE", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
		"LOOKUP_TIMEOUT", "SESSION_TTL",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		App:         AppConfig{Environment: "development"},
		Logger:      LoggerConfig{Level: "info"},
		Server:      ServerConfig{Port: "8080", MaxUploadBytes: 1 << 20},
		Musicfetch:  MusicfetchConfig{BaseURL: "https://api.musicfetch.io", TokenHeader: "x-musicfetch-token"},
		MusicBrainz: MusicBrainzConfig{BaseURL: "https://musicbrainz.org/ws/2", Burst: 1},
	}
}

func TestBuild_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(512<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "https://api.musicfetch.io", cfg.Musicfetch.BaseURL)
	assert.Equal(t, "x-musicfetch-token", cfg.Musicfetch.TokenHeader)
	assert.Equal(t, []string{"appleMusic", "youtube"}, cfg.Musicfetch.ISRCServices)
	assert.Equal(t, []string{"appleMusic", "youtube", "spotify"}, cfg.Musicfetch.URLServices)
	assert.Equal(t, time.Second, cfg.MusicBrainz.Rate)
	assert.Equal(t, 30*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, time.Hour, cfg.Sessions.IdleTTL)
	assert.Empty(t, cfg.Musicfetch.Token)
}

func TestBuild_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MUSICFETCH_TOKEN", "secret")
	t.Setenv("MUSICFETCH_TOKEN_HEADER", "x-token")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://example.org")
	t.Setenv("LOOKUP_TIMEOUT", "0s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Musicfetch.Token)
	assert.Equal(t, "x-token", cfg.Musicfetch.TokenHeader)
	assert.Equal(t, []string{"http://localhost:3000", "https://example.org"}, cfg.Server.AllowedOrigins)
	assert.Zero(t, cfg.Lookup.Timeout)
}

func TestBuild_FlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := build(flagValues{port: "9100"})
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
}

func TestBuild_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "forever")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"non numeric port", func(c *Config) { c.Server.Port = "http" }},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }},
		{"zero upload size", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
		{"empty musicfetch url", func(c *Config) { c.Musicfetch.BaseURL = "" }},
		{"empty token header", func(c *Config) { c.Musicfetch.TokenHeader = "" }},
		{"zero burst", func(c *Config) { c.MusicBrainz.Burst = 0 }},
		{"negative timeout", func(c *Config) { c.Lookup.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetIntConfigValue_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT_KEY", "twelve")
	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT_KEY", 7))

	t.Setenv("TEST_INT_KEY", "12")
	assert.Equal(t, 12, getIntConfigValue("", "TEST_INT_KEY", 7))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# Test env file
MUSICFETCH_TOKEN=abc123
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	t.Setenv("MUSICFETCH_TOKEN", "")
	t.Setenv("QUOTED_VALUE", "")
	t.Setenv("SINGLE_QUOTED", "")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "abc123", os.Getenv("MUSICFETCH_TOKEN"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID=1\nINVALID LINE WITHOUT EQUALS\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_VAR=new-value"), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}
