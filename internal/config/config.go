// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Server      ServerConfig
	Musicfetch  MusicfetchConfig
	MusicBrainz MusicBrainzConfig
	Lookup      LookupConfig
	Sessions    SessionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 60s, uploads can be large)
	WriteTimeout   time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 120s)
	AllowedOrigins []string      // CORS origins (default: *)
	MaxUploadBytes int64         // Largest accepted audio upload (default: 512 MiB)
	SubmitPerMin   int           // Submissions per minute per client IP (default: 30)
}

// MusicfetchConfig holds configuration for the track-recognition service.
type MusicfetchConfig struct {
	BaseURL     string
	Token       string
	TokenHeader string
	// Services requested for ISRC lookups and URL lookups respectively.
	ISRCServices []string
	URLServices  []string
}

// MusicBrainzConfig holds configuration for the music encyclopedia catalog.
type MusicBrainzConfig struct {
	BaseURL   string
	UserAgent string
	Rate      time.Duration // minimum spacing between requests
	Burst     int
}

// LookupConfig holds settings shared by outbound lookups.
type LookupConfig struct {
	// Timeout bounds each external request. Zero means no timeout.
	Timeout time.Duration
}

// SessionConfig holds viewer session settings.
type SessionConfig struct {
	IdleTTL time.Duration
}

// flagValues carries raw command-line values; empty means "not set".
type flagValues struct {
	env            string
	logLevel       string
	port           string
	readTimeout    string
	writeTimeout   string
	idleTimeout    string
	allowedOrigins string
	maxUpload      string
	submitPerMin   string
	musicfetchURL  string
	musicfetchTok  string
	tokenHeader    string
	mbURL          string
	mbUserAgent    string
	lookupTimeout  string
	sessionTTL     string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	var fv flagValues
	flag.StringVar(&fv.env, "env", "", "Environment (development, staging, production)")
	flag.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&fv.port, "port", "", "Server port (default: 8080)")
	flag.StringVar(&fv.readTimeout, "read-timeout", "", "HTTP read timeout (default: 60s)")
	flag.StringVar(&fv.writeTimeout, "write-timeout", "", "HTTP write timeout (default: 60s)")
	flag.StringVar(&fv.idleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 120s)")
	flag.StringVar(&fv.allowedOrigins, "allowed-origins", "", "Comma separated CORS origins (default: *)")
	flag.StringVar(&fv.maxUpload, "max-upload-bytes", "", "Largest accepted upload in bytes")
	flag.StringVar(&fv.submitPerMin, "submit-per-minute", "", "Submissions per minute per client")
	flag.StringVar(&fv.musicfetchURL, "musicfetch-url", "", "Musicfetch API base URL")
	flag.StringVar(&fv.musicfetchTok, "musicfetch-token", "", "Musicfetch API token")
	flag.StringVar(&fv.tokenHeader, "musicfetch-token-header", "", "Header carrying the Musicfetch token")
	flag.StringVar(&fv.mbURL, "musicbrainz-url", "", "MusicBrainz web service base URL")
	flag.StringVar(&fv.mbUserAgent, "musicbrainz-user-agent", "", "User-Agent sent to MusicBrainz")
	flag.StringVar(&fv.lookupTimeout, "lookup-timeout", "", "Timeout for external lookups, 0 disables")
	flag.StringVar(&fv.sessionTTL, "session-ttl", "", "Idle lifetime of viewer sessions")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	return build(fv)
}

// LoadFromEnv builds configuration from environment variables and defaults only.
// Used by tools that own their command-line flags.
func LoadFromEnv() (*Config, error) {
	return build(flagValues{})
}

func build(fv flagValues) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(fv.env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(fv.logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(fv.port, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(fv.allowedOrigins, "ALLOWED_ORIGINS", "*")),
			MaxUploadBytes: getInt64ConfigValue(fv.maxUpload, "MAX_UPLOAD_BYTES", 512<<20),
			SubmitPerMin:   getIntConfigValue(fv.submitPerMin, "SUBMIT_PER_MINUTE", 30),
		},
		Musicfetch: MusicfetchConfig{
			BaseURL:      getConfigValue(fv.musicfetchURL, "MUSICFETCH_URL", "https://api.musicfetch.io"),
			Token:        getConfigValue(fv.musicfetchTok, "MUSICFETCH_TOKEN", ""),
			TokenHeader:  getConfigValue(fv.tokenHeader, "MUSICFETCH_TOKEN_HEADER", "x-musicfetch-token"),
			ISRCServices: splitList(getConfigValue("", "MUSICFETCH_ISRC_SERVICES", "appleMusic,youtube")),
			URLServices:  splitList(getConfigValue("", "MUSICFETCH_URL_SERVICES", "appleMusic,youtube,spotify")),
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:   getConfigValue(fv.mbURL, "MUSICBRAINZ_URL", "https://musicbrainz.org/ws/2"),
			UserAgent: getConfigValue(fv.mbUserAgent, "MUSICBRAINZ_USER_AGENT", "tagview/1.0 ( https://github.com/tagview/tagview-server )"),
			Burst:     getIntConfigValue("", "MUSICBRAINZ_BURST", 5),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{fv.readTimeout, "SERVER_READ_TIMEOUT", "60s", &cfg.Server.ReadTimeout},
		{fv.writeTimeout, "SERVER_WRITE_TIMEOUT", "60s", &cfg.Server.WriteTimeout},
		{fv.idleTimeout, "SERVER_IDLE_TIMEOUT", "120s", &cfg.Server.IdleTimeout},
		{"", "MUSICBRAINZ_RATE", "1s", &cfg.MusicBrainz.Rate},
		{fv.lookupTimeout, "LOOKUP_TIMEOUT", "30s", &cfg.Lookup.Timeout},
		{fv.sessionTTL, "SESSION_TTL", "1h", &cfg.Sessions.IdleTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}

	if c.Musicfetch.BaseURL == "" || c.MusicBrainz.BaseURL == "" {
		return errors.New("lookup base URLs cannot be empty")
	}

	if c.Musicfetch.TokenHeader == "" {
		return errors.New("musicfetch token header cannot be empty")
	}

	if c.MusicBrainz.Burst < 1 {
		return errors.New("musicbrainz burst must be at least 1")
	}

	if c.Lookup.Timeout < 0 {
		return errors.New("lookup timeout cannot be negative")
	}

	// An empty Musicfetch token is allowed; recognition lookups then fail upstream.

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseInt(strValue, 10, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
