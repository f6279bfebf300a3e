// Package providers contains dependency injection providers for the tagview server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting tagview server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"musicfetch_url", cfg.Musicfetch.BaseURL,
		"musicfetch_token_set", cfg.Musicfetch.Token != "",
		"musicbrainz_url", cfg.MusicBrainz.BaseURL,
	)
	if cfg.Musicfetch.Token == "" {
		log.Warn("MUSICFETCH_TOKEN is not set; recognition lookups will be rejected upstream")
	}

	return log, nil
}
