// Package di provides dependency injection configuration for the tagview server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/di/providers"
	"github.com/tagview/tagview-server/internal/logger"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/sse"
	"github.com/tagview/tagview-server/internal/tags"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Parsing and lookups
	do.Provide(injector, providers.ProvideTagReader)
	do.Provide(injector, providers.ProvideMusicfetchClient)
	do.Provide(injector, providers.ProvideMusicBrainzClient)
	do.Provide(injector, providers.ProvideLookupOrchestrator)

	// Sessions
	do.Provide(injector, providers.ProvideEventBroker)
	do.Provide(injector, providers.ProvideSessionStore)
	do.Provide(injector, providers.ProvideViewerService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services so configuration errors surface at startup.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*tags.Reader](injector)
	_ = do.MustInvoke[*musicfetch.Client](injector)
	_ = do.MustInvoke[*providers.MusicBrainzClientHandle](injector)
	_ = do.MustInvoke[*lookup.Orchestrator](injector)
	_ = do.MustInvoke[*sse.Broker](injector)
	_ = do.MustInvoke[*providers.SessionStoreHandle](injector)
	_ = do.MustInvoke[*providers.ViewerServiceHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
