package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/logger"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/sse"
	"github.com/tagview/tagview-server/internal/tags"
	"github.com/tagview/tagview-server/internal/viewer"
)

// SessionStoreHandle wraps the session store and its janitor with Shutdownable.
type SessionStoreHandle struct {
	*viewer.Store
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SessionStoreHandle) Shutdown() error {
	h.cancel()
	h.Close()
	return nil
}

// ProvideSessionStore provides the in-memory session store and starts
// evicting idle sessions.
func ProvideSessionStore(i do.Injector) (*SessionStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	broker := do.MustInvoke[*sse.Broker](i)

	store := viewer.NewStore(cfg.Sessions.IdleTTL, log.Component("sessions"))
	store.Observe(broker)

	ctx, cancel := context.WithCancel(context.Background())
	store.StartJanitor(ctx, janitorInterval(cfg.Sessions.IdleTTL))

	log.Info("Session store ready", "idle_ttl", cfg.Sessions.IdleTTL)

	return &SessionStoreHandle{Store: store, cancel: cancel}, nil
}

// ViewerServiceHandle wraps the viewer service with Shutdownable.
type ViewerServiceHandle struct {
	*viewer.Service
}

// ProvideViewerService provides the submission workflow.
func ProvideViewerService(i do.Injector) (*ViewerServiceHandle, error) {
	store := do.MustInvoke[*SessionStoreHandle](i)
	reader := do.MustInvoke[*tags.Reader](i)
	recognition := do.MustInvoke[*musicfetch.Client](i)
	orchestrator := do.MustInvoke[*lookup.Orchestrator](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := viewer.NewService(store.Store, reader, recognition, orchestrator, log.Component("viewer"))
	return &ViewerServiceHandle{Service: svc}, nil
}
