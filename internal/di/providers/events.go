package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagview/tagview-server/internal/logger"
	"github.com/tagview/tagview-server/internal/sse"
)

// ProvideEventBroker provides the session event broker. *sse.Broker
// implements do.Shutdownable itself.
func ProvideEventBroker(i do.Injector) (*sse.Broker, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return sse.NewBroker(log.Component("sse")), nil
}
