package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/logger"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/musicbrainz"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/tags"
)

// ProvideTagReader provides the audio tag parser.
func ProvideTagReader(i do.Injector) (*tags.Reader, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return tags.NewReader(log.Component("tags")), nil
}

// ProvideMusicfetchClient provides the track-recognition client.
func ProvideMusicfetchClient(i do.Injector) (*musicfetch.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return musicfetch.New(musicfetch.Config{
		BaseURL:      cfg.Musicfetch.BaseURL,
		Token:        cfg.Musicfetch.Token,
		TokenHeader:  cfg.Musicfetch.TokenHeader,
		ISRCServices: cfg.Musicfetch.ISRCServices,
		URLServices:  cfg.Musicfetch.URLServices,
		Timeout:      cfg.Lookup.Timeout,
	}, log.Component("musicfetch")), nil
}

// MusicBrainzClientHandle wraps the MusicBrainz client with Shutdownable.
type MusicBrainzClientHandle struct {
	*musicbrainz.Client
}

// Shutdown implements do.Shutdownable.
func (h *MusicBrainzClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideMusicBrainzClient provides the rate limited catalog client.
func ProvideMusicBrainzClient(i do.Injector) (*MusicBrainzClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := musicbrainz.New(musicbrainz.Config{
		BaseURL:   cfg.MusicBrainz.BaseURL,
		UserAgent: cfg.MusicBrainz.UserAgent,
		Rate:      cfg.MusicBrainz.Rate,
		Burst:     cfg.MusicBrainz.Burst,
		Timeout:   cfg.Lookup.Timeout,
	}, log.Component("musicbrainz"))

	return &MusicBrainzClientHandle{Client: client}, nil
}

// ProvideLookupOrchestrator provides the ISRC lookup orchestrator.
func ProvideLookupOrchestrator(i do.Injector) (*lookup.Orchestrator, error) {
	recognition := do.MustInvoke[*musicfetch.Client](i)
	catalog := do.MustInvoke[*MusicBrainzClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return lookup.NewOrchestrator(recognition, catalog.Client, log.Component("lookup")), nil
}
