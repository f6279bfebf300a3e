// Package lookup cross-references a track against the recognition service and
// the MusicBrainz catalog once its ISRC is known.
package lookup

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/musicbrainz"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/normalize"
)

// Placeholder bodies stored when a lookup fails.
const (
	CatalogFailedMessage     = "No data found or failed to fetch."
	ArtistFailedMessage      = "Fetch failed"
	RecognitionFailedMessage = "Musicfetch lookup failed"
)

// RecognitionClient finds a track on streaming services by ISRC.
type RecognitionClient interface {
	TrackByISRC(ctx context.Context, isrc string) (json.RawMessage, error)
}

// CatalogClient searches recordings and fetches artist details.
type CatalogClient interface {
	SearchRecordingsByISRC(ctx context.Context, isrc string) (*musicbrainz.SearchResult, error)
	GetArtist(ctx context.Context, id string) (json.RawMessage, error)
}

// Sink receives each lookup family's result as soon as it settles. Methods
// may be called from different goroutines.
type Sink interface {
	RecognitionLoaded(result json.RawMessage)
	CatalogLoaded(result json.RawMessage)
	ArtistsLoaded(details []json.RawMessage)
}

// Orchestrator runs the lookups for one ISRC.
type Orchestrator struct {
	recognition RecognitionClient
	catalog     CatalogClient
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(recognition RecognitionClient, catalog CatalogClient, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{recognition: recognition, catalog: catalog, logger: logger}
}

// ShouldLookup reports whether isrc is worth sending to external services.
func ShouldLookup(isrc string) bool {
	isrc = strings.TrimSpace(isrc)
	return isrc != "" && isrc != normalize.Sentinel
}

// Run starts recognition and catalog lookups independently and blocks until
// both families, including the dependent artist batch, have been reported.
// Nothing is retried. Run does nothing for an empty or placeholder ISRC.
func (o *Orchestrator) Run(ctx context.Context, isrc string, sink Sink) {
	if !ShouldLookup(isrc) {
		o.logger.Debug("skipping lookups", "isrc", isrc)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sink.RecognitionLoaded(o.recognize(ctx, isrc))
	}()
	go func() {
		defer wg.Done()
		o.catalogAndArtists(ctx, isrc, sink)
	}()
	wg.Wait()
}

func (o *Orchestrator) recognize(ctx context.Context, isrc string) json.RawMessage {
	raw, err := o.recognition.TrackByISRC(ctx, isrc)
	if err == nil {
		return raw
	}

	o.logger.Warn("recognition lookup failed", "isrc", isrc, "error", err)

	var statusErr *musicfetch.StatusError
	if errors.As(err, &statusErr) {
		return mustJSON(map[string]string{"error": statusErr.Error()})
	}
	return mustJSON(map[string]string{"error": RecognitionFailedMessage, "details": err.Error()})
}

func (o *Orchestrator) catalogAndArtists(ctx context.Context, isrc string, sink Sink) {
	result, err := o.catalog.SearchRecordingsByISRC(ctx, isrc)
	if err != nil {
		o.logger.Warn("catalog search failed", "isrc", isrc, "error", err)
		sink.CatalogLoaded(mustJSON(map[string]string{"error": CatalogFailedMessage}))
		sink.ArtistsLoaded([]json.RawMessage{})
		return
	}
	sink.CatalogLoaded(result.Raw)

	ids := musicbrainz.UniqueArtistIDs(result.Recordings)
	sink.ArtistsLoaded(o.fetchArtists(ctx, ids))
}

// fetchArtists issues every artist request at once and joins them in id order.
// A failed fetch becomes an error placeholder in its own slot.
func (o *Orchestrator) fetchArtists(ctx context.Context, ids []string) []json.RawMessage {
	details := make([]json.RawMessage, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			raw, err := o.catalog.GetArtist(ctx, id)
			if err != nil {
				o.logger.Warn("artist fetch failed", "artist_id", id, "error", err)
				details[i] = mustJSON(map[string]string{"id": id, "error": ArtistFailedMessage})
				return nil
			}
			details[i] = raw
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Debug("artist batch settled", "count", len(ids))
	return details
}

func mustJSON(v map[string]string) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
