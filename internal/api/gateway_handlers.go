package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/http/response"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/musicfetch"
)

// handleMusicfetchISRC proxies a recognition lookup by ISRC.
func (s *Server) handleMusicfetchISRC(w http.ResponseWriter, r *http.Request) {
	isrc := strings.TrimSpace(r.URL.Query().Get("isrc"))
	if isrc == "" {
		response.BadRequest(w, "ISRC missing", s.logger)
		return
	}
	s.proxyRecognition(w, r.Context(), "isrc", isrc, s.recognizer.TrackByISRC)
}

// handleMusicfetchURL proxies a recognition lookup by streaming-service link.
func (s *Server) handleMusicfetchURL(w http.ResponseWriter, r *http.Request) {
	link := strings.TrimSpace(r.URL.Query().Get("url"))
	if link == "" {
		response.BadRequest(w, "URL missing", s.logger)
		return
	}
	s.proxyRecognition(w, r.Context(), "url", link, s.recognizer.TrackByURL)
}

func (s *Server) proxyRecognition(
	w http.ResponseWriter,
	ctx context.Context,
	kind, key string,
	fetch func(context.Context, string) (json.RawMessage, error),
) {
	result, err := fetch(ctx, key)
	if err == nil {
		response.Success(w, result, s.logger)
		return
	}

	var statusErr *musicfetch.StatusError
	if errors.As(err, &statusErr) {
		s.logger.Info("musicfetch rejected lookup", kind, key, "status", statusErr.StatusCode)
		response.Error(w, statusErr.StatusCode, statusErr.Error(), s.logger)
		return
	}

	s.logger.Warn("musicfetch lookup failed", kind, key, "error", err)
	response.ErrorWithDetails(w, http.StatusInternalServerError, lookup.RecognitionFailedMessage, err.Error(), s.logger)
}
