package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/http/response"
	"github.com/tagview/tagview-server/internal/sse"
)

// handleSessionEvents streams state changes of one session as Server-Sent Events.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		response.Error(w, http.StatusNotFound, "event stream disabled", s.logger)
		return
	}
	err := s.events.Stream(w, r, chi.URLParam(r, "id"))
	switch {
	case err == nil:
	case errors.Is(err, sse.ErrClosed):
		response.Error(w, http.StatusServiceUnavailable, "server shutting down", s.logger)
	default:
		response.HandleError(w, err, s.logger)
	}
}
