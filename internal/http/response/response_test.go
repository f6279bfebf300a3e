package response

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tagview/tagview-server/internal/errors"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"title": "Song"}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"result":{"title":"Song"}}`, w.Body.String())
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusNotFound, "Musicfetch API error: Not Found", discard())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Musicfetch API error: Not Found"}`, w.Body.String())
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorWithDetails(w, http.StatusInternalServerError, "Musicfetch lookup failed", "dial tcp: timeout", discard())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Musicfetch lookup failed","details":"dial tcp: timeout"}`, w.Body.String())
}

func TestBadRequestAndTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequest(w, "ISRC missing", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"ISRC missing"}`, w.Body.String())

	w = httptest.NewRecorder()
	TooManyRequests(w, "slow down", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        errors.Validation("URL missing"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"URL missing"}`,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("lookup: %w", errors.NotFound("session not found")),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"session not found"}`,
		},
		{
			name:       "unknown",
			err:        io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, discard())
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
