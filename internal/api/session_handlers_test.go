package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/viewer"
)

func TestCreateAndGetSession(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)
	assert.True(t, strings.HasPrefix(id, "sess-"))

	resp := ts.api.Get("/api/v1/sessions/" + id)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeSession(t, resp.Body.Bytes())
	assert.Equal(t, id, got.ID)
	assert.Equal(t, viewer.TabDefault, got.State.ActiveTab)
	assert.Nil(t, got.State.Record)
	assert.Zero(t, got.State.Generation)
}

func TestGetSession_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/sessions/sess-V1StGXR8_Z5jdHi6B-myT")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, EnvelopeVersion, env.Version)
}

func TestSubmitFile(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Put("/api/v1/sessions/"+id+"/file?name=song.mp3&lastModified=1700000000000",
		"Content-Type: audio/mpeg",
		bytes.NewReader([]byte("ID3 fake audio payload")),
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := decodeSession(t, resp.Body.Bytes())
	require.NotNil(t, got.State.Record)
	assert.Equal(t, "song.mp3", got.State.FileName)
	assert.Equal(t, "서울", got.State.Record.Title)
	assert.Equal(t, "USRC17607839", got.State.Record.ISRC)
	assert.Equal(t, "3:35", got.State.Record.DurationFormatted)
	assert.Equal(t, "5.00 MB", got.State.Record.FileSize)
	require.NotNil(t, got.State.Romanized)
	assert.Equal(t, "seoul", got.State.Romanized.Title)

	ts.service.Wait()
	resp = ts.api.Get("/api/v1/sessions/" + id)
	final := decodeSession(t, resp.Body.Bytes())
	assert.JSONEq(t, `{"count":0,"recordings":[]}`, string(final.State.Catalog))
	assert.JSONEq(t, `{"links":{}}`, string(final.State.Recognition))
	assert.False(t, final.State.Loading.Catalog)
	assert.Equal(t, []string{"USRC17607839"}, ts.lookups.isrcs)
}

func TestSubmitFile_Unsupported(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Put("/api/v1/sessions/"+id+"/file?name=noise.bin", bytes.NewReader([]byte("noise")))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.Equal(t, "UNSUPPORTED_MEDIA", env.Code)

	// The failure is visible in the session state as well.
	got := decodeSession(t, ts.api.Get("/api/v1/sessions/"+id).Body.Bytes())
	assert.Equal(t, "no tags found", got.State.ParseError)
	assert.Nil(t, got.State.Record)
}

func TestSubmitFile_MissingName(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Put("/api/v1/sessions/"+id+"/file", bytes.NewReader([]byte("x")))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp.Body.Bytes()).Code)
}

func TestSubmitFile_TooLarge(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	big := bytes.Repeat([]byte{0}, (1<<20)+1)
	resp := ts.api.Put("/api/v1/sessions/"+id+"/file?name=song.mp3", bytes.NewReader(big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestSubmitURL(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Post("/api/v1/sessions/"+id+"/url", map[string]any{
		"url": "https://open.spotify.com/track/abc",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := decodeSession(t, resp.Body.Bytes())
	assert.Equal(t, viewer.URLFileName, got.State.FileName)
	assert.Equal(t, map[string]any{"via": "url"}, got.State.Metadata)
	assert.JSONEq(t, `{"title":"Song"}`, string(got.State.Recognition))
}

func TestSubmitURL_UpstreamError(t *testing.T) {
	ts := setupTestServer(t)
	ts.recognizer.err = &musicfetch.StatusError{StatusCode: http.StatusNotFound, Status: "Not Found"}
	id := ts.createSession(t)

	resp := ts.api.Post("/api/v1/sessions/"+id+"/url", map[string]any{"url": "https://example.com/x"})
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeSession(t, resp.Body.Bytes())
	assert.JSONEq(t, `{"error":"Musicfetch API error: Not Found"}`, string(got.State.Recognition))
}

func TestSubmitURL_Missing(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Post("/api/v1/sessions/"+id+"/url", map[string]any{"url": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.Equal(t, "URL missing", env.Message)
	assert.Zero(t, ts.recognizer.calls.Load())
}

func TestUpdateView(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	resp := ts.api.Patch("/api/v1/sessions/"+id+"/view", map[string]any{
		"tab":    "musicfetch",
		"toggle": "artist:5b11f4ce-a62d-471e-81fc-a69a8278c7da",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	got := decodeSession(t, resp.Body.Bytes())
	assert.Equal(t, viewer.TabMusicfetch, got.State.ActiveTab)
	assert.True(t, got.State.Panels["artist:5b11f4ce-a62d-471e-81fc-a69a8278c7da"])
}

func TestUpdateView_Invalid(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown tab", map[string]any{"tab": "settings"}},
		{"unknown panel", map[string]any{"toggle": "lyrics"}},
		{"empty", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Patch("/api/v1/sessions/"+id+"/view", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	ts := setupTestServer(t, withSubmitLimit(2))
	id := ts.createSession(t)

	for range 2 {
		resp := ts.api.Post("/api/v1/sessions/"+id+"/url", map[string]any{"url": "https://example.com/x"})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Post("/api/v1/sessions/"+id+"/url", map[string]any{"url": "https://example.com/x"})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decodeEnvelope(t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.Equal(t, rateLimitMessage, env.Message)
}
