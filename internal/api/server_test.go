package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/sse"
	"github.com/tagview/tagview-server/internal/tags"
	"github.com/tagview/tagview-server/internal/viewer"
)

// stubParser returns canned bags keyed by upload name.
type stubParser struct {
	bags map[string]*tags.RawTagBag
}

func (p *stubParser) Read(_ context.Context, up tags.Upload) (*tags.RawTagBag, error) {
	if _, err := io.Copy(io.Discard, up.Body); err != nil {
		return nil, err
	}
	bag, ok := p.bags[up.Name]
	if !ok {
		return nil, errors.Unsupported("no tags found")
	}
	return bag, nil
}

// stubRecognizer counts calls and returns canned results or errors.
type stubRecognizer struct {
	calls  atomic.Int32
	result json.RawMessage
	err    error
}

func (r *stubRecognizer) TrackByISRC(_ context.Context, _ string) (json.RawMessage, error) {
	r.calls.Add(1)
	return r.result, r.err
}

func (r *stubRecognizer) TrackByURL(_ context.Context, _ string) (json.RawMessage, error) {
	r.calls.Add(1)
	return r.result, r.err
}

// stubLookups records the ISRCs it was asked to look up and reports
// fixed results.
type stubLookups struct {
	mu    sync.Mutex
	isrcs []string
}

func (l *stubLookups) Run(_ context.Context, isrc string, sink lookup.Sink) {
	l.mu.Lock()
	l.isrcs = append(l.isrcs, isrc)
	l.mu.Unlock()

	sink.RecognitionLoaded(json.RawMessage(`{"links":{}}`))
	sink.CatalogLoaded(json.RawMessage(`{"count":0,"recordings":[]}`))
	sink.ArtistsLoaded(nil)
}

type testServer struct {
	*Server
	api        humatest.TestAPI
	service    *viewer.Service
	broker     *sse.Broker
	recognizer *stubRecognizer
	lookups    *stubLookups
}

type testOption func(*config.ServerConfig)

func withSubmitLimit(perMinute int) testOption {
	return func(c *config.ServerConfig) { c.SubmitPerMin = perMinute }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultTestServerConfig() config.ServerConfig {
	return config.ServerConfig{
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
	}
}

// setupTestServer creates a server backed by a real viewer service with
// stubbed parsing and upstream calls.
func setupTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	cfg := defaultTestServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := discardLogger()
	parser := &stubParser{bags: map[string]*tags.RawTagBag{
		"song.mp3": {
			Common: tags.Common{
				Title:  tags.Some("서울"),
				Artist: tags.Some("Some Artist"),
				ISRC:   tags.Some("USRC17607839"),
			},
			Format:   tags.FormatInfo{Container: "MP3", TagFormat: "ID3v2.3", Duration: tags.Some(215.4)},
			FileInfo: tags.FileInfo{Name: "song.mp3", Size: 5 << 20, MIMEType: "audio/mpeg"},
		},
	}}
	recognizer := &stubRecognizer{result: json.RawMessage(`{"title":"Song"}`)}
	lookups := &stubLookups{}

	store := viewer.NewStore(time.Hour, logger)
	broker := sse.NewBroker(logger)
	store.Observe(broker)

	svc := viewer.NewService(store, parser, recognizer, lookups, logger)
	s := NewServer(cfg, svc, recognizer, sse.NewHandler(broker, svc.Snapshot, logger), logger)
	t.Cleanup(func() {
		_ = broker.Shutdown()
		_ = svc.Shutdown()
		_ = s.Shutdown()
	})

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.API()),
		service:    svc,
		broker:     broker,
		recognizer: recognizer,
		lookups:    lookups,
	}
}

// serve sends a request straight through the chi router.
func (ts *testServer) serve(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

// envelope is the decoded success envelope with the payload left raw.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func decodeSession(t *testing.T, body []byte) SessionResponse {
	t.Helper()
	env := decodeEnvelope(t, body)
	require.True(t, env.Success, string(body))
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/sessions")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeSession(t, resp.Body.Bytes()).ID
}
