package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/viewer"
)

type streamedEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID string        `json:"session_id"`
		State     *viewer.State `json:"state"`
	} `json:"data"`
}

// nextEvent returns the next data line of an event stream, decoded.
func nextEvent(t *testing.T, r *bufio.Reader) streamedEvent {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			var ev streamedEvent
			require.NoError(t, json.Unmarshal([]byte(data), &ev), data)
			return ev
		}
	}
}

func TestSessionEvents_FollowsSubmission(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createSession(t)

	srv := httptest.NewServer(ts.Server)
	t.Cleanup(srv.Close)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(srv.URL + "/api/v1/sessions/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", nextEvent(t, r).Type)
	initial := nextEvent(t, r)
	assert.Equal(t, "session.updated", initial.Type)
	assert.Equal(t, id, initial.Data.SessionID)
	assert.Equal(t, uint64(0), initial.Data.State.Generation)

	put := ts.api.Put("/api/v1/sessions/"+id+"/file?name=song.mp3",
		"Content-Type: audio/mpeg",
		bytes.NewReader([]byte("ID3 fake audio payload")),
	)
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())

	// Events arrive in order; the last one carries the settled lookups.
	for {
		ev := nextEvent(t, r)
		require.Equal(t, "session.updated", ev.Type)
		st := ev.Data.State
		require.NotNil(t, st)
		settled := !st.Loading.Parsing && !st.Loading.Recognition && !st.Loading.Catalog && !st.Loading.Artists
		if st.Generation == 1 && st.Record != nil && settled {
			assert.Equal(t, "song.mp3", st.FileName)
			assert.JSONEq(t, `{"links":{}}`, string(st.Recognition))
			break
		}
	}
}

func TestSessionEvents_UnknownSession(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.serve(http.MethodGet, "/api/v1/sessions/sess-aaaaaaaaaaaaaaaaaaaaa/events")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
	assert.Equal(t, 0, ts.broker.SubscriberCount())
}

func TestSessionEvents_Disabled(t *testing.T) {
	s := NewServer(defaultTestServerConfig(), nil, nil, nil, nil)
	t.Cleanup(func() { _ = s.Shutdown() })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess-x/events", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
