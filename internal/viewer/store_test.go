package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/errors"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(time.Minute, nil)

	sess, err := store.Create()
	require.NoError(t, err)
	assert.True(t, len(sess.ID) > len("sess-"))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetUnknown(t *testing.T) {
	store := NewStore(time.Minute, nil)

	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"malformed", "not-a-session"},
		{"wrong prefix", "book-V1StGXR8_Z5jdHi6B-myT"},
		{"well formed but unknown", "sess-V1StGXR8_Z5jdHi6B-myT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Get(tt.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrNotFound))
		})
	}
}

func TestStore_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(10*time.Minute, nil)
	store.now = func() time.Time { return now }

	idle, err := store.Create()
	require.NoError(t, err)
	active, err := store.Create()
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	_, err = store.Get(active.ID)
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(idle.ID)
	assert.Error(t, err)
	_, err = store.Get(active.ID)
	assert.NoError(t, err)
}

func TestStore_SweepDisabled(t *testing.T) {
	store := NewStore(0, nil)
	now := time.Now()
	store.now = func() time.Time { return now }

	_, err := store.Create()
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestStore_JanitorStopsOnClose(t *testing.T) {
	store := NewStore(time.Millisecond, nil)
	store.StartJanitor(t.Context(), time.Millisecond)

	_, err := store.Create()
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	store.Close()
	store.Close()
}

type recordingObserver struct {
	ids    []string
	states []State
}

func (o *recordingObserver) SessionChanged(id string, st State) {
	o.ids = append(o.ids, id)
	o.states = append(o.states, st)
}

func TestSession_NotifiesObserverOfAppliedChanges(t *testing.T) {
	obs := &recordingObserver{}
	store := NewStore(0, nil)
	store.Observe(obs)

	sess, err := store.Create()
	require.NoError(t, err)

	var gen uint64
	_, err = sess.Update(func(st *State) error {
		gen = st.Begin(SourceFile, "song.mp3")
		return nil
	})
	require.NoError(t, err)

	// Rejected updates are not published.
	_, err = sess.Update(func(st *State) error { return st.SelectTab("lyrics") })
	require.Error(t, err)

	k := sink{session: sess, gen: gen}
	k.CatalogLoaded([]byte(`{"count":0}`))

	stale := false
	sink{session: sess, gen: gen - 1, stale: func() { stale = true }}.CatalogLoaded([]byte(`{"count":9}`))
	assert.True(t, stale)

	require.Len(t, obs.states, 2)
	assert.Equal(t, []string{sess.ID, sess.ID}, obs.ids)
	assert.Equal(t, "song.mp3", obs.states[0].FileName)
	assert.JSONEq(t, `{"count":0}`, string(obs.states[1].Catalog))
}
