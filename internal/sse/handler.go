package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tagview/tagview-server/internal/viewer"
)

const (
	defaultHeartbeat = 30 * time.Second

	// Bounds how often the snapshot is re-read while changes keep arriving.
	maxSnapshotReads = 5
)

// SessionLookup returns the current state of a session and marks it as used.
type SessionLookup func(sessionID string) (viewer.State, error)

// Handler streams one session's changes to the browser.
type Handler struct {
	broker    *Broker
	lookup    SessionLookup
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(broker *Broker, lookup SessionLookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		broker:    broker,
		lookup:    lookup,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// Stream serves the event stream for sessionID until the client goes away,
// the session disappears or the broker shuts down. An error is returned only
// when nothing has been written yet, so the caller can still reply normally.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, sessionID string) error {
	// Subscribe before taking the snapshot so no change falls in between.
	sub, err := h.broker.Subscribe(sessionID)
	if err != nil {
		return err
	}
	defer h.broker.Unsubscribe(sub)

	state, pending, err := h.snapshot(sub, sessionID)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	clientLogger := h.logger.With(slog.String("client_id", sub.ID), slog.String("session_id", sessionID))

	if err := h.sendEvent(w, rc, NewConnectedEvent(sub.ID, sessionID)); err != nil {
		clientLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return nil
	}
	if err := h.sendEvent(w, rc, NewSessionUpdatedEvent(sessionID, state)); err != nil {
		return nil
	}
	for _, event := range pending {
		if err := h.sendEvent(w, rc, event); err != nil {
			return nil
		}
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case event := <-sub.Events:
			if err := h.sendEvent(w, rc, event); err != nil {
				clientLogger.Debug("client disconnected during send")
				return nil
			}

		case <-heartbeat.C:
			// A watched session counts as in use.
			if _, err := h.lookup(sessionID); err != nil {
				_ = h.sendEvent(w, rc, NewSessionClosedEvent(sessionID))
				clientLogger.Debug("session gone, closing stream")
				return nil
			}
			if err := h.sendEvent(w, rc, NewHeartbeatEvent()); err != nil {
				clientLogger.Debug("client disconnected during heartbeat")
				return nil
			}

		case <-sub.Done:
			clientLogger.Debug("stream closed by broker")
			return nil

		case <-ctx.Done():
			clientLogger.Debug("client context canceled")
			return nil
		}
	}
}

// snapshot reads the session state for a fresh subscriber. Updates queued
// before a read describe states no newer than it and are dropped; the state
// is re-read after any such drop so nothing queued later is lost. Other
// queued events are returned in order.
func (h *Handler) snapshot(sub *Subscriber, sessionID string) (viewer.State, []Event, error) {
	var pending []Event
	state, err := h.lookup(sessionID)
	for i := 0; i < maxSnapshotReads && err == nil && dropQueuedUpdates(sub, &pending); i++ {
		state, err = h.lookup(sessionID)
	}
	return state, pending, err
}

// dropQueuedUpdates empties sub.Events without blocking, keeping every event
// except session updates. It reports whether an update was dropped.
func dropQueuedUpdates(sub *Subscriber, keep *[]Event) bool {
	dropped := false
	for {
		select {
		case event := <-sub.Events:
			if event.Type == EventSessionUpdated {
				dropped = true
				continue
			}
			*keep = append(*keep, event)
		default:
			return dropped
		}
	}
}

// sendEvent writes one SSE frame and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Reset the write deadline after each successful write so a stalled
	// client cannot hold the connection forever.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * h.heartbeat)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
