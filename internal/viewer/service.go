package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/tagview/tagview-server/internal/artwork"
	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/metatree"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/normalize"
	"github.com/tagview/tagview-server/internal/tags"
)

// TagParser parses an uploaded audio file.
type TagParser interface {
	Read(ctx context.Context, up tags.Upload) (*tags.RawTagBag, error)
}

// URLResolver looks up a track by streaming-service link.
type URLResolver interface {
	TrackByURL(ctx context.Context, link string) (json.RawMessage, error)
}

// LookupRunner runs the ISRC lookups and reports into a sink.
type LookupRunner interface {
	Run(ctx context.Context, isrc string, sink lookup.Sink)
}

// Service drives submissions for viewer sessions.
type Service struct {
	store   *Store
	parser  TagParser
	urls    URLResolver
	lookups LookupRunner
	logger  *slog.Logger

	// Lookups outlive the request that started them.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
}

// NewService creates a Service.
func NewService(store *Store, parser TagParser, urls URLResolver, lookups LookupRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:   store,
		parser:  parser,
		urls:    urls,
		lookups: lookups,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// CreateSession starts a new empty session.
func (s *Service) CreateSession() (string, State, error) {
	sess, err := s.store.Create()
	if err != nil {
		return "", State{}, err
	}
	return sess.ID, sess.Snapshot(), nil
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(sessionID string) (State, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}
	return sess.Snapshot(), nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.store.Len()
}

// SubmitFile replaces the session's state with the result of parsing up.
// Parsing and normalization happen before returning; lookups continue in
// the background. A parse failure is recorded in the state and returned.
func (s *Service) SubmitFile(ctx context.Context, sessionID string, up tags.Upload) (State, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}

	var gen uint64
	_, _ = sess.Update(func(st *State) error {
		gen = st.Begin(SourceFile, up.Name)
		return nil
	})

	bag, err := s.parser.Read(ctx, up)
	if err != nil {
		s.logger.Warn("failed to read tags", "session", sessionID, "file", up.Name, "error", err)
		state, _ := sess.Update(func(st *State) error {
			st.ParseFailed(gen, err)
			return nil
		})
		if !errors.Is(err, errors.ErrUnsupported) && !errors.Is(err, errors.ErrValidation) {
			err = errors.Wrap(err, errors.CodeInternal, "failed to read tags")
		}
		return state, err
	}

	rec := normalize.Normalize(bag)
	tree := metatree.Redact(bag.Tree())
	var art *artwork.Artwork
	if pic, ok := bag.Common.Picture.Get(); ok {
		art = artwork.Build(pic)
	}
	doLookups := lookup.ShouldLookup(rec.ISRC)

	state, _ := sess.Update(func(st *State) error {
		st.Parsed(gen, rec, tree, art, doLookups)
		return nil
	})

	s.logger.Info("file parsed",
		"session", sessionID,
		"file", up.Name,
		"isrc", rec.ISRC,
		"generation", gen,
	)

	if doLookups {
		s.startLookups(sess, gen, rec.ISRC)
	}
	return state, nil
}

// SubmitURL replaces the session's state with a recognition lookup by link.
// Upstream failures are stored in the state rather than returned.
func (s *Service) SubmitURL(ctx context.Context, sessionID, link string) (State, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return State{}, errors.Validation("URL missing")
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}

	var gen uint64
	_, _ = sess.Update(func(st *State) error {
		gen = st.Begin(SourceURL, "")
		return nil
	})

	result, err := s.urls.TrackByURL(ctx, link)
	state, _ := sess.Update(func(st *State) error {
		if err == nil {
			st.URLResolved(gen, result)
			return nil
		}
		st.URLFailed(gen, urlErrorMessage(err))
		return nil
	})
	if err != nil {
		s.logger.Warn("url lookup failed", "session", sessionID, "error", err)
	}
	return state, nil
}

func urlErrorMessage(err error) string {
	var statusErr *musicfetch.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	var domainErr *errors.Error
	if errors.As(err, &domainErr) && domainErr.Code == errors.CodeValidation {
		return domainErr.Message
	}
	return lookup.RecognitionFailedMessage
}

// SelectTab switches a session's active tab.
func (s *Service) SelectTab(sessionID string, tab Tab) (State, error) {
	return s.update(sessionID, func(st *State) error { return st.SelectTab(tab) })
}

// TogglePanel flips one panel between JSON and text.
func (s *Service) TogglePanel(sessionID, panel string) (State, error) {
	return s.update(sessionID, func(st *State) error { return st.TogglePanel(panel) })
}

func (s *Service) update(sessionID string, fn func(*State) error) (State, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return State{}, err
	}
	return sess.Update(fn)
}

func (s *Service) startLookups(sess *Session, gen uint64, isrc string) {
	k := sink{
		session: sess,
		gen:     gen,
		stale: func() {
			s.logger.Debug("discarded stale lookup result", "session", sess.ID, "generation", gen)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("service shut down, lookups not started", "session", sess.ID, "isrc", isrc)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.lookups.Run(s.baseCtx, isrc, k)
	}()
}

// Wait blocks until all background lookups have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels in-flight lookups and waits for them to return.
// Submissions made afterwards no longer start lookups.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}
