// Package viewer holds per-session view state and the submission flow that fills it.
//
// State changes only through the transition methods below. Every submission
// starts a new generation; asynchronous results carry the generation they
// were started under and are dropped when a newer submission has begun.
package viewer

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/tagview/tagview-server/internal/artwork"
	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/normalize"
	"github.com/tagview/tagview-server/internal/validation"
)

// Source is what a submission was made from.
type Source string

// Submission sources.
const (
	SourceFile Source = "file"
	SourceURL  Source = "url"
)

// Tab is a top-level view.
type Tab string

// Tabs.
const (
	TabDefault    Tab = "default"
	TabMusicfetch Tab = "musicfetch"
)

// URLFileName is shown in place of a file name for URL submissions.
const URLFileName = "URL lookup"

// Loading reports which parts of the state are still being fetched.
type Loading struct {
	Parsing     bool `json:"parsing"`
	Catalog     bool `json:"catalog"`
	Artists     bool `json:"artists"`
	Recognition bool `json:"recognition"`
}

// Links are deep links into the Apple Music catalog.
type Links struct {
	Title string `json:"title,omitempty"`
	Album string `json:"album,omitempty"`
}

// State is everything a client needs to render one session.
type State struct {
	Generation    uint64            `json:"generation"`
	Source        Source            `json:"source,omitempty"`
	FileName      string            `json:"fileName"`
	Record        *normalize.Record `json:"record"`
	Romanized     *Romanized        `json:"romanized,omitempty"`
	Links         Links             `json:"links"`
	Metadata      any               `json:"metadata"`
	Artwork       *artwork.Artwork  `json:"artwork"`
	Catalog       json.RawMessage   `json:"catalog"`
	ArtistDetails []json.RawMessage `json:"artistDetails"`
	Recognition   json.RawMessage   `json:"recognition"`
	Loading       Loading           `json:"loading"`
	ActiveTab     Tab               `json:"activeTab"`
	Panels        map[string]bool   `json:"panels"`
	ParseError    string            `json:"parseError,omitempty"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{
		ActiveTab:     TabDefault,
		Panels:        map[string]bool{},
		ArtistDetails: []json.RawMessage{},
	}
}

// Clone returns a copy that shares no mutable containers with s.
func (s State) Clone() State {
	out := s
	out.Panels = maps.Clone(s.Panels)
	out.ArtistDetails = slices.Clone(s.ArtistDetails)
	if s.Record != nil {
		rec := *s.Record
		rec.Songwriters = slices.Clone(s.Record.Songwriters)
		out.Record = &rec
	}
	return out
}

// Begin starts a new submission: the generation advances and every derived
// field is cleared. The active tab and panel toggles survive.
func (s *State) Begin(source Source, fileName string) uint64 {
	s.Generation++
	*s = State{
		Generation:    s.Generation,
		Source:        source,
		FileName:      fileName,
		ActiveTab:     s.ActiveTab,
		Panels:        s.Panels,
		ArtistDetails: []json.RawMessage{},
		Loading: Loading{
			Parsing:     source == SourceFile,
			Recognition: source == SourceURL,
		},
	}
	return s.Generation
}

// ParseFailed records a tag parse failure. No record is produced.
func (s *State) ParseFailed(gen uint64, err error) bool {
	if gen != s.Generation {
		return false
	}
	s.Loading.Parsing = false
	s.ParseError = err.Error()
	return true
}

// Parsed stores the normalized record and its display companions. When
// lookups is true the lookup panels are marked as loading.
func (s *State) Parsed(gen uint64, rec normalize.Record, metadata any, art *artwork.Artwork, lookups bool) bool {
	if gen != s.Generation {
		return false
	}
	s.Loading.Parsing = false
	s.Record = &rec
	s.Romanized = romanizeRecord(rec)
	s.Links = Links{Title: rec.TitleURL(), Album: rec.AlbumURL()}
	s.Metadata = metadata
	s.Artwork = art
	if lookups {
		s.Loading.Catalog = true
		s.Loading.Artists = true
		s.Loading.Recognition = true
	}
	return true
}

// CatalogLoaded stores the catalog search body.
func (s *State) CatalogLoaded(gen uint64, raw json.RawMessage) bool {
	if gen != s.Generation {
		return false
	}
	s.Catalog = raw
	s.Loading.Catalog = false
	return true
}

// ArtistsLoaded stores the artist batch, in unique-id order.
func (s *State) ArtistsLoaded(gen uint64, details []json.RawMessage) bool {
	if gen != s.Generation {
		return false
	}
	if details == nil {
		details = []json.RawMessage{}
	}
	s.ArtistDetails = details
	s.Loading.Artists = false
	return true
}

// RecognitionLoaded stores the recognition body.
func (s *State) RecognitionLoaded(gen uint64, raw json.RawMessage) bool {
	if gen != s.Generation {
		return false
	}
	s.Recognition = raw
	s.Loading.Recognition = false
	return true
}

// URLResolved stores a successful URL lookup.
func (s *State) URLResolved(gen uint64, result json.RawMessage) bool {
	if gen != s.Generation {
		return false
	}
	s.Metadata = map[string]string{"via": "url"}
	s.FileName = URLFileName
	s.Recognition = result
	s.Loading.Recognition = false
	return true
}

// URLFailed stores a failed URL lookup as an error body.
func (s *State) URLFailed(gen uint64, message string) bool {
	if gen != s.Generation {
		return false
	}
	body, _ := json.Marshal(map[string]string{"error": message})
	s.Recognition = body
	s.Loading.Recognition = false
	return true
}

// SelectTab switches the active tab.
func (s *State) SelectTab(tab Tab) error {
	switch tab {
	case TabDefault, TabMusicfetch:
		s.ActiveTab = tab
		return nil
	default:
		return errors.Validationf("unknown tab %q", tab)
	}
}

// TogglePanel flips between raw JSON and text rendering for one panel.
func (s *State) TogglePanel(panel string) error {
	if !validation.ValidPanel(panel) {
		return errors.Validationf("unknown panel %q", panel)
	}
	if s.Panels == nil {
		s.Panels = map[string]bool{}
	}
	s.Panels[panel] = !s.Panels[panel]
	return nil
}
