package viewer

import (
	"regexp"
	"strings"

	"github.com/tagview/tagview-server/internal/normalize"
	"github.com/tagview/tagview-server/internal/romanize"
)

// NameRomanization pairs a display name with its romanized form.
type NameRomanization struct {
	Name      string `json:"name"`
	Romanized string `json:"romanized"`
}

// Romanized holds romanizations for record fields that contain Hangul.
type Romanized struct {
	Title       string             `json:"title,omitempty"`
	Album       string             `json:"album,omitempty"`
	Performers  []NameRomanization `json:"performers,omitempty"`
	Songwriters []NameRomanization `json:"songwriters,omitempty"`
}

//nolint:gochecknoglobals // Compiled once
var performerSeps = regexp.MustCompile(`[,&]`)

// romanizeRecord returns nil when nothing in the record contains Hangul.
func romanizeRecord(rec normalize.Record) *Romanized {
	var r Romanized
	found := false

	if v, ok := romanize.IfHangul(rec.Title); ok {
		r.Title, found = v, true
	}
	if v, ok := romanize.IfHangul(rec.Album); ok {
		r.Album, found = v, true
	}
	for _, name := range performerSeps.Split(rec.Performers, -1) {
		name = strings.TrimSpace(name)
		if v, ok := romanize.IfHangul(name); ok {
			r.Performers = append(r.Performers, NameRomanization{Name: name, Romanized: v})
			found = true
		}
	}
	for _, name := range rec.Songwriters {
		if v, ok := romanize.IfHangul(name); ok {
			r.Songwriters = append(r.Songwriters, NameRomanization{Name: name, Romanized: v})
			found = true
		}
	}

	if !found {
		return nil
	}
	return &r
}
