// Package normalize reduces a RawTagBag to the canonical record shown to users.
//
// Normalize is a pure function. Every field resolves through an explicit
// fallback chain; native tag scans declare whether the first or the last
// matching tag wins, and the two policies are intentionally not unified.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tagview/tagview-server/internal/tags"
)

// Sentinel is the value of any field that could not be resolved.
const Sentinel = "no data"

const bytesPerMB = 1024 * 1024

// Record is the canonical, fully populated metadata record.
type Record struct {
	Title             string   `json:"title"`
	TitleID           string   `json:"titleId"`
	Performers        string   `json:"performers"`
	Songwriters       []string `json:"songwriters"`
	Year              string   `json:"year"`
	ISRC              string   `json:"isrc"`
	Album             string   `json:"album"`
	AlbumID           string   `json:"albumId"`
	TrackNumber       string   `json:"trackNumber"`
	Genre             string   `json:"genre"`
	Label             string   `json:"label"`
	DurationFormatted string   `json:"durationFormatted"`
	FileSize          string   `json:"fileSize"`
}

// HasISRC reports whether the record carries a real ISRC.
func (r Record) HasISRC() bool {
	return r.ISRC != "" && r.ISRC != Sentinel
}

// TitleURL links to the track in the Apple Music catalog, or "" without a title id.
func (r Record) TitleURL() string {
	if r.TitleID == "" {
		return ""
	}
	return "https://music.apple.com/song/" + r.TitleID
}

// AlbumURL links to the album in the Apple Music catalog, or "" without an album id.
func (r Record) AlbumURL() string {
	if r.AlbumID == "" {
		return ""
	}
	return "https://music.apple.com/album/" + r.AlbumID
}

// Normalize maps a tag bag to a Record. It never fails; unresolved fields get Sentinel.
func Normalize(bag *tags.RawTagBag) Record {
	if bag == nil {
		bag = &tags.RawTagBag{}
	}
	c := bag.Common

	titleID, _ := titleIDScan.Resolve(bag.Native)
	albumID, _ := albumIDScan.Resolve(bag.Native)

	return Record{
		Title:             c.Title.OrElse(Sentinel),
		TitleID:           titleID,
		Performers:        performers(c),
		Songwriters:       songwriters(bag),
		Year:              year(bag),
		ISRC:              isrc(bag),
		Album:             c.Album.OrElse(Sentinel),
		AlbumID:           albumID,
		TrackNumber:       trackNumber(c),
		Genre:             joinedOr(c.Genre),
		Label:             label(bag),
		DurationFormatted: FormatDuration(bag.Format.Duration.OrElse(0)),
		FileSize:          FormatFileSize(bag.FileInfo.Size),
	}
}

func performers(c tags.Common) string {
	if len(c.Artists) > 0 {
		return strings.Join(c.Artists, ", ")
	}
	return c.Artist.OrElse(Sentinel)
}

func songwriters(bag *tags.RawTagBag) []string {
	raw, ok := songwriterScan.Resolve(bag.Native)
	if !ok && len(bag.Common.Composer) > 0 {
		raw = bag.Common.Composer[0]
	}
	return splitSongwriters(raw)
}

func year(bag *tags.RawTagBag) string {
	if y, ok := bag.Common.Year.Get(); ok {
		return strconv.Itoa(y)
	}
	if y, ok := yearScan.Resolve(bag.Native); ok {
		return y
	}
	if cp, ok := bag.Common.Copyright.Get(); ok {
		if y, ok := firstYear(cp); ok {
			return y
		}
	}
	return Sentinel
}

func isrc(bag *tags.RawTagBag) string {
	if v, ok := bag.Common.ISRC.Get(); ok {
		return v
	}
	if v, ok := isrcScan.Resolve(bag.Native); ok {
		return v
	}
	return Sentinel
}

func label(bag *tags.RawTagBag) string {
	if v, ok := labelScan.Resolve(bag.Native); ok {
		return v
	}
	if v, ok := bag.Common.Label.Get(); ok {
		return v
	}
	if cp, ok := bag.Common.Copyright.Get(); ok {
		if v, ok := stripCopyright(cp); ok {
			return v
		}
	}
	return Sentinel
}

func trackNumber(c tags.Common) string {
	if n, ok := c.Track.Get(); ok {
		return strconv.Itoa(n)
	}
	return Sentinel
}

func joinedOr(vals []string) string {
	if len(vals) == 0 {
		return Sentinel
	}
	return strings.Join(vals, ", ")
}

// FormatDuration renders seconds as M:SS. Whole minutes are floored and the
// remaining seconds rounded, so 59.6 renders as "0:60".
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0:00"
	}
	minutes := int64(math.Floor(seconds / 60))
	secs := int64(math.Round(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatFileSize renders a byte count in megabytes with two decimals,
// rounding exact halves up.
func FormatFileSize(size int64) string {
	size = max(size, 0)
	hundredths := (size*200 + bytesPerMB) / (2 * bytesPerMB)
	return fmt.Sprintf("%d.%02d MB", hundredths/100, hundredths%100)
}
