package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tagview/tagview-server/internal/tags"
)

// Policy decides how a Scan treats multiple matching tags.
type Policy int

const (
	// FirstMatch stops at the first tag that yields a value.
	FirstMatch Policy = iota
	// LastMatch keeps scanning; later values overwrite earlier ones.
	LastMatch
)

func (p Policy) String() string {
	if p == LastMatch {
		return "last-match"
	}
	return "first-match"
}

// Rule extracts a candidate value from one native tag.
type Rule struct {
	Name    string
	Match   func(id string) bool
	Extract func(v tags.TagValue) (string, bool)
}

// Scan walks native tag groups in order, applying its rules to every tag.
type Scan struct {
	Policy Policy
	Rules  []Rule
}

// Resolve returns the value selected by the scan's policy.
func (s Scan) Resolve(groups []tags.NativeGroup) (string, bool) {
	var (
		result string
		found  bool
	)
	for _, g := range groups {
		for _, t := range g.Tags {
			for _, r := range s.Rules {
				if !r.Match(t.ID) {
					continue
				}
				v, ok := r.Extract(t.Value)
				if !ok {
					continue
				}
				if s.Policy == FirstMatch {
					return v, true
				}
				result, found = v, true
			}
		}
	}
	return result, found
}

//nolint:gochecknoglobals // Compiled once, read-only
var (
	fourDigits     = regexp.MustCompile(`(\d{4})`)
	xidISRC        = regexp.MustCompile(`(?i)isrc:([A-Z0-9]+)`)
	copyrightLead  = regexp.MustCompile(`(?i)^(?:℗|©)?\s*\d{4}\s*`)
	songwriterSeps = regexp.MustCompile(`[,&]`)
)

// vendorISRCID is the iTunes freeform atom carrying an ISRC; matched exactly.
const vendorISRCID = "----:com.apple.iTunes:ISRC"

func idIn(ids ...string) func(string) bool {
	return func(id string) bool {
		lower := strings.ToLower(id)
		for _, want := range ids {
			if lower == want {
				return true
			}
		}
		return false
	}
}

func nonEmptyText(v tags.TagValue) (string, bool) {
	s, ok := v.AsText()
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Field rule lists. Native ids compare case-insensitively unless noted.
//
//nolint:gochecknoglobals // Static rule tables
var (
	composerIDs  = idIn("©wrt", "tcom", "tcm", "composer", "writer")
	copyrightIDs = idIn("cprt", "tcop", "tcr", "copyright")

	songwriterScan = Scan{Policy: FirstMatch, Rules: []Rule{
		{Name: "composer", Match: composerIDs, Extract: nonEmptyText},
	}}

	yearScan = Scan{Policy: FirstMatch, Rules: []Rule{
		{Name: "copyright-year", Match: copyrightIDs, Extract: func(v tags.TagValue) (string, bool) {
			s, ok := v.AsText()
			if !ok {
				return "", false
			}
			return firstYear(s)
		}},
	}}

	labelScan = Scan{Policy: FirstMatch, Rules: []Rule{
		{Name: "copyright-label", Match: copyrightIDs, Extract: func(v tags.TagValue) (string, bool) {
			s, ok := v.AsText()
			if !ok {
				return "", false
			}
			return stripCopyright(s)
		}},
	}}

	isrcScan = Scan{Policy: LastMatch, Rules: []Rule{
		{Name: "xid", Match: idIn("xid "), Extract: func(v tags.TagValue) (string, bool) {
			s, ok := v.AsText()
			if !ok {
				return "", false
			}
			m := xidISRC.FindStringSubmatch(s)
			if m == nil {
				return "", false
			}
			return m[1], true
		}},
		{Name: "isrc-or-ufid", Match: func(id string) bool {
			lower := strings.ToLower(id)
			return strings.Contains(lower, "isrc") || strings.Contains(lower, "ufid")
		}, Extract: func(v tags.TagValue) (string, bool) {
			if s, ok := nonEmptyText(v); ok {
				return s, true
			}
			if ident, ok := v.Field("identifier"); ok {
				return nonEmptyText(ident)
			}
			return "", false
		}},
		{Name: "vendor-isrc", Match: func(id string) bool { return id == vendorISRCID }, Extract: nonEmptyText},
	}}

	titleIDScan = Scan{Policy: LastMatch, Rules: []Rule{
		{Name: "content-id", Match: idIn("cnid"), Extract: numericID},
	}}

	albumIDScan = Scan{Policy: LastMatch, Rules: []Rule{
		{Name: "playlist-id", Match: idIn("plid"), Extract: numericID},
	}}
)

func numericID(v tags.TagValue) (string, bool) {
	n, ok := v.AsNumber()
	if !ok {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

func firstYear(s string) (string, bool) {
	m := fourDigits.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// stripCopyright drops a leading ℗/© symbol and four digit year.
func stripCopyright(s string) (string, bool) {
	out := strings.TrimSpace(copyrightLead.ReplaceAllString(s, ""))
	return out, out != ""
}

// splitSongwriters splits on comma or ampersand, trimming and dropping blanks.
func splitSongwriters(raw string) []string {
	out := []string{}
	for _, part := range songwriterSeps.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
