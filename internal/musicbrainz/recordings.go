package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Artist is the artist reference inside an artist credit.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistCredit credits one artist on a recording.
type ArtistCredit struct {
	Name       string  `json:"name"`
	JoinPhrase string  `json:"joinphrase,omitempty"`
	Artist     *Artist `json:"artist,omitempty"`
}

// Recording is the subset of a recording search hit the lookup flow needs.
type Recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
}

// SearchResult is a recording search response. Raw holds the body verbatim
// for display; Recordings is the decoded subset.
type SearchResult struct {
	Raw        json.RawMessage
	Count      int
	Recordings []Recording
}

type searchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}

// SearchRecordingsByISRC finds recordings carrying the given ISRC.
func (c *Client) SearchRecordingsByISRC(ctx context.Context, isrc string) (*SearchResult, error) {
	isrc = strings.TrimSpace(isrc)
	if isrc == "" {
		return nil, wrapError("searchRecordings", isrc, ErrInvalidID)
	}

	body, err := c.get(ctx, "/recording/", "query="+url.QueryEscape("isrc:"+isrc)+"&fmt=json")
	if err != nil {
		return nil, wrapError("searchRecordings", isrc, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("searchRecordings", isrc, fmt.Errorf("parse response: %w", err))
	}

	c.logger.Debug("musicbrainz recordings", "isrc", isrc, "count", len(resp.Recordings))

	return &SearchResult{
		Raw:        json.RawMessage(body),
		Count:      resp.Count,
		Recordings: resp.Recordings,
	}, nil
}

// UniqueArtistIDs lists credited artist ids across recordings in order of
// first appearance, without duplicates.
func UniqueArtistIDs(recordings []Recording) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, rec := range recordings {
		for _, credit := range rec.ArtistCredit {
			if credit.Artist == nil || credit.Artist.ID == "" {
				continue
			}
			if _, dup := seen[credit.Artist.ID]; dup {
				continue
			}
			seen[credit.Artist.ID] = struct{}{}
			ids = append(ids, credit.Artist.ID)
		}
	}
	return ids
}
