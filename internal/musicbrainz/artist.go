package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// artistIncludes are the sub-queries requested with every artist lookup.
const artistIncludes = "aliases+tags+ratings+url-rels+artist-rels"

// GetArtist fetches the full artist record and returns it undecoded.
func (c *Client) GetArtist(ctx context.Context, id string) (json.RawMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, wrapError("getArtist", id, ErrInvalidID)
	}

	body, err := c.get(ctx, "/artist/"+url.PathEscape(id), "fmt=json&inc="+artistIncludes)
	if err != nil {
		return nil, wrapError("getArtist", id, err)
	}
	if !json.Valid(body) {
		return nil, wrapError("getArtist", id, fmt.Errorf("parse response: invalid JSON"))
	}
	return json.RawMessage(body), nil
}
