package musicbrainz

import (
	"errors"
	"fmt"
)

// Sentinel errors for MusicBrainz operations.
var (
	ErrNotFound    = errors.New("musicbrainz: not found")
	ErrRateLimited = errors.New("musicbrainz: rate limited by server")
	ErrBadRequest  = errors.New("musicbrainz: bad request")
	ErrServer      = errors.New("musicbrainz: server error")
	ErrInvalidID   = errors.New("musicbrainz: invalid identifier")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // "searchRecordings", "getArtist"
	Key string // ISRC or artist id
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("musicbrainz %s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, key string, err error) error {
	return &Error{Op: op, Key: key, Err: err}
}
