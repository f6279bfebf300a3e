package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeUnsupported, http.StatusUnprocessableEntity},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUpstream, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Validation("ISRC missing")

	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrNotFound))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, Is(wrapped, ErrValidation))
}

func TestError_WithCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Upstream("catalog search failed").WithCause(cause)

	assert.Equal(t, "catalog search failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestError_WithDetailsKeepsCode(t *testing.T) {
	err := ValidationWithDetails("validation failed", map[string]string{"url": "is required"})
	withMore := err.WithDetails("other")

	assert.Equal(t, CodeValidation, withMore.Code)
	assert.Equal(t, "other", withMore.Details)
	assert.Equal(t, map[string]string{"url": "is required"}, err.Details)
}

func TestWrapf(t *testing.T) {
	cause := stderrors.New("bad header")
	err := Wrapf(cause, CodeUnsupported, "cannot read tags from %s", "song.xyz")

	assert.Equal(t, "cannot read tags from song.xyz: bad header", err.Error())
	assert.True(t, Is(err, ErrUnsupported))
}
