package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagview/tagview-server/internal/romanize"
)

func (s *Server) registerRomanizeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "romanize",
		Method:      http.MethodGet,
		Path:        "/api/v1/romanize",
		Summary:     "Romanize text",
		Description: "Transliterates Hangul syllables with Revised Romanization; other text passes through",
		Tags:        []string{"Romanize"},
	}, s.handleRomanize)
}

// RomanizeInput contains the text to romanize.
type RomanizeInput struct {
	Text string `query:"text" required:"true" maxLength:"4096" doc:"Text to romanize"`
}

// RomanizeResponse contains the romanized text.
type RomanizeResponse struct {
	Text      string `json:"text" doc:"Input text"`
	Romanized string `json:"romanized" doc:"Romanized text"`
	HasHangul bool   `json:"hangul" doc:"Whether the input contained Hangul"`
}

// RomanizeOutput wraps the romanize response for Huma.
type RomanizeOutput struct {
	Body RomanizeResponse
}

func (s *Server) handleRomanize(_ context.Context, input *RomanizeInput) (*RomanizeOutput, error) {
	return &RomanizeOutput{
		Body: RomanizeResponse{
			Text:      input.Text,
			Romanized: romanize.Romanize(input.Text),
			HasHangul: romanize.HasHangul(input.Text),
		},
	}, nil
}
