package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagview/tagview-server/internal/errors"
	"github.com/tagview/tagview-server/internal/tags"
	"github.com/tagview/tagview-server/internal/viewer"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create session",
		Description:   "Starts an empty viewer session",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns the current view state, including lookups still in flight",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:     "submitFile",
		Method:          http.MethodPut,
		Path:            "/api/v1/sessions/{id}/file",
		Summary:         "Submit audio file",
		Description:     "Parses the uploaded file's tags and starts catalog lookups when an ISRC is found",
		Tags:            []string{"Sessions"},
		MaxBodyBytes:    s.maxUploadBytes,
		BodyReadTimeout: -1,
		Middlewares:     huma.Middlewares{s.submitRateLimit},
	}, s.handleSubmitFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitURL",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/url",
		Summary:     "Submit streaming link",
		Description: "Looks the track up by streaming-service link instead of by file",
		Tags:        []string{"Sessions"},
		Middlewares: huma.Middlewares{s.submitRateLimit},
	}, s.handleSubmitURL)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateView",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sessions/{id}/view",
		Summary:     "Update view",
		Description: "Switches the active tab and toggles JSON panels",
		Tags:        []string{"Sessions"},
	}, s.handleUpdateView)
}

// === DTOs ===

// SessionResponse contains a session's id and view state.
type SessionResponse struct {
	ID    string       `json:"id" doc:"Session ID"`
	State viewer.State `json:"state" doc:"Current view state"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// GetSessionInput contains parameters for getting a session.
type GetSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// SubmitFileInput carries a raw audio upload.
type SubmitFileInput struct {
	ID           string `path:"id" doc:"Session ID"`
	Name         string `query:"name" required:"true" minLength:"1" maxLength:"1024" doc:"Original file name"`
	LastModified int64  `query:"lastModified" doc:"Last-modified time, Unix milliseconds"`
	ContentType  string `header:"Content-Type" doc:"MIME type reported by the client"`
	RawBody      []byte `contentType:"application/octet-stream"`
}

// SubmitURLRequest is the request body for a link submission.
type SubmitURLRequest struct {
	URL string `json:"url" validate:"max=2048" doc:"Streaming-service track link"`
}

// SubmitURLInput wraps the link submission for Huma.
type SubmitURLInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body SubmitURLRequest
}

// UpdateViewRequest is the request body for view changes. Both fields are optional.
type UpdateViewRequest struct {
	Tab         *string `json:"tab,omitempty" validate:"omitempty,oneof=default musicfetch" doc:"Tab to activate"`
	TogglePanel *string `json:"toggle,omitempty" validate:"omitempty,panel" doc:"Panel to flip between JSON and text"`
}

// UpdateViewInput wraps the view update for Huma.
type UpdateViewInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body UpdateViewRequest
}

// === Handlers ===

func (s *Server) handleCreateSession(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	id, state, err := s.viewer.CreateSession()
	if err != nil {
		return nil, err
	}
	return sessionOutput(id, state), nil
}

func (s *Server) handleGetSession(_ context.Context, input *GetSessionInput) (*SessionOutput, error) {
	state, err := s.viewer.Snapshot(input.ID)
	if err != nil {
		return nil, err
	}
	return sessionOutput(input.ID, state), nil
}

func (s *Server) handleSubmitFile(ctx context.Context, input *SubmitFileInput) (*SessionOutput, error) {
	up := tags.Upload{
		Name:     input.Name,
		MIMEType: input.ContentType,
		Body:     bytes.NewReader(input.RawBody),
	}
	if input.LastModified > 0 {
		up.LastModified = time.UnixMilli(input.LastModified)
	}

	state, err := s.viewer.SubmitFile(ctx, input.ID, up)
	if err != nil {
		// The parse error is also kept in the session state.
		return nil, err
	}
	return sessionOutput(input.ID, state), nil
}

func (s *Server) handleSubmitURL(ctx context.Context, input *SubmitURLInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	state, err := s.viewer.SubmitURL(ctx, input.ID, input.Body.URL)
	if err != nil {
		return nil, err
	}
	return sessionOutput(input.ID, state), nil
}

func (s *Server) handleUpdateView(_ context.Context, input *UpdateViewInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if input.Body.Tab == nil && input.Body.TogglePanel == nil {
		return nil, errors.Validation("nothing to update")
	}

	var (
		state viewer.State
		err   error
	)
	if input.Body.Tab != nil {
		if state, err = s.viewer.SelectTab(input.ID, viewer.Tab(*input.Body.Tab)); err != nil {
			return nil, err
		}
	}
	if input.Body.TogglePanel != nil {
		if state, err = s.viewer.TogglePanel(input.ID, *input.Body.TogglePanel); err != nil {
			return nil, err
		}
	}
	return sessionOutput(input.ID, state), nil
}

func sessionOutput(id string, state viewer.State) *SessionOutput {
	return &SessionOutput{Body: SessionResponse{ID: id, State: state}}
}
