package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Started    string                     `json:"started" doc:"When the server started, relative to now"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// sessionCounter is implemented by viewers that can report their session count.
type sessionCounter interface {
	SessionCount() int
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"sessions":    s.checkSessions(),
		"recognition": s.checkRecognizer(),
	}

	overall := "healthy"
	for _, c := range components {
		if c.Status == "unhealthy" {
			overall = "unhealthy"
			break
		}
		if c.Status == "degraded" {
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Started:    humanize.Time(s.started),
			Components: components,
		},
	}, nil
}

func (s *Server) checkSessions() ComponentHealth {
	if s.viewer == nil {
		return ComponentHealth{Status: "unhealthy", Message: "viewer not configured"}
	}
	counter, ok := s.viewer.(sessionCounter)
	if !ok {
		return ComponentHealth{Status: "healthy"}
	}
	return ComponentHealth{Status: "healthy", Message: formatSessions(counter.SessionCount())}
}

func (s *Server) checkRecognizer() ComponentHealth {
	if s.recognizer == nil {
		return ComponentHealth{Status: "degraded", Message: "recognition gateway not configured"}
	}
	return ComponentHealth{Status: "healthy"}
}

func formatSessions(n int) string {
	if n == 1 {
		return "1 active session"
	}
	return humanize.Comma(int64(n)) + " active sessions"
}
