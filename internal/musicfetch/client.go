// Package musicfetch calls the Musicfetch track recognition API.
package musicfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tagview/tagview-server/internal/errors"
)

const (
	// DefaultBaseURL is the public Musicfetch API root.
	DefaultBaseURL = "https://api.musicfetch.io"
	// DefaultTokenHeader carries the API token.
	DefaultTokenHeader = "x-musicfetch-token"

	maxBodyBytes = 8 << 20
)

// Default service lists requested from Musicfetch.
//
//nolint:gochecknoglobals // Read-only defaults
var (
	DefaultISRCServices = []string{"appleMusic", "youtube"}
	DefaultURLServices  = []string{"appleMusic", "youtube", "spotify"}
)

// StatusError reports a non-2xx response from Musicfetch.
type StatusError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "Not Found"
}

func (e *StatusError) Error() string {
	return "Musicfetch API error: " + e.Status
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	Token        string
	TokenHeader  string
	ISRCServices []string
	URLServices  []string
	Timeout      time.Duration // per request, zero disables
}

// Client looks up tracks by ISRC or by streaming-service URL.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Musicfetch client, filling unset config with defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}
	if len(cfg.ISRCServices) == 0 {
		cfg.ISRCServices = DefaultISRCServices
	}
	if len(cfg.URLServices) == 0 {
		cfg.URLServices = DefaultURLServices
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// TrackByISRC looks up a track by its ISRC and returns the upstream JSON.
func (c *Client) TrackByISRC(ctx context.Context, isrc string) (json.RawMessage, error) {
	isrc = strings.TrimSpace(isrc)
	if isrc == "" {
		return nil, errors.Validation("ISRC missing")
	}

	q := url.Values{}
	q.Set("isrc", isrc)
	q.Set("services", strings.Join(c.cfg.ISRCServices, ","))
	return c.get(ctx, "/isrc", q)
}

// TrackByURL looks up a track by a streaming-service link and returns the upstream JSON.
func (c *Client) TrackByURL(ctx context.Context, link string) (json.RawMessage, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, errors.Validation("URL missing")
	}

	q := url.Values{}
	q.Set("url", link)
	q.Set("services", strings.Join(c.cfg.URLServices, ","))
	return c.get(ctx, "/url", q)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	target := c.cfg.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set(c.cfg.TokenHeader, c.cfg.Token)
	}

	c.logger.Debug("musicfetch request", "path", path, "services", q.Get("services"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Upstream("execute request").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: reasonPhrase(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeUpstream, "read %s response", path)
	}
	if !json.Valid(body) {
		return nil, errors.Upstream("parse response: invalid JSON")
	}
	return json.RawMessage(body), nil
}

// reasonPhrase strips the numeric code from resp.Status ("404 Not Found" -> "Not Found").
func reasonPhrase(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strconv.Itoa(resp.StatusCode)
}
