// Package musicbrainz is a small read-only client for the MusicBrainz web service.
package musicbrainz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tagview/tagview-server/internal/errors"
)

const (
	// DefaultBaseURL is the public MusicBrainz web service root.
	DefaultBaseURL = "https://musicbrainz.org/ws/2"

	// MusicBrainz asks anonymous clients for roughly one request per second.
	defaultRate  = time.Second
	defaultBurst = 5

	maxBodyBytes = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Rate      time.Duration // minimum spacing between requests
	Burst     int
	Timeout   time.Duration // per request, zero disables
}

// Client provides access to MusicBrainz recording and artist lookups.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a rate limited MusicBrainz client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Rate <= 0 {
		cfg.Rate = defaultRate
	}
	if cfg.Burst < 1 {
		cfg.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(cfg.Rate), cfg.Burst),
		logger:      logger,
	}
}

// Close drops idle upstream connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// get issues a rate limited GET for path?rawQuery and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path, rawQuery string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	target := c.baseURL + path + "?" + rawQuery
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("musicbrainz request", "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Upstream("execute request").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeUpstream, "read %s response", path)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
