package authrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dsmil/auth-router-golang/internal/helpers"
)

const (
	DefaultRouterURL    = "http://127.0.0.1:7777"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 5 * time.Minute
)

// ClientConfig configures a Client. Zero values fall back to the defaults
// above; Hostname falls back to the machine hostname.
type ClientConfig struct {
	// RouterURL is the base URL of the auth router.
	RouterURL string
	// ClientName is the logical name of this client, stored by the router
	// for audit.
	ClientName string
	Hostname   string
	// CachePath overrides all cache path derivation when set.
	CachePath string
	// Namespace partitions the token cache; when empty the namespace is
	// derived from ClientName and Hostname.
	Namespace string
	// PollInterval is the wait between status polls.
	PollInterval time.Duration
	// MaxWait bounds the total time spent waiting for a terminal status.
	MaxWait time.Duration
}

// Client obtains tokens from the router, caching them on disk so repeated
// calls skip the browser round-trip while the cached token is still valid.
type Client struct {
	h   *http.Client
	cfg ClientConfig
}

func NewClient(cfg ClientConfig, h *http.Client) (*Client, error) {
	if cfg.ClientName == "" {
		return nil, fmt.Errorf("no client name provided")
	}

	if cfg.RouterURL == "" {
		cfg.RouterURL = DefaultRouterURL
	}
	cfg.RouterURL = strings.TrimRight(cfg.RouterURL, "/")

	if cfg.Hostname == "" {
		cfg.Hostname = helpers.Hostname()
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}

	if h == nil {
		h = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &Client{h: h, cfg: cfg}, nil
}

func (c *Client) cachePath() string {
	if c.cfg.CachePath != "" {
		return c.cfg.CachePath
	}

	ns := c.cfg.Namespace
	if ns == "" {
		ns = c.cfg.ClientName + "-" + c.cfg.Hostname
	}

	return DefaultCachePath(ns)
}

// GetToken returns a valid token for the given scopes. A still-valid cached
// token is returned with zero network calls; otherwise a token request is
// created against the router and polled until a terminal status or the
// deadline, and the fresh token is written back to the cache. Terminal
// failures (denial, router error) are never retried.
func (c *Client) GetToken(ctx context.Context, scopes []string) (*TokenBundle, error) {
	path := c.cachePath()

	cached, err := LoadCachedToken(path)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.Valid(time.Now()) {
		return cached, nil
	}

	created, err := c.createTokenRequest(ctx, scopes)
	if err != nil {
		return nil, err
	}

	token, err := c.waitForApproval(ctx, created.RequestID.String())
	if err != nil {
		return nil, err
	}

	if err := SaveToken(path, token); err != nil {
		return nil, err
	}

	return token, nil
}

func (c *Client) createTokenRequest(ctx context.Context, scopes []string) (*CreateTokenResponse, error) {
	body, err := json.Marshal(CreateTokenRequest{
		ClientName: c.cfg.ClientName,
		Hostname:   c.cfg.Hostname,
		Scopes:     scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal create body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.RouterURL+"/v1/token-requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: router returned %d on create", ErrUpstream, resp.StatusCode)
	}

	var created CreateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: could not parse create response: %v", ErrUpstream, err)
	}

	return &created, nil
}

// waitForApproval polls the status endpoint until a terminal state or the
// deadline. A failed poll aborts the whole call; mid-poll HTTP errors are
// never swallowed and retried.
func (c *Client) waitForApproval(ctx context.Context, requestID string) (*TokenBundle, error) {
	statusURL := fmt.Sprintf("%s/v1/token-requests/%s/status", c.cfg.RouterURL, requestID)
	deadline := time.Now().Add(c.cfg.MaxWait)

	for {
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		status, err := c.fetchStatus(ctx, statusURL)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusApproved:
			if status.Token == nil {
				return nil, fmt.Errorf("%w: approved but no token present", ErrRouter)
			}
			return status.Token, nil
		case StatusDenied, StatusCancelled:
			return nil, ErrDenied
		case StatusError:
			msg := "unknown error"
			if status.Error != nil {
				msg = *status.Error
			}
			return nil, fmt.Errorf("%w: %s", ErrRouter, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Client) fetchStatus(ctx context.Context, statusURL string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating status request: %w", err)
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: router returned %d on status", ErrUpstream, resp.StatusCode)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: could not parse status response: %v", ErrUpstream, err)
	}

	return &status, nil
}
