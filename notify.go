package authrouter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Notifier is the contract with the external browser control surface: given
// an account and an authorization URL, display it to the user. The router
// consumes no response payload.
type Notifier interface {
	OpenAuthURL(ctx context.Context, accountID uint32, authURL string) error
}

// ControlClient talks to the control browser's HTTP surface.
type ControlClient struct {
	h       *http.Client
	baseURL string
}

func NewControlClient(baseURL string, h *http.Client) *ControlClient {
	if h == nil {
		h = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &ControlClient{
		h:       h,
		baseURL: baseURL,
	}
}

func (c *ControlClient) OpenAuthURL(ctx context.Context, accountID uint32, authURL string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid control browser url: %w", err)
	}

	u.Path = "/open-auth"
	q := u.Query()
	q.Set("account_id", strconv.FormatUint(uint64(accountID), 10))
	q.Set("auth_url", authURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return fmt.Errorf("error creating open-auth request: %w", err)
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: control browser returned %d", ErrUpstream, resp.StatusCode)
	}

	return nil
}
