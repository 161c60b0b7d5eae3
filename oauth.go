package authrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExchangeConfig carries the provider-side OAuth settings.
type ExchangeConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURI  string
}

// Exchange is the stateless protocol half of the router: it builds provider
// authorization URLs and swaps authorization codes for tokens. It holds no
// request state of its own.
type Exchange struct {
	h   *http.Client
	cfg ExchangeConfig
}

func NewExchange(cfg ExchangeConfig, h *http.Client) *Exchange {
	if h == nil {
		h = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &Exchange{
		h:   h,
		cfg: cfg,
	}
}

// BuildAuthURL constructs the provider authorization endpoint URL. The state
// parameter is the request id's canonical string form: it is the only
// binding between the provider's eventual callback and the pending request.
// Scopes are joined by a single space in stored order.
func (x *Exchange) BuildAuthURL(state uuid.UUID, scopes []string) (string, error) {
	u, err := url.Parse(x.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAuthURL, err)
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", x.cfg.ClientID)
	q.Set("redirect_uri", x.cfg.RedirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", state.String())
	// percent-encode spaces; Encode escapes literal '+' so this only touches
	// encoded spaces
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")

	return u.String(), nil
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	ExpiresIn    *int64  `json:"expires_in"`
	TokenType    string  `json:"token_type"`
	Scope        *string `json:"scope"`
}

// ExchangeCode performs an authorization_code grant against the provider's
// token endpoint and maps the response into a TokenBundle. When the provider
// supplies a lifetime in seconds, expires_at is computed from it; otherwise
// the bundle carries no expiry and is treated as non-expiring downstream.
func (x *Exchange) ExchangeCode(ctx context.Context, code string) (*TokenBundle, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {x.cfg.ClientID},
		"client_secret": {x.cfg.ClientSecret},
		"redirect_uri":  {x.cfg.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", x.cfg.TokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating token exchange request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := x.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: token endpoint returned %d", ErrExchange, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: could not decode token response: %v", ErrExchange, err)
	}

	var expiresAt *time.Time
	if token.ExpiresIn != nil {
		t := time.Now().UTC().Add(time.Duration(*token.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    tokenType,
		Scope:        token.Scope,
	}, nil
}
