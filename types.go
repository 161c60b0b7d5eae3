package authrouter

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of an authorization request. Valid
// transitions are owned by Lifecycle; everything else treats the status as
// an opaque label.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusApproved   RequestStatus = "approved"
	StatusDenied     RequestStatus = "denied"
	StatusCancelled  RequestStatus = "cancelled"
	StatusError      RequestStatus = "error"
)

// Terminal reports whether no further transition out of the status is valid.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusDenied, StatusCancelled, StatusError:
		return true
	}
	return false
}

// TokenBundle is the credential set issued by the provider on a successful
// exchange. Once issued it is immutable; only the cache layer persists or
// discards it.
type TokenBundle struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken *string    `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	TokenType    string     `json:"token_type"`
	Scope        *string    `json:"scope,omitempty"`
}

// tokenExpiryMargin absorbs clock skew and request latency so a token is
// never handed to a caller moments before the provider would reject it.
const tokenExpiryMargin = 30 * time.Second

// Valid reports whether the bundle is still usable at the given instant. A
// bundle without an expiry is treated as non-expiring.
func (t *TokenBundle) Valid(now time.Time) bool {
	if t.ExpiresAt == nil {
		return true
	}
	return t.ExpiresAt.Add(-tokenExpiryMargin).After(now)
}

// AuthRequest is one authorization attempt, tracked from creation to a
// terminal outcome. ClientName and Hostname are stored verbatim and used
// only for audit.
type AuthRequest struct {
	ID         uuid.UUID     `json:"id"`
	ClientName string        `json:"client_name"`
	Hostname   string        `json:"hostname"`
	Scopes     []string      `json:"scopes"`
	Status     RequestStatus `json:"status"`
	AccountID  *uint32       `json:"account_id,omitempty"`
	Token      *TokenBundle  `json:"token,omitempty"`
	Error      *string       `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewAuthRequest allocates a pending request with a fresh random id.
func NewAuthRequest(clientName, hostname string, scopes []string) AuthRequest {
	now := time.Now().UTC()
	return AuthRequest{
		ID:         uuid.New(),
		ClientName: clientName,
		Hostname:   hostname,
		Scopes:     scopes,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Wire shapes shared by the router handlers and the client. Required fields
// are validated at the HTTP boundary, not silently defaulted.

type CreateTokenRequest struct {
	ClientName string   `json:"client_name"`
	Hostname   string   `json:"hostname"`
	Scopes     []string `json:"scopes"`
}

type CreateTokenResponse struct {
	RequestID uuid.UUID     `json:"request_id"`
	Status    RequestStatus `json:"status"`
}

type StatusResponse struct {
	RequestID uuid.UUID     `json:"request_id"`
	Status    RequestStatus `json:"status"`
	Token     *TokenBundle  `json:"token,omitempty"`
	Error     *string       `json:"error,omitempty"`
}

type SelectAccountRequest struct {
	AccountID uint32 `json:"account_id"`
}

type SelectAccountResponse struct {
	RequestID uuid.UUID     `json:"request_id"`
	Status    RequestStatus `json:"status"`
	AccountID uint32        `json:"account_id"`
	Error     *string       `json:"error,omitempty"`
}
