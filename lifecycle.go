package authrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle owns the request state machine:
//
//	Pending → InProgress → {Approved, Error}
//	Pending/InProgress → {Denied, Cancelled}
//
// Approved, Denied, Cancelled and Error are terminal. All mutation of stored
// requests goes through here. Network round-trips (the provider exchange and
// the control surface notification) happen between the store read and the
// store write, never under the store's lock, so two requests can be
// mid-exchange at the same time.
type Lifecycle struct {
	store   *Store
	oauth   *Exchange
	control Notifier
}

func NewLifecycle(store *Store, oauth *Exchange, control Notifier) *Lifecycle {
	return &Lifecycle{
		store:   store,
		oauth:   oauth,
		control: control,
	}
}

// Create allocates a new pending request. Nothing reaches the provider yet;
// that only happens on account selection.
func (l *Lifecycle) Create(clientName, hostname string, scopes []string) AuthRequest {
	req := NewAuthRequest(clientName, hostname, scopes)
	l.store.Insert(req)
	return req
}

// Status returns a snapshot of the request, or ErrNotFound.
func (l *Lifecycle) Status(id uuid.UUID) (AuthRequest, error) {
	req, ok := l.store.Get(id)
	if !ok {
		return AuthRequest{}, ErrNotFound
	}
	return req, nil
}

// SelectAccount moves the request to InProgress, records the account, builds
// the authorization URL and asks the control surface to display it. A URL or
// notifier failure transitions the request to Error and is also returned, so
// the caller is never left with a silently stuck request.
func (l *Lifecycle) SelectAccount(ctx context.Context, id uuid.UUID, accountID uint32) (AuthRequest, error) {
	req, ok := l.store.Get(id)
	if !ok {
		return AuthRequest{}, ErrNotFound
	}

	if req.Status.Terminal() {
		return req, fmt.Errorf("%w: status is %s", ErrTerminal, req.Status)
	}

	req.Status = StatusInProgress
	req.AccountID = &accountID
	req.Error = nil
	req.UpdatedAt = time.Now().UTC()

	authURL, err := l.oauth.BuildAuthURL(req.ID, req.Scopes)
	if err == nil {
		err = l.control.OpenAuthURL(ctx, accountID, authURL)
	}

	if err != nil {
		msg := err.Error()
		req.Status = StatusError
		req.Error = &msg
		req.UpdatedAt = time.Now().UTC()
	}

	l.store.Update(req)
	return req, err
}

// HandleCallback processes the provider redirect for the given request. The
// caller has already decoded the state parameter into an id; an unknown id
// is rejected without touching any record, and a request that already
// reached a terminal state is not overwritten by a replayed callback. On
// exchange success the request becomes Approved with the token attached and
// any prior error cleared; on exchange failure it becomes Error with the
// failure message, and the exchange error is returned.
func (l *Lifecycle) HandleCallback(ctx context.Context, id uuid.UUID, code string) (AuthRequest, error) {
	req, ok := l.store.Get(id)
	if !ok {
		return AuthRequest{}, ErrNotFound
	}

	if req.Status.Terminal() {
		return req, fmt.Errorf("%w: status is %s", ErrTerminal, req.Status)
	}

	token, err := l.oauth.ExchangeCode(ctx, code)
	if err != nil {
		msg := err.Error()
		req.Status = StatusError
		req.Token = nil
		req.Error = &msg
		req.UpdatedAt = time.Now().UTC()
		l.store.Update(req)
		return req, err
	}

	req.Status = StatusApproved
	req.Token = token
	req.Error = nil
	req.UpdatedAt = time.Now().UTC()
	l.store.Update(req)
	return req, nil
}

// Cancel marks the request cancelled by its originating caller.
func (l *Lifecycle) Cancel(id uuid.UUID) (AuthRequest, error) {
	return l.finish(id, StatusCancelled)
}

// Deny marks the request rejected by the user at the control surface.
func (l *Lifecycle) Deny(id uuid.UUID) (AuthRequest, error) {
	return l.finish(id, StatusDenied)
}

func (l *Lifecycle) finish(id uuid.UUID, status RequestStatus) (AuthRequest, error) {
	req, ok := l.store.Get(id)
	if !ok {
		return AuthRequest{}, ErrNotFound
	}

	if req.Status.Terminal() {
		return req, fmt.Errorf("%w: status is %s", ErrTerminal, req.Status)
	}

	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	l.store.Update(req)
	return req, nil
}
