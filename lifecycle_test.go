package authrouter

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture wires a lifecycle against httptest stand-ins for the provider's
// token endpoint and the control browser.
type fixture struct {
	lifecycle *Lifecycle
	store     *Store

	controlCalls *[]url.Values
}

func newFixture(t *testing.T, providerHandler, controlHandler http.HandlerFunc) *fixture {
	t.Helper()

	if providerHandler == nil {
		providerHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"at-ok","expires_in":3600,"token_type":"Bearer"}`))
		}
	}

	calls := &[]url.Values{}
	if controlHandler == nil {
		controlHandler = func(w http.ResponseWriter, r *http.Request) {
			*calls = append(*calls, r.URL.Query())
			w.Write([]byte(`{"status":"ok"}`))
		}
	}

	provider := httptest.NewServer(providerHandler)
	t.Cleanup(provider.Close)
	control := httptest.NewServer(controlHandler)
	t.Cleanup(control.Close)

	store := NewStore()
	exchange := NewExchange(ExchangeConfig{
		ClientID:     "my-client",
		ClientSecret: "my-secret",
		AuthURL:      "https://provider.example.com/authorize",
		TokenURL:     provider.URL,
		RedirectURI:  "http://127.0.0.1:7777/oauth/callback",
	}, nil)

	return &fixture{
		lifecycle:    NewLifecycle(store, exchange, NewControlClient(control.URL, nil)),
		store:        store,
		controlCalls: calls,
	}
}

func TestCreateIsPendingWithUniqueIds(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(t, nil, nil)

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 100; i++ {
		req := f.lifecycle.Create("cli", "host", []string{"read"})
		assert.Equal(StatusPending, req.Status)
		assert.False(seen[req.ID])
		seen[req.ID] = true
	}
	assert.Equal(100, f.store.Len())
}

func TestSelectAccountHappyPath(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, nil, nil)
	req := f.lifecycle.Create("cli", "host", []string{"read", "write"})

	got, err := f.lifecycle.SelectAccount(ctx, req.ID, 2)
	require.NoError(err)

	assert.Equal(StatusInProgress, got.Status)
	require.NotNil(got.AccountID)
	assert.Equal(uint32(2), *got.AccountID)

	require.Len(*f.controlCalls, 1)
	call := (*f.controlCalls)[0]
	assert.Equal("2", call.Get("account_id"))

	authURL, err := url.Parse(call.Get("auth_url"))
	require.NoError(err)
	assert.Equal("read write", authURL.Query().Get("scope"))
	assert.Equal(req.ID.String(), authURL.Query().Get("state"))
}

func TestSelectAccountUnknownIdDoesNotMutate(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(t, nil, nil)
	req := f.lifecycle.Create("cli", "host", nil)

	_, err := f.lifecycle.SelectAccount(ctx, uuid.New(), 1)
	assert.ErrorIs(err, ErrNotFound)

	got, err := f.lifecycle.Status(req.ID)
	assert.NoError(err)
	assert.Equal(StatusPending, got.Status)
	assert.Empty(*f.controlCalls)
}

func TestSelectAccountNotifierFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	req := f.lifecycle.Create("cli", "host", nil)

	got, err := f.lifecycle.SelectAccount(ctx, req.ID, 1)
	require.Error(err)

	assert.Equal(StatusError, got.Status)
	require.NotNil(got.Error)
	assert.NotEmpty(*got.Error)
	assert.Nil(got.Token)

	// the failure is visible via status too, not silently stuck
	stored, err := f.lifecycle.Status(req.ID)
	require.NoError(err)
	assert.Equal(StatusError, stored.Status)
}

func TestSelectAccountBadAuthURL(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(t, nil, nil)
	f.lifecycle.oauth.cfg.AuthURL = "://bad"
	req := f.lifecycle.Create("cli", "host", nil)

	got, err := f.lifecycle.SelectAccount(ctx, req.ID, 1)
	assert.ErrorIs(err, ErrInvalidAuthURL)
	assert.Equal(StatusError, got.Status)
	assert.Empty(*f.controlCalls)
}

func TestHandleCallbackApproves(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, nil, nil)
	req := f.lifecycle.Create("cli", "host", []string{"read"})
	_, err := f.lifecycle.SelectAccount(ctx, req.ID, 1)
	require.NoError(err)

	got, err := f.lifecycle.HandleCallback(ctx, req.ID, "the-code")
	require.NoError(err)

	assert.Equal(StatusApproved, got.Status)
	require.NotNil(got.Token)
	assert.Equal("at-ok", got.Token.AccessToken)
	assert.Nil(got.Error)
}

func TestHandleCallbackUnknownStateDoesNotMutate(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(t, nil, nil)
	req := f.lifecycle.Create("cli", "host", nil)

	_, err := f.lifecycle.HandleCallback(ctx, uuid.New(), "the-code")
	assert.ErrorIs(err, ErrNotFound)

	got, _ := f.lifecycle.Status(req.ID)
	assert.Equal(StatusPending, got.Status)
	assert.Nil(got.Token)
}

func TestHandleCallbackExchangeFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	}, nil)
	req := f.lifecycle.Create("cli", "host", nil)

	got, err := f.lifecycle.HandleCallback(ctx, req.ID, "bad-code")
	assert.ErrorIs(err, ErrExchange)

	assert.Equal(StatusError, got.Status)
	require.NotNil(got.Error)
	assert.NotEmpty(*got.Error)
	assert.Nil(got.Token)
}

func TestHandleCallbackRejectedOnTerminalRequest(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, nil, nil)
	req := f.lifecycle.Create("cli", "host", nil)

	first, err := f.lifecycle.HandleCallback(ctx, req.ID, "the-code")
	require.NoError(err)
	require.Equal(StatusApproved, first.Status)

	_, err = f.lifecycle.HandleCallback(ctx, req.ID, "replayed-code")
	assert.ErrorIs(err, ErrTerminal)

	got, _ := f.lifecycle.Status(req.ID)
	assert.Equal(StatusApproved, got.Status)
	assert.Equal(first.Token, got.Token)
}

func TestCancelAndDeny(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newFixture(t, nil, nil)

	req := f.lifecycle.Create("cli", "host", nil)
	got, err := f.lifecycle.Cancel(req.ID)
	require.NoError(err)
	assert.Equal(StatusCancelled, got.Status)

	// terminal: no further transition
	_, err = f.lifecycle.Deny(req.ID)
	assert.ErrorIs(err, ErrTerminal)

	other := f.lifecycle.Create("cli", "host", nil)
	_, err = f.lifecycle.SelectAccount(ctx, other.ID, 1)
	require.NoError(err)
	got, err = f.lifecycle.Deny(other.ID)
	require.NoError(err)
	assert.Equal(StatusDenied, got.Status)

	_, err = f.lifecycle.Cancel(uuid.New())
	assert.ErrorIs(err, ErrNotFound)
}

// For all reachable states: Approved carries a token and no error, Error
// carries an error and no token.
func TestApprovedAndErrorInvariants(t *testing.T) {
	require := require.New(t)

	ok := newFixture(t, nil, nil)
	req := ok.lifecycle.Create("cli", "host", nil)
	got, err := ok.lifecycle.HandleCallback(ctx, req.ID, "code")
	require.NoError(err)
	require.Equal(StatusApproved, got.Status)
	require.NotNil(got.Token)
	require.NotEmpty(got.Token.AccessToken)
	require.Nil(got.Error)

	bad := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}, nil)
	req = bad.lifecycle.Create("cli", "host", nil)
	got, err = bad.lifecycle.HandleCallback(ctx, req.ID, "code")
	require.Error(err)
	require.Equal(StatusError, got.Status)
	require.NotNil(got.Error)
	require.NotEmpty(*got.Error)
	require.Nil(got.Token)
}
