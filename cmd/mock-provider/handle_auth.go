package main

import (
	"crypto/ecdsa"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/dsmil/auth-router-golang/internal/helpers"
)

func (p *Provider) handleAuthorize(e echo.Context) error {
	clientID := e.QueryParam("client_id")
	redirectURI := e.QueryParam("redirect_uri")
	state := e.QueryParam("state")
	scope := e.QueryParam("scope")

	if e.QueryParam("response_type") != "code" {
		return e.String(http.StatusBadRequest, "unsupported_response_type")
	}

	if clientID != p.clientID {
		return e.String(http.StatusBadRequest, "unknown_client")
	}

	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return e.String(http.StatusBadRequest, "invalid_redirect_uri")
	}

	// The pending authorization rides a short-lived cookie session between
	// this page and the decision submit.
	sess, err := session.Get("session", e)
	if err != nil {
		return err
	}

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	}

	sess.Values = map[interface{}]interface{}{}
	sess.Values["redirect_uri"] = redirectURI
	sess.Values["state"] = state
	sess.Values["scope"] = scope

	if err := sess.Save(e.Request(), e.Response()); err != nil {
		return err
	}

	page := fmt.Sprintf(`<html><body>
<h1>Mock Provider</h1>
<p>%s is requesting scope: <code>%s</code></p>
<form method="post" action="/decision">
<button name="choice" value="approve">Approve</button>
<button name="choice" value="deny">Deny</button>
</form>
</body></html>`, html.EscapeString(clientID), html.EscapeString(scope))

	return e.HTML(http.StatusOK, page)
}

func (p *Provider) handleDecision(e echo.Context) error {
	sess, err := session.Get("session", e)
	if err != nil {
		return err
	}

	redirectURI, _ := sess.Values["redirect_uri"].(string)
	state, _ := sess.Values["state"].(string)
	scope, _ := sess.Values["scope"].(string)

	if redirectURI == "" {
		return e.String(http.StatusBadRequest, "no pending authorization")
	}

	u, err := url.Parse(redirectURI)
	if err != nil {
		return e.String(http.StatusBadRequest, "invalid_redirect_uri")
	}

	q := u.Query()
	if state != "" {
		q.Set("state", state)
	}

	if e.FormValue("choice") != "approve" {
		q.Set("error", "access_denied")
		u.RawQuery = q.Encode()
		return e.Redirect(http.StatusFound, u.String())
	}

	code, err := helpers.GenerateToken(24)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.codes[code] = pendingCode{
		scope:     scope,
		expiresAt: time.Now().Add(5 * time.Minute),
	}
	p.mu.Unlock()

	q.Set("code", code)
	u.RawQuery = q.Encode()
	return e.Redirect(http.StatusFound, u.String())
}

type tokenResponseBody struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

func (p *Provider) handleToken(e echo.Context) error {
	if e.FormValue("grant_type") != "authorization_code" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}

	if e.FormValue("client_id") != p.clientID || e.FormValue("client_secret") != p.clientSecret {
		return e.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
	}

	code := e.FormValue("code")

	p.mu.Lock()
	pending, ok := p.codes[code]
	delete(p.codes, code) // single use
	p.mu.Unlock()

	if !ok || time.Now().After(pending.expiresAt) {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
	}

	accessToken, err := p.signAccessToken(pending.scope)
	if err != nil {
		return err
	}

	refreshToken, err := helpers.GenerateToken(24)
	if err != nil {
		return err
	}

	return e.JSON(http.StatusOK, tokenResponseBody{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.tokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        pending.scope,
	})
}

func (p *Provider) signAccessToken(scope string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.issuer,
		"sub":   "mock-account",
		"aud":   p.clientID,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(p.tokenTTL).Unix(),
		"scope": scope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = p.signingKey.KeyID()

	var pkey ecdsa.PrivateKey
	if err := p.signingKey.Raw(&pkey); err != nil {
		return "", err
	}

	return token.SignedString(&pkey)
}

type jwksResponse struct {
	Keys []jwk.Key `json:"keys"`
}

func (p *Provider) handleJwks(e echo.Context) error {
	pub, err := p.signingKey.PublicKey()
	if err != nil {
		return err
	}

	return e.JSON(http.StatusOK, jwksResponse{Keys: []jwk.Key{pub}})
}
