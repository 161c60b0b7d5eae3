package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"

	"github.com/dsmil/auth-router-golang/internal/helpers"
)

// mock-provider is a self-contained OAuth provider for local development of
// the router: an authorize page with approve/deny buttons, a token endpoint
// issuing ES256-signed JWTs, and a jwks endpoint publishing the signing key.

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "mock-provider",
		Usage:   "local development oauth provider for testing the auth router end to end",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bind-addr",
				Value:   "127.0.0.1:7790",
				EnvVars: []string{"MOCK_PROVIDER_BIND_ADDR"},
			},
			&cli.StringFlag{
				Name:    "client-id",
				Value:   "dev-client",
				EnvVars: []string{"MOCK_PROVIDER_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Value:   "dev-secret",
				EnvVars: []string{"MOCK_PROVIDER_CLIENT_SECRET"},
			},
			&cli.StringFlag{
				Name:    "issuer",
				Value:   "http://127.0.0.1:7790",
				EnvVars: []string{"MOCK_PROVIDER_ISSUER"},
			},
			&cli.DurationFlag{
				Name:  "token-ttl",
				Value: time.Hour,
			},
		},
		Action: run,
	}

	app.RunAndExitOnError()
}

type pendingCode struct {
	scope     string
	expiresAt time.Time
}

type Provider struct {
	mu    sync.Mutex
	codes map[string]pendingCode

	signingKey   jwk.Key
	clientID     string
	clientSecret string
	issuer       string
	tokenTTL     time.Duration
	logger       *slog.Logger
}

func run(cmd *cli.Context) error {
	logger := slog.Default()

	key, err := generateKey("mock-provider")
	if err != nil {
		return fmt.Errorf("could not generate signing key: %w", err)
	}

	p := &Provider{
		codes:        make(map[string]pendingCode),
		signingKey:   key,
		clientID:     cmd.String("client-id"),
		clientSecret: cmd.String("client-secret"),
		issuer:       cmd.String("issuer"),
		tokenTTL:     cmd.Duration("token-ttl"),
		logger:       logger,
	}

	cookieSecret, err := helpers.GenerateToken(32)
	if err != nil {
		return err
	}

	e := echo.New()
	e.Use(slogecho.New(logger))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cookieSecret))))

	e.GET("/authorize", p.handleAuthorize)
	e.POST("/decision", p.handleDecision)
	e.POST("/token", p.handleToken)
	e.GET("/jwks.json", p.handleJwks)

	httpd := http.Server{
		Addr:    cmd.String("bind-addr"),
		Handler: e,
	}

	logger.Info("mock provider listening", "addr", httpd.Addr)

	if err := httpd.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func generateKey(kidPrefix string) (jwk.Key, error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	key, err := jwk.FromRaw(privKey)
	if err != nil {
		return nil, err
	}

	kid := fmt.Sprintf("%s-%d", kidPrefix, time.Now().Unix())
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}

	return key, nil
}
