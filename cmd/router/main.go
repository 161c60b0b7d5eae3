package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	authrouter "github.com/dsmil/auth-router-golang"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "auth-router",
		Usage:   "brokers oauth authorization for clients that cannot host a redirect flow",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bind-addr",
				Value:   "127.0.0.1:7777",
				EnvVars: []string{"ROUTER_BIND_ADDR"},
			},
			&cli.StringFlag{
				Name:    "oauth-client-id",
				EnvVars: []string{"OAUTH_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "oauth-client-secret",
				EnvVars: []string{"OAUTH_CLIENT_SECRET"},
			},
			&cli.StringFlag{
				Name:    "oauth-auth-url",
				EnvVars: []string{"OAUTH_AUTH_URL"},
			},
			&cli.StringFlag{
				Name:    "oauth-token-url",
				EnvVars: []string{"OAUTH_TOKEN_URL"},
			},
			&cli.StringFlag{
				Name:    "oauth-redirect-uri",
				Value:   "http://127.0.0.1:7777/oauth/callback",
				EnvVars: []string{"OAUTH_REDIRECT_URI"},
			},
			&cli.StringFlag{
				Name:    "control-browser-url",
				Value:   "http://127.0.0.1:7780",
				EnvVars: []string{"CONTROL_BROWSER_URL"},
			},
			&cli.StringFlag{
				Name:    "audit-db",
				Usage:   "path to a sqlite file for the audit trail; empty disables auditing",
				EnvVars: []string{"ROUTER_AUDIT_DB"},
			},
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "evict terminal requests older than this; 0 retains everything for the process lifetime",
				EnvVars: []string{"ROUTER_RETENTION"},
			},
		},
		Action: run,
	}

	app.RunAndExitOnError()
}

func run(cmd *cli.Context) error {
	logger := slog.Default()

	store := authrouter.NewStore()
	exchange := authrouter.NewExchange(authrouter.ExchangeConfig{
		ClientID:     cmd.String("oauth-client-id"),
		ClientSecret: cmd.String("oauth-client-secret"),
		AuthURL:      cmd.String("oauth-auth-url"),
		TokenURL:     cmd.String("oauth-token-url"),
		RedirectURI:  cmd.String("oauth-redirect-uri"),
	}, nil)
	control := authrouter.NewControlClient(cmd.String("control-browser-url"), nil)

	var audit *auditLog
	if path := cmd.String("audit-db"); path != "" {
		var err error
		audit, err = newAuditLog(path, logger)
		if err != nil {
			return fmt.Errorf("could not open audit db: %w", err)
		}
	}

	srv := &Server{
		store:     store,
		lifecycle: authrouter.NewLifecycle(store, exchange, control),
		audit:     audit,
		logger:    logger,
	}

	if retention := cmd.Duration("retention"); retention > 0 {
		go srv.runJanitor(retention, time.Minute)
	}

	httpd := http.Server{
		Addr:    cmd.String("bind-addr"),
		Handler: srv.echo(),
	}

	logger.Info("auth router listening", "addr", httpd.Addr)

	if err := httpd.ListenAndServe(); err != nil {
		return err
	}

	return nil
}
