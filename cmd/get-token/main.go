package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	authrouter "github.com/dsmil/auth-router-golang"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "get-token",
		Usage:   "obtain an oauth token through the auth router, using the local cache when possible",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "router-url",
				Value:   authrouter.DefaultRouterURL,
				EnvVars: []string{"AUTH_ROUTER_URL"},
			},
			&cli.StringFlag{
				Name:    "client-name",
				Value:   "default-cli",
				EnvVars: []string{"AUTH_CLIENT_NAME"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				EnvVars: []string{"HOSTNAME", "COMPUTERNAME"},
			},
			&cli.StringFlag{
				Name:    "cache-path",
				Usage:   "explicit cache file location, overriding namespace derivation",
				EnvVars: []string{"AUTH_CACHE_PATH"},
			},
			&cli.StringFlag{
				Name:    "namespace",
				Usage:   "cache namespace; derived from client name and hostname when empty",
				EnvVars: []string{"AUTH_ACCOUNT_NAMESPACE", "AUTH_PROFILE"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Value:   authrouter.DefaultPollInterval,
				EnvVars: []string{"AUTH_POLL_INTERVAL"},
			},
			&cli.DurationFlag{
				Name:    "max-wait",
				Value:   authrouter.DefaultMaxWait,
				EnvVars: []string{"AUTH_MAX_WAIT"},
			},
			&cli.StringSliceFlag{
				Name:  "scope",
				Usage: "requested scope, repeatable; order is preserved",
			},
		},
		Action: run,
	}

	app.RunAndExitOnError()
}

func run(cmd *cli.Context) error {
	client, err := authrouter.NewClient(authrouter.ClientConfig{
		RouterURL:    cmd.String("router-url"),
		ClientName:   cmd.String("client-name"),
		Hostname:     cmd.String("hostname"),
		CachePath:    cmd.String("cache-path"),
		Namespace:    cmd.String("namespace"),
		PollInterval: cmd.Duration("poll-interval"),
		MaxWait:      cmd.Duration("max-wait"),
	}, nil)
	if err != nil {
		return err
	}

	started := time.Now()
	token, err := client.GetToken(cmd.Context, cmd.StringSlice("scope"))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "token obtained in %s\n", time.Since(started).Round(time.Millisecond))

	out, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
