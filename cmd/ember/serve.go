package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ember/internal/api"
	"github.com/samcharles93/ember/internal/inference"
	"github.com/samcharles93/ember/internal/model"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat completions REST API",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr)

			log := newLogger()

			modelDir, err := resolveModelDir(modelArg, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
			}

			host, tok, err := model.Open(backend, modelDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}

			client, err := inference.NewClient(inference.ClientConfig{
				Host:      host,
				Tokenizer: tok,
				Logger:    log,
			})
			if err != nil {
				_ = host.Close()
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = client.Close() }()

			modelsDir, _ := resolveModelsDir(modelsPath)
			provider := &api.SingleEngineProvider{
				Name:     modelDisplayName(modelsDir, modelDir),
				Engine:   client,
				Defaults: client.Defaults(),
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(provider, log).Register(e)

			log.Info("starting server", "address", addr, "model", provider.Name)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
