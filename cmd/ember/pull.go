package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ember/internal/hub"
)

func pullCmd() *cli.Command {
	var endpoint string

	return &cli.Command{
		Name:      "pull",
		Usage:     "Download a model snapshot into the local cache",
		ArgsUsage: "<model-id>",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "endpoint",
				Usage:       "hub endpoint URL",
				Destination: &endpoint,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			if cfg.HubEndpoint != "" && !cmd.IsSet("endpoint") {
				endpoint = cfg.HubEndpoint
			}

			log := newLogger()

			modelID := cmd.Args().First()
			if modelID == "" {
				modelID = modelArg
			}
			if modelID == "" {
				return cli.Exit("error: a model id is required (e.g. ember pull fnlp/moss-moon-003-sft)", 1)
			}

			cacheDir, err := resolveModelsDir(modelsPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve cache dir: %v", err), 1)
			}

			opts := []hub.Option{hub.WithLogger(log)}
			if endpoint != "" {
				opts = append(opts, hub.WithEndpoint(endpoint))
			}

			dir, err := hub.NewClient(opts...).Snapshot(ctx, modelID, cacheDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: pull %s: %v", modelID, err), 1)
			}
			fmt.Printf("Pulled %s to %s\n", modelID, dir)
			return nil
		},
	}
}
