package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/SuYehTarn/jitr/cmd/app/commands"
	"github.com/SuYehTarn/jitr/internal/app"
	"github.com/SuYehTarn/jitr/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getVerifierCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list-verifiers",
			Usage: "List verifier bindings",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifierUseCase, err := container.VerifierUseCase()
				if err != nil {
					return err
				}
				if err := container.RefreshVerifiers(ctx); err != nil {
					return err
				}

				return commands.RunListVerifiers(
					ctx,
					verifierUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "put-verifier",
			Usage: "Create or replace a verifier binding",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Verifier name",
				},
				&cli.StringFlag{
					Name:     "reference",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Verifier address (https://..., http://... or builtin:<name>)",
				},
				&cli.StringFlag{
					Name:    "permission",
					Aliases: []string{"p"},
					Usage:   "Credential presented to the verifier",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifierUseCase, err := container.VerifierUseCase()
				if err != nil {
					return err
				}

				return commands.RunPutVerifier(
					ctx,
					verifierUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("reference"),
					cmd.String("permission"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "delete-verifier",
			Usage: "Remove a verifier binding",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Verifier name",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifierUseCase, err := container.VerifierUseCase()
				if err != nil {
					return err
				}

				return commands.RunDeleteVerifier(
					ctx,
					verifierUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("format"),
				)
			},
		},
	}
}
