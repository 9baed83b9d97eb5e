package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/SuYehTarn/jitr/cmd/app/commands"
	"github.com/SuYehTarn/jitr/internal/app"
	"github.com/SuYehTarn/jitr/internal/config"
)

func getRegistrationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "register-ca",
			Usage: "Register a CA certificate and bind verifiers to it",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "certificate",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Path to the PEM encoded CA certificate",
				},
				&cli.StringFlag{
					Name:    "ca-id",
					Aliases: []string{"i"},
					Usage:   "CA identifier (defaults to the certificate fingerprint)",
				},
				&cli.StringFlag{
					Name:    "verifiers",
					Aliases: []string{"v"},
					Value:   "all",
					Usage:   "'all' or a comma-separated list of verifier names",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				registrationUseCase, err := container.RegistrationUseCase()
				if err != nil {
					return err
				}
				if err := container.RefreshVerifiers(ctx); err != nil {
					return err
				}

				return commands.RunRegisterCA(
					ctx,
					registrationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("certificate"),
					cmd.String("ca-id"),
					cmd.String("verifiers"),
					cmd.String("format"),
				)
			},
		},
	}
}
