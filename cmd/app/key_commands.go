package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sessions/cmd/app/commands"
	"github.com/allisson/sessions/internal/app"
	authService "github.com/allisson/sessions/internal/auth/service"
	"github.com/allisson/sessions/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-signing-key",
			Usage: "Generate a new token signing key, optionally encrypted with KMS",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateSigningKey(
					ctx,
					authService.NewSigningKeyService(),
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("kms-key-uri"),
				)
			},
		},
	}
}
