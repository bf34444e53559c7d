// Command app runs the sessions API and its operational commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Session token authentication service",
		Version: version,
		Commands: slices.Concat(
			getSystemCommands(version),
			getKeyCommands(),
			getAuthCommands(),
		),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
