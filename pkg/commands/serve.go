package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"
	"github.com/vercel-eddie/deploy-check/pkg/greeter"
)

// Serve returns the command that starts the HTTP server. The port comes from
// the root --port flag or PORT.
func Serve() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP server",
		Action: runServe,
	}
}

func runServe(ctx context.Context, c *cli.Command) error {
	server := greeter.NewServer(greeter.Config{
		Port:   c.String("port"),
		Logger: slog.Default(),
	})
	return server.Start(ctx)
}
