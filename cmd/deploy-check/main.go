package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/vercel-eddie/deploy-check/pkg/commands"
)

var version = "dev"

func main() {
	if err := commands.Root(version).Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
