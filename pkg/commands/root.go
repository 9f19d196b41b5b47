package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/vercel-eddie/deploy-check/pkg/greeter"
)

// Root returns the top-level CLI command. Running it without a subcommand
// starts the server, so the bare binary is what a deployment runs.
func Root(version string) *cli.Command {
	return &cli.Command{
		Name:    "deploy-check",
		Usage:   "HTTP endpoint confirming a deployment is live",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   greeter.DefaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			slog.SetDefault(newLogger(logWriter(command), parseLogLevel(command.String("log-level"))))
			return ctx, nil
		},
		Action: runServe,
		Commands: []*cli.Command{
			Serve(),
		},
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					dir := filepath.Base(filepath.Dir(src.File))
					file := filepath.Base(src.File)
					a.Value = slog.StringValue(fmt.Sprintf("%s/%s:%d", dir, file, src.Line))
				}
			}
			return a
		},
	}))
}

func logWriter(command *cli.Command) io.Writer {
	if w := command.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
