// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/docgate/cmd/app/commands"
	"github.com/allisson/docgate/internal/app"
	"github.com/allisson/docgate/internal/config"
)

var version = "1.0.0"

// newContainer loads configuration and builds the DI container. The returned
// cleanup must run before the process exits.
func newContainer() (*app.Container, *slog.Logger, func()) {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	cleanup := func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}
	return container, logger, cleanup
}

func main() {
	cmd := &cli.Command{
		Name:    "docgate",
		Usage:   "Document access gate service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, cmd.Root().Version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "license-set",
				Usage: "Activate a license key, replacing any stored key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key",
						Aliases:  []string{"k"},
						Required: true,
						Usage:    "License key to activate",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					useCase, err := container.LicenseUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize license use case: %w", err)
					}
					return commands.RunLicenseSet(ctx, useCase, logger, os.Stdout,
						cmd.String("key"), cmd.String("format"))
				},
			},
			{
				Name:  "license-status",
				Usage: "Show the current license status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "refresh",
						Aliases: []string{"r"},
						Value:   false,
						Usage:   "Persist the derived status when the cached one is stale",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					useCase, err := container.LicenseUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize license use case: %w", err)
					}
					return commands.RunLicenseStatus(ctx, useCase, logger, os.Stdout,
						cmd.Bool("refresh"), cmd.String("format"))
				},
			},
			{
				Name:  "issue-share-token",
				Usage: "Issue a share token for a document",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "document-id",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Document the token grants access to",
					},
					&cli.IntFlag{
						Name:    "max-uses",
						Aliases: []string{"m"},
						Value:   0,
						Usage:   "Redemption budget (0 = unlimited)",
					},
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Value:   0,
						Usage:   "Token lifetime (0 = configured default)",
					},
					&cli.StringFlag{
						Name:    "issued-by",
						Aliases: []string{"b"},
						Value:   "cli",
						Usage:   "Who is issuing the token",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					useCase, err := container.ShareTokenUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize share token use case: %w", err)
					}
					return commands.RunIssueShareToken(ctx, useCase, logger, os.Stdout,
						int64(cmd.Int("document-id")), cmd.Int("max-uses"), cmd.Duration("ttl"),
						cmd.String("issued-by"), cmd.String("format"))
				},
			},
			{
				Name:  "revoke-share-token",
				Usage: "Revoke the share token matching a secret",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "secret",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Plain secret of the token to revoke",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					useCase, err := container.ShareTokenUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize share token use case: %w", err)
					}
					return commands.RunRevokeShareToken(ctx, useCase, logger, os.Stdout,
						cmd.String("secret"), cmd.String("format"))
				},
			},
			{
				Name:  "sweep-share-tokens",
				Usage: "Delete expired and exhausted share tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Value:   false,
						Usage:   "Show how many tokens would be deleted without deleting",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					useCase, err := container.ShareTokenUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize share token use case: %w", err)
					}
					return commands.RunSweepShareTokens(ctx, useCase, logger, os.Stdout,
						cmd.Bool("dry-run"), cmd.String("format"))
				},
			},
			{
				Name:  "cleanup-rate-limits",
				Usage: "Delete rate limit counters idle for longer than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "older-than",
						Aliases: []string{"o"},
						Value:   24 * time.Hour,
						Usage:   "Delete counters idle for longer than this duration",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container, logger, cleanup := newContainer()
					defer cleanup()

					limiter, err := container.Limiter()
					if err != nil {
						return fmt.Errorf("failed to initialize rate limiter: %w", err)
					}
					return commands.RunCleanupRateLimits(ctx, limiter, logger, os.Stdout,
						cmd.Duration("older-than"), cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
