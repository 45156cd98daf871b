package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authkeys/cmd/app/commands"
	"github.com/allisson/authkeys/internal/app"
	"github.com/allisson/authkeys/internal/config"
	"github.com/allisson/authkeys/internal/httputil"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "issue-key",
			Usage: "Issue a new authorization key and print its token once",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "label",
					Aliases: []string{"l"},
					Usage:   "Human-readable key label (max 120 characters)",
				},
				&cli.StringFlag{
					Name:  "level",
					Value: "medium",
					Usage: "Key level: low, medium, high or critical",
				},
				&cli.StringSliceFlag{
					Name:    "action",
					Aliases: []string{"a"},
					Usage:   "Allowed action (repeatable); omit to allow all actions",
				},
				&cli.IntFlag{
					Name:  "max-uses",
					Value: -1,
					Usage: "Usage quota; negative means unlimited",
				},
				&cli.StringFlag{
					Name:  "expires",
					Usage: "Expiry in RFC3339, YYYY-MM-DD HH:MM:SS or YYYY-MM-DD (UTC)",
				},
				&cli.StringFlag{
					Name:  "note",
					Usage: "Free-form note",
				},
				operatorFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunIssueKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.IssueKeyParams{
						Label:    cmd.String("label"),
						Level:    cmd.String("level"),
						Actions:  cmd.StringSlice("action"),
						MaxUses:  int(cmd.Int("max-uses")),
						Expires:  cmd.String("expires"),
						Note:     cmd.String("note"),
						IssuedBy: cmd.String("operator"),
					},
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Issue a replacement for an existing authorization key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
				&cli.BoolFlag{
					Name:  "revoke-old",
					Value: false,
					Usage: "Revoke the old key in the same transaction",
				},
				operatorFlag(),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.Bool("revoke-old"),
					cmd.String("operator"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "revoke-key",
			Usage: "Deactivate an authorization key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "delete-key",
			Usage: "Delete an authorization key, keeping its ledger entries",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunDeleteKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-keys",
			Usage: "List authorization keys, newest first",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "offset", Value: 0, Usage: "Number of keys to skip"},
				&cli.IntFlag{Name: "limit", Value: httputil.DefaultPageLimit, Usage: "Maximum number of keys to list"},
				&cli.StringFlag{Name: "active", Usage: "Filter by active state: true or false"},
				&cli.StringFlag{Name: "level", Usage: "Filter by level: low, medium, high or critical"},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunListKeys(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("active"),
					cmd.String("level"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-key-uses",
			Usage: "List ledger entries of verification attempts, newest first",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "offset", Value: 0, Usage: "Number of entries to skip"},
				&cli.IntFlag{Name: "limit", Value: httputil.DefaultPageLimit, Usage: "Maximum number of entries to list"},
				&cli.StringFlag{Name: "action", Usage: "Filter by action"},
				&cli.StringFlag{Name: "actor", Usage: "Filter by acting identity"},
				&cli.StringFlag{Name: "success", Usage: "Filter by outcome: true or false"},
				&cli.StringFlag{Name: "key-id", Usage: "Filter by key ID (UUID)"},
				&cli.StringFlag{Name: "from", Usage: "Earliest use time (inclusive)"},
				&cli.StringFlag{Name: "to", Usage: "Latest use time (inclusive)"},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseUseCase, err := container.KeyUseUseCase()
				if err != nil {
					return err
				}

				return commands.RunListKeyUses(
					ctx,
					keyUseUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.ListKeyUsesParams{
						Offset:  int(cmd.Int("offset")),
						Limit:   int(cmd.Int("limit")),
						Action:  cmd.String("action"),
						Actor:   cmd.String("actor"),
						Success: cmd.String("success"),
						KeyID:   cmd.String("key-id"),
						From:    cmd.String("from"),
						To:      cmd.String("to"),
					},
					cmd.String("format"),
				)
			},
		},
	}
}
