// Package cli defines the gallery command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/crypto"
	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/database/users"
	"github.com/mrlokans/gallery/internal/entrypoint"
)

// NewRootCommand builds the command tree. cfg is read once at startup;
// serve is the default command.
func NewRootCommand(cfg *config.Config, version string) *cli.Command {
	return &cli.Command{
		Name:           "gallery",
		Usage:          "Import photo albums from Flickr and Google Photos",
		Version:        version,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(cfg, version),
			keygenCommand(),
			usersCommand(cfg),
			importsCommand(cfg),
		},
	}
}

func serveCommand(cfg *config.Config, version string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server, task workers and scheduler",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return entrypoint.Run(cfg, version)
		},
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Print a new base64 key for CREDENTIALS_ENCRYPTION_KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, key)
			return nil
		},
	}
}

func usersCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage API users",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a user and print its API token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "unique username"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "contact email"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					username := strings.TrimSpace(cmd.String("username"))
					if username == "" {
						return errors.New("username must not be empty")
					}

					db, err := database.NewDatabase(cfg.Database)
					if err != nil {
						return err
					}
					defer db.Close()

					repo := users.NewRepository(db.DB)
					if _, err := repo.GetUserByUsername(username); err == nil {
						return fmt.Errorf("user %q already exists", username)
					} else if !errors.Is(err, users.ErrUserNotFound) {
						return err
					}

					user, err := repo.CreateUser(username, cmd.String("email"))
					if err != nil {
						return fmt.Errorf("failed to create user: %w", err)
					}
					out := cmd.Root().Writer
					fmt.Fprintf(out, "Created user %s (id %d)\n", user.Username, user.ID)
					fmt.Fprintf(out, "API token: %s\n", user.Token)
					return nil
				},
			},
		},
	}
}

func importsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "imports",
		Usage: "Inspect and re-run album imports",
		Commands: []*cli.Command{
			{
				Name:      "enqueue",
				Usage:     "Enqueue an import run on the task queue",
				ArgsUsage: "<import-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := importIDArg(cmd)
					if err != nil {
						return err
					}
					return enqueueImport(ctx, cmd, cfg, id)
				},
			},
			{
				Name:      "status",
				Usage:     "Print the state of an import",
				ArgsUsage: "<import-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := importIDArg(cmd)
					if err != nil {
						return err
					}
					return printImportStatus(cmd, cfg, id)
				},
			},
		},
	}
}

func importIDArg(cmd *cli.Command) (uint, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return 0, errors.New("import id is required")
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid import id %q", arg)
	}
	return uint(id), nil
}

func enqueueImport(ctx context.Context, cmd *cli.Command, cfg *config.Config, id uint) error {
	if !cfg.Tasks.Enabled {
		return entrypoint.ErrTasksDisabled
	}
	app, err := entrypoint.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	imp, err := app.Imports.GetByID(id)
	if err != nil {
		return err
	}
	if imp.IsTerminal() {
		return fmt.Errorf("import %d is %s and will not run again", id, imp.Status)
	}

	taskID, err := app.Tasks.EnqueueImport(ctx, id)
	if err != nil {
		return err
	}
	if err := app.Imports.SetTaskID(id, taskID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Enqueued import %d as task %s\n", id, taskID)
	return nil
}

func printImportStatus(cmd *cli.Command, cfg *config.Config, id uint) error {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := imports.NewRepository(db.DB)
	imp, err := repo.GetByID(id)
	if err != nil {
		return err
	}
	failures, err := repo.Failures(id)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Import %d: %s album %s (%s)\n", imp.ID, imp.Provider, imp.ExternalAlbumID, imp.AlbumTitle)
	fmt.Fprintf(out, "Status:   %s\n", imp.Status)
	fmt.Fprintf(out, "Progress: %d%% (%d imported, %d failed, %d skipped of %d)\n",
		imp.ProgressPercentage(), imp.ImportedCount, imp.FailedCount, imp.SkippedCount, imp.TotalPhotos)
	if imp.ErrorMessage != nil {
		fmt.Fprintf(out, "Error:    %s\n", *imp.ErrorMessage)
	}
	if imp.TaskID != "" {
		fmt.Fprintf(out, "Task:     %s\n", imp.TaskID)
	}
	for _, f := range failures {
		fmt.Fprintf(out, "  - %s: %s\n", f.ExternalPhotoID, f.Reason)
	}
	return nil
}
