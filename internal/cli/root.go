// Package cli implements the shelfly command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/msomdec/shelfly/internal/config"
	"github.com/msomdec/shelfly/internal/repository/sqlite"
	"github.com/msomdec/shelfly/internal/service"
)

// app holds the services a command runs against. It is built once per
// invocation, after flags are parsed.
type app struct {
	cfg      *config.Config
	db       *sqlite.DB
	accounts *service.AccountService
	resets   *service.ResetService
	products *service.ProductService
	images   *service.ImageService
}

func newApp(cfg *config.Config) (*app, error) {
	hasher, err := service.NewHasher(cfg.Hasher, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	images := service.NewImageService(db.FileStore())
	accounts := service.NewAccountService(db.Users(), hasher, service.WithOwnedImages(db.Products(), images))
	return &app{
		cfg:      cfg,
		db:       db,
		accounts: accounts,
		resets:   service.NewResetService(db.ResetTokens(), accounts, service.WithTTL(cfg.ResetTTL)),
		products: service.NewProductService(db.Products(), db.Users(), images),
		images:   images,
	}, nil
}

// Execute runs the shelfly command tree with args and releases the database
// once the command has finished, whether or not it succeeded.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer func() {
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}
	}()

	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	var dbPath, envFile string

	cmd := &cobra.Command{
		Use:           "shelfly",
		Short:         "Track a local product inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})))

			built, err := newApp(cfg)
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (overrides SHELFLY_DB_PATH)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with SHELFLY_* settings")

	cmd.AddCommand(newInitCommand(a))
	cmd.AddCommand(newUserCommand(a))
	cmd.AddCommand(newResetCommand(a))
	cmd.AddCommand(newProductCommand(a))
	return cmd
}

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.EnsureReady(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", a.cfg.DBPath)
			return nil
		},
	}
}

// groupCommand returns a parent command that only prints its help.
func groupCommand(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
