package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"statlab/adapters/postgres"
	"statlab/internal"
	"statlab/internal/config"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn, driver string
	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the run-history schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver, postgres or sqlite3 (overrides DATABASE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dsn, "url", "", "Database URL (overrides DATABASE_URL)")

	connect := func(cmd *cobra.Command) (*sqlx.DB, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if driver != "" {
			cfg.Database.Driver = driver
		}
		if dsn != "" {
			cfg.Database.URL = dsn
		}
		return postgres.Connect(cmd.Context(), cfg.Database.Driver, cfg.Database.URL)
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := connect(cmd)
				if err != nil {
					return err
				}
				defer db.Close()
				return printStatus(cmd, db)
			},
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := connect(cmd)
				if err != nil {
					return err
				}
				defer db.Close()
				return migrateUp(cmd.Context(), db, internal.NewLoggerTo(cmd.ErrOrStderr(), internal.LogLevelInfo))
			},
		},
	)
	return rootCmd
}

func printStatus(cmd *cobra.Command, db *sqlx.DB) error {
	migrations, err := postgres.NewMigrator(db).Status(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tCHECKSUM\tSTATE")
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Version, m.Name, m.Checksum.Short(), state)
	}
	return w.Flush()
}

func migrateUp(ctx context.Context, db *sqlx.DB, logger *internal.Logger) error {
	applied, err := postgres.NewMigrator(db).Up(ctx)
	for _, v := range applied {
		logger.Info("Applied migration %s", v)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Info("Schema is up to date")
	}
	return nil
}
