package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/etl/internal/application"
	"github.com/JonMunkholm/etl/internal/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the PostgreSQL item store",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply every pending migration", func(ctx context.Context, _ io.Writer, m *migrations.Migrator) error {
			return m.Up(ctx)
		}),
		migrateSubcommand("down", "Roll back the latest migration", func(ctx context.Context, _ io.Writer, m *migrations.Migrator) error {
			return m.Down(ctx)
		}),
		migrateSubcommand("status", "List migrations and whether they are applied", func(ctx context.Context, out io.Writer, m *migrations.Migrator) error {
			list, err := m.Status(ctx)
			if err != nil {
				return err
			}
			printMigrations(out, list)
			return nil
		}),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(context.Context, io.Writer, *migrations.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = false

			app, err := application.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			m, err := app.Migrator()
			if err != nil {
				return err
			}
			defer m.Close()

			return run(cmd.Context(), cmd.OutOrStdout(), m)
		},
	}
}

func printMigrations(w io.Writer, list []migrations.Status) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
	for _, s := range list {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.Path)
	}
	_ = tw.Flush()
}
