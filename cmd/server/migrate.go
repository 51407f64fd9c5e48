package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/n1kh11p/blokt-sub000/internal/database"
	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(a.db, a.log); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("schema is up to date (%s)", a.cfg.DBDriver))
			return nil
		},
	}
}
