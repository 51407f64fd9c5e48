package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/spf13/cobra"
)

func procoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procore",
		Short: "Procore integration maintenance",
	}
	cmd.AddCommand(procoreSyncCommand())
	return cmd
}

func procoreSyncCommand() *cobra.Command {
	var orgFlag, companyID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import the Procore company into an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID, err := uuid.Parse(orgFlag)
			if err != nil {
				return fmt.Errorf("invalid --org %q: %w", orgFlag, err)
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			procore := services.NewProcoreService(a.store, nil, nil, a.log)
			report, err := procore.SyncOrganization(orgID, companyID)
			if err != nil {
				return err
			}
			printSyncReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgFlag, "org", "", "organization id to sync into")
	cmd.Flags().StringVar(&companyID, "company", "", "Procore company id (defaults to the fixture company)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func printSyncReport(w io.Writer, r *services.SyncReport) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "Procore company %s synced at %s\n", r.CompanyID, r.SyncedAt.Format("2006-01-02 15:04:05"))
	rows := []struct {
		name   string
		counts services.SyncCounts
	}{
		{"organizations", r.Organizations},
		{"users", r.Users},
		{"projects", r.Projects},
		{"tasks", r.Tasks},
		{"safety", r.Safety},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-14s %s %s %s\n", row.name,
			color.GreenString("+%d", row.counts.Created),
			color.YellowString("~%d", row.counts.Updated),
			color.HiBlackString("skipped %d", row.counts.Skipped))
	}
}
