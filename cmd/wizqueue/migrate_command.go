package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wizqueue/internal/storage"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and list their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				statuses, err := db.Migrations(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Store: %s (%s)\n", db.Target(), db.Dialect())
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, []string{s.Version, orDash(s.AppliedAt)})
				}
				fmt.Fprint(out, renderTable(migrationColumns, rows))
				return nil
			})
		},
	}
}
