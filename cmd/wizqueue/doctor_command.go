package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wizqueue/internal/preflight"
	"wizqueue/internal/storage"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, executables, the store and the vision model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, checkStore(cmd.Context(), ctx))

			fmt.Fprintf(out, "Config: %s\n", orDash(ctx.configPath))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func checkStore(parent context.Context, ctx *commandContext) preflight.Result {
	const name = "Store"
	checkCtx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	var detail string
	err := ctx.withDB(checkCtx, func(db *storage.DB) error {
		if err := db.Ping(checkCtx); err != nil {
			return err
		}
		detail = fmt.Sprintf("%s (%s)", db.Target(), db.Dialect())
		return nil
	})
	if err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	return preflight.Result{Name: name, Passed: true, Detail: detail}
}
