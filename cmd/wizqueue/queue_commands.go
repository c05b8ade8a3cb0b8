package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wizqueue/internal/queue"
	"wizqueue/internal/storage"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the print queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueMoveCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueCompactCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items in print order",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, err := queue.ParseStatus(raw)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				items, err := queue.NewStore(db).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(queueColumns, buildQueueRows(items)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func buildQueueRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		invoiceID := "-"
		if item.InvoiceID != nil {
			invoiceID = strconv.FormatInt(*item.InvoiceID, 10)
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Position),
			strconv.FormatInt(item.ID, 10),
			item.ProductName,
			strconv.Itoa(item.Quantity),
			string(item.Status),
			strconv.Itoa(item.Priority),
			invoiceID,
			orDash(item.Notes),
		})
	}
	return rows
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		in        queue.CreateInput
		position  int
		invoiceID int64
	)

	cmd := &cobra.Command{
		Use:   "add <product name>",
		Short: "Add an item to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ProductName = strings.Join(args, " ")
			if cmd.Flags().Changed("position") {
				in.Position = &position
			}
			if cmd.Flags().Changed("invoice") {
				in.InvoiceID = &invoiceID
			}
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				item, err := queue.NewStore(db).Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added item %d (%s x%d) at position %d\n",
					item.ID, item.ProductName, item.Quantity, item.Position)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&in.Quantity, "quantity", "q", 1, "Quantity to print")
	cmd.Flags().StringVar(&in.Details, "details", "", "Color, size or variant details")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "Free-form notes")
	cmd.Flags().IntVar(&in.Priority, "priority", 0, "Priority (informational)")
	cmd.Flags().IntVar(&position, "position", 0, "Insert at this position instead of appending")
	cmd.Flags().Int64Var(&invoiceID, "invoice", 0, "Source invoice id")
	return cmd
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move an item to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			position, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				if err := queue.NewStore(db).Reorder(cmd.Context(), id, position); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved item %d to position %d\n", id, position)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an item from the queue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				deleted, err := queue.NewStore(db).Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("queue item %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
				return nil
			})
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [<id> <status>]",
		Short: "Show counts per status, or set the status of one item",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or <id> <status>, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				store := queue.NewStore(db)
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					if stats.Total() == 0 {
						fmt.Fprintln(out, "Queue is empty")
						return nil
					}
					fmt.Fprint(out, renderTable(statusColumns, buildStatusRows(stats)))
					return nil
				}
				id, err := parseIDArg(args[0])
				if err != nil {
					return err
				}
				status, err := queue.ParseStatus(args[1])
				if err != nil {
					return err
				}
				item, err := store.UpdateStatus(cmd.Context(), id, status)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Item %d is now %s\n", item.ID, item.Status)
				return nil
			})
		},
	}
}

func buildStatusRows(stats queue.Stats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		if count := stats[status]; count > 0 {
			rows = append(rows, []string{string(status), strconv.Itoa(count)})
		}
	}
	return rows
}

func newQueueCompactCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Renumber positions to close gaps left by removals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				moved, err := queue.NewStore(db).Compact(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Compacted queue (%d items moved)\n", moved)
				return nil
			})
		},
	}
}
