package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"wizqueue/internal/extraction"
	"wizqueue/internal/invoice"
	"wizqueue/internal/storage"
)

func newInvoiceCommand(ctx *commandContext) *cobra.Command {
	invoiceCmd := &cobra.Command{
		Use:   "invoice",
		Short: "Inspect uploaded invoices",
	}
	invoiceCmd.AddCommand(newInvoiceListCommand(ctx))
	invoiceCmd.AddCommand(newInvoiceShowCommand(ctx))
	return invoiceCmd
}

func newInvoiceListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				invoices, err := invoice.NewStore(db).List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(invoices) == 0 {
					fmt.Fprintln(out, "No invoices")
					return nil
				}
				rows := make([][]string, 0, len(invoices))
				for _, inv := range invoices {
					rows = append(rows, []string{
						strconv.FormatInt(inv.ID, 10),
						inv.Filename,
						string(inv.State(false)),
						strconv.Itoa(len(inv.ExtractedData)),
						storage.FormatTime(inv.UploadDate),
					})
				}
				fmt.Fprint(out, renderTable(invoiceColumns, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", invoice.DefaultListLimit, "Maximum invoices to list")
	return cmd
}

func newInvoiceShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one invoice and its extracted products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withDB(cmd.Context(), func(db *storage.DB) error {
				inv, err := invoice.NewStore(db).GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if inv == nil {
					return fmt.Errorf("invoice %d not found", id)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Invoice %d: %s\n", inv.ID, inv.Filename)
				fmt.Fprintf(out, "  State:     %s\n", inv.State(false))
				fmt.Fprintf(out, "  File:      %s\n", orDash(inv.FilePath))
				fmt.Fprintf(out, "  Uploaded:  %s\n", storage.FormatTime(inv.UploadDate))
				fmt.Fprintf(out, "  Processed: %s\n", yesNo(inv.Processed))
				if inv.ProcessingError != "" {
					fmt.Fprintf(out, "  Error:     %s\n", inv.ProcessingError)
				}
				if len(inv.ExtractedData) > 0 {
					fmt.Fprint(out, renderProducts(inv.ExtractedData))
				}
				return nil
			})
		},
	}
}

func renderProducts(products []extraction.Product) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ProductName, orDash(p.Details), strconv.Itoa(p.Quantity)})
	}
	return renderTable(productColumns, rows)
}
