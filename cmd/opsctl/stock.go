package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/stock"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/google"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/identity"
	"github.com/spf13/cobra"
)

func newImportStockCmd(rt *cliEnv) *cobra.Command {
	var xlsxPath, sheetID, sheetRange, userID string

	cmd := &cobra.Command{
		Use:   "import-stock",
		Short: "Import stock items from Google Sheets or an .xlsx file",
		Long: `Import stock rows and upsert them by reference.

Rows are read from the configured Google Sheet unless --xlsx is given.
A row that fails to parse aborts the whole import; nothing is written.

Examples:
  opsctl import-stock
  opsctl import-stock --sheet 1AbC... --range 'Stock!A:Z'
  opsctl import-stock --xlsx inventory.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := stock.NewStockService(rt.db)
			importer := stock.NewImporter(svc, rt.history)

			var (
				source stock.RowSource
				target string
			)
			if xlsxPath != "" {
				target = xlsxPath
				source = func(ctx context.Context) ([][]string, error) {
					f, err := os.Open(xlsxPath)
					if err != nil {
						return nil, &apperr.SourceUnavailableError{Source: xlsxPath, Err: err}
					}
					defer f.Close()
					return stock.ReadWorkbookRows(f)
				}
			} else {
				if sheetID == "" {
					sheetID = rt.cfg.SheetsID
				}
				if sheetRange == "" {
					sheetRange = rt.cfg.SheetsRange
				}
				if sheetID == "" {
					return &apperr.ConfigurationError{Setting: "GOOGLE_SHEETS_ID"}
				}
				client, err := google.NewSheetsClient(cmd.Context(), rt.cfg.SheetsAPIKey)
				if err != nil {
					return err
				}
				target = sheetID
				source = stock.SheetRows(client, sheetID, sheetRange)
			}

			res, err := importer.Import(cmd.Context(), userID, target, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows: %d created, %d updated, %d skipped\n",
				res.TotalRows, res.Created, res.Updated, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Read rows from a local .xlsx file instead of Google Sheets")
	cmd.Flags().StringVar(&sheetID, "sheet", "", "Spreadsheet id (default: GOOGLE_SHEETS_ID)")
	cmd.Flags().StringVar(&sheetRange, "range", "", "A1 range (default: GOOGLE_SHEETS_RANGE)")
	cmd.Flags().StringVar(&userID, "user", identity.DefaultUserID, "User recorded in the sync history")
	return cmd
}

func newLowStockCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "low-stock",
		Short: "List items at or below their minimum threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := stock.NewStockService(rt.db).LowStock()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items below threshold")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tREFERENCE\tQUANTITY\tMIN\tLOCATION")
			for _, it := range items {
				ref := ""
				if it.Barcode != nil {
					ref = *it.Barcode
				}
				fmt.Fprintf(w, "%s\t%s\t%g %s\t%g\t%s\n", it.Name, ref, it.Quantity, it.Unit, it.MinThreshold, it.Location)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d items need restocking\n", len(items))
			return nil
		},
	}
}

func newExportStockCmd(rt *cliEnv) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-stock",
		Short: "Write every stock item to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := stock.NewStockService(rt.db).All()
			if err != nil {
				return err
			}
			f, err := stock.BuildWorkbook(items)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(outPath); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(items), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "stock.xlsx", "Output file")
	return cmd
}
