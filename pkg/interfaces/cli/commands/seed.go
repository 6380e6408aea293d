package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	csvio "github.com/vsinha/cashew/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

const seedActor = "seed"

func newSeedCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.csv>...",
		Short: "Load opening stock or historical production entries from CSV",
		Long: `Each file is recognised by its header:

  name,category,unit,quantity,reorder_level
  stage,lot_id,operator,shift,recorded_at,input_qty,output_qty,fields,notes

Stock rows go through the inventory ledger as adjustments. Production rows are
recorded exactly like "cashew record", including their stock movements.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, _ *output.Renderer) error {
				loader := csvio.NewLoader()
				loader.Location = app.Location
				for _, file := range args {
					if err := seedFile(ctx, app, loader, file, cmd.OutOrStdout()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func seedFile(ctx context.Context, app *App, loader *csvio.Loader, file string, w io.Writer) error {
	kind, err := csvio.DetectKind(file)
	if err != nil {
		return err
	}

	switch kind {
	case "stock":
		rows, err := loader.LoadStock(file)
		if err != nil {
			return err
		}
		if err := seedStock(ctx, app.Plant.Inventory, rows); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		fmt.Fprintf(w, "Loaded %d stock rows from %s\n", len(rows), file)
	default:
		rows, err := loader.LoadProduction(file)
		if err != nil {
			return err
		}
		warnings, err := seedProduction(ctx, app.Plant.Production, rows)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		for _, warning := range warnings {
			app.Logger.Warn("Seed warning", zap.String("file", file), zap.String("warning", warning))
		}
		fmt.Fprintf(w, "Recorded %d production logs from %s\n", len(rows), file)
	}
	return nil
}

func seedStock(ctx context.Context, inventory *services.InventoryService, rows []csvio.StockRow) error {
	for i, row := range rows {
		if !row.Quantity.IsZero() {
			_, err := inventory.FindAndUpdateOrCreate(ctx, services.AdjustRequest{
				ItemName:  row.Name,
				Category:  row.Category,
				Unit:      row.Unit,
				Change:    row.Quantity,
				Reason:    entities.Adjustment,
				Reference: "opening stock",
				Actor:     seedActor,
			})
			if err != nil {
				return fmt.Errorf("row %d (%s): %w", i+2, row.Name, err)
			}
		}
		if row.ReorderLevel.IsPositive() {
			if _, err := inventory.SetReorderLevel(ctx, row.Name, row.ReorderLevel); err != nil {
				return fmt.Errorf("row %d (%s): %w", i+2, row.Name, err)
			}
		}
	}
	return nil
}

func seedProduction(ctx context.Context, production *services.ProductionService, rows []csvio.ProductionRow) ([]string, error) {
	var warnings []string
	for i, row := range rows {
		result, err := production.Record(ctx, services.RecordRequest{
			Stage:      row.Stage,
			LotID:      row.LotID,
			Operator:   row.Operator,
			Shift:      row.Shift,
			RecordedAt: row.RecordedAt,
			InputQty:   row.InputQty,
			OutputQty:  row.OutputQty,
			Fields:     row.Fields,
			Grades:     row.Grades,
			Notes:      row.Notes,
		})
		if err != nil {
			return warnings, fmt.Errorf("row %d (%s %s): %w", i+2, row.Stage, row.LotID, err)
		}
		warnings = append(warnings, result.Warnings...)
	}
	return warnings, nil
}

func newExportCommand(opts *Options) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:       "export <stock|ledger|production>",
		Short:     "Write stock, the inventory ledger or production logs as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"stock", "ledger", "production"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			switch kind {
			case "stock", "ledger", "production":
			default:
				return fmt.Errorf("unknown export %q (expected stock, ledger or production)", kind)
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App, _ *output.Renderer) error {
				if outPath == "" {
					return writeExport(ctx, app, kind, cmd.OutOrStdout())
				}
				return writeFile(outPath, func(w io.Writer) error {
					return writeExport(ctx, app, kind, w)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func writeExport(ctx context.Context, app *App, kind string, w io.Writer) error {
	switch kind {
	case "stock":
		items, err := app.Plant.Inventory.ListItems(ctx)
		if err != nil {
			return err
		}
		return csvio.WriteItems(w, items)
	case "ledger":
		logs, err := app.Plant.Inventory.ListLogs(ctx, entities.InventoryLogFilter{})
		if err != nil {
			return err
		}
		return csvio.WriteInventoryLogs(w, logs)
	default:
		logs, err := app.Plant.Production.List(ctx, entities.ProductionFilter{})
		if err != nil {
			return err
		}
		return csvio.WriteProductionLogs(w, logs)
	}
}

// writeFile creates path and runs write against it; a failed close is
// returned like a failed write
func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return write(file)
}
