package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newInventoryCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv", "stock"},
		Short:   "Inspect and adjust stock",
	}
	cmd.AddCommand(
		newInventoryListCommand(opts),
		newInventoryAdjustCommand(opts),
		newInventoryLogsCommand(opts),
		newInventoryReorderCommand(opts),
	)
	return cmd
}

func newInventoryListCommand(opts *Options) *cobra.Command {
	var lowOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				var (
					items []*entities.InventoryItem
					err   error
				)
				if lowOnly {
					items, err = app.Plant.Inventory.LowStock(ctx)
				} else {
					items, err = app.Plant.Inventory.ListItems(ctx)
				}
				if err != nil {
					return err
				}
				return out.Render(items)
			})
		},
	}

	cmd.Flags().BoolVar(&lowOnly, "low", false, "Only items at or below their reorder level")
	return cmd
}

func newInventoryAdjustCommand(opts *Options) *cobra.Command {
	var (
		unit, category, reason string
		lot, actor, reference  string
	)

	cmd := &cobra.Command{
		Use:   "adjust <item> <change>",
		Short: "Apply a signed quantity change to an item, creating it if needed",
		Example: `  cashew inventory adjust "Vacuum Bags" 500 --unit pcs --category packaging --reason packaging_receipt
  cashew inventory adjust "Raw Cashew Nuts" -- -25 --reason adjustment`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildAdjustRequest(args[0], args[1], unit, category, reason)
			if err != nil {
				return err
			}
			req.LotID = lot
			req.Actor = actor
			req.Reference = reference

			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				result, err := app.Plant.Inventory.FindAndUpdateOrCreate(ctx, req)
				if err != nil {
					return err
				}
				return out.Render(result)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&unit, "unit", "", "Unit: kg, pcs, bags, boxes (new items default to kg)")
	f.StringVar(&category, "category", "raw_material", "Category for a new item")
	f.StringVar(&reason, "reason", "adjustment", "Transaction type")
	f.StringVar(&lot, "lot", "", "Lot the movement belongs to")
	f.StringVar(&actor, "actor", "", "Who made the change")
	f.StringVar(&reference, "reference", "", "Free-text reference")
	return cmd
}

func buildAdjustRequest(name, change, unit, category, reason string) (services.AdjustRequest, error) {
	qty, err := entities.ParseQuantity(change)
	if err != nil {
		return services.AdjustRequest{}, fmt.Errorf("invalid change: %w", err)
	}
	var u entities.Unit
	if unit != "" {
		if u, err = entities.ParseUnit(unit); err != nil {
			return services.AdjustRequest{}, err
		}
	}
	c, err := entities.ParseCategory(category)
	if err != nil {
		return services.AdjustRequest{}, err
	}
	t, err := entities.ParseTransactionType(reason)
	if err != nil {
		return services.AdjustRequest{}, err
	}
	return services.AdjustRequest{
		ItemName: name,
		Category: c,
		Unit:     u,
		Change:   qty,
		Reason:   t,
	}, nil
}

func newInventoryLogsCommand(opts *Options) *cobra.Command {
	var (
		item, lot string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the inventory ledger, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				logs, err := app.Plant.Inventory.ListLogs(ctx, entities.InventoryLogFilter{
					ItemName: item,
					LotID:    lot,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				return out.Render(logs)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&item, "item", "", "Filter by item name")
	f.StringVar(&lot, "lot", "", "Filter by lot")
	f.IntVar(&limit, "limit", 50, "Maximum rows")
	return cmd
}

func newInventoryReorderCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <item> <level>",
		Short: "Set the reorder level of an existing item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := entities.ParseQuantity(args[1])
			if err != nil {
				return fmt.Errorf("invalid level: %w", err)
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				item, err := app.Plant.Inventory.SetReorderLevel(ctx, args[0], level)
				if err != nil {
					return err
				}
				return out.Render([]*entities.InventoryItem{item})
			})
		},
	}
}
