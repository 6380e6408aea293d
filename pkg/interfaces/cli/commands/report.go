package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newReportCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Production and stock reports",
	}
	cmd.AddCommand(
		newDailyReportCommand(opts),
		newRangeReportCommand(opts),
		newInventoryReportCommand(opts),
	)
	return cmd
}

func newDailyReportCommand(opts *Options) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Per-stage totals, intake by supplier and dispatch by customer for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				day, err := parseDayFlag(date, time.Now(), app.Location)
				if err != nil {
					return err
				}
				report, err := app.Plant.Reports.DailyReport(ctx, day)
				if err != nil {
					return err
				}
				return out.Render(report)
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to report (YYYY-MM-DD), default today")
	return cmd
}

func newRangeReportCommand(opts *Options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Daily rows and stage totals across an inclusive date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				now := time.Now()
				start, err := parseDayFlag(from, now, app.Location)
				if err != nil {
					return err
				}
				end, err := parseDayFlag(to, now, app.Location)
				if err != nil {
					return err
				}
				report, err := app.Plant.Reports.RangeReport(ctx, start, end)
				if err != nil {
					return err
				}
				return out.Render(report)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive (YYYY-MM-DD), default today")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newInventoryReportCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Stock snapshot with low-stock flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				report, err := app.Plant.Reports.InventoryReport(ctx)
				if err != nil {
					return err
				}
				return out.Render(report)
			})
		},
	}
}
