package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newProductionCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "production",
		Aliases: []string{"prod"},
		Short:   "Browse recorded production logs",
	}
	cmd.AddCommand(newProductionListCommand(opts), newProductionShowCommand(opts))
	return cmd
}

func newProductionListCommand(opts *Options) *cobra.Command {
	var (
		stage, lot, operator string
		from, to             string
		limit                int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List production logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := entities.ProductionFilter{LotID: lot, Operator: operator, Limit: limit}
			if stage != "" {
				s, err := entities.ParseStage(stage)
				if err != nil {
					return err
				}
				filter.Stage = &s
			}

			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				if from != "" {
					t, err := parseTimestamp(from, app.Location)
					if err != nil {
						return err
					}
					filter.From = t
				}
				if to != "" {
					t, err := parseTimestamp(to, app.Location)
					if err != nil {
						return err
					}
					filter.To = t
				}

				logs, err := app.Plant.Production.List(ctx, filter)
				if err != nil {
					return err
				}
				return out.Render(logs)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&stage, "stage", "", "Filter by stage")
	f.StringVar(&lot, "lot", "", "Filter by lot")
	f.StringVar(&operator, "operator", "", "Filter by operator")
	f.StringVar(&from, "from", "", "Recorded at or after")
	f.StringVar(&to, "to", "", "Recorded before")
	f.IntVar(&limit, "limit", 0, "Show only the most recent N rows (0 for all)")
	return cmd
}

func newProductionShowCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one production log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				log, err := app.Plant.Production.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Render(log)
			})
		},
	}
}
