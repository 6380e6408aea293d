package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newSummarizeCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Ask the configured model for a short operational summary",
		Long: `Summaries need an API key in ai.api_key or GEMINI_API_KEY. Without one the
commands fail with "summarizer disabled".`,
	}

	var date string
	day := &cobra.Command{
		Use:   "day",
		Short: "Summarize one day of production and current stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				d, err := parseDayFlag(date, time.Now(), app.Location)
				if err != nil {
					return err
				}
				summary, err := app.Plant.Summaries.SummarizeDay(ctx, d)
				if err != nil {
					return err
				}
				return out.Render(summary)
			})
		},
	}
	day.Flags().StringVar(&date, "date", "", "Day to summarize (YYYY-MM-DD), default today")

	lot := &cobra.Command{
		Use:   "lot <lot>",
		Short: "Summarize the processing history of a lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				summary, err := app.Plant.Summaries.SummarizeLot(ctx, args[0])
				if err != nil {
					return err
				}
				return out.Render(summary)
			})
		},
	}

	cmd.AddCommand(day, lot)
	return cmd
}
