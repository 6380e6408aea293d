package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newTraceCommand(opts *Options) *cobra.Command {
	var svgPath string

	cmd := &cobra.Command{
		Use:   "trace <lot>",
		Short: "Follow a lot through every stage with yields and stock movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				trace, err := app.Plant.Trace.Trace(ctx, args[0])
				if err != nil {
					return err
				}

				if svgPath != "" {
					svg := output.NewTimeline(trace).GenerateSVG(trace)
					if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
						return fmt.Errorf("failed to write timeline: %w", err)
					}
					app.Logger.Info("Timeline written", zap.String("lot", trace.LotID), zap.String("path", svgPath))
				}
				return out.Render(trace)
			})
		},
	}

	cmd.Flags().StringVar(&svgPath, "svg", "", "Also write an SVG stage timeline to this file")
	return cmd
}

func newLotsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lots",
		Short: "List known lots with their latest stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				lots, err := app.Plant.Trace.ListLots(ctx)
				if err != nil {
					return err
				}
				return out.Render(lots)
			})
		},
	}
}
