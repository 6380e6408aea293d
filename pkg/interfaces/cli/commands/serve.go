package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/interfaces/api"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

func newServeCommand(opts *Options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App, _ *output.Renderer) error {
				if addr == "" {
					addr = app.Config.HTTP.Addr
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				handler := api.NewHandler(app.Plant, app.Logger.Named("api"),
					api.WithMetrics(app.Metrics),
					api.WithReadiness(app.Ping),
					api.WithLocation(app.Location),
				)

				app.Logger.Info("Starting cashew server",
					zap.String("storage", app.Config.Storage.Driver),
					zap.Bool("summaries", app.Plant.Summaries.Enabled()),
				)
				return api.Serve(ctx, addr, handler.Routes(), parseShutdownTimeout(app.Config.HTTP.ShutdownTimeout), app.Logger)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
