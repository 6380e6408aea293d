// Package commands implements the cashew command line
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/infrastructure/config"
	"github.com/vsinha/cashew/pkg/infrastructure/logging"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

// Options holds the persistent flags shared by every command
type Options struct {
	ConfigPath string
	LogLevel   string
	Format     string
	DBPath     string
	Memory     bool
}

// NewRootCommand builds the cashew command tree
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "cashew",
		Short: "Cashew plant data capture and reporting",
		Long: `cashew records intake, production stages and stock movements for a
cashew processing plant and reports on yields, stock and lot traceability.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "Path to the YAML config file")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json, csv")
	flags.StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides config)")
	flags.BoolVar(&opts.Memory, "memory", false, "Use in-memory storage")

	root.AddCommand(
		newServeCommand(opts),
		newInventoryCommand(opts),
		newRecordCommand(opts),
		newProductionCommand(opts),
		newReportCommand(opts),
		newTraceCommand(opts),
		newLotsCommand(opts),
		newSummarizeCommand(opts),
		newSeedCommand(opts),
		newExportCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides
func (o *Options) loadConfig() (*config.Config, error) {
	cfg, err := config.Read(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.DBPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = o.DBPath
	}
	if o.Memory {
		cfg.Storage.Driver = "memory"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp opens the application for the duration of fn
func (o *Options) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App, out *output.Renderer) error) error {
	format, err := output.ParseFormat(o.Format)
	if err != nil {
		return err
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := OpenApp(ctx, cfg, logger)
	if err != nil {
		logger.Sync()
		return err
	}

	runErr := fn(ctx, app, output.New(cmd.OutOrStdout(), format))
	if err := app.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		logger.Debug("Command failed", zap.String("command", cmd.CommandPath()), zap.Error(runErr))
	}
	return runErr
}

// parseDayFlag parses YYYY-MM-DD as a plant-local day, defaulting to today
func parseDayFlag(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return services.StartOfDay(now.In(loc)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}
