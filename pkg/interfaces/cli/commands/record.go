package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/interfaces/cli/output"
)

// recordFlags mirrors one stage data-entry form
type recordFlags struct {
	lot, operator, shift string
	at                   string
	input, output        string
	fields               map[string]string
	grades               map[string]string
	notes                string
}

func newRecordCommand(opts *Options) *cobra.Command {
	f := &recordFlags{}

	cmd := &cobra.Command{
		Use:   "record <stage>",
		Short: "Record a production stage entry and apply its stock movements",
		Long: `Record one production log for a stage. Stage-specific values are passed
with --field key=value; grading results with --grade GRADE=kg.

Stages: intake, drying, steaming, shelling, kernel_drying, peeling, grading,
packaging, dispatch, quality_check.`,
		Example: `  cashew record intake --lot LOT-7 --operator asha --in 1000 --field supplier="Kollam Traders" --field bag_count=12
  cashew record grading --lot LOT-7 --operator ravi --in 240 --grade W240=150 --grade W320=80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := entities.ParseStage(args[0]); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App, out *output.Renderer) error {
				req, err := f.request(args[0], app.Location)
				if err != nil {
					return err
				}
				result, err := app.Plant.Production.Record(ctx, req)
				if result != nil {
					if renderErr := out.Render(result); renderErr != nil && err == nil {
						err = renderErr
					}
				}
				return err
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.lot, "lot", "", "Lot / batch id")
	fl.StringVar(&f.operator, "operator", "", "Operator name")
	fl.StringVar(&f.shift, "shift", "", "Shift: morning, evening, night")
	fl.StringVar(&f.at, "at", "", "When the work happened (RFC3339 or \"2006-01-02 15:04\"), default now")
	fl.StringVar(&f.input, "in", "", "Input quantity")
	fl.StringVar(&f.output, "out", "", "Output quantity")
	fl.StringToStringVar(&f.fields, "field", nil, "Stage field key=value (repeatable)")
	fl.StringToStringVar(&f.grades, "grade", nil, "Grade result GRADE=kg (repeatable)")
	fl.StringVar(&f.notes, "notes", "", "Free-text notes")
	_ = cmd.MarkFlagRequired("lot")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

// request builds the record; times without a zone are read in loc
func (f *recordFlags) request(stageName string, loc *time.Location) (services.RecordRequest, error) {
	stage, err := entities.ParseStage(stageName)
	if err != nil {
		return services.RecordRequest{}, err
	}

	req := services.RecordRequest{
		Stage:    stage,
		LotID:    f.lot,
		Operator: f.operator,
		Shift:    f.shift,
		Fields:   f.fields,
		Notes:    f.notes,
	}

	if f.at != "" {
		if req.RecordedAt, err = parseTimestamp(f.at, loc); err != nil {
			return services.RecordRequest{}, err
		}
	}
	if f.input != "" {
		if req.InputQty, err = entities.ParseQuantity(f.input); err != nil {
			return services.RecordRequest{}, fmt.Errorf("invalid --in: %w", err)
		}
	}
	if f.output != "" {
		if req.OutputQty, err = entities.ParseQuantity(f.output); err != nil {
			return services.RecordRequest{}, fmt.Errorf("invalid --out: %w", err)
		}
	}

	if len(f.grades) > 0 {
		req.Grades = make(map[string]entities.Quantity, len(f.grades))
		for g, v := range f.grades {
			kg, err := entities.ParseQuantity(v)
			if err != nil {
				return services.RecordRequest{}, fmt.Errorf("invalid --grade %s: %w", g, err)
			}
			req.Grades[g] = kg
		}
	}
	return req, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
