package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	csvio "github.com/vsinha/cashew/pkg/infrastructure/repositories/csv"
)

// Format selects how results are rendered
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (expected: text, json or csv)", s)
	}
}

// Renderer writes command results in one format
type Renderer struct {
	W      io.Writer
	Format Format
}

// New creates a renderer writing to w
func New(w io.Writer, format Format) *Renderer {
	return &Renderer{W: w, Format: format}
}

// Render writes any supported result value
func (r *Renderer) Render(v any) error {
	if r.Format == FormatJSON {
		return r.json(v)
	}

	switch v := v.(type) {
	case []*entities.InventoryItem:
		return r.items(v)
	case []*entities.InventoryLog:
		return r.inventoryLogs(v)
	case []*entities.ProductionLog:
		return r.productionLogs(v)
	case *entities.ProductionLog:
		return r.productionLogs([]*entities.ProductionLog{v})
	case *dto.AdjustmentResult:
		return r.adjustments([]dto.AdjustmentResult{*v}, nil)
	case *dto.RecordResult:
		return r.record(v)
	case *dto.DailyReport:
		return r.daily(v)
	case *dto.RangeReport:
		return r.rangeReport(v)
	case *dto.InventoryReport:
		return r.inventoryReport(v)
	case *dto.LotTrace:
		return r.trace(v)
	case []dto.LotSummary:
		return r.lots(v)
	case *dto.Summary:
		return r.summary(v)
	default:
		return fmt.Errorf("cannot render %T as %s", v, r.Format)
	}
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.W)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.W, format, args...)
}

func (r *Renderer) items(items []*entities.InventoryItem) error {
	if r.Format == FormatCSV {
		return csvio.WriteItems(r.W, items)
	}

	r.printf("%-28s %-18s %12s %-6s %12s %s\n", "Item", "Category", "Quantity", "Unit", "Reorder At", "")
	r.printf("%-28s %-18s %12s %-6s %12s\n", strings.Repeat("-", 28), strings.Repeat("-", 18), "------------", "------", "------------")
	for _, item := range items {
		flag := ""
		if item.IsLowStock() {
			flag = "LOW"
		}
		r.printf("%-28s %-18s %12s %-6s %12s %s\n",
			item.Name, item.Category, item.Quantity, item.Unit, item.ReorderLevel, flag)
	}
	return nil
}

func (r *Renderer) inventoryLogs(logs []*entities.InventoryLog) error {
	if r.Format == FormatCSV {
		return csvio.WriteInventoryLogs(r.W, logs)
	}

	r.printf("%-17s %-24s %10s %12s %-18s %-10s %s\n", "Time", "Item", "Change", "After", "Reason", "Lot", "Actor")
	for _, l := range logs {
		r.printf("%-17s %-24s %10s %12s %-18s %-10s %s\n",
			l.CreatedAt.Format("2006-01-02 15:04"), l.ItemName, signed(l.Change), l.QuantityAfter, l.Reason, l.LotID, l.Actor)
	}
	return nil
}

func (r *Renderer) productionLogs(logs []*entities.ProductionLog) error {
	if r.Format == FormatCSV {
		return csvio.WriteProductionLogs(r.W, logs)
	}

	r.printf("%-17s %-14s %-10s %10s %10s %8s %s\n", "Recorded", "Stage", "Lot", "Input", "Output", "Yield%", "Details")
	for _, p := range logs {
		r.printf("%-17s %-14s %-10s %10s %10s %8s %s\n",
			p.RecordedAt.Format("2006-01-02 15:04"), p.Stage.DisplayName(), p.LotID,
			p.InputQty, p.OutputQty, p.Yield(), details(p))
	}
	return nil
}

func (r *Renderer) adjustments(adjs []dto.AdjustmentResult, warnings []string) error {
	if r.Format == FormatCSV {
		items := make([]*entities.InventoryItem, len(adjs))
		for i, a := range adjs {
			items[i] = a.Item
		}
		return csvio.WriteItems(r.W, items)
	}

	for _, a := range adjs {
		r.printf("%-28s %10s -> %s %s\n", a.Item.Name, signed(a.Change), a.Item.Quantity, a.Item.Unit)
		if a.Warning != "" {
			r.printf("  warning: %s\n", a.Warning)
		}
	}
	for _, w := range warnings {
		r.printf("warning: %s\n", w)
	}
	return nil
}

func (r *Renderer) record(res *dto.RecordResult) error {
	if r.Format == FormatCSV {
		return csvio.WriteProductionLogs(r.W, []*entities.ProductionLog{res.Log})
	}

	r.printf("Recorded %s for lot %s (%s)\n", res.Log.Stage.DisplayName(), res.Log.LotID, res.Log.ID)
	if len(res.Adjustments) == 0 && len(res.Warnings) == 0 {
		return nil
	}
	r.printf("\nStock changes:\n")
	var itemWarnings []string
	for _, w := range res.Warnings {
		dup := false
		for _, a := range res.Adjustments {
			if a.Warning == w {
				dup = true
				break
			}
		}
		if !dup {
			itemWarnings = append(itemWarnings, w)
		}
	}
	return r.adjustments(res.Adjustments, itemWarnings)
}

func (r *Renderer) daily(report *dto.DailyReport) error {
	if r.Format == FormatCSV {
		return writeStageSummaries(r.W, report.Date.Format("2006-01-02"), report.Stages, true)
	}

	r.printf("Daily Production Report %s\n", report.Date.Format("Mon 2 Jan 2006"))
	r.printf("======================================\n\n")
	r.printf("Entries: %d   Lots: %s\n\n", report.LogCount(), strings.Join(report.Lots, ", "))
	r.stageTable(report.Stages)

	if len(report.IntakeBySupplier) > 0 {
		r.printf("\nRCN intake by supplier (total %s kg):\n", report.TotalIntakeKg)
		for _, p := range report.IntakeBySupplier {
			r.printf("  %-28s %12s kg  (%d)\n", p.Name, p.Quantity, p.Entries)
		}
	}
	if len(report.Grades) > 0 {
		r.printf("\nGraded kernels:\n")
		for _, g := range report.Grades {
			r.printf("  %-10s %12s kg\n", g.Grade, g.Quantity)
		}
	}
	if len(report.DispatchByCustomer) > 0 {
		r.printf("\nDispatch by customer (total %s boxes):\n", report.DispatchedBoxes)
		for _, p := range report.DispatchByCustomer {
			r.printf("  %-28s %12s boxes  (%d)\n", p.Name, p.Quantity, p.Entries)
		}
	}
	if report.QualityFailures > 0 {
		r.printf("\nFailed quality checks: %d\n", report.QualityFailures)
	}
	return nil
}

func (r *Renderer) rangeReport(report *dto.RangeReport) error {
	if r.Format == FormatCSV {
		for i, day := range report.Days {
			if err := writeStageSummaries(r.W, day.Date.Format("2006-01-02"), day.Stages, i == 0); err != nil {
				return err
			}
		}
		return nil
	}

	r.printf("Production %s to %s\n", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	r.printf("======================================\n\n")
	r.printf("%-12s %8s %14s %14s\n", "Date", "Entries", "Intake kg", "Dispatched")
	for _, day := range report.Days {
		r.printf("%-12s %8d %14s %14s\n", day.Date.Format("2006-01-02"), day.LogCount(), day.TotalIntakeKg, day.DispatchedBoxes)
	}
	r.printf("\nTotals:\n")
	r.stageTable(report.Totals)
	return nil
}

func (r *Renderer) stageTable(stages []dto.StageSummary) {
	r.printf("%-14s %8s %12s %12s %8s\n", "Stage", "Entries", "Input", "Output", "Yield%")
	r.printf("%-14s %8s %12s %12s %8s\n", "--------------", "--------", "------------", "------------", "--------")
	for _, s := range stages {
		if s.LogCount == 0 {
			continue
		}
		r.printf("%-14s %8d %12s %12s %8s\n", s.DisplayName, s.LogCount, s.InputQty, s.OutputQty, s.YieldPct)
	}
}

func (r *Renderer) inventoryReport(report *dto.InventoryReport) error {
	items := make([]*entities.InventoryItem, len(report.Items))
	for i, line := range report.Items {
		items[i] = line.Item
	}
	if r.Format == FormatCSV {
		return csvio.WriteItems(r.W, items)
	}

	r.printf("Inventory at %s (%d low)\n\n", report.GeneratedAt.Format("2006-01-02 15:04"), report.LowStockCount)
	return r.items(items)
}

func (r *Renderer) trace(trace *dto.LotTrace) error {
	if r.Format == FormatCSV {
		var logs []*entities.ProductionLog
		for _, step := range trace.Steps {
			logs = append(logs, step.Logs...)
		}
		logs = append(logs, trace.QualityChecks...)
		return csvio.WriteProductionLogs(r.W, logs)
	}

	r.printf("Lot %s, at %s\n", trace.LotID, trace.CurrentStage.DisplayName())
	r.printf("Intake %s kg, final output %s kg, overall yield %s%%\n\n",
		trace.IntakeKg, trace.FinalOutputKg, trace.OverallYieldPct)

	r.printf("%-14s %-17s %12s %12s %8s %s\n", "Stage", "First", "Input", "Output", "Yield%", "Entries")
	for _, step := range trace.Steps {
		r.printf("%-14s %-17s %12s %12s %8s %d\n",
			step.DisplayName, step.FirstAt.Format("2006-01-02 15:04"), step.InputQty, step.OutputQty, step.YieldPct, len(step.Logs))
	}

	if len(trace.MissingStages) > 0 {
		names := make([]string, len(trace.MissingStages))
		for i, s := range trace.MissingStages {
			names[i] = s.DisplayName()
		}
		r.printf("\nMissing stages: %s\n", strings.Join(names, ", "))
	}
	for _, qc := range trace.QualityChecks {
		r.printf("Quality check %s: %s\n", qc.RecordedAt.Format("2006-01-02 15:04"), qc.Field("result"))
	}

	if len(trace.InventoryMovements) > 0 {
		r.printf("\nStock movements:\n")
		return r.inventoryLogs(trace.InventoryMovements)
	}
	return nil
}

func (r *Renderer) lots(lots []dto.LotSummary) error {
	if r.Format == FormatCSV {
		return writeLotSummaries(r.W, lots)
	}
	r.printf("%-16s %-14s %8s %s\n", "Lot", "Stage", "Entries", "Last Entry")
	for _, l := range lots {
		r.printf("%-16s %-14s %8d %s\n", l.LotID, l.CurrentStage.DisplayName(), l.LogCount, l.LastRecordedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (r *Renderer) summary(s *dto.Summary) error {
	if r.Format == FormatCSV {
		return fmt.Errorf("summaries cannot be rendered as csv")
	}
	r.printf("Summary of %s\n\n%s\n", s.Subject, s.Text)
	return nil
}

func signed(q entities.Quantity) string {
	if q.IsPositive() {
		return "+" + q.String()
	}
	return q.String()
}

// details lists stage fields and grades compactly
func details(p *entities.ProductionLog) string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(p.Grades))
	for _, k := range keys {
		parts = append(parts, k+"="+p.Fields[k])
	}
	for _, g := range p.GradeNames() {
		parts = append(parts, g+"="+p.Grades[g].String()+"kg")
	}
	return strings.Join(parts, " ")
}
