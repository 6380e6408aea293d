package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
)

// Summarizer produces a short narrative for a prompt
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummaryService asks a language model to narrate reports and lot traces
type SummaryService struct {
	reports    *ReportService
	trace      *TraceService
	summarizer Summarizer
	deps       Deps
}

// NewSummaryService creates a new summary service. A nil summarizer disables
// summaries.
func NewSummaryService(reports *ReportService, trace *TraceService, summarizer Summarizer, deps Deps) *SummaryService {
	return &SummaryService{
		reports:    reports,
		trace:      trace,
		summarizer: summarizer,
		deps:       deps.withDefaults(),
	}
}

// Enabled reports whether a summarizer is configured
func (s *SummaryService) Enabled() bool {
	return s.summarizer != nil
}

// SummarizeDay narrates the daily report and current low stock
func (s *SummaryService) SummarizeDay(ctx context.Context, day time.Time) (*dto.Summary, error) {
	if !s.Enabled() {
		return nil, entities.ErrSummarizerDisabled
	}

	report, err := s.reports.DailyReport(ctx, day)
	if err != nil {
		return nil, err
	}
	stock, err := s.reports.InventoryReport(ctx)
	if err != nil {
		return nil, err
	}

	subject := "day " + report.Date.Format("2006-01-02")
	return s.summarize(ctx, subject, DailyPrompt(report, stock))
}

// SummarizeLot narrates the trace of one lot
func (s *SummaryService) SummarizeLot(ctx context.Context, lotID string) (*dto.Summary, error) {
	if !s.Enabled() {
		return nil, entities.ErrSummarizerDisabled
	}

	trace, err := s.trace.Trace(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, "lot "+trace.LotID, LotPrompt(trace))
}

func (s *SummaryService) summarize(ctx context.Context, subject, prompt string) (*dto.Summary, error) {
	start := time.Now()
	text, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		s.deps.Logger.Warn("Summary failed", zap.String("subject", subject), zap.Error(err))
		return nil, fmt.Errorf("failed to summarize %s: %w", subject, err)
	}
	s.deps.Logger.Info("Summary generated",
		zap.String("subject", subject),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Duration("took", time.Since(start)))

	return &dto.Summary{
		Subject:     subject,
		Text:        text,
		GeneratedAt: s.deps.Clock(),
	}, nil
}

// DailyPrompt renders a daily report as plain text for the model
func DailyPrompt(report *dto.DailyReport, stock *dto.InventoryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Production report for %s (%d entries)\n", report.Date.Format("2006-01-02"), report.LogCount())

	b.WriteString("\nStages:\n")
	for _, st := range report.Stages {
		if st.LogCount == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d entries, input %s kg, output %s kg, yield %s%%\n",
			st.DisplayName, st.LogCount, st.InputQty, st.OutputQty, st.YieldPct)
	}

	if len(report.IntakeBySupplier) > 0 {
		fmt.Fprintf(&b, "\nRCN intake %s kg by supplier:\n", report.TotalIntakeKg)
		for _, p := range report.IntakeBySupplier {
			fmt.Fprintf(&b, "- %s: %s kg in %d deliveries\n", p.Name, p.Quantity, p.Entries)
		}
	}
	if len(report.Grades) > 0 {
		b.WriteString("\nGraded kernels:\n")
		for _, g := range report.Grades {
			fmt.Fprintf(&b, "- %s: %s kg\n", g.Grade, g.Quantity)
		}
	}
	if len(report.DispatchByCustomer) > 0 {
		fmt.Fprintf(&b, "\nDispatched %s boxes:\n", report.DispatchedBoxes)
		for _, p := range report.DispatchByCustomer {
			fmt.Fprintf(&b, "- %s: %s boxes\n", p.Name, p.Quantity)
		}
	}
	if report.QualityFailures > 0 {
		fmt.Fprintf(&b, "\nFailed quality checks: %d\n", report.QualityFailures)
	}

	if stock != nil && stock.LowStockCount > 0 {
		b.WriteString("\nLow stock:\n")
		for _, line := range stock.Items {
			if line.LowStock {
				fmt.Fprintf(&b, "- %s: %s %s (reorder at %s)\n",
					line.Item.Name, line.Item.Quantity, line.Item.Unit, line.Item.ReorderLevel)
			}
		}
	}
	return b.String()
}

// LotPrompt renders a lot trace as plain text for the model
func LotPrompt(trace *dto.LotTrace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Traceability for lot %s, currently at %s\n", trace.LotID, trace.CurrentStage.DisplayName())
	fmt.Fprintf(&b, "Intake %s kg, final output %s kg, overall yield %s%%\n",
		trace.IntakeKg, trace.FinalOutputKg, trace.OverallYieldPct)

	b.WriteString("\nStages:\n")
	for _, step := range trace.Steps {
		fmt.Fprintf(&b, "- %s (%s): input %s, output %s, yield %s%%\n",
			step.DisplayName, step.FirstAt.Format("2006-01-02"), step.InputQty, step.OutputQty, step.YieldPct)
	}

	if len(trace.MissingStages) > 0 {
		names := make([]string, len(trace.MissingStages))
		for i, st := range trace.MissingStages {
			names[i] = st.DisplayName()
		}
		fmt.Fprintf(&b, "\nNo entries for: %s\n", strings.Join(names, ", "))
	}
	for _, qc := range trace.QualityChecks {
		fmt.Fprintf(&b, "Quality check %s: %s\n", qc.RecordedAt.Format("2006-01-02"), qc.Field("result"))
	}
	return b.String()
}
