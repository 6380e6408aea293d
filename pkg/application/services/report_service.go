package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	domainservices "github.com/vsinha/cashew/pkg/domain/services"
)

// MaxReportDays bounds range reports
const MaxReportDays = 93

// ReportService aggregates production logs and stock into reports
type ReportService struct {
	production repositories.ProductionRepository
	inventory  repositories.InventoryRepository
	lots       *domainservices.LotComparator
	deps       Deps
}

// NewReportService creates a new report service
func NewReportService(production repositories.ProductionRepository, inventory repositories.InventoryRepository, deps Deps) *ReportService {
	return &ReportService{
		production: production,
		inventory:  inventory,
		lots:       domainservices.NewLotComparator(),
		deps:       deps.withDefaults(),
	}
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DailyReport summarizes the given calendar day
func (s *ReportService) DailyReport(ctx context.Context, day time.Time) (*dto.DailyReport, error) {
	from := StartOfDay(day)
	logs, err := s.logsByStage(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return s.buildDaily(from, logs), nil
}

// RangeReport summarizes every day from the day of from through the day of to
func (s *ReportService) RangeReport(ctx context.Context, from, to time.Time) (*dto.RangeReport, error) {
	from = StartOfDay(from)
	end := StartOfDay(to).AddDate(0, 0, 1)
	if !end.After(from) {
		return nil, &entities.ValidationError{Problems: []string{"report end date is before start date"}}
	}
	if days := int(end.Sub(from).Hours() / 24); days > MaxReportDays {
		return nil, &entities.ValidationError{Problems: []string{fmt.Sprintf("report covers %d days, maximum is %d", days, MaxReportDays)}}
	}

	logs, err := s.logsByStage(ctx, from, end)
	if err != nil {
		return nil, err
	}

	report := &dto.RangeReport{From: from, To: end.AddDate(0, 0, -1)}
	for day := from; day.Before(end); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		dayLogs := make([][]*entities.ProductionLog, len(logs))
		for i, stageLogs := range logs {
			for _, log := range stageLogs {
				if !log.RecordedAt.Before(day) && log.RecordedAt.Before(next) {
					dayLogs[i] = append(dayLogs[i], log)
				}
			}
		}
		report.Days = append(report.Days, *s.buildDaily(day, dayLogs))
	}

	for i, stage := range entities.AllStages() {
		report.Totals = append(report.Totals, summarizeStage(stage, logs[i]))
	}
	return report, nil
}

// InventoryReport snapshots every stock item
func (s *ReportService) InventoryReport(ctx context.Context) (*dto.InventoryReport, error) {
	items, err := s.inventory.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	report := &dto.InventoryReport{
		GeneratedAt: s.deps.Clock(),
		Items:       make([]dto.InventoryLine, 0, len(items)),
	}
	for _, item := range items {
		low := item.IsLowStock()
		if low {
			report.LowStockCount++
		}
		report.Items = append(report.Items, dto.InventoryLine{Item: item, LowStock: low})
	}
	return report, nil
}

// logsByStage loads each stage's logs in [from, to) concurrently. The result
// is indexed by stage order.
func (s *ReportService) logsByStage(ctx context.Context, from, to time.Time) ([][]*entities.ProductionLog, error) {
	stages := entities.AllStages()
	results := make([][]*entities.ProductionLog, len(stages))

	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range stages {
		g.Go(func() error {
			logs, err := s.production.ListLogs(gctx, entities.ProductionFilter{Stage: &stage, From: from, To: to})
			if err != nil {
				return fmt.Errorf("failed to load %s logs: %w", stage, err)
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ReportService) buildDaily(day time.Time, logs [][]*entities.ProductionLog) *dto.DailyReport {
	report := &dto.DailyReport{
		Date:               day,
		Stages:             make([]dto.StageSummary, 0, len(logs)),
		IntakeBySupplier:   []dto.PartyTotal{},
		DispatchByCustomer: []dto.PartyTotal{},
		Grades:             []dto.GradeTotal{},
		TotalIntakeKg:      decimal.Zero,
		DispatchedBoxes:    decimal.Zero,
		Lots:               []string{},
	}

	suppliers := newPartyTotals()
	customers := newPartyTotals()
	grades := map[string]entities.Quantity{}
	lots := map[string]bool{}

	for i, stage := range entities.AllStages() {
		stageLogs := logs[i]
		report.Stages = append(report.Stages, summarizeStage(stage, stageLogs))

		for _, log := range stageLogs {
			lots[log.LotID] = true
			switch stage {
			case entities.StageIntake:
				suppliers.add(log.Field("supplier"), log.InputQty)
				report.TotalIntakeKg = report.TotalIntakeKg.Add(log.InputQty)
			case entities.StageDispatch:
				boxes, _ := log.QuantityField("box_count")
				customers.add(log.Field("customer"), boxes)
				report.DispatchedBoxes = report.DispatchedBoxes.Add(boxes)
			case entities.StageGrading:
				for g, qty := range log.Grades {
					grades[g] = grades[g].Add(qty)
				}
			case entities.StageQualityCheck:
				if strings.EqualFold(log.Field("result"), "fail") {
					report.QualityFailures++
				}
			}
		}
	}

	report.IntakeBySupplier = suppliers.sorted()
	report.DispatchByCustomer = customers.sorted()

	gradeNames := make([]string, 0, len(grades))
	for g := range grades {
		gradeNames = append(gradeNames, g)
	}
	sort.Strings(gradeNames)
	for _, g := range gradeNames {
		report.Grades = append(report.Grades, dto.GradeTotal{Grade: g, Quantity: grades[g]})
	}

	for lot := range lots {
		report.Lots = append(report.Lots, lot)
	}
	s.lots.SortLots(report.Lots)

	return report
}

func summarizeStage(stage entities.Stage, logs []*entities.ProductionLog) dto.StageSummary {
	summary := dto.StageSummary{
		Stage:       stage,
		DisplayName: stage.DisplayName(),
		LogCount:    len(logs),
		InputQty:    decimal.Zero,
		OutputQty:   decimal.Zero,
	}
	for _, log := range logs {
		summary.InputQty = summary.InputQty.Add(log.InputQty)
		summary.OutputQty = summary.OutputQty.Add(log.OutputQty)
	}
	summary.YieldPct = entities.YieldPercent(summary.InputQty, summary.OutputQty)
	return summary
}

type partyTotals map[string]*dto.PartyTotal

func newPartyTotals() partyTotals {
	return partyTotals{}
}

func (p partyTotals) add(name string, qty entities.Quantity) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unknown"
	}
	key := strings.ToLower(name)
	total, ok := p[key]
	if !ok {
		total = &dto.PartyTotal{Name: name, Quantity: decimal.Zero}
		p[key] = total
	}
	total.Quantity = total.Quantity.Add(qty)
	total.Entries++
}

// sorted returns totals by descending quantity, then name
func (p partyTotals) sorted() []dto.PartyTotal {
	out := make([]dto.PartyTotal, 0, len(p))
	for _, t := range p {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Quantity.Cmp(out[j].Quantity); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
