package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	domainservices "github.com/vsinha/cashew/pkg/domain/services"
)

// TraceService follows a lot through the processing line
type TraceService struct {
	production repositories.ProductionRepository
	inventory  repositories.InventoryRepository
	lots       *domainservices.LotComparator
	deps       Deps
}

// NewTraceService creates a new trace service
func NewTraceService(production repositories.ProductionRepository, inventory repositories.InventoryRepository, deps Deps) *TraceService {
	return &TraceService{
		production: production,
		inventory:  inventory,
		lots:       domainservices.NewLotComparator(),
		deps:       deps.withDefaults(),
	}
}

// Trace returns every log and stock movement recorded against the lot
func (s *TraceService) Trace(ctx context.Context, lotID string) (*dto.LotTrace, error) {
	lotID = entities.NormalizeLotID(lotID)
	if lotID == "" {
		return nil, fmt.Errorf("%w: empty lot id", entities.ErrLotNotFound)
	}

	logs, err := s.production.ListLogs(ctx, entities.ProductionFilter{LotID: lotID})
	if err != nil {
		return nil, fmt.Errorf("failed to load logs for lot %s: %w", lotID, err)
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, lotID)
	}
	entities.SortProductionLogs(logs)

	movements, err := s.inventory.ListLogs(ctx, entities.InventoryLogFilter{LotID: lotID})
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory movements for lot %s: %w", lotID, err)
	}
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})

	trace := &dto.LotTrace{
		LotID:              lotID,
		Steps:              []dto.TraceStep{},
		IntakeKg:           decimal.Zero,
		FinalOutputKg:      decimal.Zero,
		OverallYieldPct:    decimal.Zero,
		InventoryMovements: movements,
	}

	byStage := map[entities.Stage][]*entities.ProductionLog{}
	for _, log := range logs {
		if log.Stage == entities.StageQualityCheck {
			trace.QualityChecks = append(trace.QualityChecks, log)
			continue
		}
		byStage[log.Stage] = append(byStage[log.Stage], log)
	}

	for _, stage := range entities.LineStages() {
		stageLogs := byStage[stage]
		if len(stageLogs) == 0 {
			trace.MissingStages = append(trace.MissingStages, stage)
			continue
		}
		trace.Steps = append(trace.Steps, buildTraceStep(stage, stageLogs))
		trace.CurrentStage = stage
	}

	// Only the stages before the furthest one reached count as missing.
	missing := trace.MissingStages[:0]
	for _, stage := range trace.MissingStages {
		if stage.Order() < trace.CurrentStage.Order() {
			missing = append(missing, stage)
		}
	}
	trace.MissingStages = missing

	if len(trace.Steps) > 0 {
		if intake, ok := byStage[entities.StageIntake]; ok {
			trace.IntakeKg = buildTraceStep(entities.StageIntake, intake).InputQty
		}
		trace.FinalOutputKg = finalOutputKg(trace.Steps)
		trace.OverallYieldPct = entities.YieldPercent(trace.IntakeKg, trace.FinalOutputKg)
	} else {
		// A lot with only quality checks is still traceable.
		trace.CurrentStage = entities.StageQualityCheck
	}

	return trace, nil
}

// ListLots summarizes every known lot, naturally sorted by id
func (s *TraceService) ListLots(ctx context.Context) ([]dto.LotSummary, error) {
	ids, err := s.production.ListLotIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	s.lots.SortLots(ids)

	summaries := make([]dto.LotSummary, 0, len(ids))
	for _, id := range ids {
		logs, err := s.production.ListLogs(ctx, entities.ProductionFilter{LotID: id})
		if err != nil {
			return nil, fmt.Errorf("failed to load logs for lot %s: %w", id, err)
		}
		summary := dto.LotSummary{LotID: id, LogCount: len(logs), CurrentStage: entities.StageQualityCheck}
		furthest := -1
		for _, log := range logs {
			if log.RecordedAt.After(summary.LastRecordedAt) {
				summary.LastRecordedAt = log.RecordedAt
			}
			if log.Stage != entities.StageQualityCheck && log.Stage.Order() > furthest {
				furthest = log.Stage.Order()
				summary.CurrentStage = log.Stage
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func buildTraceStep(stage entities.Stage, logs []*entities.ProductionLog) dto.TraceStep {
	step := dto.TraceStep{
		Stage:       stage,
		DisplayName: stage.DisplayName(),
		InputQty:    decimal.Zero,
		OutputQty:   decimal.Zero,
		FirstAt:     logs[0].RecordedAt,
		LastAt:      logs[len(logs)-1].RecordedAt,
		Logs:        logs,
	}
	for _, log := range logs {
		step.InputQty = step.InputQty.Add(log.InputQty)
		step.OutputQty = step.OutputQty.Add(log.OutputQty)
	}
	step.YieldPct = entities.YieldPercent(step.InputQty, step.OutputQty)
	return step
}

// finalOutputKg is the output of the furthest stage that still measures kg.
// Dispatch counts boxes, so it never supplies the final weight.
func finalOutputKg(steps []dto.TraceStep) entities.Quantity {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Stage == entities.StageDispatch {
			continue
		}
		if steps[i].OutputQty.IsPositive() {
			return steps[i].OutputQty
		}
	}
	return decimal.Zero
}
