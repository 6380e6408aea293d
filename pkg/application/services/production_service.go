package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	domainservices "github.com/vsinha/cashew/pkg/domain/services"
	"github.com/vsinha/cashew/pkg/infrastructure/events"
)

// RecordRequest is one submitted stage form
type RecordRequest struct {
	Stage      entities.Stage               `json:"stage"`
	LotID      string                       `json:"lot_id"`
	Operator   string                       `json:"operator"`
	Shift      string                       `json:"shift,omitempty"`
	RecordedAt time.Time                    `json:"recorded_at,omitempty"`
	InputQty   entities.Quantity            `json:"input_qty"`
	OutputQty  entities.Quantity            `json:"output_qty"`
	Fields     map[string]string            `json:"fields,omitempty"`
	Grades     map[string]entities.Quantity `json:"grades,omitempty"`
	Notes      string                       `json:"notes,omitempty"`
}

// ProductionService records stage logs and applies their stock effects
type ProductionService struct {
	repo      repositories.ProductionRepository
	inventory *InventoryService
	validator *domainservices.FormValidator
	deps      Deps
}

// NewProductionService creates a new production logging service
func NewProductionService(repo repositories.ProductionRepository, inventory *InventoryService, deps Deps) *ProductionService {
	return &ProductionService{
		repo:      repo,
		inventory: inventory,
		validator: domainservices.NewFormValidator(),
		deps:      deps.withDefaults(),
	}
}

// Record validates and stores a production log, then applies the stage's
// inventory effects through the ledger. The log is stored before any stock
// moves; when an effect fails the saved log is still returned together with
// the error, and later effects of the same log are skipped.
func (s *ProductionService) Record(ctx context.Context, req RecordRequest) (*dto.RecordResult, error) {
	log, err := s.buildLog(req)
	if err != nil {
		return nil, err
	}

	validation := s.validator.ValidateLog(log)
	if err := validation.Err(); err != nil {
		return nil, err
	}

	result := &dto.RecordResult{Log: log, Adjustments: []dto.AdjustmentResult{}}
	for _, f := range validation.UnknownFields {
		result.Warnings = append(result.Warnings, fmt.Sprintf("field %s is not part of the %s form", f, log.Stage.DisplayName()))
	}

	if err := s.repo.SaveLog(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to save %s log: %w", log.Stage, err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ProductionLogs.WithLabelValues(log.Stage.String()).Inc()
		s.deps.Metrics.StageInputKg.WithLabelValues(log.Stage.String()).Add(log.InputQty.InexactFloat64())
	}
	s.deps.Logger.Info("Production log recorded",
		zap.String("id", log.ID),
		zap.String("stage", log.Stage.String()),
		zap.String("lot", log.LotID),
		zap.String("input", log.InputQty.String()),
		zap.String("output", log.OutputQty.String()))
	s.deps.publish(events.NewProductionLoggedEvent(*log, s.deps.Clock()))

	effects, err := InventoryEffects(log)
	if err != nil {
		return result, fmt.Errorf("production log %s saved but its inventory effects are invalid: %w", log.ID, err)
	}
	for _, effect := range effects {
		adj, err := s.inventory.FindAndUpdateOrCreate(ctx, effect)
		if err != nil {
			s.deps.Logger.Warn("Inventory effect failed",
				zap.String("log", log.ID),
				zap.String("item", effect.ItemName),
				zap.Error(err))
			return result, fmt.Errorf("production log %s saved but inventory update failed: %w", log.ID, err)
		}
		result.Adjustments = append(result.Adjustments, *adj)
		if adj.Warning != "" {
			result.Warnings = append(result.Warnings, adj.Warning)
		}
	}

	return result, nil
}

func (s *ProductionService) buildLog(req RecordRequest) (*entities.ProductionLog, error) {
	var problems []string

	if err := domainservices.ValidateLotID(req.LotID); err != nil {
		problems = append(problems, err.Error())
	}
	shift, err := entities.ParseShift(req.Shift)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, &entities.ValidationError{Problems: problems}
	}

	recordedAt := req.RecordedAt
	if !recordedAt.IsZero() {
		recordedAt = recordedAt.UTC()
	}
	log, err := entities.NewProductionLog(req.Stage, req.LotID, req.Operator, shift, recordedAt, req.InputQty, req.OutputQty, s.deps.Clock())
	if err != nil {
		return nil, &entities.ValidationError{Problems: []string{err.Error()}}
	}
	log.Notes = strings.TrimSpace(req.Notes)

	for k, v := range req.Fields {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		log.Fields[key] = strings.TrimSpace(v)
	}
	if len(req.Grades) > 0 {
		log.Grades = make(map[string]entities.Quantity, len(req.Grades))
		for g, qty := range req.Grades {
			log.Grades[strings.ToUpper(strings.TrimSpace(g))] = qty
		}
	}

	deriveQuantities(log)
	return log, nil
}

// deriveQuantities fills the weights a stage form implies but does not ask for
func deriveQuantities(log *entities.ProductionLog) {
	switch log.Stage {
	case entities.StageGrading:
		if log.OutputQty.IsZero() {
			total := decimal.Zero
			for _, qty := range log.Grades {
				total = total.Add(qty)
			}
			log.OutputQty = total
		}
	case entities.StagePackaging:
		if log.InputQty.IsZero() {
			bags, err1 := log.QuantityField("bag_count")
			perBag, err2 := log.QuantityField("kg_per_bag")
			if err1 == nil && err2 == nil {
				log.InputQty = bags.Mul(perBag)
			}
		}
		if log.OutputQty.IsZero() {
			log.OutputQty = log.InputQty
		}
	}
}

// InventoryEffects lists the ledger changes a stage log causes, in the order
// they are applied
func InventoryEffects(log *entities.ProductionLog) ([]AdjustRequest, error) {
	base := AdjustRequest{
		Reference: log.ID,
		LotID:     log.LotID,
		Actor:     log.Operator,
	}
	effect := func(name string, category entities.Category, unit entities.Unit, change entities.Quantity, reason entities.TransactionType) AdjustRequest {
		req := base
		req.ItemName = name
		req.Category = category
		req.Unit = unit
		req.Change = change
		req.Reason = reason
		return req
	}

	var effects []AdjustRequest
	switch log.Stage {
	case entities.StageIntake:
		effects = append(effects, effect(entities.RawCashewNuts, entities.RawMaterial, entities.UnitKg, log.InputQty, entities.Intake))

	case entities.StageSteaming:
		effects = append(effects, effect(entities.RawCashewNuts, entities.RawMaterial, entities.UnitKg, log.InputQty.Neg(), entities.Consumption))

	case entities.StageShelling:
		shell, err := log.QuantityField("shell_kg")
		if err != nil {
			return nil, err
		}
		if shell.IsPositive() {
			effects = append(effects, effect(entities.CashewShells, entities.ByProduct, entities.UnitKg, shell, entities.ProductionOutput))
		}

	case entities.StageGrading:
		for _, grade := range log.GradeNames() {
			effects = append(effects, effect(entities.KernelItemName(grade), entities.WorkInProgress, entities.UnitKg, log.Grades[grade], entities.ProductionOutput))
		}

	case entities.StagePackaging:
		grade := log.Field("grade")
		bags, err := log.QuantityField("bag_count")
		if err != nil {
			return nil, err
		}
		perBag, err := log.QuantityField("kg_per_bag")
		if err != nil {
			return nil, err
		}
		boxes, err := log.QuantityField("box_count")
		if err != nil {
			return nil, err
		}
		// Kernels leave stock as packed weight, whatever was weighed in
		effects = append(effects,
			effect(entities.KernelItemName(grade), entities.WorkInProgress, entities.UnitKg, bags.Mul(perBag).Neg(), entities.Consumption),
			effect(entities.VacuumBags, entities.Packaging, entities.UnitPcs, bags.Neg(), entities.Consumption),
			effect(entities.PackedItemName(grade), entities.FinishedGood, entities.UnitBoxes, boxes, entities.ProductionOutput),
		)

	case entities.StageDispatch:
		boxes, err := log.QuantityField("box_count")
		if err != nil {
			return nil, err
		}
		effects = append(effects, effect(entities.PackedItemName(log.Field("grade")), entities.FinishedGood, entities.UnitBoxes, boxes.Neg(), entities.Dispatch))
	}

	// Zero changes are not ledger events
	filtered := effects[:0]
	for _, e := range effects {
		if !e.Change.IsZero() {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Get returns one production log
func (s *ProductionService) Get(ctx context.Context, id string) (*entities.ProductionLog, error) {
	return s.repo.GetLog(ctx, id)
}

// List returns production logs matching filter
func (s *ProductionService) List(ctx context.Context, filter entities.ProductionFilter) ([]*entities.ProductionLog, error) {
	return s.repo.ListLogs(ctx, filter)
}
