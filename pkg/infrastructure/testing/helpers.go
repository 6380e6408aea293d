package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	"github.com/vsinha/cashew/pkg/infrastructure/repositories/memory"
)

// Day is the calendar day the plant fixtures are recorded on
var Day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// At returns a time on Day
func At(hour, minute int) time.Time {
	return Day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// FixedClock always returns the same instant
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// BuildStockItems returns the standing stock of a small plant
func BuildStockItems() []*entities.InventoryItem {
	specs := []struct {
		name     string
		category entities.Category
		unit     entities.Unit
		qty      int64
		reorder  int64
	}{
		{entities.RawCashewNuts, entities.RawMaterial, entities.UnitKg, 5000, 1000},
		{entities.VacuumBags, entities.Packaging, entities.UnitPcs, 40, 50},
		{entities.KernelItemName("W240"), entities.WorkInProgress, entities.UnitKg, 120, 0},
		{entities.PackedItemName("W240"), entities.FinishedGood, entities.UnitBoxes, 8, 2},
	}

	items := make([]*entities.InventoryItem, 0, len(specs))
	for _, s := range specs {
		item, err := entities.NewInventoryItem(s.name, s.category, s.unit, entities.Qty(s.reorder), Day)
		if err != nil {
			panic(err)
		}
		item.Quantity = entities.Qty(s.qty)
		items = append(items, item)
	}
	return items
}

// BuildLotLogs returns production logs for lot LOT-1 through intake,
// steaming, shelling and grading, plus one passing quality check
func BuildLotLogs() []*entities.ProductionLog {
	mk := func(stage entities.Stage, at time.Time, in, out int64, fields map[string]string) *entities.ProductionLog {
		log, err := entities.NewProductionLog(stage, "LOT-1", "asha", entities.ShiftMorning, at, entities.Qty(in), entities.Qty(out), at)
		if err != nil {
			panic(err)
		}
		for k, v := range fields {
			log.Fields[k] = v
		}
		return log
	}

	grading := mk(entities.StageGrading, At(15, 0), 240, 230, nil)
	grading.Grades = map[string]entities.Quantity{"W240": entities.Qty(150), "W320": entities.Qty(80)}

	return []*entities.ProductionLog{
		mk(entities.StageIntake, At(8, 0), 1000, 1000, map[string]string{"supplier": "Kollam Traders", "bag_count": "12"}),
		mk(entities.StageSteaming, At(10, 0), 1000, 1000, map[string]string{"boiler_pressure_bar": "6"}),
		mk(entities.StageShelling, At(12, 0), 1000, 250, map[string]string{"shell_kg": "700"}),
		grading,
		mk(entities.StageQualityCheck, At(16, 0), 0, 0, map[string]string{"result": "pass"}),
	}
}

// BuildPlantTestData returns memory repositories holding the standing stock
// and the LOT-1 logs
func BuildPlantTestData() (*memory.InventoryRepository, *memory.ProductionRepository) {
	inventoryRepo := memory.NewInventoryRepository(16)
	if err := inventoryRepo.LoadItems(BuildStockItems()); err != nil {
		panic(err)
	}

	productionRepo := memory.NewProductionRepository()
	for _, log := range BuildLotLogs() {
		if err := productionRepo.SaveLog(context.Background(), log); err != nil {
			panic(err)
		}
	}
	return inventoryRepo, productionRepo
}

// ErrLogStoreDown is returned by FailingLogRepository
var ErrLogStoreDown = errors.New("inventory log store unavailable")

// FailingLogRepository wraps an inventory repository whose audit log writes
// fail while Fail is set
type FailingLogRepository struct {
	repositories.InventoryRepository

	mu       sync.Mutex
	fail     bool
	attempts int
}

// NewFailingLogRepository wraps repo with log writes failing
func NewFailingLogRepository(repo repositories.InventoryRepository) *FailingLogRepository {
	return &FailingLogRepository{InventoryRepository: repo, fail: true}
}

// SetFail toggles log write failures
func (r *FailingLogRepository) SetFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

// Attempts is the number of AppendLog calls seen
func (r *FailingLogRepository) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *FailingLogRepository) AppendLog(ctx context.Context, log *entities.InventoryLog) error {
	r.mu.Lock()
	r.attempts++
	fail := r.fail
	r.mu.Unlock()

	if fail {
		return ErrLogStoreDown
	}
	return r.InventoryRepository.AppendLog(ctx, log)
}
