package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cashew.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func rawNutsTemplate(t *testing.T) *entities.InventoryItem {
	t.Helper()
	item, err := entities.NewInventoryItem(entities.RawCashewNuts, entities.RawMaterial, entities.UnitKg, entities.Qty(500), time.Now())
	require.NoError(t, err)
	return item
}

func TestInventoryRepository_UpdateItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(openTestStore(t))

	delta, err := entities.ParseQuantity("120.75")
	require.NoError(t, err)

	item, err := repo.UpdateItem(ctx, entities.RawCashewNuts, rawNutsTemplate(t), func(item *entities.InventoryItem, created bool) error {
		assert.True(t, created)
		item.Quantity = item.Quantity.Add(delta)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(delta))

	got, err := repo.GetItem(ctx, "raw cashew nuts")
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "120.75", got.Quantity.String())
	assert.Equal(t, entities.RawMaterial, got.Category)
	assert.True(t, got.ReorderLevel.Equal(entities.Qty(500)))
}

func TestInventoryRepository_FailedMutationRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(openTestStore(t))

	_, err := repo.UpdateItem(ctx, entities.RawCashewNuts, rawNutsTemplate(t), func(item *entities.InventoryItem, created bool) error {
		return entities.ErrInsufficientStock
	})
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)

	_, err = repo.GetItem(ctx, entities.RawCashewNuts)
	assert.True(t, errors.Is(err, entities.ErrItemNotFound), "aborted create must not persist, got %v", err)
}

func TestInventoryRepository_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(openTestStore(t))
	template := rawNutsTemplate(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateItem(ctx, entities.RawCashewNuts, template, func(item *entities.InventoryItem, created bool) error {
				item.Quantity = item.Quantity.Add(entities.Qty(5))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetItem(ctx, entities.RawCashewNuts)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Quantity.String())
}

func TestInventoryRepository_Logs(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(openTestStore(t))
	base := time.Date(2025, 4, 2, 6, 0, 0, 0, time.UTC)

	item := rawNutsTemplate(t)
	for i, change := range []int64{100, -30, 50} {
		item.Quantity = item.Quantity.Add(entities.Qty(change))
		log, err := entities.NewInventoryLog(item, entities.Qty(change), entities.Intake, "ref", "lot-9", "ravi", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.AppendLog(ctx, log))
	}

	logs, err := repo.ListLogs(ctx, entities.InventoryLogFilter{LotID: "LOT-9"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "50", logs[0].Change.String())
	assert.Equal(t, "120", logs[0].QuantityAfter.String())

	limited, err := repo.ListLogs(ctx, entities.InventoryLogFilter{ItemName: entities.RawCashewNuts, Limit: 2, From: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "-30", limited[1].Change.String())
}

func TestProductionRepository_Documents(t *testing.T) {
	ctx := context.Background()
	repo := NewProductionRepository(openTestStore(t))
	at := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

	grading, err := entities.NewProductionLog(entities.StageGrading, "lot-9", "Meena", entities.ShiftEvening, at, entities.Qty(220), entities.Qty(215), at)
	require.NoError(t, err)
	grading.Grades = map[string]entities.Quantity{"W240": entities.Qty(120), "W320": entities.Qty(95)}
	grading.Fields["note"] = "clean batch"
	require.NoError(t, repo.SaveLog(ctx, grading))
	assert.Error(t, repo.SaveLog(ctx, grading), "duplicate ids must be rejected")

	intake, err := entities.NewProductionLog(entities.StageIntake, "LOT-9", "ravi", "", at.Add(-48*time.Hour), entities.Qty(1000), entities.Qty(0), at)
	require.NoError(t, err)
	require.NoError(t, repo.SaveLog(ctx, intake))

	got, err := repo.GetLog(ctx, grading.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StageGrading, got.Stage)
	assert.True(t, got.RecordedAt.Equal(at))
	assert.Equal(t, "120", got.Grades["W240"].String())
	assert.Equal(t, "clean batch", got.Field("note"))

	_, err = repo.GetLog(ctx, "nope")
	assert.ErrorIs(t, err, entities.ErrLogNotFound)

	byLot, err := repo.ListLogs(ctx, entities.ProductionFilter{LotID: "lot-9"})
	require.NoError(t, err)
	require.Len(t, byLot, 2)
	assert.Equal(t, entities.StageIntake, byLot[0].Stage)

	stage := entities.StageGrading
	byStage, err := repo.ListLogs(ctx, entities.ProductionFilter{Stage: &stage, Operator: "MEENA"})
	require.NoError(t, err)
	assert.Len(t, byStage, 1)

	lots, err := repo.ListLotIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"LOT-9"}, lots)
}

func TestProductionRepository_LimitKeepsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewProductionRepository(openTestStore(t))
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		log, err := entities.NewProductionLog(entities.StageIntake, "LOT-1", "ravi", "", at, entities.Qty(10), entities.Qty(0), at)
		require.NoError(t, err)
		require.NoError(t, repo.SaveLog(ctx, log))
	}

	logs, err := repo.ListLogs(ctx, entities.ProductionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].RecordedAt.Equal(base.Add(3*time.Hour)))
	assert.True(t, logs[1].RecordedAt.Equal(base.Add(4*time.Hour)))
}

func TestInventoryRepository_LogsFollowCommitOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(openTestStore(t))
	template := rawNutsTemplate(t)
	now := time.Date(2025, 4, 2, 6, 0, 0, 0, time.UTC)

	add := func(delta int64) *entities.InventoryItem {
		item, err := repo.UpdateItem(ctx, entities.RawCashewNuts, template, func(item *entities.InventoryItem, created bool) error {
			item.Quantity = item.Quantity.Add(entities.Qty(delta))
			return nil
		})
		require.NoError(t, err)
		return item
	}
	first := add(10)
	second := add(5)
	require.Greater(t, second.Version, first.Version)

	_, err := repo.UpdateItem(ctx, entities.RawCashewNuts, template, func(item *entities.InventoryItem, created bool) error {
		return entities.ErrInsufficientStock
	})
	require.ErrorIs(t, err, entities.ErrInsufficientStock)
	third := add(1)
	assert.Equal(t, second.Version+1, third.Version, "an aborted update must not take a sequence value")

	for _, step := range []struct {
		item   *entities.InventoryItem
		change int64
	}{{second, 5}, {third, 1}, {first, 10}} {
		log, err := entities.NewInventoryLog(step.item, entities.Qty(step.change), entities.Intake, "", "", "", now)
		require.NoError(t, err)
		require.NoError(t, repo.AppendLog(ctx, log))
	}

	logs, err := repo.ListLogs(ctx, entities.InventoryLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "16", logs[0].QuantityAfter.String())
	assert.Equal(t, "15", logs[1].QuantityAfter.String())
	assert.Equal(t, "10", logs[2].QuantityAfter.String())
}
