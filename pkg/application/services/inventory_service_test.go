package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/infrastructure/events"
	"github.com/vsinha/cashew/pkg/infrastructure/metrics"
	"github.com/vsinha/cashew/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/cashew/pkg/infrastructure/testing"
)

// typeCollector records the event types it sees
type typeCollector struct {
	mu    sync.Mutex
	types []string
}

func (c *typeCollector) CanHandle(eventType string) bool { return true }

func (c *typeCollector) Handle(event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = append(c.types, event.Type())
	return nil
}

func (c *typeCollector) count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.types {
		if t == eventType {
			n++
		}
	}
	return n
}

func testDeps(t *testing.T) (Deps, *events.InMemoryEventStore, *typeCollector) {
	t.Helper()
	store := events.NewInMemoryEventStore(nil)
	collector := &typeCollector{}
	require.NoError(t, store.Subscribe(events.AllEventTypes, collector))
	return Deps{
		Events:  store,
		Metrics: metrics.New(),
		Clock:   testhelpers.FixedClock(testhelpers.At(9, 0)),
	}, store, collector
}

func intakeAdjust(qty int64) AdjustRequest {
	return AdjustRequest{
		ItemName: entities.RawCashewNuts,
		Category: entities.RawMaterial,
		Unit:     entities.UnitKg,
		Change:   entities.Qty(qty),
		Reason:   entities.Intake,
		LotID:    "lot-7",
		Actor:    "ravi",
	}
}

func TestInventoryService_CreatesItemOnFirstAdjustment(t *testing.T) {
	ctx := context.Background()
	deps, store, collector := testDeps(t)
	repo := memory.NewInventoryRepository(4)
	service := NewInventoryService(repo, InventoryConfig{
		ReorderLevels: map[string]entities.Quantity{"raw cashew nuts": entities.Qty(500)},
	}, deps)

	result, err := service.FindAndUpdateOrCreate(ctx, intakeAdjust(800))
	require.NoError(t, err)

	assert.Equal(t, entities.RawCashewNuts, result.Item.Name)
	assert.True(t, result.Item.Quantity.Equal(entities.Qty(800)), "quantity %s", result.Item.Quantity)
	assert.True(t, result.Item.ReorderLevel.Equal(entities.Qty(500)), "reorder level %s", result.Item.ReorderLevel)
	assert.NotEmpty(t, result.LogID)
	assert.Empty(t, result.Warning)

	logs, err := service.ListLogs(ctx, entities.InventoryLogFilter{LotID: "LOT-7"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, result.LogID, logs[0].ID)
	assert.True(t, logs[0].QuantityAfter.Equal(entities.Qty(800)))
	assert.Equal(t, entities.Intake, logs[0].Reason)

	store.Wait()
	assert.Equal(t, 1, collector.count(events.InventoryAdjustedEvent))
	assert.Equal(t, 0, collector.count(events.InventoryLowStockEvent))
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.Metrics.InventoryAdjustments.WithLabelValues("intake")))
}

func TestInventoryService_RejectsNegativeStock(t *testing.T) {
	ctx := context.Background()
	deps, _, _ := testDeps(t)
	repo := memory.NewInventoryRepository(4)
	service := NewInventoryService(repo, InventoryConfig{}, deps)

	_, err := service.FindAndUpdateOrCreate(ctx, intakeAdjust(100))
	require.NoError(t, err)

	consume := intakeAdjust(-150)
	consume.Reason = entities.Consumption
	_, err = service.FindAndUpdateOrCreate(ctx, consume)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrInsufficientStock), "got %v", err)

	item, err := service.GetItem(ctx, entities.RawCashewNuts)
	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(entities.Qty(100)), "stock must be unchanged, got %s", item.Quantity)

	logs, _ := service.ListLogs(ctx, entities.InventoryLogFilter{})
	assert.Len(t, logs, 1, "a rejected change must not write a log row")
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.Metrics.InventoryRejections.WithLabelValues("insufficient_stock")))
}

func TestInventoryService_AllowNegative(t *testing.T) {
	deps, _, _ := testDeps(t)
	service := NewInventoryService(memory.NewInventoryRepository(4), InventoryConfig{AllowNegative: true}, deps)

	consume := intakeAdjust(-25)
	consume.Reason = entities.Consumption
	result, err := service.FindAndUpdateOrCreate(context.Background(), consume)
	require.NoError(t, err)
	assert.True(t, result.Item.Quantity.Equal(entities.Qty(-25)))
}

func TestInventoryService_LogFailureKeepsQuantity(t *testing.T) {
	ctx := context.Background()
	deps, store, collector := testDeps(t)
	repo := testhelpers.NewFailingLogRepository(memory.NewInventoryRepository(4))
	service := NewInventoryService(repo, InventoryConfig{}, deps)

	result, err := service.FindAndUpdateOrCreate(ctx, intakeAdjust(300))
	require.NoError(t, err, "log failures must not fail the adjustment")

	assert.Empty(t, result.LogID)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, 1, repo.Attempts())
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.Metrics.LedgerLogFailures))

	item, err := service.GetItem(ctx, entities.RawCashewNuts)
	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(entities.Qty(300)))

	repo.SetFail(false)
	result, err = service.FindAndUpdateOrCreate(ctx, intakeAdjust(50))
	require.NoError(t, err)
	assert.NotEmpty(t, result.LogID)
	assert.True(t, result.Item.Quantity.Equal(entities.Qty(350)))

	store.Wait()
	assert.Equal(t, 2, collector.count(events.InventoryAdjustedEvent))
}

func TestInventoryService_Validation(t *testing.T) {
	deps, _, _ := testDeps(t)
	service := NewInventoryService(memory.NewInventoryRepository(4), InventoryConfig{}, deps)
	ctx := context.Background()

	_, err := service.FindAndUpdateOrCreate(ctx, intakeAdjust(10))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  AdjustRequest
	}{
		{"empty name", AdjustRequest{ItemName: "  ", Change: entities.Qty(1)}},
		{"zero change", AdjustRequest{ItemName: "Vacuum Bags", Change: entities.Qty(0)}},
		{"unit mismatch", AdjustRequest{ItemName: entities.RawCashewNuts, Unit: entities.UnitBags, Change: entities.Qty(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.FindAndUpdateOrCreate(ctx, tt.req)
			var vErr *entities.ValidationError
			assert.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
		})
	}
}

func TestInventoryService_LowStockCrossing(t *testing.T) {
	ctx := context.Background()
	deps, store, collector := testDeps(t)
	repo := memory.NewInventoryRepository(4)
	require.NoError(t, repo.LoadItems(testhelpers.BuildStockItems()))
	service := NewInventoryService(repo, InventoryConfig{}, deps)

	// 5000 kg with reorder level 1000
	consume := intakeAdjust(-3500)
	consume.Reason = entities.Consumption
	_, err := service.FindAndUpdateOrCreate(ctx, consume)
	require.NoError(t, err)

	consume.Change = entities.Qty(-600)
	_, err = service.FindAndUpdateOrCreate(ctx, consume)
	require.NoError(t, err)

	// Already below the level, no second alert
	consume.Change = entities.Qty(-100)
	_, err = service.FindAndUpdateOrCreate(ctx, consume)
	require.NoError(t, err)

	store.Wait()
	assert.Equal(t, 1, collector.count(events.InventoryLowStockEvent))

	low, err := service.LowStock(ctx)
	require.NoError(t, err)
	names := make([]string, len(low))
	for i, item := range low {
		names[i] = item.Name
	}
	assert.ElementsMatch(t, []string{entities.RawCashewNuts, entities.VacuumBags}, names)
}

func TestInventoryService_ConcurrentAdjustments(t *testing.T) {
	deps, store, _ := testDeps(t)
	service := NewInventoryService(memory.NewInventoryRepository(4), InventoryConfig{}, deps)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.FindAndUpdateOrCreate(ctx, intakeAdjust(2)); err != nil {
				t.Errorf("adjustment failed: %v", err)
			}
		}()
	}
	wg.Wait()
	store.Wait()

	item, err := service.GetItem(ctx, entities.RawCashewNuts)
	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(entities.Qty(100)), "expected 100, got %s", item.Quantity)

	logs, _ := service.ListLogs(ctx, entities.InventoryLogFilter{})
	require.Len(t, logs, 50)
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i].QuantityAfter.LessThan(logs[i-1].QuantityAfter),
			"row %d shows %s after %s", i, logs[i].QuantityAfter, logs[i-1].QuantityAfter)
	}
	assert.True(t, logs[0].QuantityAfter.Equal(item.Quantity))
}

func TestInventoryService_SetReorderLevel(t *testing.T) {
	deps, _, _ := testDeps(t)
	service := NewInventoryService(memory.NewInventoryRepository(4), InventoryConfig{}, deps)
	ctx := context.Background()

	_, err := service.SetReorderLevel(ctx, "Vacuum Bags", entities.Qty(10))
	assert.True(t, errors.Is(err, entities.ErrItemNotFound), "got %v", err)

	_, err = service.FindAndUpdateOrCreate(ctx, intakeAdjust(10))
	require.NoError(t, err)

	item, err := service.SetReorderLevel(ctx, "raw cashew nuts", entities.Qty(20))
	require.NoError(t, err)
	assert.True(t, item.IsLowStock())

	_, err = service.SetReorderLevel(ctx, entities.RawCashewNuts, entities.Qty(-1))
	assert.Error(t, err)
}
