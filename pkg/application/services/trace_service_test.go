package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/cashew/pkg/domain/entities"
	testhelpers "github.com/vsinha/cashew/pkg/infrastructure/testing"
)

func TestTraceService_Trace(t *testing.T) {
	inventoryRepo, productionRepo := testhelpers.BuildPlantTestData()
	service := NewTraceService(productionRepo, inventoryRepo, Deps{})

	trace, err := service.Trace(context.Background(), "lot-1")
	require.NoError(t, err)

	assert.Equal(t, "LOT-1", trace.LotID)
	stages := make([]entities.Stage, len(trace.Steps))
	for i, step := range trace.Steps {
		stages[i] = step.Stage
	}
	assert.Equal(t, []entities.Stage{
		entities.StageIntake, entities.StageSteaming, entities.StageShelling, entities.StageGrading,
	}, stages)
	assert.Equal(t, entities.StageGrading, trace.CurrentStage)
	assert.Equal(t, []entities.Stage{
		entities.StageDrying, entities.StageKernelDrying, entities.StagePeeling,
	}, trace.MissingStages)

	assert.True(t, trace.IntakeKg.Equal(entities.Qty(1000)))
	assert.True(t, trace.FinalOutputKg.Equal(entities.Qty(230)))
	assert.Equal(t, "23", trace.OverallYieldPct.String())
	assert.Len(t, trace.QualityChecks, 1)
}

func TestTraceService_IncludesInventoryMovements(t *testing.T) {
	f := newPlantFixture(t)
	ctx := context.Background()

	_, err := f.production.Record(ctx, intakeRecord("LOT-9", 400))
	require.NoError(t, err)
	_, err = f.production.Record(ctx, intakeRecord("LOT-10", 100))
	require.NoError(t, err)

	service := NewTraceService(f.productionRepo, f.inventoryRepo, Deps{})
	trace, err := service.Trace(ctx, "LOT-9")
	require.NoError(t, err)
	require.Len(t, trace.InventoryMovements, 1)
	assert.True(t, trace.InventoryMovements[0].Change.Equal(entities.Qty(400)))
	assert.Empty(t, trace.MissingStages)
	assert.Equal(t, entities.StageIntake, trace.CurrentStage)
}

func TestTraceService_UnknownLot(t *testing.T) {
	inventoryRepo, productionRepo := testhelpers.BuildPlantTestData()
	service := NewTraceService(productionRepo, inventoryRepo, Deps{})

	for _, lot := range []string{"LOT-404", "   "} {
		_, err := service.Trace(context.Background(), lot)
		assert.True(t, errors.Is(err, entities.ErrLotNotFound), "lot %q: got %v", lot, err)
	}
}

func TestTraceService_ListLots(t *testing.T) {
	f := newPlantFixture(t)
	ctx := context.Background()

	for _, lot := range []string{"LOT-10", "LOT-2", "LOT-9"} {
		_, err := f.production.Record(ctx, intakeRecord(lot, 10))
		require.NoError(t, err)
	}
	_, err := f.production.Record(ctx, RecordRequest{
		Stage: entities.StageDrying, LotID: "LOT-2", InputQty: entities.Qty(10), OutputQty: entities.Qty(9),
		Fields: map[string]string{"method": "sun"},
	})
	require.NoError(t, err)

	service := NewTraceService(f.productionRepo, f.inventoryRepo, Deps{})
	lots, err := service.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 3)

	assert.Equal(t, "LOT-2", lots[0].LotID)
	assert.Equal(t, entities.StageDrying, lots[0].CurrentStage)
	assert.Equal(t, 2, lots[0].LogCount)
	assert.Equal(t, "LOT-9", lots[1].LotID)
	assert.Equal(t, "LOT-10", lots[2].LotID)
}
