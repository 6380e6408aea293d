package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

func mustLog(t *testing.T, stage entities.Stage, lot string, at time.Time) *entities.ProductionLog {
	t.Helper()
	log, err := entities.NewProductionLog(stage, lot, "ravi", entities.ShiftMorning, at, entities.Qty(100), entities.Qty(90), at)
	if err != nil {
		t.Fatalf("Failed to build log: %v", err)
	}
	return log
}

func TestProductionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewProductionRepository()
	log := mustLog(t, entities.StageIntake, "lot-7", time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	log.Fields["supplier"] = "Tanzania Co-op"

	if err := repo.SaveLog(ctx, log); err != nil {
		t.Fatalf("Failed to save log: %v", err)
	}
	if err := repo.SaveLog(ctx, log); err == nil {
		t.Error("Expected saving the same log twice to fail")
	}

	// Mutating the caller's copy must not leak into the store
	log.Fields["supplier"] = "changed"

	got, err := repo.GetLog(ctx, log.ID)
	if err != nil {
		t.Fatalf("Failed to get log: %v", err)
	}
	if got.Field("supplier") != "Tanzania Co-op" {
		t.Errorf("Expected stored supplier, got %s", got.Field("supplier"))
	}
	if got.LotID != "LOT-7" {
		t.Errorf("Expected normalized lot id LOT-7, got %s", got.LotID)
	}

	if _, err := repo.GetLog(ctx, "missing"); !errors.Is(err, entities.ErrLogNotFound) {
		t.Errorf("Expected ErrLogNotFound, got %v", err)
	}
}

func TestProductionRepository_ListLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewProductionRepository()
	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, log := range []*entities.ProductionLog{
		mustLog(t, entities.StageSteaming, "LOT-1", day.Add(10*time.Hour)),
		mustLog(t, entities.StageIntake, "LOT-1", day.Add(8*time.Hour)),
		mustLog(t, entities.StageIntake, "LOT-2", day.Add(26*time.Hour)),
	} {
		if err := repo.SaveLog(ctx, log); err != nil {
			t.Fatalf("Failed to save log: %v", err)
		}
	}

	intake := entities.StageIntake
	tests := []struct {
		name     string
		filter   entities.ProductionFilter
		expected int
	}{
		{"all", entities.ProductionFilter{}, 3},
		{"by_stage", entities.ProductionFilter{Stage: &intake}, 2},
		{"by_lot", entities.ProductionFilter{LotID: "lot-1"}, 2},
		{"one_day", entities.ProductionFilter{From: day, To: day.Add(24 * time.Hour)}, 2},
		{"limit", entities.ProductionFilter{Limit: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := repo.ListLogs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Failed to list logs: %v", err)
			}
			if len(logs) != tt.expected {
				t.Errorf("Expected %d logs, got %d", tt.expected, len(logs))
			}
			for i := 1; i < len(logs); i++ {
				if logs[i].RecordedAt.Before(logs[i-1].RecordedAt) {
					t.Errorf("Logs not ordered by recorded time")
				}
			}
		})
	}

	latest, err := repo.ListLogs(ctx, entities.ProductionFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Failed to list logs: %v", err)
	}
	if len(latest) != 2 || !latest[0].RecordedAt.Equal(day.Add(10*time.Hour)) || !latest[1].RecordedAt.Equal(day.Add(26*time.Hour)) {
		t.Errorf("Expected the two most recent logs oldest first, got %v", latest)
	}

	lots, _ := repo.ListLotIDs(ctx)
	if len(lots) != 2 {
		t.Errorf("Expected 2 distinct lots, got %v", lots)
	}
}
