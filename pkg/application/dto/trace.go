package dto

import (
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

// TraceStep aggregates the logs of one stage for a lot
type TraceStep struct {
	Stage       entities.Stage            `json:"stage"`
	DisplayName string                    `json:"display_name"`
	InputQty    entities.Quantity         `json:"input_qty"`
	OutputQty   entities.Quantity         `json:"output_qty"`
	YieldPct    entities.Quantity         `json:"yield_pct"`
	FirstAt     time.Time                 `json:"first_at"`
	LastAt      time.Time                 `json:"last_at"`
	Logs        []*entities.ProductionLog `json:"logs"`
}

// LotTrace is the full history of a lot through the line
type LotTrace struct {
	LotID              string                    `json:"lot_id"`
	Steps              []TraceStep               `json:"steps"`
	QualityChecks      []*entities.ProductionLog `json:"quality_checks,omitempty"`
	MissingStages      []entities.Stage          `json:"missing_stages,omitempty"`
	CurrentStage       entities.Stage            `json:"current_stage"`
	IntakeKg           entities.Quantity         `json:"intake_kg"`
	FinalOutputKg      entities.Quantity         `json:"final_output_kg"`
	OverallYieldPct    entities.Quantity         `json:"overall_yield_pct"`
	InventoryMovements []*entities.InventoryLog  `json:"inventory_movements"`
}

// LotSummary is one row of the lot overview
type LotSummary struct {
	LotID          string         `json:"lot_id"`
	CurrentStage   entities.Stage `json:"current_stage"`
	LogCount       int            `json:"log_count"`
	LastRecordedAt time.Time      `json:"last_recorded_at"`
}

// Summary is an AI generated narrative for a report or lot
type Summary struct {
	Subject     string    `json:"subject"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}
