package dto

import (
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

// StageSummary aggregates the logs of one stage
type StageSummary struct {
	Stage       entities.Stage    `json:"stage"`
	DisplayName string            `json:"display_name"`
	LogCount    int               `json:"log_count"`
	InputQty    entities.Quantity `json:"input_qty"`
	OutputQty   entities.Quantity `json:"output_qty"`
	YieldPct    entities.Quantity `json:"yield_pct"`
}

// PartyTotal sums quantities for a supplier or customer
type PartyTotal struct {
	Name     string            `json:"name"`
	Quantity entities.Quantity `json:"quantity"`
	Entries  int               `json:"entries"`
}

// GradeTotal sums graded kernel weight for one grade
type GradeTotal struct {
	Grade    string            `json:"grade"`
	Quantity entities.Quantity `json:"quantity"`
}

// DailyReport summarizes one calendar day of production
type DailyReport struct {
	Date               time.Time         `json:"date"`
	Stages             []StageSummary    `json:"stages"`
	IntakeBySupplier   []PartyTotal      `json:"intake_by_supplier"`
	DispatchByCustomer []PartyTotal      `json:"dispatch_by_customer"`
	Grades             []GradeTotal      `json:"grades"`
	TotalIntakeKg      entities.Quantity `json:"total_intake_kg"`
	DispatchedBoxes    entities.Quantity `json:"dispatched_boxes"`
	QualityFailures    int               `json:"quality_failures"`
	Lots               []string          `json:"lots"`
}

// LogCount is the number of logs captured during the day
func (r *DailyReport) LogCount() int {
	n := 0
	for _, s := range r.Stages {
		n += s.LogCount
	}
	return n
}

// RangeReport summarizes a span of days
type RangeReport struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Days   []DailyReport  `json:"days"`
	Totals []StageSummary `json:"totals"`
}

// InventoryLine is one row of the inventory snapshot
type InventoryLine struct {
	Item     *entities.InventoryItem `json:"item"`
	LowStock bool                    `json:"low_stock"`
}

// InventoryReport is a snapshot of every stock item
type InventoryReport struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	Items         []InventoryLine `json:"items"`
	LowStockCount int             `json:"low_stock_count"`
}
