package dto

import "github.com/vsinha/cashew/pkg/domain/entities"

// AdjustmentResult is the outcome of one ledger update. LogID is empty when the
// quantity committed but the audit row could not be written.
type AdjustmentResult struct {
	Item    *entities.InventoryItem `json:"item"`
	Change  entities.Quantity       `json:"change"`
	LogID   string                  `json:"log_id,omitempty"`
	Warning string                  `json:"warning,omitempty"`
}

// RecordResult is the outcome of recording a production log
type RecordResult struct {
	Log         *entities.ProductionLog `json:"log"`
	Adjustments []AdjustmentResult      `json:"adjustments"`
	Warnings    []string                `json:"warnings,omitempty"`
}
