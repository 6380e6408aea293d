package events

import (
	"time"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

const (
	InventoryAdjustedEvent = "inventory.adjusted"
	InventoryLowStockEvent = "inventory.low_stock"
	ProductionLoggedEvent  = "production.logged"
)

// AllEventTypes lists every event type published by the services
var AllEventTypes = []string{InventoryAdjustedEvent, InventoryLowStockEvent, ProductionLoggedEvent}

type InventoryAdjusted struct {
	Item   entities.InventoryItem `json:"item"`
	Change entities.Quantity      `json:"change"`
	Reason string                 `json:"reason"`
	LotID  string                 `json:"lot_id,omitempty"`
}

type InventoryLowStock struct {
	Item entities.InventoryItem `json:"item"`
}

type ProductionLogged struct {
	Log entities.ProductionLog `json:"log"`
}

func NewInventoryAdjustedEvent(item entities.InventoryItem, change entities.Quantity, reason entities.TransactionType, lotID string, at time.Time) Event {
	return NewEvent(InventoryAdjustedEvent, item.Name, InventoryAdjusted{
		Item:   item,
		Change: change,
		Reason: reason.String(),
		LotID:  lotID,
	}, at)
}

func NewInventoryLowStockEvent(item entities.InventoryItem, at time.Time) Event {
	return NewEvent(InventoryLowStockEvent, item.Name, InventoryLowStock{Item: item}, at)
}

func NewProductionLoggedEvent(log entities.ProductionLog, at time.Time) Event {
	return NewEvent(ProductionLoggedEvent, log.LotID, ProductionLogged{Log: log}, at)
}
