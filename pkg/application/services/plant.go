package services

import (
	"github.com/vsinha/cashew/pkg/domain/repositories"
)

// Plant bundles the application services over one pair of repositories
type Plant struct {
	Inventory  *InventoryService
	Production *ProductionService
	Reports    *ReportService
	Trace      *TraceService
	Summaries  *SummaryService
}

// NewPlant wires every service. summarizer may be nil.
func NewPlant(
	inventoryRepo repositories.InventoryRepository,
	productionRepo repositories.ProductionRepository,
	config InventoryConfig,
	summarizer Summarizer,
	deps Deps,
) *Plant {
	inventory := NewInventoryService(inventoryRepo, config, deps)
	reports := NewReportService(productionRepo, inventoryRepo, deps)
	trace := NewTraceService(productionRepo, inventoryRepo, deps)
	return &Plant{
		Inventory:  inventory,
		Production: NewProductionService(productionRepo, inventory, deps),
		Reports:    reports,
		Trace:      trace,
		Summaries:  NewSummaryService(reports, trace, summarizer, deps),
	}
}
