package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/dto"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
	"github.com/vsinha/cashew/pkg/infrastructure/events"
)

// InventoryConfig holds ledger policy
type InventoryConfig struct {
	// AllowNegative lets consumption drive stock below zero
	AllowNegative bool
	// ReorderLevels seeds the reorder level of items created by the ledger
	ReorderLevels map[string]entities.Quantity
}

// AdjustRequest describes one quantity change to a named item
type AdjustRequest struct {
	ItemName  string                   `json:"item_name"`
	Category  entities.Category        `json:"category"`
	Unit      entities.Unit            `json:"unit"`
	Change    entities.Quantity        `json:"change"`
	Reason    entities.TransactionType `json:"reason"`
	Reference string                   `json:"reference,omitempty"`
	LotID     string                   `json:"lot_id,omitempty"`
	Actor     string                   `json:"actor,omitempty"`
}

// InventoryService maintains running stock totals and their audit log
type InventoryService struct {
	repo   repositories.InventoryRepository
	config InventoryConfig
	deps   Deps
}

// NewInventoryService creates a new inventory ledger service
func NewInventoryService(repo repositories.InventoryRepository, config InventoryConfig, deps Deps) *InventoryService {
	reorder := make(map[string]entities.Quantity, len(config.ReorderLevels))
	for name, level := range config.ReorderLevels {
		reorder[entities.ItemKey(name)] = level
	}
	config.ReorderLevels = reorder

	return &InventoryService{
		repo:   repo,
		config: config,
		deps:   deps.withDefaults(),
	}
}

// FindAndUpdateOrCreate applies req.Change to the named item, creating the item
// at zero stock when it does not exist yet. The quantity change commits in one
// storage transaction; the audit row is written afterwards and a failure to
// write it is logged and counted but does not undo the change.
func (s *InventoryService) FindAndUpdateOrCreate(ctx context.Context, req AdjustRequest) (*dto.AdjustmentResult, error) {
	name := entities.NormalizeItemName(req.ItemName)
	if name == "" {
		return nil, &entities.ValidationError{Problems: []string{"item name is required"}}
	}
	if req.Change.IsZero() {
		return nil, &entities.ValidationError{Problems: []string{fmt.Sprintf("change for %s cannot be zero", name)}}
	}

	unit := req.Unit
	if unit == "" {
		unit = entities.UnitKg
	}
	now := s.deps.Clock()

	template, err := entities.NewInventoryItem(name, req.Category, unit, s.config.ReorderLevels[entities.ItemKey(name)], now)
	if err != nil {
		return nil, &entities.ValidationError{Problems: []string{err.Error()}}
	}

	var before entities.Quantity
	item, err := s.repo.UpdateItem(ctx, name, template, func(item *entities.InventoryItem, created bool) error {
		if !created && req.Unit != "" && item.Unit != req.Unit {
			return &entities.ValidationError{Problems: []string{
				fmt.Sprintf("%s is tracked in %s, not %s", item.Name, item.Unit, req.Unit),
			}}
		}

		next := item.Quantity.Add(req.Change)
		if next.IsNegative() && !s.config.AllowNegative {
			return fmt.Errorf("%w: %s has %s %s, cannot apply %s",
				entities.ErrInsufficientStock, item.Name, item.Quantity, item.Unit, req.Change)
		}

		before = item.Quantity
		item.Quantity = next
		item.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, fmt.Errorf("failed to update %s: %w", name, err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.InventoryAdjustments.WithLabelValues(req.Reason.String()).Inc()
	}

	result := &dto.AdjustmentResult{Item: item, Change: req.Change}
	lotID := entities.NormalizeLotID(req.LotID)

	log, err := entities.NewInventoryLog(item, req.Change, req.Reason, req.Reference, lotID, req.Actor, now)
	if err == nil {
		err = s.repo.AppendLog(ctx, log)
	}
	if err != nil {
		s.deps.Logger.Error("Failed to write inventory log, quantity change kept",
			zap.String("item", item.Name),
			zap.String("change", req.Change.String()),
			zap.String("quantity_after", item.Quantity.String()),
			zap.String("reason", req.Reason.String()),
			zap.String("reference", req.Reference),
			zap.Error(err))
		if s.deps.Metrics != nil {
			s.deps.Metrics.LedgerLogFailures.Inc()
		}
		result.Warning = "stock updated but audit log was not written"
	} else {
		result.LogID = log.ID
	}

	s.deps.Logger.Debug("Inventory adjusted",
		zap.String("item", item.Name),
		zap.String("change", req.Change.String()),
		zap.String("quantity", item.Quantity.String()))

	s.deps.publish(events.NewInventoryAdjustedEvent(*item, req.Change, req.Reason, lotID, now))
	if item.IsLowStock() && before.GreaterThan(item.ReorderLevel) {
		s.deps.Logger.Warn("Item fell to reorder level",
			zap.String("item", item.Name),
			zap.String("quantity", item.Quantity.String()),
			zap.String("reorder_level", item.ReorderLevel.String()))
		s.deps.publish(events.NewInventoryLowStockEvent(*item, now))
	}

	return result, nil
}

func (s *InventoryService) countRejection(err error) {
	if s.deps.Metrics == nil {
		return
	}
	cause := "storage"
	var vErr *entities.ValidationError
	switch {
	case errors.Is(err, entities.ErrInsufficientStock):
		cause = "insufficient_stock"
	case errors.As(err, &vErr):
		cause = "validation"
	}
	s.deps.Metrics.InventoryRejections.WithLabelValues(cause).Inc()
}

// GetItem returns one item by name
func (s *InventoryService) GetItem(ctx context.Context, name string) (*entities.InventoryItem, error) {
	return s.repo.GetItem(ctx, name)
}

// ListItems returns every stock item
func (s *InventoryService) ListItems(ctx context.Context) ([]*entities.InventoryItem, error) {
	return s.repo.ListItems(ctx)
}

// LowStock returns the items at or below their reorder level
func (s *InventoryService) LowStock(ctx context.Context) ([]*entities.InventoryItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]*entities.InventoryItem, 0)
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low, nil
}

// ListLogs returns audit rows, newest first
func (s *InventoryService) ListLogs(ctx context.Context, filter entities.InventoryLogFilter) ([]*entities.InventoryLog, error) {
	return s.repo.ListLogs(ctx, filter)
}

// SetReorderLevel changes the reorder level of an existing item
func (s *InventoryService) SetReorderLevel(ctx context.Context, name string, level entities.Quantity) (*entities.InventoryItem, error) {
	if level.IsNegative() {
		return nil, &entities.ValidationError{Problems: []string{"reorder level cannot be negative"}}
	}
	now := s.deps.Clock()
	return s.repo.UpdateItem(ctx, name, nil, func(item *entities.InventoryItem, created bool) error {
		item.ReorderLevel = level
		item.UpdatedAt = now
		return nil
	})
}
