package repositories

import (
	"context"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

// ItemMutation is applied to an item inside a storage transaction. created is
// true when the item did not exist and was just built from the template.
// Returning an error aborts the transaction.
type ItemMutation func(item *entities.InventoryItem, created bool) error

// InventoryRepository provides access to stock items and their audit log
type InventoryRepository interface {
	GetItem(ctx context.Context, name string) (*entities.InventoryItem, error)
	ListItems(ctx context.Context) ([]*entities.InventoryItem, error)
	// UpdateItem finds the item by name, or creates it from template, and
	// applies mutate atomically. The committed item is returned with Version
	// set to the next value of a sequence shared by all items.
	UpdateItem(
		ctx context.Context,
		name string,
		template *entities.InventoryItem,
		mutate ItemMutation,
	) (*entities.InventoryItem, error)
	AppendLog(ctx context.Context, log *entities.InventoryLog) error
	// ListLogs returns matching rows newest first, ordered by Sequence
	// rather than by when AppendLog ran
	ListLogs(ctx context.Context, filter entities.InventoryLogFilter) ([]*entities.InventoryLog, error)
}
