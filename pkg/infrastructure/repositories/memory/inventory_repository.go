package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
)

// InventoryRepository provides in-memory inventory storage. A single mutex
// serializes UpdateItem calls, which gives the same no-lost-update guarantee
// as a database transaction.
type InventoryRepository struct {
	mu       sync.RWMutex
	items    []entities.InventoryItem
	itemsMap map[string]int
	logs     []entities.InventoryLog
	seq      int64
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository(expectedItems int) *InventoryRepository {
	return &InventoryRepository{
		items:    make([]entities.InventoryItem, 0, expectedItems),
		itemsMap: make(map[string]int, expectedItems),
		logs:     []entities.InventoryLog{},
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadItems loads items into the repository, replacing any with the same name
func (r *InventoryRepository) LoadItems(items []*entities.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		key := entities.ItemKey(item.Name)
		if key == "" {
			return fmt.Errorf("item with empty name")
		}
		if idx, exists := r.itemsMap[key]; exists {
			r.items[idx] = *item
			continue
		}
		r.itemsMap[key] = len(r.items)
		r.items = append(r.items, *item)
	}
	return nil
}

// GetItem returns the item with the given name
func (r *InventoryRepository) GetItem(ctx context.Context, name string) (*entities.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.itemsMap[entities.ItemKey(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrItemNotFound, name)
	}
	return r.items[idx].Clone(), nil
}

// ListItems returns all items sorted by name
func (r *InventoryRepository) ListItems(ctx context.Context) ([]*entities.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*entities.InventoryItem, 0, len(r.items))
	for i := range r.items {
		items = append(items, r.items[i].Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		return entities.ItemKey(items[i].Name) < entities.ItemKey(items[j].Name)
	})
	return items, nil
}

// UpdateItem finds or creates an item and applies mutate under the write lock.
// The mutation works on a copy, so a failed mutation leaves the stored item untouched.
func (r *InventoryRepository) UpdateItem(
	ctx context.Context,
	name string,
	template *entities.InventoryItem,
	mutate repositories.ItemMutation,
) (*entities.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entities.ItemKey(name)
	idx, exists := r.itemsMap[key]

	var working *entities.InventoryItem
	if exists {
		working = r.items[idx].Clone()
	} else {
		if template == nil {
			return nil, fmt.Errorf("%w: %s", entities.ErrItemNotFound, name)
		}
		working = template.Clone()
	}

	if err := mutate(working, !exists); err != nil {
		return nil, err
	}
	r.seq++
	working.Version = r.seq

	if exists {
		r.items[idx] = *working
	} else {
		r.itemsMap[key] = len(r.items)
		r.items = append(r.items, *working)
	}
	return working.Clone(), nil
}

// AppendLog stores an audit row in sequence position. Rows without a
// sequence go last.
func (r *InventoryRepository) AppendLog(ctx context.Context, log *entities.InventoryLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(r.logs)
	if log.Sequence > 0 {
		idx = sort.Search(len(r.logs), func(i int) bool {
			return r.logs[i].Sequence > log.Sequence
		})
	}
	r.logs = append(r.logs, entities.InventoryLog{})
	copy(r.logs[idx+1:], r.logs[idx:])
	r.logs[idx] = *log
	return nil
}

// ListLogs returns matching audit rows, newest first
func (r *InventoryRepository) ListLogs(ctx context.Context, filter entities.InventoryLogFilter) ([]*entities.InventoryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []*entities.InventoryLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		log := r.logs[i]
		if !filter.Matches(&log) {
			continue
		}
		logs = append(logs, &log)
		if filter.Limit > 0 && len(logs) >= filter.Limit {
			break
		}
	}
	return logs, nil
}
