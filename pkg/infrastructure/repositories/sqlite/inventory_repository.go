package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
)

// InventoryRepository keeps stock items and the audit log in SQLite
type InventoryRepository struct {
	store *Store
}

// NewInventoryRepository creates an inventory repository over store
func NewInventoryRepository(store *Store) *InventoryRepository {
	return &InventoryRepository{store: store}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q queryer, name string) (*entities.InventoryItem, error) {
	var doc string
	err := q.QueryRowContext(ctx,
		`SELECT doc FROM inventory_items WHERE item_key = ?`, entities.ItemKey(name)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entities.ErrItemNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item %s: %w", name, err)
	}

	var item entities.InventoryItem
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", name, err)
	}
	return &item, nil
}

// GetItem returns the item with the given name
func (r *InventoryRepository) GetItem(ctx context.Context, name string) (*entities.InventoryItem, error) {
	return getItem(ctx, r.store.db, name)
}

// ListItems returns all items sorted by name
func (r *InventoryRepository) ListItems(ctx context.Context) ([]*entities.InventoryItem, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT doc FROM inventory_items ORDER BY item_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*entities.InventoryItem
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		var item entities.InventoryItem
		if err := json.Unmarshal([]byte(doc), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// UpdateItem reads, mutates and writes the item document in one transaction
func (r *InventoryRepository) UpdateItem(
	ctx context.Context,
	name string,
	template *entities.InventoryItem,
	mutate repositories.ItemMutation,
) (*entities.InventoryItem, error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := false
	item, err := getItem(ctx, tx, name)
	if errors.Is(err, entities.ErrItemNotFound) {
		if template == nil {
			return nil, err
		}
		item = template.Clone()
		created = true
	} else if err != nil {
		return nil, err
	}

	if err := mutate(item, created); err != nil {
		return nil, err
	}
	if item.Version, err = nextSequence(ctx, tx); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item %s: %w", item.Name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_items (item_key, id, doc, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		entities.ItemKey(item.Name), item.ID, string(doc), toUnix(item.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to write item %s: %w", item.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item %s: %w", item.Name, err)
	}
	return item, nil
}

// nextSequence bumps the ledger counter inside tx, so the value is only
// taken when the item write commits
func nextSequence(ctx context.Context, tx *sql.Tx) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_sequence (id, value) VALUES (1, 1)
		ON CONFLICT(id) DO UPDATE SET value = value + 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to advance ledger sequence: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM ledger_sequence WHERE id = 1`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read ledger sequence: %w", err)
	}
	return seq, nil
}

// AppendLog stores an audit row under the log's sequence. Rows without one
// are placed after everything written so far.
func (r *InventoryRepository) AppendLog(ctx context.Context, log *entities.InventoryLog) error {
	doc, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode inventory log: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, seq, item_key, lot_id, reference, created_at, doc)
		VALUES (?, CASE WHEN ? > 0 THEN ? ELSE (SELECT COALESCE(MAX(seq), 0) + 1 FROM inventory_logs) END, ?, ?, ?, ?, ?)`,
		log.ID, log.Sequence, log.Sequence, entities.ItemKey(log.ItemName), strings.ToUpper(log.LotID), log.Reference, toUnix(log.CreatedAt), string(doc))
	if err != nil {
		return fmt.Errorf("failed to append inventory log: %w", err)
	}
	return nil
}

// ListLogs returns matching audit rows, newest first
func (r *InventoryRepository) ListLogs(ctx context.Context, filter entities.InventoryLogFilter) ([]*entities.InventoryLog, error) {
	var (
		where []string
		args  []any
	)
	if filter.ItemName != "" {
		where = append(where, "item_key = ?")
		args = append(args, entities.ItemKey(filter.ItemName))
	}
	if filter.LotID != "" {
		where = append(where, "lot_id = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.LotID)))
	}
	if filter.Reference != "" {
		where = append(where, "reference = ?")
		args = append(args, filter.Reference)
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toUnix(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toUnix(filter.To))
	}

	query := `SELECT doc FROM inventory_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory logs: %w", err)
	}
	defer rows.Close()

	var logs []*entities.InventoryLog
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan inventory log: %w", err)
		}
		var log entities.InventoryLog
		if err := json.Unmarshal([]byte(doc), &log); err != nil {
			return nil, fmt.Errorf("failed to decode inventory log: %w", err)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
