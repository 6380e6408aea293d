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

// ProductionRepository keeps production logs in SQLite
type ProductionRepository struct {
	store *Store
}

// NewProductionRepository creates a production repository over store
func NewProductionRepository(store *Store) *ProductionRepository {
	return &ProductionRepository{store: store}
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// SaveLog inserts a log; ids are unique so logs cannot be overwritten
func (r *ProductionRepository) SaveLog(ctx context.Context, log *entities.ProductionLog) error {
	doc, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode production log: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO production_logs (id, stage, lot_id, operator, recorded_at, doc)
		VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID, log.Stage.String(), log.LotID, strings.ToLower(log.Operator), toUnix(log.RecordedAt), string(doc))
	if err != nil {
		return fmt.Errorf("failed to save production log %s: %w", log.ID, err)
	}
	return nil
}

// GetLog returns a log by id
func (r *ProductionRepository) GetLog(ctx context.Context, id string) (*entities.ProductionLog, error) {
	var doc string
	err := r.store.db.QueryRowContext(ctx, `SELECT doc FROM production_logs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entities.ErrLogNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query production log %s: %w", id, err)
	}
	return decodeProductionLog(doc)
}

// ListLogs returns matching logs ordered by recorded time
func (r *ProductionRepository) ListLogs(ctx context.Context, filter entities.ProductionFilter) ([]*entities.ProductionLog, error) {
	var (
		where []string
		args  []any
	)
	if filter.Stage != nil {
		where = append(where, "stage = ?")
		args = append(args, filter.Stage.String())
	}
	if filter.LotID != "" {
		where = append(where, "lot_id = ?")
		args = append(args, entities.NormalizeLotID(filter.LotID))
	}
	if filter.Operator != "" {
		where = append(where, "operator = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Operator)))
	}
	if !filter.From.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, toUnix(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "recorded_at < ?")
		args = append(args, toUnix(filter.To))
	}

	from := `FROM production_logs`
	if len(where) > 0 {
		from += " WHERE " + strings.Join(where, " AND ")
	}
	query := `SELECT doc ` + from + ` ORDER BY recorded_at, rowid`
	if filter.Limit > 0 {
		// newest N, still handed back oldest first
		query = `SELECT doc FROM (SELECT doc, recorded_at, rowid AS row_id ` + from +
			` ORDER BY recorded_at DESC, rowid DESC LIMIT ?) ORDER BY recorded_at, row_id`
		args = append(args, filter.Limit)
	}

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production logs: %w", err)
	}
	defer rows.Close()

	var logs []*entities.ProductionLog
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan production log: %w", err)
		}
		log, err := decodeProductionLog(doc)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// ListLotIDs returns the distinct lot ids in first-seen order
func (r *ProductionRepository) ListLotIDs(ctx context.Context) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT lot_id FROM production_logs GROUP BY lot_id ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	var lots []string
	for rows.Next() {
		var lot string
		if err := rows.Scan(&lot); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func decodeProductionLog(doc string) (*entities.ProductionLog, error) {
	var log entities.ProductionLog
	if err := json.Unmarshal([]byte(doc), &log); err != nil {
		return nil, fmt.Errorf("failed to decode production log: %w", err)
	}
	if log.Fields == nil {
		log.Fields = map[string]string{}
	}
	return &log, nil
}
