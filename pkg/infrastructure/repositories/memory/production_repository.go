package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/domain/repositories"
)

// ProductionRepository provides in-memory production log storage
type ProductionRepository struct {
	mu      sync.RWMutex
	logs    []*entities.ProductionLog
	logsMap map[string]int
}

// NewProductionRepository creates a new in-memory production repository
func NewProductionRepository() *ProductionRepository {
	return &ProductionRepository{
		logs:    []*entities.ProductionLog{},
		logsMap: make(map[string]int),
	}
}

// Verify interface compliance
var _ repositories.ProductionRepository = (*ProductionRepository)(nil)

// SaveLog stores a log. Logs are immutable, so saving an existing id fails.
func (r *ProductionRepository) SaveLog(ctx context.Context, log *entities.ProductionLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.logsMap[log.ID]; exists {
		return fmt.Errorf("production log %s already exists", log.ID)
	}
	r.logsMap[log.ID] = len(r.logs)
	r.logs = append(r.logs, copyLog(log))
	return nil
}

// GetLog returns a log by id
func (r *ProductionRepository) GetLog(ctx context.Context, id string) (*entities.ProductionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.logsMap[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrLogNotFound, id)
	}
	return copyLog(r.logs[idx]), nil
}

// ListLogs returns matching logs ordered by recorded time
func (r *ProductionRepository) ListLogs(ctx context.Context, filter entities.ProductionFilter) ([]*entities.ProductionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []*entities.ProductionLog
	for _, log := range r.logs {
		if filter.Matches(log) {
			logs = append(logs, copyLog(log))
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].RecordedAt.Before(logs[j].RecordedAt)
	})
	if filter.Limit > 0 && len(logs) > filter.Limit {
		logs = logs[len(logs)-filter.Limit:]
	}
	return logs, nil
}

// ListLotIDs returns the distinct lot ids seen so far
func (r *ProductionRepository) ListLotIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var lots []string
	for _, log := range r.logs {
		if !seen[log.LotID] {
			seen[log.LotID] = true
			lots = append(lots, log.LotID)
		}
	}
	return lots, nil
}

func copyLog(log *entities.ProductionLog) *entities.ProductionLog {
	c := *log
	c.Fields = make(map[string]string, len(log.Fields))
	for k, v := range log.Fields {
		c.Fields[k] = v
	}
	if log.Grades != nil {
		c.Grades = make(map[string]entities.Quantity, len(log.Grades))
		for k, v := range log.Grades {
			c.Grades[k] = v
		}
	}
	return &c
}
