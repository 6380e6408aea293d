package repositories

import (
	"context"

	"github.com/vsinha/cashew/pkg/domain/entities"
)

// ProductionRepository stores immutable production logs
type ProductionRepository interface {
	SaveLog(ctx context.Context, log *entities.ProductionLog) error
	GetLog(ctx context.Context, id string) (*entities.ProductionLog, error)
	ListLogs(ctx context.Context, filter entities.ProductionFilter) ([]*entities.ProductionLog, error)
	ListLotIDs(ctx context.Context) ([]string, error)
}
