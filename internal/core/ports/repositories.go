package ports

import (
	"context"

	"github.com/mapply/mapply/internal/core/domain"
)

// MapEventRepository persists map events. Implementations report a missing
// row as domain.ErrNotFound and every other fault as domain.ErrStorage.
type MapEventRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.MapEvent, error)
	List(ctx context.Context) ([]domain.MapEvent, error)
	Create(ctx context.Context, event domain.MapEvent) (*domain.MapEvent, error)
	UpdateByID(ctx context.Context, event domain.MapEvent, id int64) (*domain.MapEvent, error)
	DeleteByID(ctx context.Context, id int64) (*domain.MapEvent, error)
}
