package repository

import (
	"context"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
)

// ConversionJobRepository persiste el estado del job para que sobreviva a un reinicio.
type ConversionJobRepository interface {
	Create(ctx context.Context, job *entity.ConversionJob) error
	Update(ctx context.Context, job *entity.ConversionJob) error
	GetByID(ctx context.Context, id string) (*entity.ConversionJob, error)
	// GetActive devuelve el job queued o running, o (nil, nil) si no hay.
	GetActive(ctx context.Context) (*entity.ConversionJob, error)
	List(ctx context.Context, limit int) ([]*entity.ConversionJob, error)
}

// LegacyRepository lectura de registros planos pendientes de conversión.
type LegacyRepository interface {
	CountPending(ctx context.Context, class string) (int, error)
	ListPendingItems(ctx context.Context) ([]entity.LegacyItem, error)
	ListPendingPurchaseLines(ctx context.Context) ([]entity.LegacyLine, error)
	ListPendingSaleLines(ctx context.Context) ([]entity.LegacyLine, error)
	ListPendingAssets(ctx context.Context) ([]entity.LegacyAsset, error)
	MarkConverted(ctx context.Context, class, id string) error
}
