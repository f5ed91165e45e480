package repository

import (
	"context"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
)

// ItemFilter filtros opcionales para listar el catálogo.
type ItemFilter struct {
	Kind     entity.ItemKind
	Category string
}

// ItemRepository define el puerto de persistencia del catálogo de ítems (DIP).
// GetByID/GetBySKU devuelven (nil, nil) si no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Item, error)
	// GetForUpdate obtiene el ítem y bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Item, error)
	List(ctx context.Context, filter ItemFilter, limit, offset int) ([]*entity.Item, error)
	ListIDs(ctx context.Context) ([]string, error)
	// ListDerived consulta los hijos directos de un ítem (vista inversa del linaje).
	ListDerived(ctx context.Context, sourceID string) ([]*entity.Item, error)
	// ListUsingComponent productos cuyo BOM incluye el material.
	ListUsingComponent(ctx context.Context, materialID string) ([]*entity.Item, error)
	// Update es optimista: solo aplica si item.Version coincide con la versión guardada,
	// en cuyo caso incrementa item.Version. Si no coincide devuelve domain.ErrConcurrencyConflict.
	Update(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, id string) error
}
