package repository

import (
	"context"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
)

// PurchaseRepository líneas de compra (recepciones).
type PurchaseRepository interface {
	// SaveItem inserta o reemplaza la línea por ID.
	SaveItem(ctx context.Context, line *entity.PurchaseItem) error
	ListByItem(ctx context.Context, itemID string) ([]*entity.PurchaseItem, error)
}

// SaleRepository líneas de venta (consumos).
type SaleRepository interface {
	SaveItem(ctx context.Context, line *entity.SaleItem) error
	ListByItem(ctx context.Context, itemID string) ([]*entity.SaleItem, error)
}

// ProductBuildRepository ensamblajes confirmados de productos.
type ProductBuildRepository interface {
	Create(ctx context.Context, build *entity.ProductBuild) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.ProductBuild, error)
	ListByComponent(ctx context.Context, materialID string) ([]*entity.ProductBuild, error)
}

// AssetRepository activos armados con ítems.
type AssetRepository interface {
	Save(ctx context.Context, asset *entity.Asset) error
	GetByID(ctx context.Context, id string) (*entity.Asset, error)
}
