package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.PurchaseRepository     = (*PurchaseRepo)(nil)
	_ repository.SaleRepository         = (*SaleRepo)(nil)
	_ repository.ProductBuildRepository = (*ProductBuildRepo)(nil)
	_ repository.AssetRepository        = (*AssetRepo)(nil)
)

// scanMeasurement reconstruye la medida de una línea desde measurement_kind/amount/unit.
func scanMeasurement(kind string, value decimal.Decimal, unit string) entity.Measurement {
	return entity.Measurement{Type: entity.TrackingType(kind), Value: value, Unit: unit}
}

// PurchaseRepo líneas de compra sobre PostgreSQL.
type PurchaseRepo struct {
	q Querier
}

// NewPurchaseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseRepository(q Querier) *PurchaseRepo {
	return &PurchaseRepo{q: q}
}

// SaveItem inserta o reemplaza la línea por ID (idempotente para la conversión legada).
func (r *PurchaseRepo) SaveItem(ctx context.Context, line *entity.PurchaseItem) error {
	query := `
		INSERT INTO purchase_items (id, purchase_id, item_id, measurement_kind, amount, unit, cost_per_unit,
			discount_percentage, discount_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			purchase_id = EXCLUDED.purchase_id, item_id = EXCLUDED.item_id,
			measurement_kind = EXCLUDED.measurement_kind, amount = EXCLUDED.amount, unit = EXCLUDED.unit,
			cost_per_unit = EXCLUDED.cost_per_unit, discount_percentage = EXCLUDED.discount_percentage,
			discount_amount = EXCLUDED.discount_amount`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.PurchaseID, line.ItemID, string(line.Amount.Type), line.Amount.Value, line.Amount.Unit,
		line.CostPerUnit, line.Discount.Percentage, line.Discount.Amount, line.CreatedAt,
	)
	if err != nil {
		return wrapErr("save purchase item", err)
	}
	return nil
}

// ListByItem líneas de compra del ítem.
func (r *PurchaseRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.PurchaseItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_id, item_id, measurement_kind, amount, unit, cost_per_unit,
			discount_percentage, discount_amount, created_at
		FROM purchase_items WHERE item_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, wrapErr("list purchase items", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseItem
	for rows.Next() {
		var (
			l          entity.PurchaseItem
			kind, unit string
			amount     decimal.Decimal
		)
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.ItemID, &kind, &amount, &unit, &l.CostPerUnit,
			&l.Discount.Percentage, &l.Discount.Amount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		l.Amount = scanMeasurement(kind, amount, unit)
		list = append(list, &l)
	}
	return list, rows.Err()
}

// SaleRepo líneas de venta sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// SaveItem inserta o reemplaza la línea por ID.
func (r *SaleRepo) SaveItem(ctx context.Context, line *entity.SaleItem) error {
	query := `
		INSERT INTO sale_items (id, sale_id, item_id, measurement_kind, amount, unit, price_at_sale,
			discount_percentage, discount_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			sale_id = EXCLUDED.sale_id, item_id = EXCLUDED.item_id,
			measurement_kind = EXCLUDED.measurement_kind, amount = EXCLUDED.amount, unit = EXCLUDED.unit,
			price_at_sale = EXCLUDED.price_at_sale, discount_percentage = EXCLUDED.discount_percentage,
			discount_amount = EXCLUDED.discount_amount`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.SaleID, line.ItemID, string(line.Amount.Type), line.Amount.Value, line.Amount.Unit,
		line.PriceAtSale, line.Discount.Percentage, line.Discount.Amount, line.CreatedAt,
	)
	if err != nil {
		return wrapErr("save sale item", err)
	}
	return nil
}

// ListByItem líneas de venta del ítem.
func (r *SaleRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.SaleItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, item_id, measurement_kind, amount, unit, price_at_sale,
			discount_percentage, discount_amount, created_at
		FROM sale_items WHERE item_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, wrapErr("list sale items", err)
	}
	defer rows.Close()
	var list []*entity.SaleItem
	for rows.Next() {
		var (
			l          entity.SaleItem
			kind, unit string
			amount     decimal.Decimal
		)
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ItemID, &kind, &amount, &unit, &l.PriceAtSale,
			&l.Discount.Percentage, &l.Discount.Amount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		l.Amount = scanMeasurement(kind, amount, unit)
		list = append(list, &l)
	}
	return list, rows.Err()
}

// ProductBuildRepo ensamblajes sobre PostgreSQL; los componentes consumidos van en JSONB.
type ProductBuildRepo struct {
	q Querier
}

// NewProductBuildRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductBuildRepository(q Querier) *ProductBuildRepo {
	return &ProductBuildRepo{q: q}
}

// Create registra un ensamblaje.
func (r *ProductBuildRepo) Create(ctx context.Context, build *entity.ProductBuild) error {
	components, err := marshalComponents(build.Components)
	if err != nil {
		return fmt.Errorf("serializar componentes: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO product_builds (id, product_id, units, components, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		build.ID, build.ProductID, build.Units, components, build.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert product build", err)
	}
	return nil
}

// ListByProduct ensamblajes del producto.
func (r *ProductBuildRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.ProductBuild, error) {
	return r.list(ctx, `SELECT id, product_id, units, components, created_at
		FROM product_builds WHERE product_id = $1 ORDER BY id`, productID)
}

// ListByComponent ensamblajes que consumieron el material.
func (r *ProductBuildRepo) ListByComponent(ctx context.Context, materialID string) ([]*entity.ProductBuild, error) {
	return r.list(ctx, `SELECT id, product_id, units, components, created_at
		FROM product_builds WHERE components @> jsonb_build_array(jsonb_build_object('material_item_id', $1::text))
		ORDER BY id`, materialID)
}

func (r *ProductBuildRepo) list(ctx context.Context, query string, arg string) ([]*entity.ProductBuild, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapErr("list product builds", err)
	}
	defer rows.Close()
	var list []*entity.ProductBuild
	for rows.Next() {
		var (
			b   entity.ProductBuild
			raw []byte
		)
		if err := rows.Scan(&b.ID, &b.ProductID, &b.Units, &raw, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product build: %w", err)
		}
		if b.Components, err = unmarshalComponents(raw); err != nil {
			return nil, fmt.Errorf("components de build %s: %w", b.ID, err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// AssetRepo activos sobre PostgreSQL.
type AssetRepo struct {
	q Querier
}

// NewAssetRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAssetRepository(q Querier) *AssetRepo {
	return &AssetRepo{q: q}
}

// Save inserta o reemplaza el activo.
func (r *AssetRepo) Save(ctx context.Context, asset *entity.Asset) error {
	components, err := marshalComponents(asset.Components)
	if err != nil {
		return fmt.Errorf("serializar componentes: %w", err)
	}
	if asset.UpdatedAt.IsZero() {
		asset.UpdatedAt = time.Now()
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO assets (id, name, components, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, components = EXCLUDED.components, updated_at = EXCLUDED.updated_at`,
		asset.ID, asset.Name, components, asset.UpdatedAt,
	)
	if err != nil {
		return wrapErr("save asset", err)
	}
	return nil
}

// GetByID obtiene un activo; (nil, nil) si no existe.
func (r *AssetRepo) GetByID(ctx context.Context, id string) (*entity.Asset, error) {
	var (
		a   entity.Asset
		raw []byte
	)
	err := r.q.QueryRow(ctx, `SELECT id, name, components, updated_at FROM assets WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &raw, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get asset", err)
	}
	if a.Components, err = unmarshalComponents(raw); err != nil {
		return nil, fmt.Errorf("components de activo %s: %w", a.ID, err)
	}
	return &a, nil
}
