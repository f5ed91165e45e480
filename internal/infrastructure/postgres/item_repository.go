package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
// Componentes, linaje y empaque se guardan como JSONB en la fila del ítem.
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de persistencia del catálogo. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, name, sku, category, kind, tracking_type, price_type, stock_value, stock_unit,
	cost, price, components, derived_from, pack_info, version, last_updated, created_at`

type componentJSON struct {
	MaterialItemID string          `json:"material_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
}

type derivedFromJSON struct {
	SourceItemID string          `json:"source_item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Weight       decimal.Decimal `json:"weight"`
	WeightUnit   string          `json:"weight_unit,omitempty"`
}

type packInfoJSON struct {
	IsPack       bool            `json:"is_pack"`
	UnitsPerPack decimal.Decimal `json:"units_per_pack"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
}

func marshalComponents(components []entity.Component) ([]byte, error) {
	out := make([]componentJSON, 0, len(components))
	for _, c := range components {
		out = append(out, componentJSON{MaterialItemID: c.MaterialItemID, Quantity: c.Quantity})
	}
	return json.Marshal(out)
}

func unmarshalComponents(raw []byte) ([]entity.Component, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var in []componentJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]entity.Component, 0, len(in))
	for _, c := range in {
		out = append(out, entity.Component{MaterialItemID: c.MaterialItemID, Quantity: c.Quantity})
	}
	return out, nil
}

// itemParams columnas JSONB serializadas; nil se guarda como NULL.
func itemParams(item *entity.Item) (components, derived, pack []byte, err error) {
	if components, err = marshalComponents(item.Components); err != nil {
		return nil, nil, nil, err
	}
	if d := item.DerivedFrom; d != nil {
		if derived, err = json.Marshal(derivedFromJSON{
			SourceItemID: d.SourceItemID, Quantity: d.Quantity, Weight: d.Weight, WeightUnit: d.WeightUnit,
		}); err != nil {
			return nil, nil, nil, err
		}
	}
	if p := item.PackInfo; p != nil {
		if pack, err = json.Marshal(packInfoJSON{
			IsPack: p.IsPack, UnitsPerPack: p.UnitsPerPack, CostPerUnit: p.CostPerUnit,
		}); err != nil {
			return nil, nil, nil, err
		}
	}
	return components, derived, pack, nil
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var (
		it                    entity.Item
		kind, tracking, price string
		stockValue            decimal.Decimal
		stockUnit             string
		components            []byte
		derived, pack         []byte
	)
	if err := row.Scan(
		&it.ID, &it.Name, &it.SKU, &it.Category, &kind, &tracking, &price, &stockValue, &stockUnit,
		&it.Cost, &it.Price, &components, &derived, &pack, &it.Version, &it.LastUpdated, &it.CreatedAt,
	); err != nil {
		return nil, err
	}
	it.Kind = entity.ItemKind(kind)
	it.TrackingType = entity.TrackingType(tracking)
	it.PriceType = entity.PriceType(price)
	it.Stock = entity.Measurement{Type: it.TrackingType, Value: stockValue, Unit: stockUnit}

	var err error
	if it.Components, err = unmarshalComponents(components); err != nil {
		return nil, fmt.Errorf("components de %s: %w", it.ID, err)
	}
	if len(derived) > 0 {
		var d derivedFromJSON
		if err := json.Unmarshal(derived, &d); err != nil {
			return nil, fmt.Errorf("derived_from de %s: %w", it.ID, err)
		}
		it.DerivedFrom = &entity.DerivedFrom{
			SourceItemID: d.SourceItemID, Quantity: d.Quantity, Weight: d.Weight, WeightUnit: d.WeightUnit,
		}
	}
	if len(pack) > 0 {
		var p packInfoJSON
		if err := json.Unmarshal(pack, &p); err != nil {
			return nil, fmt.Errorf("pack_info de %s: %w", it.ID, err)
		}
		it.PackInfo = &entity.PackInfo{IsPack: p.IsPack, UnitsPerPack: p.UnitsPerPack, CostPerUnit: p.CostPerUnit}
	}
	return &it, nil
}

func (r *ItemRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return it, nil
}

func (r *ItemRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Item, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// Create persiste un nuevo ítem con versión 1.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	components, derived, pack, err := itemParams(item)
	if err != nil {
		return fmt.Errorf("serializar ítem: %w", err)
	}
	if item.Version == 0 {
		item.Version = 1
	}
	query := `INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.q.Exec(ctx, query,
		item.ID, item.Name, item.SKU, item.Category, string(item.Kind), string(item.TrackingType),
		string(item.PriceType), item.Stock.Value, item.Stock.Unit, item.Cost, item.Price,
		components, derived, pack, item.Version, item.LastUpdated, item.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert item", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, "get item", `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

// GetBySKU obtiene un ítem por SKU.
func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*entity.Item, error) {
	return r.getOne(ctx, "get item by sku", `SELECT `+itemColumns+` FROM items WHERE sku = $1 AND sku <> ''`, sku)
}

// GetForUpdate obtiene el ítem y bloquea la fila (SELECT FOR UPDATE). Solo tiene efecto dentro de una tx.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, "get item for update", `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
}

// List lista ítems con filtros opcionales, más recientes primero.
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter, limit, offset int) ([]*entity.Item, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.list(ctx, "list items", query, args...)
}

// ListIDs todos los IDs del catálogo (para reconciliación masiva).
func (r *ItemRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM items ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list item ids", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListDerived hijos directos: ítems cuyo derived_from apunta a sourceID.
func (r *ItemRepo) ListDerived(ctx context.Context, sourceID string) ([]*entity.Item, error) {
	return r.list(ctx, "list derived items",
		`SELECT `+itemColumns+` FROM items WHERE derived_from->>'source_item_id' = $1 ORDER BY id`, sourceID)
}

// ListUsingComponent productos cuyo BOM contiene el material (contención JSONB).
func (r *ItemRepo) ListUsingComponent(ctx context.Context, materialID string) ([]*entity.Item, error) {
	return r.list(ctx, "list items using component",
		`SELECT `+itemColumns+` FROM items
		WHERE components @> jsonb_build_array(jsonb_build_object('material_item_id', $1::text)) ORDER BY id`, materialID)
}

// Update aplica el cambio solo si la versión coincide; incrementa item.Version.
func (r *ItemRepo) Update(ctx context.Context, item *entity.Item) error {
	components, derived, pack, err := itemParams(item)
	if err != nil {
		return fmt.Errorf("serializar ítem: %w", err)
	}
	query := `
		UPDATE items SET name = $2, sku = $3, category = $4, kind = $5, tracking_type = $6, price_type = $7,
			stock_value = $8, stock_unit = $9, cost = $10, price = $11, components = $12, derived_from = $13,
			pack_info = $14, last_updated = $15, version = version + 1
		WHERE id = $1 AND version = $16`
	cmd, err := r.q.Exec(ctx, query,
		item.ID, item.Name, item.SKU, item.Category, string(item.Kind), string(item.TrackingType),
		string(item.PriceType), item.Stock.Value, item.Stock.Unit, item.Cost, item.Price,
		components, derived, pack, item.LastUpdated, item.Version,
	)
	if err != nil {
		return wrapErr("update item", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, item.ID).Scan(&exists); err != nil {
			return wrapErr("check item", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrencyConflict
	}
	item.Version++
	return nil
}

// Delete elimina un ítem por ID.
func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return wrapErr("delete item", err)
	}
	return nil
}
