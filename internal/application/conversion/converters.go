package conversion

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// convertItem lleva el padre plano a derivedFrom y los arreglos paralelos de materiales a components.
func convertItem(ctx context.Context, repos inventory.TxRepos, rec entity.LegacyItem) error {
	item, err := repos.Items.GetForUpdate(ctx, rec.ID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("ítem %s: %w", rec.ID, domain.ErrNotFound)
	}

	if rec.ParentItemID != "" {
		from, err := resolveParent(ctx, repos, item, rec)
		if err != nil {
			return err
		}
		item.DerivedFrom = from
	}

	if len(rec.MaterialIDs) > 0 || len(rec.MaterialQuantities) > 0 {
		components, err := resolveComponents(ctx, repos, item.ID, rec.MaterialIDs, rec.MaterialQuantities)
		if err != nil {
			return err
		}
		item.Components = components
		// Un material con lista de componentes pasa a ser "both".
		if !item.Kind.IsProduct() {
			item.Kind = entity.KindBoth
		}
	}
	return repos.Items.Update(ctx, item)
}

func resolveParent(ctx context.Context, repos inventory.TxRepos, item *entity.Item, rec entity.LegacyItem) (*entity.DerivedFrom, error) {
	if rec.ParentAmount.LessThan(decimal.Zero) {
		return nil, domain.NewValidationError("parent_amount", "no puede ser negativo")
	}
	parent, err := repos.Items.GetByID(ctx, rec.ParentItemID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, domain.NewValidationError("parent_item_id", fmt.Sprintf("el padre %s no existe", rec.ParentItemID))
	}
	cycle, err := domaininv.WouldCreateCycle(ctx, item.ID, parent.ID, repos.Items.GetByID)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, domain.NewValidationError("parent_item_id", "el linaje formaría un ciclo")
	}
	if parent.IsDerived() {
		return nil, &domain.AlreadyDerivedError{ItemID: parent.ID, SourceItemID: parent.DerivedFrom.SourceItemID}
	}
	// La derivación es de un solo nivel: un origen no puede ser a su vez derivado.
	children, err := repos.Items.ListDerived(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return nil, domain.NewValidationError("parent_item_id", "el ítem ya es origen de derivados")
	}
	amount := entity.Measurement{Type: parent.Stock.Type, Value: rec.ParentAmount, Unit: parent.Stock.Unit}
	from := entity.NewDerivedFrom(parent.ID, amount)
	return &from, nil
}

func resolveComponents(ctx context.Context, repos inventory.TxRepos, ownerID string, ids []string, qtys []decimal.Decimal) ([]entity.Component, error) {
	if len(ids) != len(qtys) {
		return nil, domain.NewValidationError("materials", fmt.Sprintf("%d materiales y %d cantidades", len(ids), len(qtys)))
	}
	seen := make(map[string]bool, len(ids))
	out := make([]entity.Component, 0, len(ids))
	for i, ref := range ids {
		material, err := resolveItem(ctx, repos, ref)
		if err != nil {
			return nil, err
		}
		if material.ID == ownerID {
			return nil, domain.NewValidationError("materials", "un ítem no puede ser componente de sí mismo")
		}
		if !material.Kind.IsMaterial() {
			return nil, domain.NewValidationError("materials", fmt.Sprintf("el ítem %s no es un material", material.ID))
		}
		if !qtys[i].GreaterThan(decimal.Zero) {
			return nil, domain.NewValidationError("materials", "la cantidad debe ser mayor a cero")
		}
		if seen[material.ID] {
			return nil, domain.NewValidationError("materials", "material repetido "+material.ID)
		}
		seen[material.ID] = true
		out = append(out, entity.Component{MaterialItemID: material.ID, Quantity: qtys[i]})
	}
	return out, nil
}

// resolveItem busca por ID y, si no existe, por SKU (las líneas legadas usan cualquiera de los dos).
func resolveItem(ctx context.Context, repos inventory.TxRepos, ref string) (*entity.Item, error) {
	if ref == "" {
		return nil, domain.NewValidationError("item_ref", "referencia vacía")
	}
	it, err := repos.Items.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if it != nil {
		return it, nil
	}
	it, err = repos.Items.GetBySKU(ctx, ref)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, domain.NewValidationError("item_ref", fmt.Sprintf("el ítem %s no existe", ref))
	}
	return it, nil
}

// lineMeasurement etiqueta la cantidad genérica con la dimensión de su unidad. Sin unidad se
// asume la del stock del ítem; una unidad de otra dimensión es un error del registro.
func lineMeasurement(item *entity.Item, rec entity.LegacyLine) (entity.Measurement, error) {
	if rec.Amount.LessThan(decimal.Zero) {
		return entity.Measurement{}, domain.NewValidationError("amount", "no puede ser negativo")
	}
	if rec.Unit == "" {
		return entity.Measurement{Type: item.Stock.Type, Value: rec.Amount, Unit: item.Stock.Unit}, nil
	}
	tt, ok := entity.TrackingTypeForUnit(rec.Unit)
	if !ok {
		return entity.Measurement{}, domain.NewValidationError("unit", fmt.Sprintf("unidad desconocida %q", rec.Unit))
	}
	if tt != item.Stock.Type {
		return entity.Measurement{}, domain.NewValidationError("unit", fmt.Sprintf("%s no corresponde a un ítem por %s", rec.Unit, item.Stock.Type))
	}
	return entity.Measurement{Type: tt, Value: rec.Amount, Unit: rec.Unit}, nil
}

// convertPurchaseLine escribe la línea estructurada con el ID legado; volver a correr la
// conversión reemplaza la misma línea en lugar de duplicarla. No toca el stock: la
// reconciliación posterior lo recalcula.
func convertPurchaseLine(ctx context.Context, repos inventory.TxRepos, rec entity.LegacyLine, now time.Time) error {
	item, err := resolveItem(ctx, repos, rec.ItemRef)
	if err != nil {
		return err
	}
	amount, err := lineMeasurement(item, rec)
	if err != nil {
		return err
	}
	line := &entity.PurchaseItem{
		ID:          rec.ID,
		PurchaseID:  rec.ParentID,
		ItemID:      item.ID,
		Amount:      amount,
		CostPerUnit: rec.UnitPrice,
		CreatedAt:   now,
	}
	line.Discount = entity.Discount{}.Reconcile(line.Base())
	return repos.Purchases.SaveItem(ctx, line)
}

func convertSaleLine(ctx context.Context, repos inventory.TxRepos, rec entity.LegacyLine, now time.Time) error {
	item, err := resolveItem(ctx, repos, rec.ItemRef)
	if err != nil {
		return err
	}
	amount, err := lineMeasurement(item, rec)
	if err != nil {
		return err
	}
	line := &entity.SaleItem{
		ID:          rec.ID,
		SaleID:      rec.ParentID,
		ItemID:      item.ID,
		Amount:      amount,
		PriceAtSale: rec.UnitPrice,
		CreatedAt:   now,
	}
	line.Discount = entity.Discount{}.Reconcile(line.Base())
	return repos.Sales.SaveItem(ctx, line)
}

func convertAsset(ctx context.Context, repos inventory.TxRepos, rec entity.LegacyAsset, now time.Time) error {
	if len(rec.ItemRefs) != len(rec.Quantities) {
		return domain.NewValidationError("items", fmt.Sprintf("%d ítems y %d cantidades", len(rec.ItemRefs), len(rec.Quantities)))
	}
	asset := &entity.Asset{ID: rec.ID, Name: rec.Name, UpdatedAt: now}
	for i, ref := range rec.ItemRefs {
		it, err := resolveItem(ctx, repos, ref)
		if err != nil {
			return err
		}
		if !rec.Quantities[i].GreaterThan(decimal.Zero) {
			return domain.NewValidationError("quantities", "la cantidad debe ser mayor a cero")
		}
		asset.Components = append(asset.Components, entity.Component{MaterialItemID: it.ID, Quantity: rec.Quantities[i]})
	}
	return repos.Assets.Save(ctx, asset)
}
