package inventory

import (
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerHistory transacciones que referencian un ítem.
type LedgerHistory struct {
	Purchases []*entity.PurchaseItem
	Sales     []*entity.SaleItem
	Children  []*entity.Item         // ítems con derivedFrom apuntando a este
	Builds    []*entity.ProductBuild // ensamblajes donde es producto o componente
}

// LedgerResult saldo recalculado. Skipped lista las líneas cuya medición no se pudo
// expresar en la unidad del ítem.
type LedgerResult struct {
	Balance decimal.Decimal
	Skipped []string
}

// Replay recalcula el stock de item a partir de su historial. Suman las compras, la
// asignación recibida al derivarse y las unidades ensambladas; restan las ventas, las
// asignaciones a hijos y el consumo como componente.
func Replay(item *entity.Item, h LedgerHistory) LedgerResult {
	res := LedgerResult{Balance: decimal.Zero}
	add := func(id string, m entity.Measurement, sign int) {
		v, err := m.In(item.Stock)
		if err != nil {
			res.Skipped = append(res.Skipped, id)
			return
		}
		if sign < 0 {
			v = v.Neg()
		}
		res.Balance = res.Balance.Add(v)
	}

	for _, p := range h.Purchases {
		add(p.ID, p.Amount, 1)
	}
	for _, s := range h.Sales {
		add(s.ID, s.Amount, -1)
	}
	if item.IsDerived() {
		add(item.ID, allocationMeasurement(item.Stock, *item.DerivedFrom), 1)
	}
	for _, c := range h.Children {
		if c.DerivedFrom == nil || c.DerivedFrom.SourceItemID != item.ID {
			continue
		}
		add(c.ID, allocationMeasurement(item.Stock, *c.DerivedFrom), -1)
	}
	for _, b := range h.Builds {
		if b.ProductID == item.ID {
			res.Balance = res.Balance.Add(b.Units)
		}
		if used := b.Consumption(item.ID); !used.IsZero() {
			res.Balance = res.Balance.Sub(used)
		}
	}
	return res
}

// allocationMeasurement expresa una asignación de linaje como medida en la dimensión del stock.
func allocationMeasurement(stock entity.Measurement, d entity.DerivedFrom) entity.Measurement {
	if stock.Type == entity.TrackingWeight {
		unit := d.WeightUnit
		if unit == "" {
			unit = stock.Unit
		}
		return entity.Measurement{Type: entity.TrackingWeight, Value: d.Weight, Unit: unit}
	}
	return entity.Measurement{Type: stock.Type, Value: d.Quantity, Unit: stock.Unit}
}
