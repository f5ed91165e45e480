package inventory

import (
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Allocation material y cantidad asignada dentro de un BOM ya resuelto.
type Allocation struct {
	Material *entity.Item
	Quantity decimal.Decimal
}

// MaterialsCost Σ cantidad_i × costoUnitario_i.
func MaterialsCost(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Quantity.Mul(a.Material.UnitCost()))
	}
	return total.Round(4)
}

// PricingMode unión etiquetada: Markup o Manual. Cada variante tiene un único
// campo autoritativo; el otro valor siempre se calcula.
type PricingMode interface {
	pricingMode()
}

// Markup precio = costo de materiales × (1 + Percent/100).
type Markup struct {
	Percent decimal.Decimal
}

// Manual precio fijado por el usuario; el markup se deriva.
type Manual struct {
	Price decimal.Decimal
}

func (Markup) pricingMode() {}
func (Manual) pricingMode() {}

// PriceQuote resultado de aplicar un modo de precio a un costo de materiales.
// MarkupPercent es nil cuando no está definido (modo manual con costo cero).
type PriceQuote struct {
	MaterialsCost decimal.Decimal
	Mode          PricingMode
	Price         decimal.Decimal
	MarkupPercent *decimal.Decimal
}

// Quote calcula el precio (o el markup) según el modo activo.
func Quote(materialsCost decimal.Decimal, mode PricingMode) (PriceQuote, error) {
	q := PriceQuote{MaterialsCost: materialsCost, Mode: mode}
	switch m := mode.(type) {
	case Markup:
		if m.Percent.LessThan(hundred.Neg()) {
			return PriceQuote{}, domain.NewValidationError("markup_percent", "no puede ser menor a -100")
		}
		pct := m.Percent
		q.Price = materialsCost.Mul(one.Add(pct.Div(hundred))).Round(2)
		q.MarkupPercent = &pct
	case Manual:
		if m.Price.LessThan(decimal.Zero) {
			return PriceQuote{}, domain.NewValidationError("final_price", "no puede ser negativo")
		}
		q.Price = m.Price
		q.MarkupPercent = DeriveMarkup(m.Price, materialsCost)
	default:
		return PriceQuote{}, domain.NewValidationError("pricing_mode", "modo de precio requerido")
	}
	return q, nil
}

// DeriveMarkup round((precio/costo − 1) × 100); nil si el costo no es positivo.
func DeriveMarkup(price, materialsCost decimal.Decimal) *decimal.Decimal {
	if !materialsCost.GreaterThan(decimal.Zero) {
		return nil
	}
	pct := price.Div(materialsCost).Sub(one).Mul(hundred).Round(0)
	return &pct
}

// ToManual cambio a modo manual conservando el precio vigente.
func (q PriceQuote) ToManual() Manual {
	return Manual{Price: q.Price}
}

// ToMarkup cambio a modo markup conservando el markup vigente.
// ok=false si el markup no está definido (costo de materiales cero).
func (q PriceQuote) ToMarkup() (Markup, bool) {
	if q.MarkupPercent == nil {
		return Markup{}, false
	}
	return Markup{Percent: *q.MarkupPercent}, true
}

// Requote recalcula con un nuevo costo de materiales manteniendo el modo.
func (q PriceQuote) Requote(materialsCost decimal.Decimal) (PriceQuote, error) {
	return Quote(materialsCost, q.Mode)
}
