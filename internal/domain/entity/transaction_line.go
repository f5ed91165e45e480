package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount descuento de una línea. Porcentaje y monto se derivan uno del otro
// sobre una misma base (cantidad × precio unitario).
type Discount struct {
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// DiscountFromPercentage fija el porcentaje y deriva el monto.
func DiscountFromPercentage(base, pct decimal.Decimal) Discount {
	return Discount{Percentage: pct, Amount: base.Mul(pct).Div(hundred).Round(2)}
}

// DiscountFromAmount fija el monto y deriva el porcentaje.
func DiscountFromAmount(base, amount decimal.Decimal) Discount {
	if !base.GreaterThan(decimal.Zero) {
		return Discount{Amount: amount}
	}
	return Discount{Percentage: amount.Div(base).Mul(hundred).Round(4), Amount: amount}
}

// Reconcile corrige ediciones fuera de banda (importaciones masivas): el porcentaje manda.
func (d Discount) Reconcile(base decimal.Decimal) Discount {
	if d.Percentage.IsZero() && !d.Amount.IsZero() {
		return DiscountFromAmount(base, d.Amount)
	}
	return DiscountFromPercentage(base, d.Percentage)
}

// PurchaseItem línea de compra (recepción) que suma stock al ítem referenciado.
type PurchaseItem struct {
	ID          string
	PurchaseID  string
	ItemID      string
	Amount      Measurement // Amount.Type es la etiqueta de medición de la línea
	CostPerUnit decimal.Decimal
	Discount    Discount
	CreatedAt   time.Time
}

// Base importe bruto de la línea.
func (p *PurchaseItem) Base() decimal.Decimal {
	return p.Amount.Value.Mul(p.CostPerUnit)
}

// SaleItem línea de venta que consume stock del ítem referenciado.
type SaleItem struct {
	ID          string
	SaleID      string
	ItemID      string
	Amount      Measurement
	PriceAtSale decimal.Decimal
	Discount    Discount
	CreatedAt   time.Time
}

// Base importe bruto de la línea.
func (s *SaleItem) Base() decimal.Decimal {
	return s.Amount.Value.Mul(s.PriceAtSale)
}

// ProductBuild ensamblaje confirmado de unidades de un producto.
// Consume Components[i].Quantity × Units de cada material.
type ProductBuild struct {
	ID         string
	ProductID  string
	Units      decimal.Decimal
	Components []Component
	CreatedAt  time.Time
}

// Consumption cantidad del material consumida por este ensamblaje.
func (b *ProductBuild) Consumption(materialID string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.Components {
		if c.MaterialItemID == materialID {
			total = total.Add(c.Quantity.Mul(b.Units))
		}
	}
	return total
}

// Asset activo fijo armado a partir de ítems del inventario.
type Asset struct {
	ID         string
	Name       string
	Components []Component
	UpdatedAt  time.Time
}
