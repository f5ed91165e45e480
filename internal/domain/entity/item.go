package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind rol del ítem en el inventario.
type ItemKind string

const (
	KindMaterial ItemKind = "material"
	KindProduct  ItemKind = "product"
	KindBoth     ItemKind = "both"
)

// Valid indica si el tipo de ítem es conocido.
func (k ItemKind) Valid() bool {
	return k == KindMaterial || k == KindProduct || k == KindBoth
}

// IsMaterial: puede usarse como componente de un BOM o descomponerse.
func (k ItemKind) IsMaterial() bool { return k == KindMaterial || k == KindBoth }

// IsProduct: puede tener lista de componentes.
func (k ItemKind) IsProduct() bool { return k == KindProduct || k == KindBoth }

// Component asignación de un material dentro del BOM de un producto.
// Quantity se expresa en la unidad de stock del material.
type Component struct {
	MaterialItemID string
	Quantity       decimal.Decimal
}

// DerivedFrom puntero de linaje hacia el ítem origen.
// Para orígenes por peso la asignación queda en Weight/WeightUnit; para el resto en Quantity
// (en la unidad de stock del origen).
type DerivedFrom struct {
	SourceItemID string
	Quantity     decimal.Decimal
	Weight       decimal.Decimal
	WeightUnit   string
}

// Allocated cantidad tomada del origen, expresada en la unidad de stock del origen.
func (d DerivedFrom) Allocated(sourceType TrackingType) decimal.Decimal {
	if sourceType == TrackingWeight {
		return d.Weight
	}
	return d.Quantity
}

// NewDerivedFrom arma el puntero de linaje según la dimensión del origen.
func NewDerivedFrom(sourceID string, amount Measurement) DerivedFrom {
	d := DerivedFrom{SourceItemID: sourceID}
	if amount.Type == TrackingWeight {
		d.Weight = amount.Value
		d.WeightUnit = amount.Unit
		return d
	}
	d.Quantity = amount.Value
	return d
}

// PackInfo datos de empaque: un ítem puede representar un paquete de N unidades.
type PackInfo struct {
	IsPack       bool
	UnitsPerPack decimal.Decimal
	CostPerUnit  decimal.Decimal
}

// Normalize recalcula CostPerUnit a partir del costo del paquete.
func (p *PackInfo) Normalize(packCost decimal.Decimal) {
	if p == nil {
		return
	}
	if !p.IsPack || !p.UnitsPerPack.GreaterThan(decimal.Zero) {
		p.CostPerUnit = packCost
		return
	}
	p.CostPerUnit = packCost.Div(p.UnitsPerPack).Round(4)
}

// Item ítem del catálogo: material, producto o ambos.
// Los ítems derivados se consultan por SourceItemID; no se guarda la lista inversa.
type Item struct {
	ID           string
	Name         string
	SKU          string
	Category     string
	Kind         ItemKind
	TrackingType TrackingType
	PriceType    PriceType
	Stock        Measurement
	Cost         decimal.Decimal // costo unitario agregado
	Price        decimal.Decimal // precio de venta
	Components   []Component
	DerivedFrom  *DerivedFrom
	PackInfo     *PackInfo
	Version      int
	LastUpdated  time.Time
	CreatedAt    time.Time
}

// UnitCost costo usado para costear BOMs: Cost si está definido, si no Price.
func (i *Item) UnitCost() decimal.Decimal {
	if i.Cost.GreaterThan(decimal.Zero) {
		return i.Cost
	}
	return i.Price
}

// AvailableStock valor de stock en la unidad del ítem.
func (i *Item) AvailableStock() decimal.Decimal {
	return i.Stock.Value
}

// IsDerived indica si el ítem tiene puntero de linaje.
func (i *Item) IsDerived() bool {
	return i.DerivedFrom != nil && i.DerivedFrom.SourceItemID != ""
}

// Clone copia profunda (componentes y punteros) para que los repositorios no compartan memoria.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Components != nil {
		c.Components = append([]Component(nil), i.Components...)
	}
	if i.DerivedFrom != nil {
		d := *i.DerivedFrom
		c.DerivedFrom = &d
	}
	if i.PackInfo != nil {
		p := *i.PackInfo
		c.PackInfo = &p
	}
	return &c
}
