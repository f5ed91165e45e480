package entity

import "github.com/shopspring/decimal"

// Representación plana del modelo anterior. El job de conversión la lleva al modelo
// de linaje/BOM y marca cada registro como convertido.

// LegacyItem relaciones planas de un ítem: padre directo y arreglos paralelos de materiales.
type LegacyItem struct {
	ID                 string
	ParentItemID       string
	ParentAmount       decimal.Decimal
	MaterialIDs        []string
	MaterialQuantities []decimal.Decimal
}

// LegacyLine línea de compra o venta que referencia el ítem por ID o SKU y guarda
// una cantidad genérica sin etiqueta de medición.
type LegacyLine struct {
	ID        string
	ParentID  string // compra o venta a la que pertenece
	ItemRef   string
	Amount    decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal
}

// LegacyAsset activo con referencias planas a ítems.
type LegacyAsset struct {
	ID         string
	Name       string
	ItemRefs   []string
	Quantities []decimal.Decimal
}
