package dto

import "github.com/shopspring/decimal"

// BreakdownAllocation una línea de descomposición: cuánto del origen pasa a un nuevo ítem.
// Amount se expresa en la unidad de stock del origen. Kind/Category vacíos = heredados del origen.
type BreakdownAllocation struct {
	Name     string          `json:"name" validate:"max=200"`
	SKU      string          `json:"sku" validate:"max=100"`
	Category string          `json:"category" validate:"max=100"`
	Kind     string          `json:"kind" validate:"omitempty,oneof=material product both"`
	Amount   decimal.Decimal `json:"amount"`
}

// BreakdownRequest body para POST /api/items/:id/breakdown.
type BreakdownRequest struct {
	Allocations []BreakdownAllocation `json:"allocations" validate:"required,min=1,dive"`
}

// BreakdownResponse ítems derivados creados y stock restante del origen.
type BreakdownResponse struct {
	Source  ItemResponse   `json:"source"`
	Derived []ItemResponse `json:"derived"`
}

// RebuildStockResponse resultado de reconciliar un ítem.
type RebuildStockResponse struct {
	ItemID        string          `json:"item_id"`
	Updated       bool            `json:"updated"`
	PreviousValue decimal.Decimal `json:"previous_value"`
	NewValue      decimal.Decimal `json:"new_value"`
	SkippedLines  []string        `json:"skipped_lines,omitempty"`
}

// RebuildAllResponse resumen de la reconciliación masiva.
type RebuildAllResponse struct {
	Items   int      `json:"items"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// RegisterPurchaseRequest body para POST /api/purchases.
type RegisterPurchaseRequest struct {
	PurchaseID         string           `json:"purchase_id"`
	ItemID             string           `json:"item_id" validate:"required"`
	MeasurementKind    string           `json:"measurement_kind" validate:"required,oneof=quantity weight length area volume"`
	Amount             decimal.Decimal  `json:"amount"`
	Unit               string           `json:"unit"`
	CostPerUnit        decimal.Decimal  `json:"cost_per_unit"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

// RegisterSaleRequest body para POST /api/sales.
type RegisterSaleRequest struct {
	SaleID             string           `json:"sale_id"`
	ItemID             string           `json:"item_id" validate:"required"`
	MeasurementKind    string           `json:"measurement_kind" validate:"required,oneof=quantity weight length area volume"`
	Amount             decimal.Decimal  `json:"amount"`
	Unit               string           `json:"unit"`
	PriceAtSale        decimal.Decimal  `json:"price_at_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

// TransactionLineResponse línea registrada con el stock resultante.
type TransactionLineResponse struct {
	LineID             string          `json:"line_id"`
	ItemID             string          `json:"item_id"`
	Amount             MeasurementDTO  `json:"amount"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	StockAfter         MeasurementDTO  `json:"stock_after"`
}
