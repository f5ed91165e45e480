package dto

import "github.com/shopspring/decimal"

// Modos de precio de un producto.
const (
	PricingMarkup = "markup"
	PricingManual = "manual"
)

// CreateProductRequest entrada para crear un producto a partir de su BOM.
// Con pricing_mode=markup se usa markup_percent; con manual, final_price.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=200"`
	SKU           string           `json:"sku" validate:"max=100"`
	Category      string           `json:"category" validate:"max=100"`
	Components    []ComponentDTO   `json:"components" validate:"required,min=1,dive"`
	PricingMode   string           `json:"pricing_mode" validate:"required,oneof=markup manual"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
	FinalPrice    *decimal.Decimal `json:"final_price,omitempty"`
}

// BuildProductRequest ensamblar más unidades de un producto existente.
type BuildProductRequest struct {
	Units decimal.Decimal `json:"units"`
}

// RepriceProductRequest recalcular precio con los costos vigentes de los materiales.
type RepriceProductRequest struct {
	PricingMode   string           `json:"pricing_mode" validate:"required,oneof=markup manual"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
	FinalPrice    *decimal.Decimal `json:"final_price,omitempty"`
}

// ProductResponse producto creado/recalculado junto con su cotización.
type ProductResponse struct {
	Item          ItemResponse     `json:"item"`
	MaterialsCost decimal.Decimal  `json:"materials_cost"`
	PricingMode   string           `json:"pricing_mode"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
}
