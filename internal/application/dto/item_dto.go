package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeasurementDTO valor con unidad y dimensión.
type MeasurementDTO struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// ComponentDTO asignación de material en un BOM.
type ComponentDTO struct {
	MaterialItemID string          `json:"material_item_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// DerivedFromDTO puntero de linaje.
type DerivedFromDTO struct {
	SourceItemID string          `json:"source_item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Weight       decimal.Decimal `json:"weight"`
	WeightUnit   string          `json:"weight_unit,omitempty"`
}

// PackInfoDTO datos de empaque.
type PackInfoDTO struct {
	IsPack       bool            `json:"is_pack"`
	UnitsPerPack decimal.Decimal `json:"units_per_pack"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
}

// CreateItemRequest entrada para registrar un material (o ítem "both") en el catálogo.
type CreateItemRequest struct {
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	SKU          string          `json:"sku" validate:"max=100"`
	Category     string          `json:"category" validate:"max=100"`
	Kind         string          `json:"kind" validate:"required,oneof=material product both"`
	TrackingType string          `json:"tracking_type" validate:"required,oneof=quantity weight length area volume"`
	PriceType    string          `json:"price_type" validate:"omitempty,oneof=each per_weight_unit per_length_unit per_area_unit per_volume_unit"`
	Unit         string          `json:"unit"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	PackInfo     *PackInfoDTO    `json:"pack_info,omitempty"`
}

// UpdateItemRequest entrada para actualizar un ítem (sin stock: se maneja vía transacciones).
type UpdateItemRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=200"`
	SKU      *string          `json:"sku" validate:"omitempty,max=100"`
	Category *string          `json:"category" validate:"omitempty,max=100"`
	Cost     *decimal.Decimal `json:"cost"`
	Price    *decimal.Decimal `json:"price"`
	PackInfo *PackInfoDTO     `json:"pack_info,omitempty"`
	Version  int              `json:"version" validate:"required,min=1"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Kind         string          `json:"kind"`
	TrackingType string          `json:"tracking_type"`
	PriceType    string          `json:"price_type"`
	Stock        MeasurementDTO  `json:"stock"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	Components   []ComponentDTO  `json:"components,omitempty"`
	DerivedFrom  *DerivedFromDTO `json:"derived_from,omitempty"`
	PackInfo     *PackInfoDTO    `json:"pack_info,omitempty"`
	Version      int             `json:"version"`
	LastUpdated  time.Time       `json:"last_updated"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// LineageResponse ancestros (padre primero) e hijos directos de un ítem.
type LineageResponse struct {
	Item      ItemResponse   `json:"item"`
	Ancestors []ItemResponse `json:"ancestors"`
	Children  []ItemResponse `json:"children"`
}
