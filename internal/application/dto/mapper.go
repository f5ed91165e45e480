package dto

import "github.com/jhoicas/inventario-bom/internal/domain/entity"

// FromMeasurement convierte una medida de dominio.
func FromMeasurement(m entity.Measurement) MeasurementDTO {
	return MeasurementDTO{Type: string(m.Type), Value: m.Value, Unit: m.Unit}
}

// FromItem convierte un ítem de dominio a su representación de salida.
func FromItem(it *entity.Item) ItemResponse {
	out := ItemResponse{
		ID:           it.ID,
		Name:         it.Name,
		SKU:          it.SKU,
		Category:     it.Category,
		Kind:         string(it.Kind),
		TrackingType: string(it.TrackingType),
		PriceType:    string(it.PriceType),
		Stock:        FromMeasurement(it.Stock),
		Cost:         it.Cost,
		Price:        it.Price,
		Version:      it.Version,
		LastUpdated:  it.LastUpdated,
		CreatedAt:    it.CreatedAt,
	}
	for _, c := range it.Components {
		out.Components = append(out.Components, ComponentDTO{MaterialItemID: c.MaterialItemID, Quantity: c.Quantity})
	}
	if it.DerivedFrom != nil {
		out.DerivedFrom = &DerivedFromDTO{
			SourceItemID: it.DerivedFrom.SourceItemID,
			Quantity:     it.DerivedFrom.Quantity,
			Weight:       it.DerivedFrom.Weight,
			WeightUnit:   it.DerivedFrom.WeightUnit,
		}
	}
	if it.PackInfo != nil {
		out.PackInfo = &PackInfoDTO{
			IsPack:       it.PackInfo.IsPack,
			UnitsPerPack: it.PackInfo.UnitsPerPack,
			CostPerUnit:  it.PackInfo.CostPerUnit,
		}
	}
	return out
}

// FromItems convierte una lista de ítems.
func FromItems(items []*entity.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, FromItem(it))
	}
	return out
}

// FromConversionJob convierte el snapshot del job.
func FromConversionJob(j *entity.ConversionJob) ConversionJobResponse {
	return ConversionJobResponse{
		ID:              j.ID,
		Status:          string(j.Status),
		StartTime:       j.StartTime,
		EndTime:         j.EndTime,
		CurrentPhase:    j.CurrentPhase,
		PercentComplete: j.PercentComplete,
		Items:           PhaseCountersDTO{Converted: j.Items.Converted, Errors: j.Items.Errors},
		Purchases:       PhaseCountersDTO{Converted: j.Purchases.Converted, Errors: j.Purchases.Errors},
		Sales:           PhaseCountersDTO{Converted: j.Sales.Converted, Errors: j.Sales.Errors},
		Assets:          PhaseCountersDTO{Converted: j.Assets.Converted, Errors: j.Assets.Errors},
		ErrorMessage:    j.ErrorMessage,
	}
}
