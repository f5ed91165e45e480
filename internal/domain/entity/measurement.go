package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TrackingType dimensión con la que se lleva el stock de un ítem.
type TrackingType string

const (
	TrackingQuantity TrackingType = "quantity"
	TrackingWeight   TrackingType = "weight"
	TrackingLength   TrackingType = "length"
	TrackingArea     TrackingType = "area"
	TrackingVolume   TrackingType = "volume"
)

// PriceType indica si el precio/costo es por pieza o por unidad de medida.
type PriceType string

const (
	PriceEach          PriceType = "each"
	PricePerWeightUnit PriceType = "per_weight_unit"
	PricePerLengthUnit PriceType = "per_length_unit"
	PricePerAreaUnit   PriceType = "per_area_unit"
	PricePerVolumeUnit PriceType = "per_volume_unit"
)

// Factores de cada unidad respecto a la unidad base de su dimensión (kg, m, m2, l).
var unitFactors = map[TrackingType]map[string]decimal.Decimal{
	TrackingQuantity: {
		"unit": decimal.NewFromInt(1),
	},
	TrackingWeight: {
		"kg": decimal.NewFromInt(1),
		"g":  decimal.RequireFromString("0.001"),
		"lb": decimal.RequireFromString("0.45359237"),
		"oz": decimal.RequireFromString("0.028349523125"),
	},
	TrackingLength: {
		"m":  decimal.NewFromInt(1),
		"cm": decimal.RequireFromString("0.01"),
		"mm": decimal.RequireFromString("0.001"),
		"in": decimal.RequireFromString("0.0254"),
		"ft": decimal.RequireFromString("0.3048"),
	},
	TrackingArea: {
		"m2":  decimal.NewFromInt(1),
		"cm2": decimal.RequireFromString("0.0001"),
		"ft2": decimal.RequireFromString("0.09290304"),
	},
	TrackingVolume: {
		"l":   decimal.NewFromInt(1),
		"ml":  decimal.RequireFromString("0.001"),
		"gal": decimal.RequireFromString("3.785411784"),
	},
}

var canonicalUnits = map[TrackingType]string{
	TrackingQuantity: "unit",
	TrackingWeight:   "kg",
	TrackingLength:   "m",
	TrackingArea:     "m2",
	TrackingVolume:   "l",
}

// conversionPlaces decimales que se conservan tras convertir entre unidades.
const conversionPlaces = 6

// Valid indica si el tipo de seguimiento es conocido.
func (t TrackingType) Valid() bool {
	_, ok := canonicalUnits[t]
	return ok
}

// CanonicalUnit unidad por defecto de la dimensión.
func (t TrackingType) CanonicalUnit() string {
	return canonicalUnits[t]
}

// SupportsUnit indica si unit pertenece a la dimensión.
func (t TrackingType) SupportsUnit(unit string) bool {
	_, ok := unitFactors[t][unit]
	return ok
}

// TrackingTypeForUnit dimensión a la que pertenece una unidad.
func TrackingTypeForUnit(unit string) (TrackingType, bool) {
	for t, units := range unitFactors {
		if _, ok := units[unit]; ok {
			return t, true
		}
	}
	return "", false
}

// Valid indica si el tipo de precio es conocido.
func (p PriceType) Valid() bool {
	switch p {
	case PriceEach, PricePerWeightUnit, PricePerLengthUnit, PricePerAreaUnit, PricePerVolumeUnit:
		return true
	}
	return false
}

// CompatibleWith: "each" aplica a cualquier dimensión; los precios por unidad de medida
// solo a la dimensión correspondiente.
func (p PriceType) CompatibleWith(t TrackingType) bool {
	switch p {
	case PriceEach:
		return true
	case PricePerWeightUnit:
		return t == TrackingWeight
	case PricePerLengthUnit:
		return t == TrackingLength
	case PricePerAreaUnit:
		return t == TrackingArea
	case PricePerVolumeUnit:
		return t == TrackingVolume
	}
	return false
}

// Measurement valor numérico acompañado de su unidad y dimensión.
type Measurement struct {
	Type  TrackingType
	Value decimal.Decimal
	Unit  string
}

// NewMeasurement construye una medida; unidad vacía = unidad canónica de la dimensión.
func NewMeasurement(t TrackingType, value decimal.Decimal, unit string) (Measurement, error) {
	if !t.Valid() {
		return Measurement{}, fmt.Errorf("tipo de seguimiento desconocido %q", t)
	}
	if unit == "" {
		unit = t.CanonicalUnit()
	}
	if !t.SupportsUnit(unit) {
		return Measurement{}, fmt.Errorf("unidad %q no pertenece a %s", unit, t)
	}
	return Measurement{Type: t, Value: value, Unit: unit}, nil
}

// Convert expresa la medida en otra unidad de la misma dimensión.
func (m Measurement) Convert(unit string) (Measurement, error) {
	if unit == "" {
		unit = m.Type.CanonicalUnit()
	}
	if m.Unit == unit {
		return m, nil
	}
	from, ok := unitFactors[m.Type][m.Unit]
	if !ok {
		return Measurement{}, fmt.Errorf("unidad %q no pertenece a %s", m.Unit, m.Type)
	}
	to, ok := unitFactors[m.Type][unit]
	if !ok {
		return Measurement{}, fmt.Errorf("unidad %q no pertenece a %s", unit, m.Type)
	}
	v := m.Value.Mul(from).Div(to).Round(conversionPlaces)
	return Measurement{Type: m.Type, Value: v, Unit: unit}, nil
}

// In convierte la medida a la dimensión y unidad de otra (la del stock de un ítem).
// Falla si las dimensiones no coinciden: no existe conversión entre peso y longitud.
func (m Measurement) In(target Measurement) (decimal.Decimal, error) {
	if m.Type != target.Type {
		return decimal.Zero, fmt.Errorf("no se puede convertir %s a %s", m.Type, target.Type)
	}
	c, err := m.Convert(target.Unit)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Value, nil
}

func (m Measurement) String() string {
	return m.Value.String() + " " + m.Unit
}
