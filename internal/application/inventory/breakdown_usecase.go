package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/pkg/logger"
	"github.com/shopspring/decimal"
)

// BreakdownUseCase descompone un ítem a granel en ítems derivados conservando cantidad y linaje.
type BreakdownUseCase struct {
	txRunner TxRunner
	retries  int
	metrics  Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewBreakdownUseCase construye el caso de uso. retries <= 0 usa DefaultRetryAttempts.
func NewBreakdownUseCase(txRunner TxRunner, retries int, m Metrics, log *logger.Logger) *BreakdownUseCase {
	if retries <= 0 {
		retries = DefaultRetryAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BreakdownUseCase{txRunner: txRunner, retries: retries, metrics: metricsOrNop(m), log: log, now: time.Now}
}

// BreakdownLine una asignación: Amount en la unidad de stock del origen.
// Name, Category y Kind vacíos se heredan del origen.
type BreakdownLine struct {
	Name     string
	SKU      string
	Category string
	Kind     entity.ItemKind
	Amount   decimal.Decimal
}

// BreakdownResult origen con su stock restante y los ítems creados.
type BreakdownResult struct {
	Source  *entity.Item
	Derived []*entity.Item
}

// BreakdownItem valida y aplica todas las líneas en una sola transacción: el chequeo de
// disponibilidad, el descuento del origen y la creación de los derivados se confirman juntos o nada.
func (uc *BreakdownUseCase) BreakdownItem(ctx context.Context, sourceID string, lines []BreakdownLine) (*BreakdownResult, error) {
	res, err := uc.breakdown(ctx, sourceID, lines)
	uc.metrics.Breakdown(resultLabel(err))
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("source_id", sourceID).Int("derived", len(res.Derived)).
		Str("remaining", res.Source.Stock.String()).Msg("ítem descompuesto")
	return res, nil
}

func (uc *BreakdownUseCase) breakdown(ctx context.Context, sourceID string, lines []BreakdownLine) (*BreakdownResult, error) {
	if sourceID == "" {
		return nil, domain.NewValidationError("source_item_id", "es obligatorio")
	}
	if len(lines) == 0 {
		return nil, domain.NewValidationError("allocations", "se requiere al menos una asignación")
	}
	total := decimal.Zero
	for i, l := range lines {
		if !l.Amount.GreaterThan(decimal.Zero) {
			return nil, domain.NewValidationError(fmt.Sprintf("allocations[%d].amount", i), "debe ser mayor a cero")
		}
		if l.Kind != "" && !l.Kind.Valid() {
			return nil, domain.NewValidationError(fmt.Sprintf("allocations[%d].kind", i), "tipo de ítem desconocido")
		}
		total = total.Add(l.Amount)
	}

	var out *BreakdownResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			// Bloquea la fila del origen: dos descomposiciones concurrentes no pueden
			// validar contra el mismo stock.
			source, err := repos.Items.GetForUpdate(ctx, sourceID)
			if err != nil {
				return err
			}
			if source == nil {
				return fmt.Errorf("ítem %s: %w", sourceID, domain.ErrNotFound)
			}
			if !source.Kind.IsMaterial() {
				return domain.NewValidationError("source_item_id", "solo se pueden descomponer materiales")
			}
			if source.IsDerived() {
				return &domain.AlreadyDerivedError{ItemID: source.ID, SourceItemID: source.DerivedFrom.SourceItemID}
			}
			if total.GreaterThan(source.AvailableStock()) {
				return &domain.InsufficientStockError{ItemID: source.ID, Requested: total, Available: source.AvailableStock()}
			}

			now := uc.now()
			source.Stock.Value = source.Stock.Value.Sub(total)
			source.LastUpdated = now
			if err := repos.Items.Update(ctx, source); err != nil {
				return err
			}

			derived := make([]*entity.Item, 0, len(lines))
			for _, l := range lines {
				child := newDerivedItem(source, l, now)
				if err := repos.Items.Create(ctx, child); err != nil {
					return err
				}
				derived = append(derived, child)
			}
			out = &BreakdownResult{Source: source, Derived: derived}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// newDerivedItem hereda dimensión, unidad, costo y precio del origen; su stock es lo asignado.
func newDerivedItem(source *entity.Item, l BreakdownLine, now time.Time) *entity.Item {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		name = source.Name + " (derivado)"
	}
	category := l.Category
	if category == "" {
		category = source.Category
	}
	kind := l.Kind
	if kind == "" {
		kind = source.Kind
	}
	amount := entity.Measurement{Type: source.Stock.Type, Value: l.Amount, Unit: source.Stock.Unit}
	from := entity.NewDerivedFrom(source.ID, amount)
	return &entity.Item{
		ID:           uuid.New().String(),
		Name:         name,
		SKU:          strings.TrimSpace(l.SKU),
		Category:     category,
		Kind:         kind,
		TrackingType: source.TrackingType,
		PriceType:    source.PriceType,
		Stock:        amount,
		Cost:         source.Cost,
		Price:        source.Price,
		DerivedFrom:  &from,
		Version:      1,
		LastUpdated:  now,
		CreatedAt:    now,
	}
}
