package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// TransactionUseCase registra compras (entradas) y ventas (salidas) con bloqueo de fila
// (SELECT FOR UPDATE) y Commit/Rollback vía TxRunner.
type TransactionUseCase struct {
	txRunner TxRunner
	retries  int
	now      func() time.Time
}

// NewTransactionUseCase construye el caso de uso.
func NewTransactionUseCase(txRunner TxRunner, retries int) *TransactionUseCase {
	if retries <= 0 {
		retries = DefaultRetryAttempts
	}
	return &TransactionUseCase{txRunner: txRunner, retries: retries, now: time.Now}
}

// LineInput entrada común de una línea. Amount lleva la etiqueta de medición (Amount.Type).
// Si vienen ambos descuentos manda el porcentaje.
type LineInput struct {
	ParentID           string // compra o venta; vacío = se genera
	ItemID             string
	Amount             entity.Measurement
	UnitPrice          decimal.Decimal // costo por unidad (compra) o precio de venta
	DiscountPercentage *decimal.Decimal
	DiscountAmount     *decimal.Decimal
}

// LineResult línea registrada y stock resultante del ítem.
type LineResult struct {
	LineID     string
	ItemID     string
	Amount     entity.Measurement
	UnitPrice  decimal.Decimal
	Discount   entity.Discount
	StockAfter entity.Measurement
}

func (in LineInput) validate() error {
	if in.ItemID == "" {
		return domain.NewValidationError("item_id", "es obligatorio")
	}
	if !in.Amount.Type.Valid() || !in.Amount.Type.SupportsUnit(in.Amount.Unit) {
		return domain.NewValidationError("unit", fmt.Sprintf("unidad %q inválida para %s", in.Amount.Unit, in.Amount.Type))
	}
	if !in.Amount.Value.GreaterThan(decimal.Zero) {
		return domain.NewValidationError("amount", "debe ser mayor a cero")
	}
	if in.UnitPrice.LessThan(decimal.Zero) {
		return domain.NewValidationError("unit_price", "no puede ser negativo")
	}
	if p := in.DiscountPercentage; p != nil && (p.LessThan(decimal.Zero) || p.GreaterThan(decimal.NewFromInt(100))) {
		return domain.NewValidationError("discount_percentage", "debe estar entre 0 y 100")
	}
	if a := in.DiscountAmount; a != nil && a.LessThan(decimal.Zero) {
		return domain.NewValidationError("discount_amount", "no puede ser negativo")
	}
	return nil
}

func (in LineInput) discount(base decimal.Decimal) entity.Discount {
	switch {
	case in.DiscountPercentage != nil:
		return entity.DiscountFromPercentage(base, *in.DiscountPercentage)
	case in.DiscountAmount != nil:
		return entity.DiscountFromAmount(base, *in.DiscountAmount)
	}
	return entity.Discount{Percentage: decimal.Zero, Amount: decimal.Zero}
}

// toItemUnit expresa la cantidad de la línea en la unidad de stock del ítem.
func toItemUnit(item *entity.Item, amount entity.Measurement) (decimal.Decimal, error) {
	v, err := amount.In(item.Stock)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("measurement_kind", err.Error())
	}
	return v, nil
}

// RegisterPurchase suma stock al ítem y actualiza su costo por promedio ponderado
// con el costo neto de descuento, expresado por unidad de stock del ítem.
func (uc *TransactionUseCase) RegisterPurchase(ctx context.Context, in LineInput) (*LineResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *LineResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			item, err := repos.Items.GetForUpdate(ctx, in.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("ítem %s: %w", in.ItemID, domain.ErrNotFound)
			}
			qty, err := toItemUnit(item, in.Amount)
			if err != nil {
				return err
			}
			now := uc.now()
			line := &entity.PurchaseItem{
				ID:          uuid.New().String(),
				PurchaseID:  orNewID(in.ParentID),
				ItemID:      item.ID,
				Amount:      in.Amount,
				CostPerUnit: in.UnitPrice,
				CreatedAt:   now,
			}
			line.Discount = in.discount(line.Base())

			net := line.Base().Sub(line.Discount.Amount)
			entryCost := decimal.Zero
			if qty.GreaterThan(decimal.Zero) {
				entryCost = net.Div(qty).Round(4)
			}
			item.Cost = inventory.CostCalculator(item.Stock.Value, item.Cost, qty, entryCost)
			item.PackInfo.Normalize(item.Cost)
			item.Stock.Value = item.Stock.Value.Add(qty)
			item.LastUpdated = now
			if err := repos.Items.Update(ctx, item); err != nil {
				return err
			}
			if err := repos.Purchases.SaveItem(ctx, line); err != nil {
				return err
			}
			out = &LineResult{LineID: line.ID, ItemID: item.ID, Amount: line.Amount, UnitPrice: line.CostPerUnit, Discount: line.Discount, StockAfter: item.Stock}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterSale verifica disponibilidad y descuenta stock. El costo del ítem no cambia.
func (uc *TransactionUseCase) RegisterSale(ctx context.Context, in LineInput) (*LineResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *LineResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			item, err := repos.Items.GetForUpdate(ctx, in.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("ítem %s: %w", in.ItemID, domain.ErrNotFound)
			}
			qty, err := toItemUnit(item, in.Amount)
			if err != nil {
				return err
			}
			if item.AvailableStock().LessThan(qty) {
				return &domain.InsufficientStockError{ItemID: item.ID, Requested: qty, Available: item.AvailableStock()}
			}
			now := uc.now()
			line := &entity.SaleItem{
				ID:          uuid.New().String(),
				SaleID:      orNewID(in.ParentID),
				ItemID:      item.ID,
				Amount:      in.Amount,
				PriceAtSale: in.UnitPrice,
				CreatedAt:   now,
			}
			line.Discount = in.discount(line.Base())

			item.Stock.Value = item.Stock.Value.Sub(qty)
			item.LastUpdated = now
			if err := repos.Items.Update(ctx, item); err != nil {
				return err
			}
			if err := repos.Sales.SaveItem(ctx, line); err != nil {
				return err
			}
			out = &LineResult{LineID: line.ID, ItemID: item.ID, Amount: line.Amount, UnitPrice: line.PriceAtSale, Discount: line.Discount, StockAfter: item.Stock}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func orNewID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}
