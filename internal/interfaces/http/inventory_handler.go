package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-bom/internal/application/dto"
	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryHandler maneja las mutaciones de stock: compras, ventas, descomposición y reconciliación (protegido).
type InventoryHandler struct {
	breakdown    *inventory.BreakdownUseCase
	rebuild      *inventory.RebuildUseCase
	transactions *inventory.TransactionUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(breakdown *inventory.BreakdownUseCase, rebuild *inventory.RebuildUseCase, transactions *inventory.TransactionUseCase) *InventoryHandler {
	return &InventoryHandler{breakdown: breakdown, rebuild: rebuild, transactions: transactions}
}

// Breakdown godoc
// @Summary      Descomponer ítem
// @Description  Reparte stock de un material en nuevos ítems derivados. Falla si el origen ya es derivado.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del ítem origen"
// @Param        body  body      dto.BreakdownRequest   true  "allocations"
// @Success      201   {object}  dto.BreakdownResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/items/{id}/breakdown [post]
func (h *InventoryHandler) Breakdown(c *fiber.Ctx) error {
	var in dto.BreakdownRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	lines := make([]inventory.BreakdownLine, 0, len(in.Allocations))
	for _, a := range in.Allocations {
		lines = append(lines, inventory.BreakdownLine{
			Name:     a.Name,
			SKU:      a.SKU,
			Category: a.Category,
			Kind:     entity.ItemKind(a.Kind),
			Amount:   a.Amount,
		})
	}
	res, err := h.breakdown.BreakdownItem(c.UserContext(), c.Params("id"), lines)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.BreakdownResponse{
		Source:  dto.FromItem(res.Source),
		Derived: dto.FromItems(res.Derived),
	})
}

// RebuildItemStock godoc
// @Summary      Reconciliar stock de un ítem
// @Description  Recalcula el stock a partir de compras, ventas, ensamblajes y descomposiciones.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del ítem"
// @Success      200  {object}  dto.RebuildStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/rebuild-stock [post]
func (h *InventoryHandler) RebuildItemStock(c *fiber.Ctx) error {
	res, err := h.rebuild.RebuildItemStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RebuildStockResponse{
		ItemID:        res.ItemID,
		Updated:       res.Updated,
		PreviousValue: res.PreviousValue,
		NewValue:      res.NewValue,
		SkippedLines:  res.Skipped,
	})
}

// RebuildAllStock godoc
// @Summary      Reconciliar stock de todos los ítems
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RebuildAllResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/rebuild-stock [post]
func (h *InventoryHandler) RebuildAllStock(c *fiber.Ctx) error {
	sum, err := h.rebuild.RebuildAllStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RebuildAllResponse{
		Items:   sum.Items,
		Updated: sum.Updated,
		Failed:  sum.Failed,
		Errors:  sum.Errors,
	})
}

// RegisterPurchase godoc
// @Summary      Registrar compra
// @Description  Suma stock y recalcula el costo promedio ponderado del ítem.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterPurchaseRequest  true  "item_id, measurement_kind, amount, unit, cost_per_unit"
// @Success      201   {object}  dto.TransactionLineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchases [post]
func (h *InventoryHandler) RegisterPurchase(c *fiber.Ctx) error {
	var in dto.RegisterPurchaseRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	line, err := lineInput(in.PurchaseID, in.ItemID, in.MeasurementKind, in.Amount, in.Unit, in.CostPerUnit, in.DiscountPercentage, in.DiscountAmount)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.transactions.RegisterPurchase(c.UserContext(), line)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lineResponse(res))
}

// RegisterSale godoc
// @Summary      Registrar venta
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterSaleRequest  true  "item_id, measurement_kind, amount, unit, price_at_sale"
// @Success      201   {object}  dto.TransactionLineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *InventoryHandler) RegisterSale(c *fiber.Ctx) error {
	var in dto.RegisterSaleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	line, err := lineInput(in.SaleID, in.ItemID, in.MeasurementKind, in.Amount, in.Unit, in.PriceAtSale, in.DiscountPercentage, in.DiscountAmount)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.transactions.RegisterSale(c.UserContext(), line)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lineResponse(res))
}

func lineInput(parentID, itemID, kind string, amount decimal.Decimal, unit string, unitPrice decimal.Decimal, pct, amt *decimal.Decimal) (inventory.LineInput, error) {
	m, err := entity.NewMeasurement(entity.TrackingType(kind), amount, unit)
	if err != nil {
		return inventory.LineInput{}, domain.NewValidationError("unit", err.Error())
	}
	return inventory.LineInput{
		ParentID:           parentID,
		ItemID:             itemID,
		Amount:             m,
		UnitPrice:          unitPrice,
		DiscountPercentage: pct,
		DiscountAmount:     amt,
	}, nil
}

func lineResponse(res *inventory.LineResult) dto.TransactionLineResponse {
	return dto.TransactionLineResponse{
		LineID:             res.LineID,
		ItemID:             res.ItemID,
		Amount:             dto.FromMeasurement(res.Amount),
		UnitPrice:          res.UnitPrice,
		DiscountPercentage: res.Discount.Percentage,
		DiscountAmount:     res.Discount.Amount,
		StockAfter:         dto.FromMeasurement(res.StockAfter),
	}
}
