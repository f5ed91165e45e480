package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-bom/internal/application/dto"
	appinventory "github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ProductHandler maneja la creación y el ensamblaje de productos (protegido).
type ProductHandler struct {
	uc *appinventory.ProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *appinventory.ProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Create godoc
// @Summary      Crear producto desde su BOM
// @Description  Consume los materiales de una unidad y fija el precio por markup o manual.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateProductRequest  true  "name, components, pricing_mode, markup_percent | final_price"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	mode, err := pricingMode(in.PricingMode, in.MarkupPercent, in.FinalPrice)
	if err != nil {
		return writeError(c, err)
	}
	components := make([]entity.Component, 0, len(in.Components))
	for _, comp := range in.Components {
		components = append(components, entity.Component{MaterialItemID: comp.MaterialItemID, Quantity: comp.Quantity})
	}
	res, err := h.uc.CreateProduct(c.UserContext(), appinventory.CreateProductInput{
		Name:       in.Name,
		SKU:        in.SKU,
		Category:   in.Category,
		Components: components,
		Pricing:    mode,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(productResponse(res))
}

// Build godoc
// @Summary      Ensamblar unidades de un producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "ID del producto"
// @Param        body  body      dto.BuildProductRequest  true  "units"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/builds [post]
func (h *ProductHandler) Build(c *fiber.Ctx) error {
	var in dto.BuildProductRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	item, err := h.uc.BuildProduct(c.UserContext(), c.Params("id"), in.Units)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromItem(item))
}

// Reprice godoc
// @Summary      Recalcular precio del producto
// @Description  Usa los costos vigentes de los materiales con el modo de precio indicado.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "ID del producto"
// @Param        body  body      dto.RepriceProductRequest  true  "pricing_mode, markup_percent | final_price"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/reprice [post]
func (h *ProductHandler) Reprice(c *fiber.Ctx) error {
	var in dto.RepriceProductRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	mode, err := pricingMode(in.PricingMode, in.MarkupPercent, in.FinalPrice)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.RepriceProduct(c.UserContext(), c.Params("id"), mode)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(productResponse(res))
}

// pricingMode arma la unión de dominio; cada modo exige su único campo autoritativo.
func pricingMode(mode string, markup, finalPrice *decimal.Decimal) (inventory.PricingMode, error) {
	switch mode {
	case dto.PricingMarkup:
		if markup == nil {
			return nil, domain.NewValidationError("markup_percent", "requerido en modo markup")
		}
		return inventory.Markup{Percent: *markup}, nil
	case dto.PricingManual:
		if finalPrice == nil {
			return nil, domain.NewValidationError("final_price", "requerido en modo manual")
		}
		return inventory.Manual{Price: *finalPrice}, nil
	default:
		return nil, domain.NewValidationError("pricing_mode", "debe ser markup o manual")
	}
}

func productResponse(res *appinventory.ProductResult) dto.ProductResponse {
	out := dto.ProductResponse{
		Item:          dto.FromItem(res.Item),
		MaterialsCost: res.Quote.MaterialsCost,
		MarkupPercent: res.Quote.MarkupPercent,
	}
	switch res.Quote.Mode.(type) {
	case inventory.Markup:
		out.PricingMode = dto.PricingMarkup
	case inventory.Manual:
		out.PricingMode = dto.PricingManual
	}
	return out
}
