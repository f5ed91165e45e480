package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/jhoicas/inventario-bom/pkg/logger"
	"github.com/shopspring/decimal"
)

// ProductUseCase crea productos a partir de su BOM, ensambla unidades y recalcula precios.
type ProductUseCase struct {
	txRunner TxRunner
	retries  int
	metrics  Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewProductUseCase construye el caso de uso. retries <= 0 usa DefaultRetryAttempts.
func NewProductUseCase(txRunner TxRunner, retries int, m Metrics, log *logger.Logger) *ProductUseCase {
	if retries <= 0 {
		retries = DefaultRetryAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProductUseCase{txRunner: txRunner, retries: retries, metrics: metricsOrNop(m), log: log, now: time.Now}
}

// CreateProductInput entrada de createProduct.
type CreateProductInput struct {
	Name       string
	SKU        string
	Category   string
	Components []entity.Component
	Pricing    inventory.PricingMode
}

// ProductResult producto junto con la cotización aplicada.
type ProductResult struct {
	Item  *entity.Item
	Quote inventory.PriceQuote
}

// CreateProduct crea el producto con cost = costo de materiales, precio según el modo y
// stock inicial 1. Registra el ensamblaje de esa unidad consumiendo los materiales en la misma tx.
func (uc *ProductUseCase) CreateProduct(ctx context.Context, in CreateProductInput) (*ProductResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "el nombre es obligatorio")
	}
	if err := validateComponents(in.Components); err != nil {
		return nil, err
	}
	if in.Pricing == nil {
		return nil, domain.NewValidationError("pricing_mode", "modo de precio requerido")
	}

	var out *ProductResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			now := uc.now()
			allocs, err := consumeMaterials(ctx, repos, in.Components, decimal.NewFromInt(1), now)
			if err != nil {
				return err
			}
			cost := inventory.MaterialsCost(allocs)
			quote, err := inventory.Quote(cost, in.Pricing)
			if err != nil {
				return err
			}
			stock, _ := entity.NewMeasurement(entity.TrackingQuantity, decimal.NewFromInt(1), "")
			product := &entity.Item{
				ID:           uuid.New().String(),
				Name:         name,
				SKU:          strings.TrimSpace(in.SKU),
				Category:     in.Category,
				Kind:         entity.KindProduct,
				TrackingType: entity.TrackingQuantity,
				PriceType:    entity.PriceEach,
				Stock:        stock,
				Cost:         cost,
				Price:        quote.Price,
				Components:   append([]entity.Component(nil), in.Components...),
				Version:      1,
				LastUpdated:  now,
				CreatedAt:    now,
			}
			if err := repos.Items.Create(ctx, product); err != nil {
				return err
			}
			build := &entity.ProductBuild{
				ID:         uuid.New().String(),
				ProductID:  product.ID,
				Units:      decimal.NewFromInt(1),
				Components: product.Components,
				CreatedAt:  now,
			}
			if err := repos.Builds.Create(ctx, build); err != nil {
				return err
			}
			out = &ProductResult{Item: product, Quote: quote}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.ProductCreated()
	uc.log.Info().Str("product_id", out.Item.ID).Str("materials_cost", out.Quote.MaterialsCost.String()).
		Str("price", out.Item.Price.String()).Msg("producto creado")
	return out, nil
}

// BuildProduct ensambla units unidades adicionales consumiendo el BOM vigente del producto.
// El costo del producto se promedia con el costo actual de los materiales.
func (uc *ProductUseCase) BuildProduct(ctx context.Context, productID string, units decimal.Decimal) (*entity.Item, error) {
	if !units.GreaterThan(decimal.Zero) {
		return nil, domain.NewValidationError("units", "debe ser mayor a cero")
	}
	var out *entity.Item
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			product, err := repos.Items.GetForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
			}
			if !product.Kind.IsProduct() || len(product.Components) == 0 {
				return domain.NewValidationError("product_id", "el ítem no tiene lista de materiales")
			}
			now := uc.now()
			allocs, err := consumeMaterials(ctx, repos, product.Components, units, now)
			if err != nil {
				return err
			}
			unitCost := inventory.MaterialsCost(allocs)
			product.Cost = inventory.CostCalculator(product.Stock.Value, product.Cost, units, unitCost)
			product.Stock.Value = product.Stock.Value.Add(units)
			product.LastUpdated = now
			if err := repos.Items.Update(ctx, product); err != nil {
				return err
			}
			build := &entity.ProductBuild{
				ID:         uuid.New().String(),
				ProductID:  product.ID,
				Units:      units,
				Components: append([]entity.Component(nil), product.Components...),
				CreatedAt:  now,
			}
			if err := repos.Builds.Create(ctx, build); err != nil {
				return err
			}
			out = product
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RepriceProduct recalcula el costo de materiales con los costos vigentes y guarda el nuevo precio.
// Solo el campo autoritativo del modo se toma de la entrada; el otro se calcula.
func (uc *ProductUseCase) RepriceProduct(ctx context.Context, productID string, mode inventory.PricingMode) (*ProductResult, error) {
	if mode == nil {
		return nil, domain.NewValidationError("pricing_mode", "modo de precio requerido")
	}
	var out *ProductResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			product, err := repos.Items.GetForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
			}
			if !product.Kind.IsProduct() || len(product.Components) == 0 {
				return domain.NewValidationError("product_id", "el ítem no tiene lista de materiales")
			}
			allocs := make([]inventory.Allocation, 0, len(product.Components))
			for _, c := range product.Components {
				m, err := repos.Items.GetByID(ctx, c.MaterialItemID)
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("material %s: %w", c.MaterialItemID, domain.ErrNotFound)
				}
				allocs = append(allocs, inventory.Allocation{Material: m, Quantity: c.Quantity})
			}
			quote, err := inventory.Quote(inventory.MaterialsCost(allocs), mode)
			if err != nil {
				return err
			}
			product.Price = quote.Price
			product.LastUpdated = uc.now()
			if err := repos.Items.Update(ctx, product); err != nil {
				return err
			}
			out = &ProductResult{Item: product, Quote: quote}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateComponents(components []entity.Component) error {
	if len(components) == 0 {
		return domain.NewValidationError("components", "un producto requiere al menos un material")
	}
	seen := make(map[string]bool, len(components))
	for i, c := range components {
		field := fmt.Sprintf("components[%d]", i)
		if c.MaterialItemID == "" {
			return domain.NewValidationError(field, "material_item_id es obligatorio")
		}
		if !c.Quantity.GreaterThan(decimal.Zero) {
			return domain.NewValidationError(field, "la cantidad debe ser mayor a cero")
		}
		if seen[c.MaterialItemID] {
			return domain.NewValidationError(field, "material repetido")
		}
		seen[c.MaterialItemID] = true
	}
	return nil
}

// consumeMaterials bloquea cada material, verifica stock para cantidad × units y lo descuenta.
// Devuelve las asignaciones por unidad de producto con los materiales ya actualizados.
func consumeMaterials(ctx context.Context, repos TxRepos, components []entity.Component, units decimal.Decimal, now time.Time) ([]inventory.Allocation, error) {
	allocs := make([]inventory.Allocation, 0, len(components))
	for _, c := range components {
		material, err := repos.Items.GetForUpdate(ctx, c.MaterialItemID)
		if err != nil {
			return nil, err
		}
		if material == nil {
			return nil, domain.NewValidationError("components", fmt.Sprintf("el material %s no existe", c.MaterialItemID))
		}
		if !material.Kind.IsMaterial() {
			return nil, domain.NewValidationError("components", fmt.Sprintf("el ítem %s no es un material", c.MaterialItemID))
		}
		need := c.Quantity.Mul(units)
		if material.AvailableStock().LessThan(need) {
			return nil, &domain.InsufficientStockError{ItemID: material.ID, Requested: need, Available: material.AvailableStock()}
		}
		material.Stock.Value = material.Stock.Value.Sub(need)
		material.LastUpdated = now
		if err := repos.Items.Update(ctx, material); err != nil {
			return nil, err
		}
		allocs = append(allocs, inventory.Allocation{Material: material, Quantity: c.Quantity})
	}
	return allocs, nil
}
