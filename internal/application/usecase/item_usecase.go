package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/application/dto"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ItemUseCase casos de uso CRUD del catálogo. Stock se maneja vía compras, ventas,
// descomposiciones y ensamblajes; nunca se edita directamente.
type ItemUseCase struct {
	repo repository.ItemRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo}
}

// Create registra un material (o ítem "both") con stock cero. Los productos se crean
// desde su BOM con ProductUseCase.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "el nombre es obligatorio")
	}
	kind := entity.ItemKind(in.Kind)
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", "tipo de ítem desconocido")
	}
	if kind == entity.KindProduct {
		return nil, domain.NewValidationError("kind", "los productos se crean a partir de su lista de materiales")
	}
	tracking := entity.TrackingType(in.TrackingType)
	stock, err := entity.NewMeasurement(tracking, decimal.Zero, in.Unit)
	if err != nil {
		return nil, domain.NewValidationError("unit", err.Error())
	}
	priceType := entity.PriceType(in.PriceType)
	if priceType == "" {
		priceType = entity.PriceEach
	}
	if !priceType.Valid() || !priceType.CompatibleWith(tracking) {
		return nil, domain.NewValidationError("price_type", fmt.Sprintf("%s no aplica a %s", priceType, tracking))
	}
	if in.Cost.LessThan(decimal.Zero) || in.Price.LessThan(decimal.Zero) {
		return nil, domain.NewValidationError("cost", "costo y precio no pueden ser negativos")
	}
	sku := strings.TrimSpace(in.SKU)
	if sku != "" {
		existing, err := uc.repo.GetBySKU(ctx, sku)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrDuplicate
		}
	}

	now := time.Now()
	item := &entity.Item{
		ID:           uuid.New().String(),
		Name:         name,
		SKU:          sku,
		Category:     in.Category,
		Kind:         kind,
		TrackingType: tracking,
		PriceType:    priceType,
		Stock:        stock,
		Cost:         in.Cost,
		Price:        in.Price,
		PackInfo:     toPackInfo(in.PackInfo),
		Version:      1,
		LastUpdated:  now,
		CreatedAt:    now,
	}
	item.PackInfo.Normalize(item.Cost)
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	out := dto.FromItem(item)
	return &out, nil
}

// GetByID obtiene un ítem por ID; (nil, nil) si no existe.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	out := dto.FromItem(item)
	return &out, nil
}

// Update actualiza datos descriptivos, costo y precio. Es optimista: in.Version debe
// coincidir con la versión guardada o se devuelve ErrConcurrencyConflict.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "el nombre es obligatorio")
		}
		item.Name = name
	}
	if in.SKU != nil {
		item.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Cost != nil {
		if in.Cost.LessThan(decimal.Zero) {
			return nil, domain.NewValidationError("cost", "no puede ser negativo")
		}
		item.Cost = *in.Cost
	}
	if in.Price != nil {
		if in.Price.LessThan(decimal.Zero) {
			return nil, domain.NewValidationError("price", "no puede ser negativo")
		}
		item.Price = *in.Price
	}
	if in.PackInfo != nil {
		item.PackInfo = toPackInfo(in.PackInfo)
	}
	item.PackInfo.Normalize(item.Cost)
	item.Version = in.Version
	item.LastUpdated = time.Now()
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	out := dto.FromItem(item)
	return &out, nil
}

// List lista ítems con filtros opcionales y paginación.
func (uc *ItemUseCase) List(ctx context.Context, kind, category string, limit, offset int) (*dto.ItemListResponse, error) {
	filter := repository.ItemFilter{Kind: entity.ItemKind(kind), Category: category}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewValidationError("kind", "tipo de ítem desconocido")
	}
	list, err := uc.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.ItemListResponse{
		Items: dto.FromItems(list),
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina un ítem. Se rechaza mientras sea componente de un BOM u origen de derivados,
// para no dejar referencias colgando.
func (uc *ItemUseCase) Delete(ctx context.Context, id string) error {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	users, err := uc.repo.ListUsingComponent(ctx, id)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return fmt.Errorf("el ítem es componente de %d producto(s): %w", len(users), domain.ErrConflict)
	}
	children, err := uc.repo.ListDerived(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("el ítem tiene %d derivado(s): %w", len(children), domain.ErrConflict)
	}
	return uc.repo.Delete(ctx, id)
}

// Lineage ancestros (padre primero, vía derivedFrom) e hijos directos (consulta inversa).
func (uc *ItemUseCase) Lineage(ctx context.Context, id string) (*dto.LineageResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	ancestors, err := inventory.Ancestors(ctx, item, uc.repo.GetByID)
	if err != nil {
		return nil, err
	}
	children, err := uc.repo.ListDerived(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.LineageResponse{
		Item:      dto.FromItem(item),
		Ancestors: dto.FromItems(ancestors),
		Children:  dto.FromItems(children),
	}, nil
}

func toPackInfo(in *dto.PackInfoDTO) *entity.PackInfo {
	if in == nil {
		return nil
	}
	return &entity.PackInfo{IsPack: in.IsPack, UnitsPerPack: in.UnitsPerPack, CostPerUnit: in.CostPerUnit}
}
