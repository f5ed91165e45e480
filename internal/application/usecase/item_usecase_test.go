package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/inventario-bom/internal/application/dto"
	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/application/usecase"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemUC() (*usecase.ItemUseCase, *memory.Store) {
	store := memory.New()
	return usecase.NewItemUseCase(store.Items()), store
}

func TestItemUseCase_Create(t *testing.T) {
	uc, _ := newItemUC()
	ctx := context.Background()

	out, err := uc.Create(ctx, dto.CreateItemRequest{
		Name:         "Tela",
		SKU:          "TEL-1",
		Kind:         "material",
		TrackingType: "length",
		PriceType:    "per_length_unit",
		Cost:         decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "m", out.Stock.Unit)
	assert.True(t, out.Stock.Value.IsZero())
	assert.Equal(t, 1, out.Version)

	_, err = uc.Create(ctx, dto.CreateItemRequest{Name: "Otra", SKU: "TEL-1", Kind: "material", TrackingType: "quantity"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestItemUseCase_CreateValidaciones(t *testing.T) {
	uc, _ := newItemUC()
	ctx := context.Background()

	cases := map[string]dto.CreateItemRequest{
		"producto directo":    {Name: "P", Kind: "product", TrackingType: "quantity"},
		"unidad ajena":        {Name: "X", Kind: "material", TrackingType: "weight", Unit: "m"},
		"precio incompatible": {Name: "X", Kind: "material", TrackingType: "quantity", PriceType: "per_weight_unit"},
		"tipo de seguimiento": {Name: "X", Kind: "material", TrackingType: "tiempo"},
		"costo negativo":      {Name: "X", Kind: "material", TrackingType: "quantity", Cost: decimal.NewFromInt(-1)},
		"nombre vacío":        {Name: " ", Kind: "material", TrackingType: "quantity"},
	}
	for name, in := range cases {
		in := in
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestItemUseCase_UpdateOptimista(t *testing.T) {
	uc, _ := newItemUC()
	ctx := context.Background()
	created, err := uc.Create(ctx, dto.CreateItemRequest{Name: "Hilo", Kind: "both", TrackingType: "quantity"})
	require.NoError(t, err)

	name := "Hilo rojo"
	updated, err := uc.Update(ctx, created.ID, dto.UpdateItemRequest{Name: &name, Version: created.Version})
	require.NoError(t, err)
	assert.Equal(t, "Hilo rojo", updated.Name)
	assert.Equal(t, created.Version+1, updated.Version)

	// Versión desfasada.
	_, err = uc.Update(ctx, created.ID, dto.UpdateItemRequest{Name: &name, Version: created.Version})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	_, err = uc.Update(ctx, "nope", dto.UpdateItemRequest{Version: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemUseCase_PackInfo(t *testing.T) {
	uc, _ := newItemUC()
	out, err := uc.Create(context.Background(), dto.CreateItemRequest{
		Name:         "Botones x12",
		Kind:         "material",
		TrackingType: "quantity",
		Cost:         decimal.NewFromInt(6),
		PackInfo:     &dto.PackInfoDTO{IsPack: true, UnitsPerPack: decimal.NewFromInt(12)},
	})
	require.NoError(t, err)
	require.NotNil(t, out.PackInfo)
	assert.True(t, out.PackInfo.CostPerUnit.Equal(decimal.RequireFromString("0.5")))
}

func TestItemUseCase_DeleteYLinaje(t *testing.T) {
	uc, store := newItemUC()
	ctx := context.Background()

	src, err := uc.Create(ctx, dto.CreateItemRequest{Name: "Rollo", Kind: "material", TrackingType: "quantity"})
	require.NoError(t, err)
	tx := inventory.NewTransactionUseCase(store, 0)
	_, err = tx.RegisterPurchase(ctx, inventory.LineInput{
		ItemID:    src.ID,
		Amount:    entity.Measurement{Type: entity.TrackingQuantity, Value: decimal.NewFromInt(10), Unit: "unit"},
		UnitPrice: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	br, err := inventory.NewBreakdownUseCase(store, 0, nil, nil).
		BreakdownItem(ctx, src.ID, []inventory.BreakdownLine{{Amount: decimal.NewFromInt(4)}})
	require.NoError(t, err)
	child := br.Derived[0]

	lin, err := uc.Lineage(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, lin.Ancestors, 1)
	assert.Equal(t, src.ID, lin.Ancestors[0].ID)
	assert.Empty(t, lin.Children)

	lin, err = uc.Lineage(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, lin.Children, 1)
	assert.Equal(t, child.ID, lin.Children[0].ID)

	// El origen tiene derivados: no se puede borrar.
	assert.ErrorIs(t, uc.Delete(ctx, src.ID), domain.ErrConflict)

	// Un componente de BOM tampoco.
	_, err = inventory.NewProductUseCase(store, 0, nil, nil).CreateProduct(ctx, inventory.CreateProductInput{
		Name:       "Kit",
		Components: []entity.Component{{MaterialItemID: child.ID, Quantity: decimal.NewFromInt(1)}},
		Pricing:    domaininv.Markup{Percent: decimal.Zero},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, uc.Delete(ctx, child.ID), domain.ErrConflict)

	other, err := uc.Create(ctx, dto.CreateItemRequest{Name: "Suelto", Kind: "material", TrackingType: "quantity"})
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, other.ID))
	got, err := uc.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, uc.Delete(ctx, other.ID), domain.ErrNotFound)
}

func TestItemUseCase_ListFiltros(t *testing.T) {
	uc, _ := newItemUC()
	ctx := context.Background()
	_, err := uc.Create(ctx, dto.CreateItemRequest{Name: "A", Category: "telas", Kind: "material", TrackingType: "quantity"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, dto.CreateItemRequest{Name: "B", Category: "hilos", Kind: "both", TrackingType: "quantity"})
	require.NoError(t, err)

	out, err := uc.List(ctx, "", "telas", 20, 0)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "A", out.Items[0].Name)

	out, err = uc.List(ctx, "both", "", 20, 0)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)

	_, err = uc.List(ctx, "servicio", "", 20, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// skuDown simula el almacén caído al buscar por SKU.
type skuDown struct {
	repository.ItemRepository
	created bool
}

func (r *skuDown) GetBySKU(context.Context, string) (*entity.Item, error) {
	return nil, errors.New("conexión rechazada")
}

func (r *skuDown) Create(ctx context.Context, item *entity.Item) error {
	r.created = true
	return r.ItemRepository.Create(ctx, item)
}

func TestItemUseCase_CreatePropagaErrorDeBusquedaPorSKU(t *testing.T) {
	repo := &skuDown{ItemRepository: memory.New().Items()}
	uc := usecase.NewItemUseCase(repo)

	_, err := uc.Create(context.Background(), dto.CreateItemRequest{
		Name: "Hilo", SKU: "HIL-1", Kind: "material", TrackingType: "quantity", PriceType: "each",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conexión rechazada")
	assert.False(t, repo.created)
}
