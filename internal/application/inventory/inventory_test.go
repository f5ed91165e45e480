package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedItem(t *testing.T, store *memory.Store, id string, kind entity.ItemKind, tt entity.TrackingType, stock, cost string) *entity.Item {
	t.Helper()
	m, err := entity.NewMeasurement(tt, d(stock), "")
	require.NoError(t, err)
	now := time.Now()
	it := &entity.Item{
		ID:           id,
		Name:         "item " + id,
		Kind:         kind,
		TrackingType: tt,
		PriceType:    entity.PriceEach,
		Stock:        m,
		Cost:         d(cost),
		LastUpdated:  now,
		CreatedAt:    now,
	}
	require.NoError(t, store.Items().Create(context.Background(), it))
	return it
}

func getItem(t *testing.T, store *memory.Store, id string) *entity.Item {
	t.Helper()
	it, err := store.Items().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, it)
	return it
}

// ─── Descomposición ────────────────────────────────────────────────────────

func TestBreakdown_DescuentaOrigenYCreaDerivado(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "100", "2")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)

	res, err := uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{{Amount: d("40")}})
	require.NoError(t, err)
	require.Len(t, res.Derived, 1)

	b := res.Derived[0]
	require.NotNil(t, b.DerivedFrom)
	assert.Equal(t, "A", b.DerivedFrom.SourceItemID)
	assert.True(t, b.DerivedFrom.Quantity.Equal(d("40")))
	assert.True(t, b.Stock.Value.Equal(d("40")))
	assert.NotEqual(t, "A", b.ID)
	assert.Equal(t, entity.KindMaterial, b.Kind)
	assert.True(t, b.Cost.Equal(d("2")))

	a := getItem(t, store, "A")
	assert.True(t, a.Stock.Value.Equal(d("60")), "stock de A: %s", a.Stock.Value)
}

func TestBreakdown_ConservaCantidad(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindBoth, entity.TrackingWeight, "12.5", "1")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)

	lines := []inventory.BreakdownLine{
		{Name: "corte 1", Amount: d("2.25")},
		{Name: "corte 2", Amount: d("4"), Category: "cortes"},
		{Name: "corte 3", Amount: d("6.25"), Kind: entity.KindMaterial},
	}
	res, err := uc.BreakdownItem(context.Background(), "A", lines)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, c := range res.Derived {
		sum = sum.Add(c.DerivedFrom.Weight)
		assert.Equal(t, "kg", c.DerivedFrom.WeightUnit)
	}
	a := getItem(t, store, "A")
	assert.True(t, sum.LessThanOrEqual(d("12.5")))
	assert.True(t, a.Stock.Value.Equal(d("12.5").Sub(sum)))
	assert.Equal(t, "cortes", res.Derived[1].Category)
	assert.Equal(t, entity.KindMaterial, res.Derived[2].Kind)
	assert.Equal(t, entity.KindBoth, res.Derived[0].Kind)
}

func TestBreakdown_StockInsuficienteNoConfirmaNada(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "32", "1")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)

	_, err := uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{
		{Amount: d("20")}, {Amount: d("30")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, "stock insuficiente: solicitado 50, disponible 32", err.Error())

	a := getItem(t, store, "A")
	assert.True(t, a.Stock.Value.Equal(d("32")))
	children, err := store.Items().ListDerived(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestBreakdown_DerivadoNoSePuedeDescomponer(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "100", "1")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)

	res, err := uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{{Amount: d("10")}})
	require.NoError(t, err)

	_, err = uc.BreakdownItem(context.Background(), res.Derived[0].ID, []inventory.BreakdownLine{{Amount: d("1")}})
	var already *domain.AlreadyDerivedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "A", already.SourceItemID)
}

func TestBreakdown_Validaciones(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "P", entity.KindProduct, entity.TrackingQuantity, "5", "1")
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "5", "1")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)
	ctx := context.Background()

	_, err := uc.BreakdownItem(ctx, "P", []inventory.BreakdownLine{{Amount: d("1")}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.BreakdownItem(ctx, "A", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.BreakdownItem(ctx, "A", []inventory.BreakdownLine{{Amount: d("0")}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.BreakdownItem(ctx, "no-existe", []inventory.BreakdownLine{{Amount: d("1")}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBreakdown_ConcurrenteSobreMismoOrigen(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "100", "1")
	uc := inventory.NewBreakdownUseCase(store, 0, nil, nil)

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{{Amount: d("30")}})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 3, ok)
	a := getItem(t, store, "A")
	assert.True(t, a.Stock.Value.Equal(d("10")))
}

// ─── Productos ─────────────────────────────────────────────────────────────

func TestCreateProduct_MarkupYConsumoDeMateriales(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "10", "3")
	seedItem(t, store, "B", entity.KindMaterial, entity.TrackingQuantity, "10", "4")
	uc := inventory.NewProductUseCase(store, 0, nil, nil)

	res, err := uc.CreateProduct(context.Background(), inventory.CreateProductInput{
		Name: "P",
		Components: []entity.Component{
			{MaterialItemID: "A", Quantity: d("2")},
			{MaterialItemID: "B", Quantity: d("1")},
		},
		Pricing: domaininv.Markup{Percent: d("50")},
	})
	require.NoError(t, err)
	p := res.Item
	assert.True(t, p.Cost.Equal(d("10")))
	assert.True(t, p.Price.Equal(d("15")))
	assert.True(t, p.Stock.Value.Equal(d("1")))
	assert.Equal(t, entity.KindProduct, p.Kind)
	assert.Len(t, p.Components, 2)

	assert.True(t, getItem(t, store, "A").Stock.Value.Equal(d("8")))
	assert.True(t, getItem(t, store, "B").Stock.Value.Equal(d("9")))

	builds, err := store.Builds().ListByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.True(t, builds[0].Units.Equal(d("1")))
}

func TestCreateProduct_Validaciones(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "1", "3")
	seedItem(t, store, "P", entity.KindProduct, entity.TrackingQuantity, "1", "3")
	uc := inventory.NewProductUseCase(store, 0, nil, nil)
	ctx := context.Background()
	markup := domaininv.Markup{Percent: d("10")}

	_, err := uc.CreateProduct(ctx, inventory.CreateProductInput{Name: "  ", Components: []entity.Component{{MaterialItemID: "A", Quantity: d("1")}}, Pricing: markup})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.CreateProduct(ctx, inventory.CreateProductInput{Name: "X", Pricing: markup})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.CreateProduct(ctx, inventory.CreateProductInput{Name: "X", Components: []entity.Component{{MaterialItemID: "P", Quantity: d("1")}}, Pricing: markup})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.CreateProduct(ctx, inventory.CreateProductInput{Name: "X", Components: []entity.Component{{MaterialItemID: "A", Quantity: d("2")}}, Pricing: markup})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, getItem(t, store, "A").Stock.Value.Equal(d("1")))
}

func TestBuildAndReprice(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "20", "3")
	uc := inventory.NewProductUseCase(store, 0, nil, nil)
	ctx := context.Background()

	res, err := uc.CreateProduct(ctx, inventory.CreateProductInput{
		Name:       "P",
		Components: []entity.Component{{MaterialItemID: "A", Quantity: d("2")}},
		Pricing:    domaininv.Manual{Price: d("12")},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Quote.MarkupPercent)
	assert.True(t, res.Quote.MarkupPercent.Equal(d("100")))

	p, err := uc.BuildProduct(ctx, res.Item.ID, d("3"))
	require.NoError(t, err)
	assert.True(t, p.Stock.Value.Equal(d("4")))
	assert.True(t, getItem(t, store, "A").Stock.Value.Equal(d("12")))

	// El material sube de costo: el precio en markup se recalcula, el manual no.
	a := getItem(t, store, "A")
	a.Cost = d("5")
	require.NoError(t, store.Items().Update(ctx, a))

	rp, err := uc.RepriceProduct(ctx, p.ID, domaininv.Markup{Percent: d("20")})
	require.NoError(t, err)
	assert.True(t, rp.Quote.MaterialsCost.Equal(d("10")))
	assert.True(t, rp.Item.Price.Equal(d("12")))

	_, err = uc.BuildProduct(ctx, p.ID, d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.BuildProduct(ctx, "A", d("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─── Compras y ventas ──────────────────────────────────────────────────────

func TestRegisterPurchase_PromedioPonderadoYConversion(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "H", entity.KindMaterial, entity.TrackingWeight, "10", "2")
	uc := inventory.NewTransactionUseCase(store, 0)

	pct := d("10")
	res, err := uc.RegisterPurchase(context.Background(), inventory.LineInput{
		ItemID:             "H",
		Amount:             entity.Measurement{Type: entity.TrackingWeight, Value: d("10000"), Unit: "g"},
		UnitPrice:          d("0.004"),
		DiscountPercentage: &pct,
	})
	require.NoError(t, err)
	assert.True(t, res.StockAfter.Value.Equal(d("20")))
	assert.True(t, res.Discount.Amount.Equal(d("4")))

	// neto 36 / 10 kg = 3.6 por kg; promedio (10×2 + 10×3.6)/20 = 2.8
	h := getItem(t, store, "H")
	assert.True(t, h.Cost.Equal(d("2.8")), "costo: %s", h.Cost)
}

func TestRegisterSale_StockInsuficienteYDimensionIncompatible(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "5", "1")
	uc := inventory.NewTransactionUseCase(store, 0)
	ctx := context.Background()

	_, err := uc.RegisterSale(ctx, inventory.LineInput{ItemID: "A", Amount: entity.Measurement{Type: entity.TrackingQuantity, Value: d("6"), Unit: "unit"}, UnitPrice: d("2")})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = uc.RegisterSale(ctx, inventory.LineInput{ItemID: "A", Amount: entity.Measurement{Type: entity.TrackingWeight, Value: d("1"), Unit: "kg"}, UnitPrice: d("2")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	amt := d("1")
	res, err := uc.RegisterSale(ctx, inventory.LineInput{ItemID: "A", Amount: entity.Measurement{Type: entity.TrackingQuantity, Value: d("5"), Unit: "unit"}, UnitPrice: d("2"), DiscountAmount: &amt})
	require.NoError(t, err)
	assert.True(t, res.StockAfter.Value.IsZero())
	assert.True(t, res.Discount.Percentage.Equal(d("10")))
}

// ─── Reconciliación ────────────────────────────────────────────────────────

func TestRebuild_CompraYVentaIgnoraValorGuardado(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "0", "1")
	tx := inventory.NewTransactionUseCase(store, 0)
	rb := inventory.NewRebuildUseCase(store, store.Items(), 0, 0, nil, nil)
	ctx := context.Background()

	unit := func(v string) entity.Measurement {
		return entity.Measurement{Type: entity.TrackingQuantity, Value: d(v), Unit: "unit"}
	}
	_, err := tx.RegisterPurchase(ctx, inventory.LineInput{ItemID: "A", Amount: unit("10"), UnitPrice: d("1")})
	require.NoError(t, err)
	_, err = tx.RegisterSale(ctx, inventory.LineInput{ItemID: "A", Amount: unit("3"), UnitPrice: d("2")})
	require.NoError(t, err)

	// Deriva: alguien escribió un valor arbitrario.
	a := getItem(t, store, "A")
	a.Stock.Value = d("999")
	require.NoError(t, store.Items().Update(ctx, a))

	res, err := rb.RebuildItemStock(ctx, "A")
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.True(t, res.PreviousValue.Equal(d("999")))
	assert.True(t, res.NewValue.Equal(d("7")))
	assert.True(t, getItem(t, store, "A").Stock.Value.Equal(d("7")))

	again, err := rb.RebuildItemStock(ctx, "A")
	require.NoError(t, err)
	assert.False(t, again.Updated)
}

func TestRebuild_IdempotenteTrasDescomposicionYEnsamblaje(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "0", "1")
	ctx := context.Background()
	tx := inventory.NewTransactionUseCase(store, 0)
	_, err := tx.RegisterPurchase(ctx, inventory.LineInput{ItemID: "A", Amount: entity.Measurement{Type: entity.TrackingQuantity, Value: d("100"), Unit: "unit"}, UnitPrice: d("1")})
	require.NoError(t, err)

	br, err := inventory.NewBreakdownUseCase(store, 0, nil, nil).BreakdownItem(ctx, "A", []inventory.BreakdownLine{{Amount: d("40")}})
	require.NoError(t, err)
	pr, err := inventory.NewProductUseCase(store, 0, nil, nil).CreateProduct(ctx, inventory.CreateProductInput{
		Name:       "P",
		Components: []entity.Component{{MaterialItemID: "A", Quantity: d("10")}},
		Pricing:    domaininv.Markup{Percent: d("0")},
	})
	require.NoError(t, err)

	rb := inventory.NewRebuildUseCase(store, store.Items(), 0, 0, nil, nil)
	for _, id := range []string{"A", br.Derived[0].ID, pr.Item.ID} {
		res, err := rb.RebuildItemStock(ctx, id)
		require.NoError(t, err)
		assert.False(t, res.Updated, "ítem %s: %s → %s", id, res.PreviousValue, res.NewValue)
	}
	assert.True(t, getItem(t, store, "A").Stock.Value.Equal(d("50")))
}

func TestRebuild_SaldoNegativoSeAjustaACero(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "4", "1")
	require.NoError(t, store.Sales().SaveItem(context.Background(), &entity.SaleItem{
		ID: "s1", ItemID: "A", Amount: entity.Measurement{Type: entity.TrackingQuantity, Value: d("4"), Unit: "unit"},
	}))
	rb := inventory.NewRebuildUseCase(store, store.Items(), 0, 0, nil, nil)

	res, err := rb.RebuildItemStock(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.True(t, res.NewValue.IsZero())
}

func TestRebuild_ItemInexistente(t *testing.T) {
	rb := inventory.NewRebuildUseCase(memory.New(), nil, 0, 0, nil, nil)
	_, err := rb.RebuildItemStock(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRebuildAllStock_Resumen(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "5", "1")
	seedItem(t, store, "B", entity.KindMaterial, entity.TrackingQuantity, "0", "1")
	seedItem(t, store, "C", entity.KindMaterial, entity.TrackingLength, "3", "1")
	rb := inventory.NewRebuildUseCase(store, store.Items(), 0, 2, nil, nil)

	sum, err := rb.RebuildAllStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Items)
	assert.Equal(t, 2, sum.Updated)
	assert.Equal(t, 0, sum.Failed)
}

// ─── Reintentos ────────────────────────────────────────────────────────────

// conflictRunner falla con conflicto de concurrencia las primeras n veces.
type conflictRunner struct {
	inner *memory.Store
	fails int
	calls int
}

func (r *conflictRunner) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	r.calls++
	if r.calls <= r.fails {
		return domain.ErrConcurrencyConflict
	}
	return r.inner.Run(ctx, fn)
}

func TestRetry_ConflictoDeConcurrencia(t *testing.T) {
	store := memory.New()
	seedItem(t, store, "A", entity.KindMaterial, entity.TrackingQuantity, "10", "1")

	runner := &conflictRunner{inner: store, fails: 2}
	uc := inventory.NewBreakdownUseCase(runner, 3, nil, nil)
	_, err := uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{{Amount: d("1")}})
	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)

	runner = &conflictRunner{inner: store, fails: 5}
	uc = inventory.NewBreakdownUseCase(runner, 2, nil, nil)
	_, err = uc.BreakdownItem(context.Background(), "A", []inventory.BreakdownLine{{Amount: d("1")}})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 2, runner.calls)
}
