package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
)

func lookupFrom(items ...*entity.Item) inventory.ItemLookup {
	byID := make(map[string]*entity.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return func(_ context.Context, id string) (*entity.Item, error) {
		return byID[id], nil
	}
}

func derived(id, parent string) *entity.Item {
	it := &entity.Item{ID: id}
	if parent != "" {
		it.DerivedFrom = &entity.DerivedFrom{SourceItemID: parent}
	}
	return it
}

func TestAncestors_RecorreHastaLaRaiz(t *testing.T) {
	a, b, c := derived("A", ""), derived("B", "A"), derived("C", "B")
	chain, err := inventory.Ancestors(context.Background(), c, lookupFrom(a, b, c))
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "B", chain[0].ID)
	assert.Equal(t, "A", chain[1].ID)
}

func TestAncestors_DetectaCiclo(t *testing.T) {
	a, b := derived("A", "B"), derived("B", "A")
	_, err := inventory.Ancestors(context.Background(), a, lookupFrom(a, b))
	assert.Error(t, err)
}

func TestWouldCreateCycle(t *testing.T) {
	a, b, c := derived("A", ""), derived("B", "A"), derived("C", "")
	lookup := lookupFrom(a, b, c)
	ctx := context.Background()

	cyc, err := inventory.WouldCreateCycle(ctx, "A", "A", lookup)
	require.NoError(t, err)
	assert.True(t, cyc, "un ítem no puede derivar de sí mismo")

	cyc, err = inventory.WouldCreateCycle(ctx, "A", "B", lookup)
	require.NoError(t, err)
	assert.True(t, cyc, "A → B → A cerraría un ciclo")

	cyc, err = inventory.WouldCreateCycle(ctx, "C", "B", lookup)
	require.NoError(t, err)
	assert.False(t, cyc)
}
