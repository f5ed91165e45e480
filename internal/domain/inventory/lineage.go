package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
)

// ItemLookup resuelve un ítem por ID; (nil, nil) si no existe.
type ItemLookup func(ctx context.Context, id string) (*entity.Item, error)

// maxLineageDepth corta recorridos sobre datos corruptos.
const maxLineageDepth = 1000

// Ancestors sigue los punteros derivedFrom desde el ítem hasta la raíz (padre primero).
// Devuelve error si detecta un ciclo.
func Ancestors(ctx context.Context, item *entity.Item, lookup ItemLookup) ([]*entity.Item, error) {
	seen := map[string]bool{item.ID: true}
	var out []*entity.Item
	cur := item
	for cur.IsDerived() {
		parentID := cur.DerivedFrom.SourceItemID
		if seen[parentID] || len(out) >= maxLineageDepth {
			return out, fmt.Errorf("ciclo de linaje detectado en %s", parentID)
		}
		seen[parentID] = true
		parent, err := lookup(ctx, parentID)
		if err != nil {
			return out, err
		}
		if parent == nil {
			break
		}
		out = append(out, parent)
		cur = parent
	}
	return out, nil
}

// WouldCreateCycle indica si apuntar childID → parentID cerraría un ciclo
// (incluye el caso childID == parentID).
func WouldCreateCycle(ctx context.Context, childID, parentID string, lookup ItemLookup) (bool, error) {
	if childID == parentID {
		return true, nil
	}
	parent, err := lookup(ctx, parentID)
	if err != nil || parent == nil {
		return false, err
	}
	chain, err := Ancestors(ctx, parent, lookup)
	if err != nil {
		return true, nil
	}
	for _, a := range chain {
		if a.ID == childID {
			return true, nil
		}
	}
	return false, nil
}
