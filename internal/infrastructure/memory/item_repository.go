package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var _ repository.ItemRepository = (*itemRepo)(nil)

type itemRepo Store

func (r *itemRepo) Create(_ context.Context, item *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; ok {
		return domain.ErrDuplicate
	}
	if item.SKU != "" {
		for _, it := range r.items {
			if it.SKU == item.SKU {
				return domain.ErrDuplicate
			}
		}
	}
	if item.Version == 0 {
		item.Version = 1
	}
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[id].Clone(), nil
}

func (r *itemRepo) GetBySKU(_ context.Context, sku string) (*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.SKU == sku {
			return it.Clone(), nil
		}
	}
	return nil, nil
}

// GetForUpdate: dentro de Store.Run las transacciones ya son exclusivas.
func (r *itemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *itemRepo) List(_ context.Context, filter repository.ItemFilter, limit, offset int) ([]*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*entity.Item
	for _, it := range r.items {
		if filter.Kind != "" && it.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		all = append(all, it.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return []*entity.Item{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *itemRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *itemRepo) ListDerived(_ context.Context, sourceID string) ([]*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Item
	for _, it := range r.items {
		if it.DerivedFrom != nil && it.DerivedFrom.SourceItemID == sourceID {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) ListUsingComponent(_ context.Context, materialID string) ([]*entity.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Item
	for _, it := range r.items {
		for _, c := range it.Components {
			if c.MaterialItemID == materialID {
				out = append(out, it.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) Update(_ context.Context, item *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != item.Version {
		return domain.ErrConcurrencyConflict
	}
	if item.SKU != "" && item.SKU != stored.SKU {
		for id, it := range r.items {
			if id != item.ID && it.SKU == item.SKU {
				return domain.ErrDuplicate
			}
		}
	}
	item.Version++
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *itemRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}
