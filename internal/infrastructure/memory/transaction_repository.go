package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var (
	_ repository.PurchaseRepository     = (*purchaseRepo)(nil)
	_ repository.SaleRepository         = (*saleRepo)(nil)
	_ repository.ProductBuildRepository = (*buildRepo)(nil)
	_ repository.AssetRepository        = (*assetRepo)(nil)
)

type purchaseRepo Store

func (r *purchaseRepo) SaveItem(_ context.Context, line *entity.PurchaseItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *line
	r.purchases[line.ID] = &cp
	return nil
}

func (r *purchaseRepo) ListByItem(_ context.Context, itemID string) ([]*entity.PurchaseItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.PurchaseItem
	for _, l := range r.purchases {
		if l.ItemID == itemID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type saleRepo Store

func (r *saleRepo) SaveItem(_ context.Context, line *entity.SaleItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *line
	r.sales[line.ID] = &cp
	return nil
}

func (r *saleRepo) ListByItem(_ context.Context, itemID string) ([]*entity.SaleItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.SaleItem
	for _, l := range r.sales {
		if l.ItemID == itemID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type buildRepo Store

func (r *buildRepo) Create(_ context.Context, build *entity.ProductBuild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *build
	cp.Components = append([]entity.Component(nil), build.Components...)
	r.builds[build.ID] = &cp
	return nil
}

func (r *buildRepo) ListByProduct(_ context.Context, productID string) ([]*entity.ProductBuild, error) {
	return r.filter(func(b *entity.ProductBuild) bool { return b.ProductID == productID }), nil
}

func (r *buildRepo) ListByComponent(_ context.Context, materialID string) ([]*entity.ProductBuild, error) {
	return r.filter(func(b *entity.ProductBuild) bool {
		for _, c := range b.Components {
			if c.MaterialItemID == materialID {
				return true
			}
		}
		return false
	}), nil
}

func (r *buildRepo) filter(keep func(*entity.ProductBuild) bool) []*entity.ProductBuild {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.ProductBuild
	for _, b := range r.builds {
		if keep(b) {
			cp := *b
			cp.Components = append([]entity.Component(nil), b.Components...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type assetRepo Store

func (r *assetRepo) Save(_ context.Context, asset *entity.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *asset
	cp.Components = append([]entity.Component(nil), asset.Components...)
	r.assets[asset.ID] = &cp
	return nil
}

func (r *assetRepo) GetByID(_ context.Context, id string) (*entity.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	cp.Components = append([]entity.Component(nil), a.Components...)
	return &cp, nil
}
