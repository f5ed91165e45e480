package memory

import (
	"context"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var (
	_ repository.ItemRepository         = autoItems{}
	_ repository.PurchaseRepository     = autoPurchases{}
	_ repository.SaleRepository         = autoSales{}
	_ repository.ProductBuildRepository = autoBuilds{}
	_ repository.AssetRepository        = autoAssets{}
	_ repository.LegacyRepository       = autoLegacy{}
)

// Cada escritura es su propia transacción de una sola operación; las lecturas van directo.

type autoItems struct {
	*itemRepo
	s *Store
}

func (r autoItems) Create(ctx context.Context, item *entity.Item) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Items.Create(ctx, item) })
}

func (r autoItems) Update(ctx context.Context, item *entity.Item) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Items.Update(ctx, item) })
}

func (r autoItems) Delete(ctx context.Context, id string) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Items.Delete(ctx, id) })
}

type autoPurchases struct {
	*purchaseRepo
	s *Store
}

func (r autoPurchases) SaveItem(ctx context.Context, line *entity.PurchaseItem) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Purchases.SaveItem(ctx, line) })
}

type autoSales struct {
	*saleRepo
	s *Store
}

func (r autoSales) SaveItem(ctx context.Context, line *entity.SaleItem) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Sales.SaveItem(ctx, line) })
}

type autoBuilds struct {
	*buildRepo
	s *Store
}

func (r autoBuilds) Create(ctx context.Context, build *entity.ProductBuild) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Builds.Create(ctx, build) })
}

type autoAssets struct {
	*assetRepo
	s *Store
}

func (r autoAssets) Save(ctx context.Context, asset *entity.Asset) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Assets.Save(ctx, asset) })
}

type autoLegacy struct {
	*legacyRepo
	s *Store
}

func (r autoLegacy) MarkConverted(ctx context.Context, class, id string) error {
	return r.s.Run(ctx, func(repos inventory.TxRepos) error { return repos.Legacy.MarkConverted(ctx, class, id) })
}
