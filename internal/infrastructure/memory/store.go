// Package memory implementa los puertos de persistencia en memoria.
// Se usa en tests y con STORAGE_DRIVER=memory para desarrollo local.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store guarda todas las colecciones bajo un RWMutex. Las transacciones se serializan
// con txMu y se deshacen restaurando una copia de las colecciones transaccionales.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	items     map[string]*entity.Item
	purchases map[string]*entity.PurchaseItem
	sales     map[string]*entity.SaleItem
	builds    map[string]*entity.ProductBuild
	assets    map[string]*entity.Asset
	jobs      map[string]*entity.ConversionJob

	legacyItems     []entity.LegacyItem
	legacyPurchases []entity.LegacyLine
	legacySales     []entity.LegacyLine
	legacyAssets    []entity.LegacyAsset
	converted       map[string]bool // clase + "/" + id
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		items:     make(map[string]*entity.Item),
		purchases: make(map[string]*entity.PurchaseItem),
		sales:     make(map[string]*entity.SaleItem),
		builds:    make(map[string]*entity.ProductBuild),
		assets:    make(map[string]*entity.Asset),
		jobs:      make(map[string]*entity.ConversionJob),
		converted: make(map[string]bool),
	}
}

// Los repositorios públicos escriben a través de Run: una escritura fuera de transacción
// espera a la transacción en curso y no puede perderse si ésta se deshace.

// Items repositorio de ítems sobre el store.
func (s *Store) Items() repository.ItemRepository { return autoItems{(*itemRepo)(s), s} }

// Purchases repositorio de líneas de compra.
func (s *Store) Purchases() repository.PurchaseRepository {
	return autoPurchases{(*purchaseRepo)(s), s}
}

// Sales repositorio de líneas de venta.
func (s *Store) Sales() repository.SaleRepository { return autoSales{(*saleRepo)(s), s} }

// Builds repositorio de ensamblajes.
func (s *Store) Builds() repository.ProductBuildRepository { return autoBuilds{(*buildRepo)(s), s} }

// Assets repositorio de activos.
func (s *Store) Assets() repository.AssetRepository { return autoAssets{(*assetRepo)(s), s} }

// Jobs repositorio de jobs de conversión. No participa de las transacciones.
func (s *Store) Jobs() repository.ConversionJobRepository { return (*jobRepo)(s) }

// Legacy repositorio de registros planos.
func (s *Store) Legacy() repository.LegacyRepository { return autoLegacy{(*legacyRepo)(s), s} }

// txRepos repositorios sin serializar; solo válidos dentro de Run, que ya tiene txMu.
func (s *Store) txRepos() inventory.TxRepos {
	return inventory.TxRepos{
		Items:     (*itemRepo)(s),
		Purchases: (*purchaseRepo)(s),
		Sales:     (*saleRepo)(s),
		Builds:    (*buildRepo)(s),
		Assets:    (*assetRepo)(s),
		Legacy:    (*legacyRepo)(s),
	}
}

// Run ejecuta fn de forma exclusiva; si fn falla se restaura el estado previo.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s.txRepos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	items     map[string]*entity.Item
	purchases map[string]*entity.PurchaseItem
	sales     map[string]*entity.SaleItem
	builds    map[string]*entity.ProductBuild
	assets    map[string]*entity.Asset
	converted map[string]bool
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		items:     copyMap(s.items),
		purchases: copyMap(s.purchases),
		sales:     copyMap(s.sales),
		builds:    copyMap(s.builds),
		assets:    copyMap(s.assets),
		converted: copyMap(s.converted),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = snap.items
	s.purchases = snap.purchases
	s.sales = snap.sales
	s.builds = snap.builds
	s.assets = snap.assets
	s.converted = snap.converted
}

// Los valores guardados nunca se mutan en sitio (siempre se reemplazan por copias),
// así que basta con copiar el mapa.
func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
