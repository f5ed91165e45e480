package inventory

import (
	"context"

	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Items     repository.ItemRepository
	Purchases repository.PurchaseRepository
	Sales     repository.SaleRepository
	Builds    repository.ProductBuildRepository
	Assets    repository.AssetRepository
	Legacy    repository.LegacyRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error se hace Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// Metrics contadores que registran los casos de uso. *metrics.Metrics lo implementa.
type Metrics interface {
	Breakdown(result string)
	Rebuild(result string)
	ProductCreated()
}

type nopMetrics struct{}

func (nopMetrics) Breakdown(string) {}
func (nopMetrics) Rebuild(string)   {}
func (nopMetrics) ProductCreated()  {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
