// Package bootstrap arma las dependencias compartidas por la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/inventario-bom/internal/application/conversion"
	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/application/usecase"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/redislock"
	"github.com/jhoicas/inventario-bom/pkg/config"
	"github.com/jhoicas/inventario-bom/pkg/logger"
)

// Container casos de uso listos para usar y la función de cierre de recursos.
type Container struct {
	ItemUC        *usecase.ItemUseCase
	ProductUC     *inventory.ProductUseCase
	BreakdownUC   *inventory.BreakdownUseCase
	RebuildUC     *inventory.RebuildUseCase
	TransactionUC *inventory.TransactionUseCase
	ConversionUC  *conversion.UseCase
	Registry      *prometheus.Registry

	closers []func()
}

// Close libera pool y cliente Redis en orden inverso.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

type storage struct {
	txRunner inventory.TxRunner
	items    repository.ItemRepository
	jobs     repository.ConversionJobRepository
	legacy   repository.LegacyRepository
}

// New conecta el almacenamiento según STORAGE_DRIVER y aplica migraciones si
// MIGRATE_ON_START está activo. Con recoverJobs marca como fallidos los jobs que un
// proceso anterior dejó activos; solo el servidor lo pide, la CLI no debe tocar el
// job que otra instancia esté ejecutando.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, recoverJobs bool) (*Container, error) {
	c := &Container{Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(c.Registry)

	st, err := c.openStorage(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	opts := conversion.Options{
		Metrics:       m,
		Logger:        log,
		ProgressEvery: cfg.Inventory.ProgressEvery,
	}
	if cfg.Redis.URL != "" {
		client, err := redislock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		opts.Lock = redislock.New(client, redislock.DefaultKey, redislock.DefaultTTL)
		log.Info().Msg("lock distribuido de conversión en Redis habilitado")
	}

	retries := cfg.Inventory.RetryAttempts
	c.ItemUC = usecase.NewItemUseCase(st.items)
	c.ProductUC = inventory.NewProductUseCase(st.txRunner, retries, m, log.Named("product"))
	c.BreakdownUC = inventory.NewBreakdownUseCase(st.txRunner, retries, m, log.Named("breakdown"))
	c.RebuildUC = inventory.NewRebuildUseCase(st.txRunner, st.items, retries, cfg.Inventory.RebuildConcurrency, m, log.Named("rebuild"))
	c.TransactionUC = inventory.NewTransactionUseCase(st.txRunner, retries)
	c.ConversionUC = conversion.NewUseCase(st.jobs, st.legacy, st.txRunner, opts)

	if !recoverJobs {
		return c, nil
	}
	n, err := c.ConversionUC.RecoverInterrupted(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("recuperar jobs interrumpidos: %w", err)
	}
	if n > 0 {
		log.Warn().Int("jobs", n).Msg("jobs de conversión interrumpidos marcados como fallidos")
	}
	return c, nil
}

func (c *Container) openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.App.StorageDriver == "memory" {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.New()
		return &storage{txRunner: store, items: store.Items(), jobs: store.Jobs(), legacy: store.Legacy()}, nil
	}

	if cfg.App.MigrateOnStart {
		m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log.Named("migrate"))
		if err != nil {
			return nil, err
		}
		upErr := m.Up()
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
		if upErr != nil {
			return nil, upErr
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.closers = append(c.closers, pool.Close)
	return &storage{
		txRunner: postgres.NewTxRunner(pool),
		items:    postgres.NewItemRepository(pool),
		jobs:     postgres.NewConversionJobRepository(pool),
		legacy:   postgres.NewLegacyRepository(pool),
	}, nil
}
