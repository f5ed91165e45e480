package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/jhoicas/inventario-bom/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultRebuildConcurrency ítems reconciliados en paralelo por RebuildAllStock.
const DefaultRebuildConcurrency = 8

// RebuildUseCase reconciliación de stock: recalcula el saldo autoritativo desde el historial.
type RebuildUseCase struct {
	txRunner    TxRunner
	items       repository.ItemRepository
	retries     int
	concurrency int
	metrics     Metrics
	log         *logger.Logger
	now         func() time.Time
}

// NewRebuildUseCase construye el caso de uso. items se usa solo para enumerar IDs fuera de tx.
func NewRebuildUseCase(txRunner TxRunner, items repository.ItemRepository, retries, concurrency int, m Metrics, log *logger.Logger) *RebuildUseCase {
	if retries <= 0 {
		retries = DefaultRetryAttempts
	}
	if concurrency <= 0 {
		concurrency = DefaultRebuildConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RebuildUseCase{
		txRunner:    txRunner,
		items:       items,
		retries:     retries,
		concurrency: concurrency,
		metrics:     metricsOrNop(m),
		log:         log,
		now:         time.Now,
	}
}

// RebuildResult resultado de reconciliar un ítem.
type RebuildResult struct {
	ItemID        string
	Updated       bool
	PreviousValue decimal.Decimal
	NewValue      decimal.Decimal
	Skipped       []string
}

// RebuildSummary resumen de RebuildAllStock.
type RebuildSummary struct {
	Items   int
	Updated int
	Failed  int
	Errors  []string
}

// RebuildItemStock reemplaza el stock guardado por el saldo recalculado solo si difiere;
// LastUpdated se marca únicamente ante un cambio. La deriva no es un error: solo falla si el ítem no existe.
func (uc *RebuildUseCase) RebuildItemStock(ctx context.Context, itemID string) (*RebuildResult, error) {
	var out *RebuildResult
	err := withRetry(ctx, uc.retries, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			item, err := repos.Items.GetForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("ítem %s: %w", itemID, domain.ErrNotFound)
			}
			h, err := loadHistory(ctx, repos, itemID)
			if err != nil {
				return err
			}
			ledger := inventory.Replay(item, h)
			if len(ledger.Skipped) > 0 {
				uc.log.Warn().Str("item_id", itemID).Strs("lines", ledger.Skipped).
					Msg("líneas con medición incompatible omitidas en la reconciliación")
			}
			balance := ledger.Balance
			if balance.LessThan(decimal.Zero) {
				uc.log.Warn().Str("item_id", itemID).Str("balance", balance.String()).Msg("saldo negativo ajustado a cero")
				balance = decimal.Zero
			}

			res := &RebuildResult{ItemID: itemID, PreviousValue: item.Stock.Value, NewValue: balance, Skipped: ledger.Skipped}
			if !balance.Equal(item.Stock.Value) {
				item.Stock.Value = balance
				item.LastUpdated = uc.now()
				if err := repos.Items.Update(ctx, item); err != nil {
					return err
				}
				res.Updated = true
			}
			out = res
			return nil
		})
	})
	if err != nil {
		uc.metrics.Rebuild("error")
		return nil, err
	}
	if out.Updated {
		uc.metrics.Rebuild("updated")
		uc.log.Info().Str("item_id", itemID).Str("previous", out.PreviousValue.String()).
			Str("new", out.NewValue.String()).Msg("stock reconciliado")
	} else {
		uc.metrics.Rebuild("unchanged")
	}
	return out, nil
}

// RebuildAllStock reconcilia todo el catálogo con concurrencia acotada. Un fallo en un ítem
// se cuenta en el resumen y no detiene al resto; solo la cancelación del contexto aborta.
func (uc *RebuildUseCase) RebuildAllStock(ctx context.Context) (*RebuildSummary, error) {
	ids, err := uc.items.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	summary := &RebuildSummary{Items: len(ids)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := uc.RebuildItemStock(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, err))
			case res.Updated:
				summary.Updated++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	uc.log.Info().Int("items", summary.Items).Int("updated", summary.Updated).Int("failed", summary.Failed).
		Msg("reconciliación masiva terminada")
	return summary, nil
}

// loadHistory reúne todas las transacciones que referencian el ítem. Los ensamblajes se
// deduplican porque un ítem "both" puede aparecer como producto y como componente.
func loadHistory(ctx context.Context, repos TxRepos, itemID string) (inventory.LedgerHistory, error) {
	var h inventory.LedgerHistory
	var err error
	if h.Purchases, err = repos.Purchases.ListByItem(ctx, itemID); err != nil {
		return h, err
	}
	if h.Sales, err = repos.Sales.ListByItem(ctx, itemID); err != nil {
		return h, err
	}
	if h.Children, err = repos.Items.ListDerived(ctx, itemID); err != nil {
		return h, err
	}
	asProduct, err := repos.Builds.ListByProduct(ctx, itemID)
	if err != nil {
		return h, err
	}
	asComponent, err := repos.Builds.ListByComponent(ctx, itemID)
	if err != nil {
		return h, err
	}
	seen := make(map[string]bool, len(asProduct)+len(asComponent))
	for _, b := range append(asProduct, asComponent...) {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		h.Builds = append(h.Builds, b)
	}
	return h, nil
}
