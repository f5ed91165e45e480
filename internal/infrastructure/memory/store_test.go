package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(t *testing.T, id string) *entity.Item {
	t.Helper()
	m, err := entity.NewMeasurement(entity.TrackingQuantity, decimal.NewFromInt(5), "")
	require.NoError(t, err)
	now := time.Now()
	return &entity.Item{
		ID: id, Name: id, Kind: entity.KindMaterial, TrackingType: entity.TrackingQuantity,
		PriceType: entity.PriceEach, Stock: m, LastUpdated: now, CreatedAt: now,
	}
}

func TestStore_RollbackNoPierdeEscriturasFueraDeTx(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	inTx, outside := newItem(t, "tx-item"), newItem(t, "X")
	started := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		txErr <- store.Run(ctx, func(repos inventory.TxRepos) error {
			if err := repos.Items.Create(ctx, inTx); err != nil {
				return err
			}
			close(started)
			<-release
			return errors.New("stock insuficiente en otra línea")
		})
	}()
	<-started

	created := make(chan error, 1)
	go func() { created <- store.Items().Create(ctx, outside) }()

	// La escritura espera a que termine la transacción en curso.
	select {
	case err := <-created:
		t.Fatalf("la escritura no esperó a la transacción: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-txErr)
	require.NoError(t, <-created)

	got, err := store.Items().GetByID(ctx, "X")
	require.NoError(t, err)
	assert.NotNil(t, got)

	rolledBack, err := store.Items().GetByID(ctx, "tx-item")
	require.NoError(t, err)
	assert.Nil(t, rolledBack)
}

func TestStore_RunRestauraAnteError(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Items().Create(ctx, newItem(t, "A")))

	err := store.Run(ctx, func(repos inventory.TxRepos) error {
		require.NoError(t, repos.Items.Delete(ctx, "A"))
		require.NoError(t, repos.Legacy.MarkConverted(ctx, entity.ClassItems, "L-1"))
		return domain.ErrConcurrencyConflict
	})
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	got, err := store.Items().GetByID(ctx, "A")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestJobRepo_NoSobrescribeEstadoTerminal(t *testing.T) {
	store := memory.New()
	jobs := store.Jobs()
	ctx := context.Background()
	now := time.Now()

	job := entity.NewConversionJob("job-1", now)
	require.NoError(t, jobs.Create(ctx, job))

	// Un segundo job activo se rechaza como el índice único de postgres.
	err := jobs.Create(ctx, entity.NewConversionJob("job-2", now))
	assert.ErrorIs(t, err, domain.ErrConversionInProgress)

	require.NoError(t, job.Start(now))
	require.NoError(t, jobs.Update(ctx, job))

	stale := job.Snapshot()
	require.NoError(t, job.Fail("interrumpido", now))
	require.NoError(t, jobs.Update(ctx, job))

	// Un ejecutor con la copia vieja no puede devolverlo a running.
	stale.SetProgress(entity.ClassItems, 40, now)
	err = jobs.Update(ctx, &stale)
	require.ErrorIs(t, err, domain.ErrJobFinished)

	got, err := jobs.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, got.Status)

	assert.ErrorIs(t, jobs.Update(ctx, entity.NewConversionJob("no-existe", now)), domain.ErrNotFound)
}
