package conversion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/inventario-bom/internal/application/conversion"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/jhoicas/inventario-bom/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, store *memory.Store, id, sku string, kind entity.ItemKind, tt entity.TrackingType, stock string) {
	t.Helper()
	m, err := entity.NewMeasurement(tt, d(stock), "")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.Items().Create(context.Background(), &entity.Item{
		ID: id, Name: id, SKU: sku, Kind: kind, TrackingType: tt, PriceType: entity.PriceEach,
		Stock: m, Version: 1, LastUpdated: now, CreatedAt: now,
	}))
}

func runJob(t *testing.T, uc *conversion.UseCase) *entity.ConversionJob {
	t.Helper()
	ctx := context.Background()
	id, err := uc.Trigger(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	uc.Wait()
	job, err := uc.GetStatus(ctx, id)
	require.NoError(t, err)
	return job
}

// recordingJobs registra cada snapshot persistido para verificar monotonicidad.
type recordingJobs struct {
	repository.ConversionJobRepository
	mu        sync.Mutex
	snapshots []entity.ConversionJob
}

func (r *recordingJobs) Update(ctx context.Context, job *entity.ConversionJob) error {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, job.Snapshot())
	r.mu.Unlock()
	return r.ConversionJobRepository.Update(ctx, job)
}

// ─── Escenarios ────────────────────────────────────────────────────────────

func TestConversion_SinRegistrosCompletaAl100(t *testing.T) {
	store := memory.New()
	uc := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{})

	job := runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 100, job.PercentComplete)
	assert.Equal(t, entity.PhaseCounters{}, job.Items)
	assert.Equal(t, entity.PhaseCounters{}, job.Purchases)
	assert.Equal(t, entity.PhaseCounters{}, job.Sales)
	assert.Equal(t, entity.PhaseCounters{}, job.Assets)
	assert.NotNil(t, job.StartTime)
	assert.NotNil(t, job.EndTime)
	assert.Empty(t, job.ErrorMessage)
}

func TestConversion_ConvierteTodasLasClases(t *testing.T) {
	store := memory.New()
	seed(t, store, "A", "A-SKU", entity.KindMaterial, entity.TrackingWeight, "100")
	seed(t, store, "B", "", entity.KindMaterial, entity.TrackingQuantity, "50")
	seed(t, store, "C", "", entity.KindMaterial, entity.TrackingWeight, "0")
	seed(t, store, "P", "", entity.KindMaterial, entity.TrackingQuantity, "0")

	store.SeedLegacy(
		[]entity.LegacyItem{
			{ID: "C", ParentItemID: "A", ParentAmount: d("5")},
			{ID: "P", MaterialIDs: []string{"A-SKU", "B"}, MaterialQuantities: []decimal.Decimal{d("0.5"), d("2")}},
			{ID: "X", ParentItemID: "A", ParentAmount: d("1")},
		},
		[]entity.LegacyLine{
			{ID: "l1", ParentID: "c1", ItemRef: "A-SKU", Amount: d("500"), Unit: "g", UnitPrice: d("0.01")},
			{ID: "l2", ParentID: "c1", ItemRef: "B", Amount: d("3"), UnitPrice: d("2")},
			{ID: "l3", ParentID: "c1", ItemRef: "B", Amount: d("3"), Unit: "kg"},
		},
		[]entity.LegacyLine{
			{ID: "s1", ParentID: "v1", ItemRef: "B", Amount: d("1"), UnitPrice: d("5")},
		},
		[]entity.LegacyAsset{
			{ID: "as1", Name: "Mesa", ItemRefs: []string{"B"}, Quantities: []decimal.Decimal{d("2")}},
			{ID: "as2", Name: "Silla", ItemRefs: []string{"B"}},
		},
	)
	uc := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{ProgressEvery: 2})
	ctx := context.Background()

	job := runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 100, job.PercentComplete)
	assert.Equal(t, entity.PhaseCounters{Converted: 2, Errors: 1}, job.Items)
	assert.Equal(t, entity.PhaseCounters{Converted: 2, Errors: 1}, job.Purchases)
	assert.Equal(t, entity.PhaseCounters{Converted: 1, Errors: 0}, job.Sales)
	assert.Equal(t, entity.PhaseCounters{Converted: 1, Errors: 1}, job.Assets)

	c, err := store.Items().GetByID(ctx, "C")
	require.NoError(t, err)
	require.NotNil(t, c.DerivedFrom)
	assert.Equal(t, "A", c.DerivedFrom.SourceItemID)
	assert.True(t, c.DerivedFrom.Weight.Equal(d("5")))
	assert.Equal(t, "kg", c.DerivedFrom.WeightUnit)

	p, err := store.Items().GetByID(ctx, "P")
	require.NoError(t, err)
	require.Len(t, p.Components, 2)
	assert.Equal(t, "A", p.Components[0].MaterialItemID)
	assert.Equal(t, entity.KindBoth, p.Kind)

	lines, err := store.Purchases().ListByItem(ctx, "A")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, entity.TrackingWeight, lines[0].Amount.Type)
	assert.Equal(t, "g", lines[0].Amount.Unit)

	asset, err := store.Assets().GetByID(ctx, "as1")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Len(t, asset.Components, 1)

	// Una segunda corrida solo ve los registros que fallaron.
	again := runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, again.Status)
	assert.Equal(t, entity.PhaseCounters{Errors: 1}, again.Items)
	assert.Equal(t, entity.PhaseCounters{Errors: 1}, again.Purchases)
	assert.Equal(t, entity.PhaseCounters{}, again.Sales)
	assert.Equal(t, entity.PhaseCounters{Errors: 1}, again.Assets)
}

func TestConversion_ProgresoMonotono(t *testing.T) {
	store := memory.New()
	seed(t, store, "B", "", entity.KindMaterial, entity.TrackingQuantity, "0")
	var purchases []entity.LegacyLine
	for i := 0; i < 10; i++ {
		purchases = append(purchases, entity.LegacyLine{ID: string(rune('a' + i)), ItemRef: "B", Amount: d("1")})
	}
	store.SeedLegacy(nil, purchases, purchases[:3], nil)

	jobs := &recordingJobs{ConversionJobRepository: store.Jobs()}
	uc := conversion.NewUseCase(jobs, store.Legacy(), store, conversion.Options{ProgressEvery: 1})
	job := runJob(t, uc)
	require.Equal(t, entity.JobCompleted, job.Status)

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	require.NotEmpty(t, jobs.snapshots)
	last := -1
	for i, s := range jobs.snapshots {
		assert.GreaterOrEqual(t, s.PercentComplete, last, "snapshot %d", i)
		last = s.PercentComplete
		if s.PercentComplete == 100 {
			assert.Equal(t, entity.JobCompleted, s.Status)
		} else {
			assert.NotEqual(t, entity.JobCompleted, s.Status)
		}
	}
	assert.Equal(t, 100, last)
}

// failingLegacy simula el almacén caído al listar compras.
type failingLegacy struct {
	repository.LegacyRepository
}

func (failingLegacy) ListPendingPurchaseLines(context.Context) ([]entity.LegacyLine, error) {
	return nil, errors.New("conexión rechazada")
}

func TestConversion_ErrorFatalDejaElJobFallido(t *testing.T) {
	store := memory.New()
	seed(t, store, "A", "", entity.KindMaterial, entity.TrackingQuantity, "10")
	seed(t, store, "C", "", entity.KindMaterial, entity.TrackingQuantity, "0")
	store.SeedLegacy([]entity.LegacyItem{{ID: "C", ParentItemID: "A", ParentAmount: d("1")}}, nil, nil, nil)

	uc := conversion.NewUseCase(store.Jobs(), failingLegacy{store.Legacy()}, store, conversion.Options{})
	job := runJob(t, uc)

	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "purchases")
	assert.Contains(t, job.ErrorMessage, "conexión rechazada")
	assert.NotNil(t, job.EndTime)
	assert.Less(t, job.PercentComplete, 100)
	assert.Equal(t, 1, job.Items.Converted)
}

// blockingLegacy detiene el job hasta que se cierre release.
type blockingLegacy struct {
	repository.LegacyRepository
	release chan struct{}
}

func (b blockingLegacy) CountPending(ctx context.Context, class string) (int, error) {
	<-b.release
	return b.LegacyRepository.CountPending(ctx, class)
}

func TestConversion_SegundoDisparoRechazado(t *testing.T) {
	store := memory.New()
	release := make(chan struct{})
	uc := conversion.NewUseCase(store.Jobs(), blockingLegacy{store.Legacy(), release}, store, conversion.Options{})
	ctx := context.Background()

	first, err := uc.Trigger(ctx)
	require.NoError(t, err)

	_, err = uc.Trigger(ctx)
	assert.ErrorIs(t, err, domain.ErrConversionInProgress)

	status, err := uc.GetStatus(ctx, first)
	require.NoError(t, err)
	assert.False(t, status.Status.Terminal())

	close(release)
	uc.Wait()

	_, err = uc.Trigger(ctx)
	require.NoError(t, err)
	uc.Wait()

	jobs, err := uc.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestConversion_RecuperaJobsInterrumpidos(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	stale := entity.NewConversionJob("viejo", time.Now().Add(-time.Hour))
	require.NoError(t, stale.Start(time.Now().Add(-time.Hour)))
	require.NoError(t, store.Jobs().Create(ctx, stale))

	uc := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{})

	// Un job activo persistido bloquea nuevos disparos.
	_, err := uc.Trigger(ctx)
	assert.ErrorIs(t, err, domain.ErrConversionInProgress)

	n, err := uc.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := uc.GetStatus(ctx, "viejo")
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Equal(t, conversion.InterruptedMessage, job.ErrorMessage)
	assert.NotNil(t, job.EndTime)

	_, err = uc.Trigger(ctx)
	require.NoError(t, err)
	uc.Wait()

	_, err = uc.GetStatus(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// fakeLock lock distribuido en memoria.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	unlocked int
}

func (l *fakeLock) TryLock(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Unlock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.unlocked++
	return nil
}

func TestConversion_LockDistribuido(t *testing.T) {
	store := memory.New()
	lock := &fakeLock{held: true} // otra instancia lo tiene
	uc := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{Lock: lock})
	ctx := context.Background()

	_, err := uc.Trigger(ctx)
	assert.ErrorIs(t, err, domain.ErrConversionInProgress)

	lock.mu.Lock()
	lock.held = false
	lock.mu.Unlock()

	job := runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, job.Status)
	lock.mu.Lock()
	defer lock.mu.Unlock()
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.unlocked)
}

func TestConversion_RecuperacionDeOtraInstanciaNoRevierteEstado(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	release := make(chan struct{})
	jobs := &recordingJobs{ConversionJobRepository: store.Jobs()}
	running := conversion.NewUseCase(jobs, blockingLegacy{store.Legacy(), release}, store, conversion.Options{})

	id, err := running.Trigger(ctx)
	require.NoError(t, err)

	// Una segunda instancia arranca sin lock distribuido y cierra el job activo.
	starting := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{})
	n, err := starting.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	close(release)
	running.Wait()

	job, err := running.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Equal(t, conversion.InterruptedMessage, job.ErrorMessage)
	assert.Less(t, job.PercentComplete, 100)

	// Lo que el ejecutor original logró persistir nunca fue terminal.
	jobs.mu.Lock()
	for _, s := range jobs.snapshots {
		assert.NotEqual(t, entity.JobCompleted, s.Status)
	}
	jobs.mu.Unlock()

	// El ejecutor liberó su guarda: se puede disparar de nuevo.
	job = runJob(t, running)
	assert.Equal(t, entity.JobCompleted, job.Status)
}

func TestConversion_RecuperacionRespetaElLockDeOtraInstancia(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	lock := &fakeLock{}
	release := make(chan struct{})
	running := conversion.NewUseCase(store.Jobs(), blockingLegacy{store.Legacy(), release}, store, conversion.Options{Lock: lock})

	id, err := running.Trigger(ctx)
	require.NoError(t, err)

	starting := conversion.NewUseCase(store.Jobs(), store.Legacy(), store, conversion.Options{Lock: lock})
	n, err := starting.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	close(release)
	running.Wait()

	job, err := running.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 100, job.PercentComplete)

	// Sin nadie con el lock, la recuperación lo toma y lo devuelve.
	n, err = starting.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	lock.mu.Lock()
	assert.False(t, lock.held)
	lock.mu.Unlock()
}

// flakyJobs falla las primeras escrituras del estado completed.
type flakyJobs struct {
	repository.ConversionJobRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyJobs) Update(ctx context.Context, job *entity.ConversionJob) error {
	f.mu.Lock()
	if job.Status == entity.JobCompleted && f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("conexión perdida")
	}
	f.mu.Unlock()
	return f.ConversionJobRepository.Update(ctx, job)
}

func TestConversion_ReintentaPersistirElCierre(t *testing.T) {
	store := memory.New()
	jobs := &flakyJobs{ConversionJobRepository: store.Jobs(), failures: 2}
	uc := conversion.NewUseCase(jobs, store.Legacy(), store, conversion.Options{})

	job := runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 0, jobs.failures)

	// El job no quedó activo en el almacén: un nuevo disparo se acepta.
	job = runJob(t, uc)
	assert.Equal(t, entity.JobCompleted, job.Status)
}

// racingJobs simula dos instancias que pasan GetActive a la vez.
type racingJobs struct {
	repository.ConversionJobRepository
	createErr error
}

func (r racingJobs) GetActive(context.Context) (*entity.ConversionJob, error) { return nil, nil }

func (r racingJobs) Create(ctx context.Context, job *entity.ConversionJob) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.ConversionJobRepository.Create(ctx, job)
}

func TestConversion_CarreraEntreInstanciasEsConversionEnCurso(t *testing.T) {
	ctx := context.Background()

	t.Run("índice único del almacén", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.Jobs().Create(ctx, entity.NewConversionJob("otra-instancia", time.Now())))
		lock := &fakeLock{}
		uc := conversion.NewUseCase(racingJobs{ConversionJobRepository: store.Jobs()}, store.Legacy(), store,
			conversion.Options{Lock: lock})

		_, err := uc.Trigger(ctx)
		assert.ErrorIs(t, err, domain.ErrConversionInProgress)
		assert.False(t, lock.held)
	})

	t.Run("duplicado del driver", func(t *testing.T) {
		store := memory.New()
		uc := conversion.NewUseCase(racingJobs{ConversionJobRepository: store.Jobs(), createErr: domain.ErrDuplicate},
			store.Legacy(), store, conversion.Options{})

		_, err := uc.Trigger(ctx)
		assert.ErrorIs(t, err, domain.ErrConversionInProgress)
	})
}
