package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
	"github.com/jhoicas/inventario-bom/pkg/logger"
)

// DefaultProgressEvery registros entre snapshots de progreso persistidos.
const DefaultProgressEvery = 25

// InterruptedMessage mensaje de los jobs que quedaron activos cuando el proceso se detuvo.
const InterruptedMessage = "interrumpido por reinicio"

// Options dependencias opcionales del caso de uso.
type Options struct {
	Lock          JobLock
	Metrics       Metrics
	Logger        *logger.Logger
	ProgressEvery int
}

// UseCase dispara, ejecuta y consulta el job de conversión. Solo puede haber un job activo.
type UseCase struct {
	jobs     repository.ConversionJobRepository
	legacy   repository.LegacyRepository
	txRunner inventory.TxRunner
	lock     JobLock
	metrics  Metrics
	log      *logger.Logger
	every    int
	now      func() time.Time

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewUseCase construye el caso de uso. legacy se usa para contar y listar pendientes fuera de tx;
// cada registro se convierte y se marca dentro de su propia transacción.
func NewUseCase(jobs repository.ConversionJobRepository, legacy repository.LegacyRepository, txRunner inventory.TxRunner, opts Options) *UseCase {
	uc := &UseCase{
		jobs:     jobs,
		legacy:   legacy,
		txRunner: txRunner,
		lock:     opts.Lock,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		every:    opts.ProgressEvery,
		now:      time.Now,
	}
	if uc.metrics == nil {
		uc.metrics = nopMetrics{}
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	if uc.every <= 0 {
		uc.every = DefaultProgressEvery
	}
	return uc
}

// Trigger crea el job y lo ejecuta en segundo plano; devuelve el ID de inmediato.
// Si ya hay un job activo (en este proceso, persistido o con el lock tomado por otra
// instancia) devuelve domain.ErrConversionInProgress.
func (uc *UseCase) Trigger(ctx context.Context) (string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.running {
		return "", domain.ErrConversionInProgress
	}
	active, err := uc.jobs.GetActive(ctx)
	if err != nil {
		return "", err
	}
	if active != nil {
		return "", fmt.Errorf("job %s: %w", active.ID, domain.ErrConversionInProgress)
	}
	if uc.lock != nil {
		ok, err := uc.lock.TryLock(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", domain.ErrConversionInProgress
		}
	}

	job := entity.NewConversionJob(uuid.New().String(), uc.now())
	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.unlock()
		// Otra instancia ganó la carrera tras GetActive y el índice de job único lo rechazó.
		if errors.Is(err, domain.ErrDuplicate) {
			return "", fmt.Errorf("%w: %v", domain.ErrConversionInProgress, err)
		}
		return "", err
	}
	uc.running = true
	uc.wg.Add(1)
	// El job no depende del ciclo de vida de la petición que lo disparó.
	go uc.execute(context.WithoutCancel(ctx), job)
	uc.log.Info().Str("job_id", job.ID).Msg("conversión encolada")
	return job.ID, nil
}

// Wait bloquea hasta que termine el job en curso (apagado ordenado y tests).
func (uc *UseCase) Wait() {
	uc.wg.Wait()
}

// GetStatus snapshot del job; solo lectura.
func (uc *UseCase) GetStatus(ctx context.Context, jobID string) (*entity.ConversionJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	return job, nil
}

// List historial de jobs, el más reciente primero.
func (uc *UseCase) List(ctx context.Context, limit int) ([]*entity.ConversionJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.jobs.List(ctx, limit)
}

// RecoverInterrupted marca como fallidos los jobs que un proceso anterior dejó queued o running.
// Se llama al arrancar, antes de aceptar nuevos disparos. Con lock distribuido configurado solo
// recupera si lo obtiene: si otra instancia lo tiene, su job sigue vivo y no se toca.
func (uc *UseCase) RecoverInterrupted(ctx context.Context) (int, error) {
	uc.mu.Lock()
	running := uc.running
	uc.mu.Unlock()
	if running {
		return 0, nil
	}
	if uc.lock != nil {
		ok, err := uc.lock.TryLock(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			uc.log.Info().Msg("otra instancia tiene el lock de conversión; no se recuperan jobs")
			return 0, nil
		}
		defer uc.unlock()
	}

	recovered := 0
	for i := 0; i < 1000; i++ {
		job, err := uc.jobs.GetActive(ctx)
		if err != nil {
			return recovered, err
		}
		if job == nil {
			return recovered, nil
		}
		if err := job.Fail(InterruptedMessage, uc.now()); err != nil {
			return recovered, err
		}
		if err := uc.jobs.Update(ctx, job); err != nil {
			if errors.Is(err, domain.ErrJobFinished) {
				continue
			}
			return recovered, err
		}
		uc.metrics.ConversionJob(string(entity.JobFailed))
		uc.log.Warn().Str("job_id", job.ID).Msg("job de conversión interrumpido marcado como fallido")
		recovered++
	}
	return recovered, nil
}

func (uc *UseCase) unlock() {
	if uc.lock == nil {
		return
	}
	if err := uc.lock.Unlock(context.Background()); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo liberar el lock de conversión")
	}
}

func (uc *UseCase) finish() {
	uc.unlock()
	uc.mu.Lock()
	uc.running = false
	uc.mu.Unlock()
	uc.wg.Done()
}
