package conversion

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
)

const (
	finalPersistAttempts = 5
	finalPersistBackoff  = 100 * time.Millisecond
)

// record registro legado pendiente con su conversión atada a una transacción.
type record struct {
	id      string
	convert func(ctx context.Context, repos inventory.TxRepos) error
}

// progress lleva la cuenta global para el porcentaje ponderado por número de registros.
type progress struct {
	processed int
	total     int
}

func (p progress) percent() int {
	if p.total == 0 {
		return 0
	}
	return p.processed * 100 / p.total
}

// execute corre las cuatro fases en orden. Los errores por registro se cuentan y no detienen
// el job; solo un error que impide avanzar una fase (listar pendientes, persistir progreso,
// almacén caído) lo deja en failed. Si otro proceso ya cerró el job, se detiene sin escribir.
func (uc *UseCase) execute(ctx context.Context, job *entity.ConversionJob) {
	defer uc.finish()
	log := uc.log.Named("conversion")

	if err := job.Start(uc.now()); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo iniciar el job")
		return
	}
	if err := uc.jobs.Update(ctx, job); err != nil {
		uc.abort(ctx, job, &domain.JobExecutionError{Phase: "start", Err: err})
		return
	}

	p := progress{}
	for _, class := range entity.ConversionClasses {
		n, err := uc.legacy.CountPending(ctx, class)
		if err != nil {
			uc.abort(ctx, job, &domain.JobExecutionError{Phase: class, Err: err})
			return
		}
		p.total += n
	}
	log.Info().Str("job_id", job.ID).Int("records", p.total).Msg("conversión iniciada")

	for _, class := range entity.ConversionClasses {
		if err := uc.runPhase(ctx, job, class, &p); err != nil {
			uc.abort(ctx, job, &domain.JobExecutionError{Phase: class, Err: err})
			return
		}
	}

	if err := job.Complete(uc.now()); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("transición a completed inválida")
		return
	}
	if err := uc.persistFinal(ctx, job); err != nil {
		if errors.Is(err, domain.ErrJobFinished) {
			log.Warn().Str("job_id", job.ID).Msg("el job ya había sido cerrado por otro proceso")
			return
		}
		log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo persistir el job completado")
		return
	}
	uc.metrics.ConversionJob(string(entity.JobCompleted))
	log.Info().Str("job_id", job.ID).
		Int("items", job.Items.Converted).Int("purchases", job.Purchases.Converted).
		Int("sales", job.Sales.Converted).Int("assets", job.Assets.Converted).
		Msg("conversión completada")
}

func (uc *UseCase) runPhase(ctx context.Context, job *entity.ConversionJob, class string, p *progress) error {
	log := uc.log.Named("conversion")
	job.SetProgress(class, p.percent(), uc.now())
	if err := uc.jobs.Update(ctx, job); err != nil {
		return err
	}

	records, err := uc.pending(ctx, class)
	if err != nil {
		return err
	}
	log.Info().Str("job_id", job.ID).Str("phase", class).Int("records", len(records)).Msg("fase iniciada")

	counters := job.Counters(class)
	for _, rec := range records {
		rec := rec
		err := uc.txRunner.Run(ctx, func(repos inventory.TxRepos) error {
			if err := rec.convert(ctx, repos); err != nil {
				return err
			}
			return repos.Legacy.MarkConverted(ctx, class, rec.id)
		})
		switch {
		case err == nil:
			counters.Converted++
			uc.metrics.ConversionRecord(class, "converted")
		case isRecordError(err):
			counters.Errors++
			uc.metrics.ConversionRecord(class, "error")
			log.Warn().Err(err).Str("job_id", job.ID).Str("phase", class).Str("record_id", rec.id).
				Msg("registro omitido")
		default:
			return err
		}
		p.processed++
		if p.processed%uc.every == 0 {
			job.SetProgress(class, p.percent(), uc.now())
			if err := uc.jobs.Update(ctx, job); err != nil {
				return err
			}
		}
	}

	job.SetProgress(class, p.percent(), uc.now())
	if err := uc.jobs.Update(ctx, job); err != nil {
		return err
	}
	log.Info().Str("job_id", job.ID).Str("phase", class).
		Int("converted", counters.Converted).Int("errors", counters.Errors).Msg("fase terminada")
	return nil
}

// abort termina el job por un error fatal. Si el job ya está cerrado en el almacén
// (otro proceso lo marcó failed) no se escribe nada más.
func (uc *UseCase) abort(ctx context.Context, job *entity.ConversionJob, cause error) {
	if errors.Is(cause, domain.ErrJobFinished) {
		uc.log.Warn().Str("job_id", job.ID).Msg("job cerrado por otro proceso; se detiene la ejecución")
		return
	}
	uc.fail(ctx, job, cause)
}

func (uc *UseCase) fail(ctx context.Context, job *entity.ConversionJob, cause error) {
	if err := job.Fail(cause.Error(), uc.now()); err != nil {
		return
	}
	if err := uc.persistFinal(ctx, job); err != nil {
		uc.log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo persistir el job fallido")
		return
	}
	uc.metrics.ConversionJob(string(entity.JobFailed))
	uc.log.Error().Err(cause).Str("job_id", job.ID).Msg("conversión fallida")
}

// persistFinal guarda el estado terminal con reintentos: un job que queda running en el
// almacén bloquea cualquier disparo posterior hasta el próximo arranque.
func (uc *UseCase) persistFinal(ctx context.Context, job *entity.ConversionJob) error {
	var err error
	for attempt := 1; attempt <= finalPersistAttempts; attempt++ {
		err = uc.jobs.Update(ctx, job)
		if err == nil || errors.Is(err, domain.ErrJobFinished) {
			return err
		}
		if attempt == finalPersistAttempts {
			break
		}
		uc.log.Warn().Err(err).Str("job_id", job.ID).Int("attempt", attempt).
			Msg("reintentando persistir el estado final del job")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * finalPersistBackoff):
		}
	}
	return err
}

// isRecordError errores propios del dato: se cuentan y el registro se omite.
func isRecordError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrDuplicate,
		domain.ErrConflict,
		domain.ErrAlreadyDerived,
		domain.ErrInsufficientStock,
		domain.ErrConcurrencyConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// pending lista los registros pendientes de la clase como conversiones diferidas.
func (uc *UseCase) pending(ctx context.Context, class string) ([]record, error) {
	var out []record
	switch class {
	case entity.ClassItems:
		items, err := uc.legacy.ListPendingItems(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			it := it
			out = append(out, record{id: it.ID, convert: func(ctx context.Context, repos inventory.TxRepos) error {
				return convertItem(ctx, repos, it)
			}})
		}
	case entity.ClassPurchases:
		lines, err := uc.legacy.ListPendingPurchaseLines(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			l := l
			out = append(out, record{id: l.ID, convert: func(ctx context.Context, repos inventory.TxRepos) error {
				return convertPurchaseLine(ctx, repos, l, uc.now())
			}})
		}
	case entity.ClassSales:
		lines, err := uc.legacy.ListPendingSaleLines(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			l := l
			out = append(out, record{id: l.ID, convert: func(ctx context.Context, repos inventory.TxRepos) error {
				return convertSaleLine(ctx, repos, l, uc.now())
			}})
		}
	case entity.ClassAssets:
		assets, err := uc.legacy.ListPendingAssets(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range assets {
			a := a
			out = append(out, record{id: a.ID, convert: func(ctx context.Context, repos inventory.TxRepos) error {
				return convertAsset(ctx, repos, a, uc.now())
			}})
		}
	}
	return out, nil
}
