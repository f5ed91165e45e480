// Package conversion migra las relaciones planas del modelo anterior al modelo de
// linaje/BOM mediante un job asíncrono con progreso consultable.
package conversion

import "context"

// JobLock exclusión entre procesos para que dos instancias no conviertan a la vez.
// Es opcional: sin lock basta el guardián en proceso y el chequeo del job activo persistido.
type JobLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Metrics contadores del job. *metrics.Metrics lo implementa.
type Metrics interface {
	ConversionRecord(class, result string)
	ConversionJob(status string)
}

type nopMetrics struct{}

func (nopMetrics) ConversionRecord(string, string) {}
func (nopMetrics) ConversionJob(string)            {}
