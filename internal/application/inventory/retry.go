package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/inventario-bom/internal/domain"
)

// DefaultRetryAttempts intentos ante ErrConcurrencyConflict si no se configura otro valor.
const DefaultRetryAttempts = 3

const retryBackoff = 15 * time.Millisecond

// withRetry reintenta fn mientras falle por conflicto de concurrencia (versión desfasada,
// serialización o deadlock). Cualquier otro error se devuelve de inmediato.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * retryBackoff):
		}
	}
	return err
}

// resultLabel etiqueta de métricas para el resultado de una operación.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrAlreadyDerived):
		return "already_derived"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
