package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrConflict             = errors.New("conflicto con el estado actual")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrAlreadyDerived       = errors.New("el ítem ya es derivado de otro")
	ErrConcurrencyConflict  = errors.New("el recurso fue modificado por otro proceso")
	ErrJobExecution         = errors.New("fallo en la ejecución del job")
	ErrConversionInProgress = errors.New("ya hay una conversión en curso")
	ErrJobFinished          = errors.New("el job ya está en estado terminal")
)

// ValidationError describe una regla de negocio o de formato violada.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError atajo para construir un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError indica que lo solicitado supera lo disponible en un ítem.
type InsufficientStockError struct {
	ItemID    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: solicitado %s, disponible %s", e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// AlreadyDerivedError se devuelve al intentar descomponer un ítem que ya tiene derivedFrom.
type AlreadyDerivedError struct {
	ItemID       string
	SourceItemID string
}

func (e *AlreadyDerivedError) Error() string {
	return fmt.Sprintf("el ítem %s ya deriva de %s y no puede descomponerse", e.ItemID, e.SourceItemID)
}

func (e *AlreadyDerivedError) Is(target error) bool { return target == ErrAlreadyDerived }

// JobExecutionError error fatal de una fase del job de conversión.
type JobExecutionError struct {
	Phase string
	Err   error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("fase %s: %v", e.Phase, e.Err)
}

func (e *JobExecutionError) Is(target error) bool { return target == ErrJobExecution }

func (e *JobExecutionError) Unwrap() error { return e.Err }
