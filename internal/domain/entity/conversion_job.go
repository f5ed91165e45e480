package entity

import (
	"errors"
	"time"
)

// JobStatus estado del job de conversión de relaciones legadas.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal indica si el estado ya no cambia.
func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

// Clases de entidades en el orden en que se convierten.
const (
	ClassItems     = "items"
	ClassPurchases = "purchases"
	ClassSales     = "sales"
	ClassAssets    = "assets"
)

// ConversionClasses orden de procesamiento: los ítems se normalizan antes que las líneas que los referencian.
var ConversionClasses = []string{ClassItems, ClassPurchases, ClassSales, ClassAssets}

var errInvalidTransition = errors.New("transición de estado inválida")

// PhaseCounters resultado de una fase.
type PhaseCounters struct {
	Converted int
	Errors    int
}

// ConversionJob progreso del job; solo lo muta su propia ejecución.
type ConversionJob struct {
	ID              string
	Status          JobStatus
	StartTime       *time.Time
	EndTime         *time.Time
	CurrentPhase    string
	PercentComplete int
	Items           PhaseCounters
	Purchases       PhaseCounters
	Sales           PhaseCounters
	Assets          PhaseCounters
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewConversionJob crea un job en estado queued.
func NewConversionJob(id string, now time.Time) *ConversionJob {
	return &ConversionJob{ID: id, Status: JobQueued, CreatedAt: now, UpdatedAt: now}
}

// Counters devuelve el contador de la clase indicada.
func (j *ConversionJob) Counters(class string) *PhaseCounters {
	switch class {
	case ClassItems:
		return &j.Items
	case ClassPurchases:
		return &j.Purchases
	case ClassSales:
		return &j.Sales
	case ClassAssets:
		return &j.Assets
	}
	return nil
}

// Start queued → running.
func (j *ConversionJob) Start(now time.Time) error {
	if j.Status != JobQueued {
		return errInvalidTransition
	}
	j.Status = JobRunning
	j.StartTime = &now
	j.UpdatedAt = now
	return nil
}

// SetProgress avanza el porcentaje sin retroceder y sin llegar a 100 antes de completar.
func (j *ConversionJob) SetProgress(phase string, percent int, now time.Time) {
	if j.Status != JobRunning {
		return
	}
	if percent > 99 {
		percent = 99
	}
	if percent > j.PercentComplete {
		j.PercentComplete = percent
	}
	j.CurrentPhase = phase
	j.UpdatedAt = now
}

// Complete running → completed; el único camino a 100%.
func (j *ConversionJob) Complete(now time.Time) error {
	if j.Status != JobRunning {
		return errInvalidTransition
	}
	j.Status = JobCompleted
	j.PercentComplete = 100
	j.CurrentPhase = ""
	j.EndTime = &now
	j.UpdatedAt = now
	return nil
}

// Fail queued|running → failed con mensaje y EndTime.
func (j *ConversionJob) Fail(msg string, now time.Time) error {
	if j.Status.Terminal() {
		return errInvalidTransition
	}
	j.Status = JobFailed
	j.ErrorMessage = msg
	j.EndTime = &now
	j.UpdatedAt = now
	return nil
}

// Snapshot copia de lectura para consultas de estado.
func (j *ConversionJob) Snapshot() ConversionJob {
	s := *j
	if j.StartTime != nil {
		t := *j.StartTime
		s.StartTime = &t
	}
	if j.EndTime != nil {
		t := *j.EndTime
		s.EndTime = &t
	}
	return s
}
