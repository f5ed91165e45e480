// Package metrics expone contadores Prometheus del motor de inventario.
// Todos los métodos aceptan receptor nil para que los casos de uso funcionen sin métricas.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inventory"

// Metrics contadores registrados en un registry propio.
type Metrics struct {
	breakdowns        *prometheus.CounterVec
	rebuilds          *prometheus.CounterVec
	productsCreated   prometheus.Counter
	conversionRecords *prometheus.CounterVec
	conversionJobs    *prometheus.CounterVec
}

// New crea y registra los contadores en reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		breakdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breakdowns_total",
			Help:      "Descomposiciones de ítems por resultado",
		}, []string{"result"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rebuilds_total",
			Help:      "Reconciliaciones de stock por resultado (updated, unchanged, error)",
		}, []string{"result"}),
		productsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_created_total",
			Help:      "Productos creados a partir de un BOM",
		}),
		conversionRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_records_total",
			Help:      "Registros legados procesados por clase y resultado",
		}, []string{"class", "result"}),
		conversionJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_jobs_total",
			Help:      "Jobs de conversión por estado terminal",
		}, []string{"status"}),
	}
	reg.MustRegister(m.breakdowns, m.rebuilds, m.productsCreated, m.conversionRecords, m.conversionJobs)
	return m
}

// Breakdown registra el resultado de una descomposición ("ok" o código de error).
func (m *Metrics) Breakdown(result string) {
	if m == nil {
		return
	}
	m.breakdowns.WithLabelValues(result).Inc()
}

// Rebuild registra el resultado de una reconciliación.
func (m *Metrics) Rebuild(result string) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(result).Inc()
}

// ProductCreated incrementa productos creados.
func (m *Metrics) ProductCreated() {
	if m == nil {
		return
	}
	m.productsCreated.Inc()
}

// ConversionRecord registra un registro legado convertido ("converted") o fallido ("error").
func (m *Metrics) ConversionRecord(class, result string) {
	if m == nil {
		return
	}
	m.conversionRecords.WithLabelValues(class, result).Inc()
}

// ConversionJob registra un job que llegó a estado terminal.
func (m *Metrics) ConversionJob(status string) {
	if m == nil {
		return
	}
	m.conversionJobs.WithLabelValues(status).Inc()
}
