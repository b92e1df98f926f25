package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden/cmd/internal/admission"
	"warden/cmd/internal/infraction"
)

// Metrics holds the process-wide Prometheus registry and collectors.
type Metrics struct {
	reg *prometheus.Registry

	AdmissionVerdicts *prometheus.CounterVec
	BatchOutcomes     *prometheus.CounterVec
	PageActivations   *prometheus.CounterVec
}

// NewMetrics builds a private registry with Go/process collectors plus the
// warden counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		AdmissionVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "admission",
			Name:      "verdicts_total",
			Help:      "Admission check verdicts by command and outcome.",
		}, []string{"command", "outcome"}),
		BatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "batch",
			Name:      "outcomes_total",
			Help:      "Per-identity batch mutation outcomes by action.",
		}, []string{"action", "outcome"}),
		PageActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "paging",
			Name:      "activations_total",
			Help:      "Pagination control activations by action.",
		}, []string{"action"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AdmissionVerdicts,
		m.BatchOutcomes,
		m.PageActivations,
	)
	return m
}

// Handler exposes the registry for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveAdmission is the admission.Observer wired into the controller.
func (m *Metrics) ObserveAdmission(kind admission.CommandKind, v admission.Verdict) {
	outcome := "allowed"
	if !v.Allowed {
		outcome = string(v.Reason)
	}
	m.AdmissionVerdicts.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveBatch records one batch report's per-identity outcomes.
func (m *Metrics) ObserveBatch(r infraction.Report) {
	for outcome, n := range r.Summary() {
		if n > 0 {
			m.BatchOutcomes.WithLabelValues(string(r.Action), string(outcome)).Add(float64(n))
		}
	}
}
