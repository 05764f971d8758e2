package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	ReportsGenerated     *prometheus.CounterVec
	ReportDuration       *prometheus.HistogramVec
	ObservationsRecorded *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistoria",
			Name:      "reports_generated_total",
			Help:      "Reports generated, by output format.",
		}, []string{"format"}),
		ReportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vistoria",
			Name:      "report_generation_seconds",
			Help:      "Time spent generating a report, by output format.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		ObservationsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistoria",
			Name:      "observations_recorded_total",
			Help:      "Observations recorded, by severity.",
		}, []string{"severity"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vistoria",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReportsGenerated,
		m.ReportDuration,
		m.ObservationsRecorded,
		m.HTTPRequests,
	)
	return m
}

// ObserveReport records one generated report of format that took d.
func (m *Metrics) ObserveReport(format string, d time.Duration) {
	m.ReportsGenerated.WithLabelValues(format).Inc()
	m.ReportDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) ObservationRecorded(severity string) {
	m.ObservationsRecorded.WithLabelValues(severity).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// InstrumentHandler counts requests served by next.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequests, next)
}
