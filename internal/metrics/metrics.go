package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labordash"

// Metrics owns a private registry so tests and both binaries can build
// independent instances. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	collectorRuns         *prometheus.CounterVec
	collectorObservations prometheus.Counter
	unrecognizedPeriods   *prometheus.CounterVec
	invalidValues         prometheus.Counter
	lastSuccess           prometheus.Gauge
	tableRows             prometheus.Gauge
	httpRequests          *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		collectorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_runs_total",
				Help:      "Collector runs by result (ok, transport, rejected, error)",
			},
			[]string{"result"},
		),
		collectorObservations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_observations_total",
				Help:      "Raw observations received from the upstream API",
			},
		),
		unrecognizedPeriods: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_unrecognized_periods_total",
				Help:      "Observations whose period code fell back to January",
			},
			[]string{"period"},
		),
		invalidValues: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collector_invalid_values_total",
				Help:      "Observations dropped because year or value did not parse",
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "collector_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful collector run",
			},
		),
		tableRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "table_rows",
				Help:      "Rows in the most recently built or loaded wide table",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Dashboard HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RunFinished(result string, at time.Time) {
	if m == nil {
		return
	}
	m.collectorRuns.WithLabelValues(result).Inc()
	if result == "ok" {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

func (m *Metrics) ObservationsReceived(n int) {
	if m == nil {
		return
	}
	m.collectorObservations.Add(float64(n))
}

func (m *Metrics) UnrecognizedPeriod(period string) {
	if m == nil {
		return
	}
	m.unrecognizedPeriods.WithLabelValues(period).Inc()
}

func (m *Metrics) InvalidValues(n int) {
	if m == nil {
		return
	}
	m.invalidValues.Add(float64(n))
}

func (m *Metrics) TableRows(n int) {
	if m == nil {
		return
	}
	m.tableRows.Set(float64(n))
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
