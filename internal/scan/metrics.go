package scan

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/pest-tracker/internal/classify"
)

// Metrics holds the scan collectors on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	classifications *prometheus.CounterVec
	corruptReads    prometheus.Counter
}

// NewMetrics creates the collectors and registers them
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pest_tracker",
			Name:      "classifications_total",
			Help:      "Classification attempts by outcome.",
		}, []string{"outcome"}),
		corruptReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pest_tracker",
			Name:      "history_corrupt_total",
			Help:      "Reads of the scan history that found undecodable content.",
		}),
	}

	for _, c := range []prometheus.Collector{m.classifications, m.corruptReads} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveScan counts the outcome of one scan attempt
func (m *Metrics) ObserveScan(err error) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(scanOutcome(err)).Inc()
}

// ObserveCorruption counts a corrupt history read. It fits WithCorruptionHandler.
func (m *Metrics) ObserveCorruption(error) {
	if m == nil {
		return
	}
	m.corruptReads.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func scanOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if kind, ok := classify.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return "storage"
	}
	return "other"
}
