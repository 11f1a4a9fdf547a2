// Package metrics exposes Prometheus collectors for document analysis.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docintel"

type Metrics struct {
	registry *prometheus.Registry

	analysesTotal     *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	analysisInFlight  prometheus.Gauge
	duplicatesFound   *prometheus.CounterVec
	relevanceScore    *prometheus.HistogramVec
	extractionTotal   *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
	candidatesScanned prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "total",
				Help:      "Analyses by upload context and recommendation.",
			},
			[]string{"context", "recommendation"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "End-to-end analysis duration by recommendation.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"recommendation"},
		),
		analysisInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "in_flight",
				Help:      "Analyses currently running.",
			},
		),
		duplicatesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "duplicates",
				Name:      "found_total",
				Help:      "Duplicate matches by kind (exact or potential).",
			},
			[]string{"kind"},
		),
		relevanceScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "relevance",
				Name:      "score",
				Help:      "Relevance overall score by upload context.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"context"},
		),
		extractionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "total",
				Help:      "Text extractions by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "failures_total",
				Help:      "Analyses that fell back to the safe default, by stage.",
			},
			[]string{"stage"},
		),
		candidatesScanned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "duplicates",
				Name:      "candidates_scanned",
				Help:      "Catalog candidates compared per analysis.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
			},
		),
	}

	registry.MustRegister(
		m.analysesTotal,
		m.analysisDuration,
		m.analysisInFlight,
		m.duplicatesFound,
		m.relevanceScore,
		m.extractionTotal,
		m.failuresTotal,
		m.candidatesScanned,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartAnalysis() {
	m.analysisInFlight.Inc()
}

// FinishAnalysis records one completed analysis.
func (m *Metrics) FinishAnalysis(uploadContext, recommendation string, relevance float64, exact, potential, scanned int, duration time.Duration) {
	m.analysisInFlight.Dec()
	m.analysesTotal.WithLabelValues(uploadContext, recommendation).Inc()
	m.analysisDuration.WithLabelValues(recommendation).Observe(duration.Seconds())
	m.relevanceScore.WithLabelValues(uploadContext).Observe(relevance)
	m.candidatesScanned.Observe(float64(scanned))
	if exact > 0 {
		m.duplicatesFound.WithLabelValues("exact").Add(float64(exact))
	}
	if potential > 0 {
		m.duplicatesFound.WithLabelValues("potential").Add(float64(potential))
	}
}

func (m *Metrics) ObserveExtraction(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if method == "" {
		method = "none"
	}
	m.extractionTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveFailure(stage string) {
	m.failuresTotal.WithLabelValues(stage).Inc()
}
