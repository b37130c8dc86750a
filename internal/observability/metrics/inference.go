package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plantcare-go/plantcare/internal/errors"
)

// InferenceMetrics tracks model loading and prediction.
type InferenceMetrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoaded        *prometheus.GaugeVec

	// disease decision outcomes
	DecisionTotal     *prometheus.CounterVec
	SpeciesRejections prometheus.Counter
}

// NewInferenceMetrics creates and registers the inference collectors.
func NewInferenceMetrics(registry *prometheus.Registry) (*InferenceMetrics, error) {
	m := &InferenceMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register inference metrics: %w", err)
	}
	return m, nil
}

func (m *InferenceMetrics) initMetrics() {
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantcare_predictions_total",
			Help: "Total number of model predictions",
		},
		[]string{"model", "status"},
	)
	m.PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantcare_prediction_errors_total",
			Help: "Total number of failed model predictions",
		},
		[]string{"model", "error_type"},
	)
	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plantcare_prediction_duration_seconds",
			Help:    "Time taken by a model prediction",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10), // 1ms to ~1s
		},
		[]string{"model"},
	)
	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantcare_model_load_total",
			Help: "Total number of model load attempts",
		},
		[]string{"model", "status"},
	)
	m.ModelLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantcare_model_loaded",
			Help: "Whether a model is loaded (1) or not (0)",
		},
		[]string{"model"},
	)
	m.DecisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantcare_disease_decisions_total",
			Help: "Disease decisions by confidence band",
		},
		[]string{"band", "unknown"},
	)
	m.SpeciesRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plantcare_disease_species_rejections_total",
			Help: "Disease checks rejected because the species is not supported",
		},
	)
}

func (m *InferenceMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PredictionTotal,
		m.PredictionErrors,
		m.PredictionDuration,
		m.ModelLoadTotal,
		m.ModelLoaded,
		m.DecisionTotal,
		m.SpeciesRejections,
	}
}

// Describe implements prometheus.Collector.
func (m *InferenceMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *InferenceMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordPrediction records one model call.
func (m *InferenceMetrics) RecordPrediction(model string, durationSeconds float64, err error) {
	if err != nil {
		m.PredictionTotal.WithLabelValues(model, StatusError).Inc()
		m.PredictionErrors.WithLabelValues(model, errorType(err)).Inc()
		return
	}
	m.PredictionTotal.WithLabelValues(model, StatusSuccess).Inc()
	m.PredictionDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordModelLoad records a load attempt and updates the loaded gauge.
func (m *InferenceMetrics) RecordModelLoad(model string, err error) {
	if err != nil {
		m.ModelLoadTotal.WithLabelValues(model, StatusError).Inc()
		m.ModelLoaded.WithLabelValues(model).Set(0)
		return
	}
	m.ModelLoadTotal.WithLabelValues(model, StatusSuccess).Inc()
	m.ModelLoaded.WithLabelValues(model).Set(1)
}

// RecordDecision counts a disease decision.
func (m *InferenceMetrics) RecordDecision(band string, unknown bool) {
	m.DecisionTotal.WithLabelValues(band, fmt.Sprint(unknown)).Inc()
}

// RecordSpeciesRejection counts a species gate rejection.
func (m *InferenceMetrics) RecordSpeciesRejection() {
	m.SpeciesRejections.Inc()
}

// errorType labels an error by its category.
func errorType(err error) string {
	if category := errors.CategoryFor(err); category != "" {
		return string(category)
	}
	return string(errors.CategoryGeneric)
}
