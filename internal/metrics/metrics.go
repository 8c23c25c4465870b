// Package metrics provides Prometheus metrics collection for the absence
// risk service. It covers model training, prediction serving, batch scoring
// and feature store access, exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions        prometheus.Counter   // Total number of single predictions served
	PredictionFailures prometheus.Counter   // Total number of failed prediction requests
	PredictionScores   prometheus.Histogram // Distribution of predicted risk probabilities

	// Training metrics
	TrainingRuns     *prometheus.CounterVec // Training runs per model identifier
	TrainingDuration prometheus.Histogram   // Model training duration in seconds
	ModelAge         prometheus.Gauge       // Age of the classifier artifact in seconds

	// Batch scoring metrics
	BatchRuns        prometheus.Counter // Total number of batch scoring runs
	BatchRowsWritten prometheus.Counter // Total prediction rows upserted by batch scoring

	// Feature store metrics
	StoreRequests prometheus.Counter // Total requests issued to the feature store
	StoreFailures prometheus.Counter // Total failed feature store requests

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of single predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests",
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of predicted absence risk probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		TrainingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of model training runs",
		}, []string{"model_id"}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the current classifier artifact in seconds",
		}),
		BatchRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Total number of batch scoring runs",
		}),
		BatchRowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_rows_written_total",
			Help: "Total prediction rows upserted by batch scoring",
		}),
		StoreRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "store_requests_total",
			Help: "Total requests issued to the feature store",
		}),
		StoreFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "store_failures_total",
			Help: "Total failed feature store requests",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
