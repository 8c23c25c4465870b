// Package ml implements the model lifecycle for absence-risk scoring:
// fetching training sets from the feature store, fitting and caching model
// artifacts, and serving predictions consistently against them. An artifact
// carries the exact feature schema and scaler fixed at training time, so
// every later inference projects onto the same columns in the same order
// with the same scaling, no matter when training was triggered.
package ml

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"absence-ml/internal/featurestore"
)

// ClassifierModelID is the cache key of the shared absence classifier used
// by single and batch prediction.
const ClassifierModelID = "absence_predictor"

// DriverModelID returns the cache key of the driver model for an outcome.
func DriverModelID(outcome string) string {
	return outcome + "_driver"
}

// FeatureSource is the read/write contract of the feature store.
type FeatureSource interface {
	FetchRows(ctx context.Context, limit int) ([]featurestore.Row, error)
	FetchKey(ctx context.Context, person string, isoYear, isoWeek int) ([]featurestore.Row, error)
	FetchWeek(ctx context.Context, isoYear, isoWeek int) ([]featurestore.Row, error)
	UpsertPredictions(ctx context.Context, preds []featurestore.Prediction) error
}

// MetricsSink defines the metrics methods the service needs.
type MetricsSink interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionScoreObserve(float64)
	TrainingRunInc(modelID string)
	TrainingDurationObserve(seconds float64)
	ModelAgeSet(seconds float64)
	BatchRunInc()
	BatchRowsAdd(float64)
	ErrorInc()
}

// TrainingRecorder persists a ledger entry per training run.
type TrainingRecorder interface {
	RecordTraining(modelID string, trainedAt time.Time, samples, features int, cvScore float64) error
}

// Config bounds the training fetches.
type Config struct {
	DriverFetchCap  int
	TrainFetchCap   int
	MinTrainingRows int
}

// DefaultConfig matches the documented caps: 10k rows for driver analysis,
// 20k for the classifier, 100 labeled rows minimum.
func DefaultConfig() Config {
	return Config{
		DriverFetchCap:  10000,
		TrainFetchCap:   20000,
		MinTrainingRows: 100,
	}
}

// Service owns the engines built on the shared model cache. metrics and
// history may be nil.
type Service struct {
	store   FeatureSource
	cache   *Cache
	cfg     Config
	metrics MetricsSink
	history TrainingRecorder
}

func NewService(store FeatureSource, cache *Cache, cfg Config, metrics MetricsSink, history TrainingRecorder) *Service {
	if cfg.DriverFetchCap <= 0 || cfg.TrainFetchCap <= 0 || cfg.MinTrainingRows <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		store:   store,
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		history: history,
	}
}

// Cache exposes the model cache, mainly for invalidation hooks.
func (s *Service) Cache() *Cache { return s.cache }

func (s *Service) recordTraining(modelID string, a *Artifact, samples int, cvScore float64) {
	if s.metrics != nil {
		s.metrics.TrainingRunInc(modelID)
	}
	if s.history == nil {
		return
	}
	if err := s.history.RecordTraining(modelID, a.TrainedAt, samples, len(a.Columns), cvScore); err != nil {
		log.Warn().Err(err).Str("model_id", modelID).Msg("failed to record training run")
	}
}
