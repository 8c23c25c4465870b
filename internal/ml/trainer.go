package ml

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// trainClassifier fits the shared absence classifier on up to TrainFetchCap
// rows labeled with total_absence_flag. It is invoked through the cache's
// singleflight, so concurrent prediction requests share one run. Failures
// propagate to the caller; there is no fallback to a previous artifact.
func (s *Service) trainClassifier(ctx context.Context) (*Artifact, error) {
	log.Info().Msg("training absence classifier")
	start := time.Now()

	rows, err := s.store.FetchRows(ctx, s.cfg.TrainFetchCap)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := FeatureColumns(rows)
	ts := BuildTrainingSet(rows, cols, OutcomeTotalAbsence)
	if ts.Len() == 0 {
		return nil, fmt.Errorf("classifier training: no rows labeled with %s", OutcomeTotalAbsence)
	}

	scaler := FitScaler(ts.X)
	scaled := scaler.TransformAll(ts.X)

	model := NewGBT(DefaultGBTConfig())
	if err := model.Fit(scaled, ts.Y); err != nil {
		return nil, fmt.Errorf("classifier training failed: %w", err)
	}

	artifact := &Artifact{
		Model:     model,
		Scaler:    scaler,
		Columns:   cols,
		TrainedAt: time.Now().UTC(),
	}

	if s.metrics != nil {
		s.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		s.metrics.ModelAgeSet(0)
	}
	s.recordTraining(ClassifierModelID, artifact, ts.Len(), 0)

	log.Info().
		Int("samples", ts.Len()).
		Int("features", len(cols)).
		Dur("took", time.Since(start)).
		Msg("absence classifier trained")

	return artifact, nil
}

// classifier resolves the shared artifact, training it if absent.
func (s *Service) classifier(ctx context.Context) (*Artifact, error) {
	a, err := s.cache.GetOrTrain(ctx, ClassifierModelID, s.trainClassifier)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ModelAgeSet(time.Since(a.TrainedAt).Seconds())
	}
	return a, nil
}
