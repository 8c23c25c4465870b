package ml

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ridgeAlpha  = 1.0
	cvFolds     = 5
	reportTopN  = 20
	driversTopN = 10
)

// FeatureImportance is one ranked entry of a driver report.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ReportMetadata describes the training set behind a driver report.
type ReportMetadata struct {
	NSamples  int       `json:"n_samples"`
	NFeatures int       `json:"n_features"`
	TrainedAt time.Time `json:"trained_at"`
}

// DriverReport ranks features by their influence on an outcome.
type DriverReport struct {
	Outcome            string              `json:"outcome"`
	ModelType          string              `json:"model_type"`
	CVScore            float64             `json:"cv_score"`
	FeatureImportances []FeatureImportance `json:"feature_importances"`
	TopDrivers         []string            `json:"top_drivers"`
	Metadata           ReportMetadata      `json:"metadata"`
}

// DriverAnalysis fits a ridge regression of the outcome on standardized
// features and ranks them by absolute coefficient magnitude. It always
// retrains: each call refreshes the "{outcome}_driver" cache entry.
// weeksBack is informational only and does not bound the fetch.
func (s *Service) DriverAnalysis(ctx context.Context, outcome string, weeksBack int) (*DriverReport, error) {
	if !IsOutcome(outcome) {
		return nil, fmt.Errorf("unsupported outcome %q", outcome)
	}

	log.Info().Str("outcome", outcome).Int("weeks_back", weeksBack).Msg("driver analysis started")
	start := time.Now()

	rows, err := s.store.FetchRows(ctx, s.cfg.DriverFetchCap)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	cols := FeatureColumns(rows)
	ts := BuildTrainingSet(rows, cols, outcome)
	if ts.Len() < s.cfg.MinTrainingRows {
		return nil, fmt.Errorf("%w: %d labeled rows, need %d", ErrInsufficientData, ts.Len(), s.cfg.MinTrainingRows)
	}

	scaler := FitScaler(ts.X)
	scaled := scaler.TransformAll(ts.X)

	model := NewRidge(ridgeAlpha)
	if err := model.Fit(scaled, ts.Y); err != nil {
		return nil, fmt.Errorf("driver model training failed: %w", err)
	}

	cvScore, err := CrossValR2(scaled, ts.Y, cvFolds, ridgeAlpha)
	if err != nil {
		return nil, fmt.Errorf("cross-validation failed: %w", err)
	}

	// Rank by |coefficient| descending; stable sort keeps column order
	// for ties.
	ranked := make([]FeatureImportance, len(cols))
	for i, name := range cols {
		ranked[i] = FeatureImportance{Feature: name, Importance: math.Abs(model.Coef[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Importance > ranked[b].Importance })

	topImportances := ranked
	if len(topImportances) > reportTopN {
		topImportances = topImportances[:reportTopN]
	}
	nDrivers := driversTopN
	if nDrivers > len(ranked) {
		nDrivers = len(ranked)
	}
	drivers := make([]string, nDrivers)
	for i := 0; i < nDrivers; i++ {
		drivers[i] = ranked[i].Feature
	}

	artifact := &Artifact{
		Model:     model,
		Scaler:    scaler,
		Columns:   cols,
		TrainedAt: time.Now().UTC(),
	}
	s.cache.Put(DriverModelID(outcome), artifact)

	if s.metrics != nil {
		s.metrics.TrainingDurationObserve(time.Since(start).Seconds())
	}
	s.recordTraining(DriverModelID(outcome), artifact, ts.Len(), cvScore)

	log.Info().
		Str("outcome", outcome).
		Int("samples", ts.Len()).
		Int("features", len(cols)).
		Float64("cv_r2", cvScore).
		Str("top_driver", drivers[0]).
		Msg("driver model trained")

	return &DriverReport{
		Outcome:            outcome,
		ModelType:          "Ridge Regression",
		CVScore:            cvScore,
		FeatureImportances: topImportances,
		TopDrivers:         drivers,
		Metadata: ReportMetadata{
			NSamples:  ts.Len(),
			NFeatures: len(cols),
			TrainedAt: artifact.TrainedAt,
		},
	}, nil
}
