package ml

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// attributionColumns bounds the per-feature attribution to the first
// columns of the schema, matching the served response shape.
const attributionColumns = 5

// PredictionResult is one scored employee-week.
type PredictionResult struct {
	PersonPseudonym string             `json:"person_pseudonym"`
	ISOYear         int                `json:"iso_year"`
	ISOWeek         int                `json:"iso_week"`
	PredictedRisk   float64            `json:"predicted_risk"`
	PredictedClass  int                `json:"predicted_class"`
	Attributions    map[string]float64 `json:"attributions"`
	ModelVersion    string             `json:"model_version"`
}

// Predict scores a single employee-week against the shared classifier,
// training it first if no artifact is cached.
func (s *Service) Predict(ctx context.Context, person string, isoYear, isoWeek int) (*PredictionResult, error) {
	rows, err := s.store.FetchKey(ctx, person, isoYear, isoWeek)
	if err != nil {
		s.predictionFailure()
		return nil, err
	}
	if len(rows) == 0 {
		s.predictionFailure()
		return nil, ErrNotFound
	}
	if len(rows) > 1 {
		// A composite-key lookup returning several rows means the
		// store is inconsistent; fail deterministically.
		s.predictionFailure()
		return nil, fmt.Errorf("%w: store returned %d rows for one key", ErrNotFound, len(rows))
	}

	artifact, err := s.classifier(ctx)
	if err != nil {
		s.predictionFailure()
		return nil, err
	}

	vec := artifact.Vector(rows[0])
	risk := artifact.Model.Score(vec)
	class := 0
	if risk >= 0.5 {
		class = 1
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.PredictionScoreObserve(risk)
	}

	log.Debug().
		Str("person", person).
		Int("iso_year", isoYear).
		Int("iso_week", isoWeek).
		Float64("risk", risk).
		Msg("prediction served")

	return &PredictionResult{
		PersonPseudonym: person,
		ISOYear:         isoYear,
		ISOWeek:         isoWeek,
		PredictedRisk:   risk,
		PredictedClass:  class,
		Attributions:    attributions(artifact, vec, risk),
		ModelVersion:    artifact.Version(),
	}, nil
}

// attributions reports an occlusion signal per feature: the risk delta when
// that column is replaced by the training mean (0 in scaled space). It is a
// marginal-contribution estimate, not a full Shapley computation.
func attributions(a *Artifact, vec []float64, risk float64) map[string]float64 {
	n := attributionColumns
	if n > len(a.Columns) {
		n = len(a.Columns)
	}

	out := make(map[string]float64, n)
	occluded := make([]float64, len(vec))
	for i := 0; i < n; i++ {
		copy(occluded, vec)
		occluded[i] = 0
		out[a.Columns[i]] = risk - a.Model.Score(occluded)
	}
	return out
}

func (s *Service) predictionFailure() {
	if s.metrics != nil {
		s.metrics.PredictionFailuresInc()
	}
}
