package ml

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"absence-ml/internal/featurestore"
)

// BatchPredict scores every feature row of one ISO week and upserts the
// results to the prediction table in a single write. It returns the number
// of prediction rows written. The egenmeldt-specific risk has no dedicated
// model yet and is explicitly written as the neutral 0.
func (s *Service) BatchPredict(ctx context.Context, isoYear, isoWeek int) (int, error) {
	rows, err := s.store.FetchWeek(ctx, isoYear, isoWeek)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ErrNotFound
	}

	artifact, err := s.classifier(ctx)
	if err != nil {
		return 0, err
	}

	version := artifact.Version()
	now := time.Now().UTC()

	preds := make([]featurestore.Prediction, len(rows))
	for i, row := range rows {
		preds[i] = featurestore.Prediction{
			PersonPseudonym:        row.Person(),
			ISOYear:                isoYear,
			ISOWeek:                isoWeek,
			PredictedRiskTotal:     artifact.ScoreRow(row),
			PredictedRiskEgenmeldt: 0,
			ModelVersion:           version,
			PredictedAt:            now,
		}
	}

	if err := s.store.UpsertPredictions(ctx, preds); err != nil {
		if s.metrics != nil {
			s.metrics.ErrorInc()
		}
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.BatchRunInc()
		s.metrics.BatchRowsAdd(float64(len(preds)))
	}

	log.Info().
		Int("iso_year", isoYear).
		Int("iso_week", isoWeek).
		Int("predictions", len(preds)).
		Str("model_version", version).
		Msg("batch predictions written")

	return len(preds), nil
}
