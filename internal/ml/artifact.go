package ml

import (
	"time"

	"absence-ml/internal/featurestore"
)

// Model scores one standardized feature vector. For the classifier the
// score is the positive-class probability; for a driver model it is the
// predicted outcome value.
type Model interface {
	Score(x []float64) float64
}

// Artifact bundles a trained model with the exact feature schema and scaler
// it was fit with, versioned by training time. Artifacts are immutable:
// retraining produces a new one that replaces the old in the cache.
type Artifact struct {
	Model     Model
	Scaler    *Scaler
	Columns   []string
	TrainedAt time.Time
}

// Version renders the training timestamp as the opaque model version token.
// Callers comparing versions should rely on ordering, not equality.
func (a *Artifact) Version() string {
	return a.TrainedAt.UTC().Format(time.RFC3339Nano)
}

// Vector projects a raw row onto the artifact's schema and standardizes it.
// Columns the row is missing become 0 before scaling; the column order is
// always the one fixed at training time.
func (a *Artifact) Vector(row featurestore.Row) []float64 {
	return a.Scaler.Transform(Project(row, a.Columns))
}

// ScoreRow projects, scales and scores a raw feature row.
func (a *Artifact) ScoreRow(row featurestore.Row) float64 {
	return a.Model.Score(a.Vector(row))
}
