package ml

import (
	"sort"

	"absence-ml/internal/featurestore"
)

// Outcome label columns supported by driver analysis. total_absence_flag is
// also the label the shared classifier trains on.
const (
	OutcomeTotalAbsence = "total_absence_flag"
	OutcomeEgenmeldt    = "egenmeldt_flag"
)

// excludedColumns are never used as features: the composite key columns,
// the outcome labels, and the minutes columns the labels derive from.
var excludedColumns = map[string]bool{
	featurestore.ColPerson:     true,
	featurestore.ColISOYear:    true,
	featurestore.ColISOWeek:    true,
	OutcomeTotalAbsence:        true,
	OutcomeEgenmeldt:           true,
	"total_absence_minutes_wk": true,
	"egenmeldt_minutes_wk":     true,
}

// IsOutcome reports whether name is a supported outcome label.
func IsOutcome(name string) bool {
	return name == OutcomeTotalAbsence || name == OutcomeEgenmeldt
}

// FeatureColumns derives the feature schema from a set of rows: the sorted
// union of all non-excluded column names. Sorting makes the schema
// deterministic regardless of row or map iteration order; once an artifact
// is trained the order is fixed for its lifetime.
func FeatureColumns(rows []featurestore.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			if !excludedColumns[name] {
				seen[name] = true
			}
		}
	}

	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// Project maps a row onto an ordered column list. Missing or null values
// become 0; the output length and order always match cols exactly.
func Project(row featurestore.Row, cols []string) []float64 {
	x := make([]float64, len(cols))
	for i, name := range cols {
		if v, ok := row.Float(name); ok {
			x[i] = v
		}
	}
	return x
}

// TrainingSet is a design matrix with an aligned outcome vector, restricted
// to rows where the outcome is present.
type TrainingSet struct {
	Columns []string
	X       [][]float64
	Y       []float64
}

// BuildTrainingSet filters rows to those with a non-null outcome and
// projects them onto the given column list.
func BuildTrainingSet(rows []featurestore.Row, cols []string, outcome string) *TrainingSet {
	ts := &TrainingSet{Columns: cols}
	for _, row := range rows {
		label, ok := row.Float(outcome)
		if !ok {
			continue
		}
		ts.X = append(ts.X, Project(row, cols))
		ts.Y = append(ts.Y, label)
	}
	return ts
}

// Len returns the number of labeled rows in the set.
func (ts *TrainingSet) Len() int { return len(ts.X) }
