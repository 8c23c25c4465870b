package metrics

// MetricsWrapper provides the narrow interface the ml and featurestore
// packages consume, avoiding a direct prometheus dependency there.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc()                  { w.m.Predictions.Inc() }
func (w *MetricsWrapper) PredictionFailuresInc()           { w.m.PredictionFailures.Inc() }
func (w *MetricsWrapper) PredictionScoreObserve(p float64) { w.m.PredictionScores.Observe(p) }

func (w *MetricsWrapper) TrainingRunInc(modelID string) {
	w.m.TrainingRuns.WithLabelValues(modelID).Inc()
}
func (w *MetricsWrapper) TrainingDurationObserve(seconds float64) {
	w.m.TrainingDuration.Observe(seconds)
}
func (w *MetricsWrapper) ModelAgeSet(seconds float64) { w.m.ModelAge.Set(seconds) }

func (w *MetricsWrapper) BatchRunInc()           { w.m.BatchRuns.Inc() }
func (w *MetricsWrapper) BatchRowsAdd(n float64) { w.m.BatchRowsWritten.Add(n) }

func (w *MetricsWrapper) StoreRequestInc() { w.m.StoreRequests.Inc() }
func (w *MetricsWrapper) StoreFailureInc() { w.m.StoreFailures.Inc() }

func (w *MetricsWrapper) ErrorInc() { w.m.ErrorsTotal.Inc() }
