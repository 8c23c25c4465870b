package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absence-ml/internal/featurestore"
	"absence-ml/internal/ml"
	"absence-ml/internal/storage"
)

type stubStore struct {
	rows []featurestore.Row
}

func (s *stubStore) FetchRows(ctx context.Context, limit int) ([]featurestore.Row, error) {
	return s.rows, nil
}

func (s *stubStore) FetchKey(ctx context.Context, person string, isoYear, isoWeek int) ([]featurestore.Row, error) {
	var out []featurestore.Row
	for _, r := range s.rows {
		if r.Person() == person && r.ISOYear() == isoYear && r.ISOWeek() == isoWeek {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) FetchWeek(ctx context.Context, isoYear, isoWeek int) ([]featurestore.Row, error) {
	var out []featurestore.Row
	for _, r := range s.rows {
		if r.ISOYear() == isoYear && r.ISOWeek() == isoWeek {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) UpsertPredictions(ctx context.Context, preds []featurestore.Prediction) error {
	return nil
}

func labeledRows(n int) []featurestore.Row {
	rows := make([]featurestore.Row, n)
	for i := 0; i < n; i++ {
		night := float64(i % 10)
		label := float64(0)
		if night >= 5 {
			label = 1
		}
		rows[i] = featurestore.Row{
			"person_pseudonym":   fmt.Sprintf("p%03d", i),
			"iso_year":           float64(2026),
			"iso_week":           float64(i%52 + 1),
			"night_shifts":       night,
			"overtime_hours":     float64((i * 37) % 101),
			"total_absence_flag": label,
		}
	}
	return rows
}

func testHandler(t *testing.T, rows []featurestore.Row, ledger *storage.Ledger) http.Handler {
	t.Helper()
	svc := ml.NewService(&stubStore{rows: rows}, ml.NewCache(), ml.DefaultConfig(), nil, nil)
	return NewServer(svc, ledger, 0).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRootEndpoint(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Absence Analytics ML Service")

	rec = doJSON(t, h, http.MethodGet, "/no-such-route", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodOptions, "/predict", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPredictValidation(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing pseudonym", `{"iso_year":2026,"iso_week":5}`, http.StatusBadRequest},
		{"week out of range", `{"person_pseudonym":"p001","iso_year":2026,"iso_week":54}`, http.StatusBadRequest},
		{"year out of range", `{"person_pseudonym":"p001","iso_year":1999,"iso_week":5}`, http.StatusBadRequest},
		{"unknown person", `{"person_pseudonym":"ghost","iso_year":2026,"iso_week":5}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/predict", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestPredictSuccess(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	rec := doJSON(t, h, http.MethodPost, "/predict",
		`{"person_pseudonym":"p009","iso_year":2026,"iso_week":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PersonPseudonym string             `json:"person_pseudonym"`
		PredictedRisk   float64            `json:"predicted_risk"`
		PredictedClass  int                `json:"predicted_class"`
		Attributions    map[string]float64 `json:"attributions"`
		ModelVersion    string             `json:"model_version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p009", body.PersonPseudonym)
	assert.GreaterOrEqual(t, body.PredictedRisk, 0.0)
	assert.LessOrEqual(t, body.PredictedRisk, 1.0)
	assert.Contains(t, []int{0, 1}, body.PredictedClass)
	assert.NotEmpty(t, body.Attributions)
	assert.NotEmpty(t, body.ModelVersion)
}

func TestPredictMethodNotAllowed(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDriverAnalysisValidation(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	rec := doJSON(t, h, http.MethodPost, "/driver-analysis", `{"outcome":"overtime_hours"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported outcome")
}

func TestDriverAnalysisInsufficientData(t *testing.T) {
	h := testHandler(t, labeledRows(30), nil)

	rec := doJSON(t, h, http.MethodPost, "/driver-analysis", `{"outcome":"total_absence_flag"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient training data")
}

func TestDriverAnalysisNoData(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodPost, "/driver-analysis", `{"outcome":"total_absence_flag"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDriverAnalysisSuccessArchivesReport(t *testing.T) {
	ledger, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer ledger.Close()

	h := testHandler(t, labeledRows(120), ledger)

	rec := doJSON(t, h, http.MethodPost, "/driver-analysis", `{"outcome":"total_absence_flag"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Outcome    string   `json:"outcome"`
		ModelType  string   `json:"model_type"`
		TopDrivers []string `json:"top_drivers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "total_absence_flag", report.Outcome)
	assert.Equal(t, "Ridge Regression", report.ModelType)
	assert.NotEmpty(t, report.TopDrivers)

	archived, err := ledger.DriverReport("total_absence_flag")
	require.NoError(t, err)
	assert.NotNil(t, archived, "expected the report to be archived")
}

func TestBatchPredictValidation(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	rec := doJSON(t, h, http.MethodPost, "/batch-predict", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/batch-predict?iso_year=2026&iso_week=99", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchPredictSuccess(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	rec := doJSON(t, h, http.MethodPost, "/batch-predict?iso_year=2026&iso_week=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body batchPredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 3, body.PredictionsGenerated)
	assert.Equal(t, 2026, body.ISOYear)
	assert.Equal(t, 5, body.ISOWeek)
}

func TestBatchPredictEmptyWeek(t *testing.T) {
	h := testHandler(t, labeledRows(120), nil)

	rec := doJSON(t, h, http.MethodPost, "/batch-predict?iso_year=2030&iso_week=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	h := testHandler(t, nil, nil)

	rec := doJSON(t, h, http.MethodGet, "/models", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no ledger configured")

	ledger, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer ledger.Close()
	require.NoError(t, ledger.RecordTraining("absence_predictor", time.Now().UTC(), 500, 12, 0))

	h = testHandler(t, nil, ledger)
	rec = doJSON(t, h, http.MethodGet, "/models?model_id=absence_predictor", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Versions []storage.TrainingRecord `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Versions, 1)
	assert.Equal(t, 500, body.Versions[0].Samples)
}
