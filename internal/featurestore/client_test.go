package featurestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	requests int64
	failures int64
}

func (c *countingMetrics) StoreRequestInc() { atomic.AddInt64(&c.requests, 1) }
func (c *countingMetrics) StoreFailureInc() { atomic.AddInt64(&c.failures, 1) }

func TestFetchKey_FiltersOnCompositeKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/feature_employee_week", r.URL.Path)
		assert.Equal(t, "eq.p001", r.URL.Query().Get("person_pseudonym"))
		assert.Equal(t, "eq.2026", r.URL.Query().Get("iso_year"))
		assert.Equal(t, "eq.15", r.URL.Query().Get("iso_week"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"person_pseudonym":"p001","iso_year":2026,"iso_week":15,"night_shifts":4,"overtime_hours":null}]`))
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second)

	rows, err := client.FetchKey(context.Background(), "p001", 2026, 15)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "p001", row.Person())
	assert.Equal(t, 2026, row.ISOYear())
	assert.Equal(t, 15, row.ISOWeek())

	v, ok := row.Float("night_shifts")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	// Null columns read back as absent.
	_, ok = row.Float("overtime_hours")
	assert.False(t, ok)
	_, ok = row.Float("missing_entirely")
	assert.False(t, ok)
}

func TestFetchRows_PassesLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second)

	rows, err := client.FetchRows(context.Background(), 500)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetch_StoreErrorSurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer server.Close()

	m := &countingMetrics{}
	client := NewWithMetrics(server.URL, "wrong", 5*time.Second, m)

	_, err := client.FetchWeek(context.Background(), 2026, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.requests))
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.failures))
}

func TestUpsertPredictions_MergesOnCompositeKey(t *testing.T) {
	var gotPrefer string
	var gotConflict string
	var gotBody []Prediction

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/prediction_employee_week", r.URL.Path)
		gotPrefer = r.Header.Get("Prefer")
		gotConflict = r.URL.Query().Get("on_conflict")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	m := &countingMetrics{}
	client := NewWithMetrics(server.URL, "secret", 5*time.Second, m)

	preds := []Prediction{
		{PersonPseudonym: "p001", ISOYear: 2026, ISOWeek: 15, PredictedRiskTotal: 0.8, ModelVersion: "v1", PredictedAt: time.Now().UTC()},
		{PersonPseudonym: "p002", ISOYear: 2026, ISOWeek: 15, PredictedRiskTotal: 0.1, ModelVersion: "v1", PredictedAt: time.Now().UTC()},
	}
	require.NoError(t, client.UpsertPredictions(context.Background(), preds))

	assert.Equal(t, "resolution=merge-duplicates", gotPrefer)
	assert.Equal(t, "person_pseudonym,iso_year,iso_week", gotConflict)
	require.Len(t, gotBody, 2)
	assert.Equal(t, "p001", gotBody[0].PersonPseudonym)
	assert.Equal(t, 0.8, gotBody[0].PredictedRiskTotal)
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.requests))
	assert.Equal(t, int64(0), atomic.LoadInt64(&m.failures))
}

func TestUpsertPredictions_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("duplicate"))
	}))
	defer server.Close()

	client := New(server.URL, "secret", 5*time.Second)

	err := client.UpsertPredictions(context.Background(), []Prediction{{PersonPseudonym: "p001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 409")
}
