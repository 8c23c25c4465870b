// Package featurestore provides read access to the per-employee-per-week
// feature table and write access to the prediction table. The store exposes
// a PostgREST-style API; rows are filtered with column=eq.value query
// parameters and upserts merge on the composite key.
package featurestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	featureTable    = "feature_employee_week"
	predictionTable = "prediction_employee_week"
	conflictKey     = "person_pseudonym,iso_year,iso_week"
)

// StoreMetrics tracks feature store request outcomes.
type StoreMetrics interface {
	StoreRequestInc()
	StoreFailureInc()
}

type Client struct {
	base    string
	key     string
	rest    *resty.Client
	metrics StoreMetrics
}

func New(baseURL, serviceKey string, timeout time.Duration) *Client {
	return NewWithMetrics(baseURL, serviceKey, timeout, nil)
}

func NewWithMetrics(baseURL, serviceKey string, timeout time.Duration, metrics StoreMetrics) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	r.SetHeader("apikey", serviceKey)
	r.SetHeader("Authorization", "Bearer "+serviceKey)
	return &Client{base: baseURL, key: serviceKey, rest: r, metrics: metrics}
}

// Prediction is one row of the prediction_employee_week table.
type Prediction struct {
	PersonPseudonym        string    `json:"person_pseudonym"`
	ISOYear                int       `json:"iso_year"`
	ISOWeek                int       `json:"iso_week"`
	PredictedRiskTotal     float64   `json:"predicted_risk_total_absence"`
	PredictedRiskEgenmeldt float64   `json:"predicted_risk_egenmeldt"`
	ModelVersion           string    `json:"model_version"`
	PredictedAt            time.Time `json:"predicted_at"`
}

// FetchRows retrieves up to limit feature rows, unfiltered.
func (c *Client) FetchRows(ctx context.Context, limit int) ([]Row, error) {
	params := map[string]string{
		"select": "*",
		"limit":  strconv.Itoa(limit),
	}
	return c.fetch(ctx, params)
}

// FetchKey retrieves the feature rows matching one composite key. The store
// may report zero, one, or (on a corrupted table) several rows; the caller
// decides what each count means.
func (c *Client) FetchKey(ctx context.Context, person string, isoYear, isoWeek int) ([]Row, error) {
	params := map[string]string{
		"select":   "*",
		ColPerson:  "eq." + person,
		ColISOYear: "eq." + strconv.Itoa(isoYear),
		ColISOWeek: "eq." + strconv.Itoa(isoWeek),
	}
	return c.fetch(ctx, params)
}

// FetchWeek retrieves all feature rows for one ISO week.
func (c *Client) FetchWeek(ctx context.Context, isoYear, isoWeek int) ([]Row, error) {
	params := map[string]string{
		"select":   "*",
		ColISOYear: "eq." + strconv.Itoa(isoYear),
		ColISOWeek: "eq." + strconv.Itoa(isoWeek),
	}

	return c.fetch(ctx, params)
}

func (c *Client) fetch(ctx context.Context, params map[string]string) ([]Row, error) {
	c.requestInc()

	var rows []Row
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&rows).
		Get(c.base + "/rest/v1/" + featureTable)
	if err != nil {
		c.failureInc()
		return nil, fmt.Errorf("feature store request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		c.failureInc()
		return nil, fmt.Errorf("feature store error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return rows, nil
}

// UpsertPredictions writes all predictions in a single request, merging on
// the composite key. There is no transactional guarantee beyond what the
// store provides for one request.
func (c *Client) UpsertPredictions(ctx context.Context, preds []Prediction) error {
	c.requestInc()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", conflictKey).
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody(preds).
		Post(c.base + "/rest/v1/" + predictionTable)
	if err != nil {
		c.failureInc()
		return fmt.Errorf("prediction upsert failed: %w", err)
	}
	if resp.StatusCode() >= 300 {
		c.failureInc()
		return fmt.Errorf("prediction upsert error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) requestInc() {
	if c.metrics != nil {
		c.metrics.StoreRequestInc()
	}
}

func (c *Client) failureInc() {
	if c.metrics != nil {
		c.metrics.StoreFailureInc()
	}
}
