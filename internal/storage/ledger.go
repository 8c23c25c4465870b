// Package storage keeps a local, process-durable ledger of model training
// runs and driver reports using BoltDB. The ledger is observability only:
// artifacts themselves live in the in-memory model cache and are never
// restored from disk.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	versionsBucket = "model_versions" // one record per training run
	reportsBucket  = "driver_reports" // latest report per outcome
)

// TrainingRecord is one ledger entry describing a training run.
type TrainingRecord struct {
	ModelID   string    `json:"model_id"`
	TrainedAt time.Time `json:"trained_at"`
	Samples   int       `json:"samples"`
	Features  int       `json:"features"`
	CVScore   float64   `json:"cv_score,omitempty"`
}

// Ledger provides append and range access to the training history.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (or creates) the ledger database under dataPath.
func Open(dataPath string) (*Ledger, error) {
	dbPath := filepath.Join(dataPath, "absence-ml.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(versionsBucket)); err != nil {
			return fmt.Errorf("create versions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(reportsBucket)); err != nil {
			return fmt.Errorf("create reports bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// RecordTraining appends one training run. The key format "modelID_nanos"
// gives cheap per-model prefix scans in training order.
func (l *Ledger) RecordTraining(modelID string, trainedAt time.Time, samples, features int, cvScore float64) error {
	rec := TrainingRecord{
		ModelID:   modelID,
		TrainedAt: trainedAt,
		Samples:   samples,
		Features:  features,
		CVScore:   cvScore,
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(versionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal training record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", modelID, trainedAt.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// History returns up to limit training records for one model, newest first.
// An empty modelID returns records across all models.
func (l *Ledger) History(modelID string, limit int) ([]TrainingRecord, error) {
	var records []TrainingRecord

	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(versionsBucket))
		c := b.Cursor()

		prefix := []byte(modelID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec TrainingRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TrainedAt.After(records[j].TrainedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ArchiveDriverReport stores the latest driver report for an outcome,
// overwriting any prior one.
func (l *Ledger) ArchiveDriverReport(outcome string, report any) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(reportsBucket))

		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal driver report: %w", err)
		}
		return b.Put([]byte(outcome), data)
	})
}

// DriverReport returns the archived report for an outcome as raw JSON, or
// nil when none has been archived.
func (l *Ledger) DriverReport(outcome string) ([]byte, error) {
	var data []byte
	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(reportsBucket))
		if v := b.Get([]byte(outcome)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}
