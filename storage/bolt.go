package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// ErrNotFound is returned for unknown run ids.
var ErrNotFound = errors.New("run not found")

type BoltDB struct {
	db *bolt.DB
}

func NewBoltDB(dbPath string) (*BoltDB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create buckets")
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

// SaveRun inserts or replaces a run record.
func (b *BoltDB) SaveRun(run *models.RunRecord) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to encode run")
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(run.ID), data)
	})
}

// GetRun returns ErrNotFound for unknown ids.
func (b *BoltDB) GetRun(id string) (*models.RunRecord, error) {
	var run models.RunRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first. A limit of zero or less means all.
func (b *BoltDB) ListRuns(limit int) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var run models.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return errors.Wrapf(err, "failed to decode run %s", k)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// DeleteRun returns ErrNotFound for unknown ids.
func (b *BoltDB) DeleteRun(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(runsBucket)
		if bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}
