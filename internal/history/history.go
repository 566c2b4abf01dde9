// Package history keeps finished run summaries in a local bbolt file keyed by ULID.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"

	"github.com/torosent/vuload/internal/config"
	"github.com/torosent/vuload/internal/output"
)

const bucketRuns = "runs"

var (
	ErrNotFound  = errors.New("history: record not found")
	ErrAmbiguous = errors.New("history: id prefix matches more than one record")
)

// Record is one stored run.
type Record struct {
	ID               string         `json:"id"`
	StartedAt        time.Time      `json:"started_at"`
	Config           ConfigSnapshot `json:"config"`
	Summary          output.Summary `json:"summary"`
	ThresholdsPassed bool           `json:"thresholds_passed"`
}

// ConfigSnapshot is the subset of the run configuration worth keeping next to its results.
type ConfigSnapshot struct {
	Target        string               `json:"target"`
	VUs           int                  `json:"vus"`
	Duration      string               `json:"duration,omitempty"`
	Iterations    int                  `json:"iterations,omitempty"`
	IDMin         int                  `json:"id_min"`
	IDMax         int                  `json:"id_max"`
	Rate          int                  `json:"rate,omitempty"`
	Timeout       string               `json:"timeout"`
	GracefulStop  string               `json:"graceful_stop"`
	NetworkErrors string               `json:"network_errors"`
	Checks        []config.CheckConfig `json:"checks"`
	Thresholds    []string             `json:"thresholds,omitempty"`
	ConfigFile    string               `json:"config_file,omitempty"`
}

func SnapshotConfig(cfg config.Config) ConfigSnapshot {
	snap := ConfigSnapshot{
		Target:        cfg.Target,
		VUs:           cfg.VUs,
		Iterations:    cfg.Iterations,
		IDMin:         cfg.IDMin,
		IDMax:         cfg.IDMax,
		Rate:          cfg.Rate,
		Timeout:       cfg.Timeout.String(),
		GracefulStop:  cfg.GracefulStop.String(),
		NetworkErrors: string(cfg.NetworkErrors),
		Checks:        append([]config.CheckConfig(nil), cfg.Checks...),
		Thresholds:    append([]string(nil), cfg.Thresholds...),
		ConfigFile:    cfg.ConfigFile,
	}
	if cfg.Duration > 0 {
		snap.Duration = cfg.Duration.String()
	}
	return snap
}

// DefaultPath returns ~/.vuload/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".vuload", "history.db"), nil
}

// Store reads and writes the history file. The bolt file is opened per call so
// several vuload processes can share it; a sidecar flock serializes writers.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// Open prepares the history file at path, creating it and its directory when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	s := &Store{path: path, lockPath: path + ".lock", lockTimeout: 10 * time.Second}
	err := s.update(context.Background(), func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// NewID returns a run id whose lexical order follows t.
func NewID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// Save assigns an ID when the record has none and writes it. A caller-supplied
// ID is kept, so a run can be tagged with its id before it is saved.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.StartedAt = rec.StartedAt.UTC()
	if rec.ID == "" {
		id, err := NewID(rec.StartedAt)
		if err != nil {
			return Record{}, err
		}
		rec.ID = id
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}
	err = s.update(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).Put([]byte(rec.ID), data)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns up to limit records, newest first. A limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			records = append(records, rec)
			if limit > 0 && len(records) == limit {
				break
			}
		}
		return nil
	})
	return records, err
}

// Get returns the record with the given ID. A unique prefix of an ID is accepted.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return Record{}, ErrNotFound
	}
	if len(id) == ulid.EncodedSize {
		if _, err := ulid.ParseStrict(id); err != nil {
			return Record{}, fmt.Errorf("invalid run id %q: %w", id, err)
		}
	}

	var rec Record
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		prefix := []byte(id)
		var match []byte
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), id); k, v = c.Next() {
			if match != nil {
				return ErrAmbiguous
			}
			match = v
		}
		if match == nil {
			return ErrNotFound
		}
		return json.Unmarshal(match, &rec)
	})
	return rec, err
}

func (s *Store) update(ctx context.Context, fn func(*bbolt.Tx) error) error {
	lock := flock.New(s.lockPath)
	if err := s.acquire(ctx, lock.TryLockContext); err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: s.lockTimeout})
	if err != nil {
		return fmt.Errorf("open history %s: %w", s.path, err)
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *Store) view(ctx context.Context, fn func(*bbolt.Tx) error) error {
	lock := flock.New(s.lockPath)
	if err := s.acquire(ctx, lock.TryRLockContext); err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: s.lockTimeout, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open history %s: %w", s.path, err)
	}
	defer db.Close()
	return db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketRuns)) == nil {
			return ErrNotFound
		}
		return fn(tx)
	})
}

func (s *Store) acquire(ctx context.Context, try func(context.Context, time.Duration) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := try(ctx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock history %s: %w", s.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("lock history %s: timed out", s.lockPath)
	}
	return nil
}
