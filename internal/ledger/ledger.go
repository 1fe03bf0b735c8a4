// Package ledger records pipeline runs and per-stage results in a local
// bbolt file. Stages read their inputs from the outputs earlier stages
// recorded for the same run date.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alfredjeanlab/contentflow/internal/idgen"
)

var runsBucket = []byte("runs")

// ErrNotFound is returned when no run exists for a date.
var ErrNotFound = errors.New("run not found")

// Status is the outcome of a stage.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StageResult is what one stage of a run produced.
type StageResult struct {
	Status     Status    `json:"status"`
	Output     string    `json:"output,omitempty"`
	Records    int       `json:"records,omitempty"`
	Error      string    `json:"error,omitempty"`
	Reason     string    `json:"reason,omitempty"` // why a stage was skipped
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Run is the ledger entry for one run date.
type Run struct {
	ID         string                 `json:"id"`
	DS         string                 `json:"ds"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Stages     map[string]StageResult `json:"stages"`
}

// Output returns the output path a stage recorded, if it succeeded.
func (r *Run) Output(stage string) (string, bool) {
	res, ok := r.Stages[stage]
	if !ok || res.Status != StatusSucceeded || res.Output == "" {
		return "", false
	}
	return res.Output, true
}

// Ledger is a bbolt-backed run ledger.
type Ledger struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the ledger file at path.
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the ledger file.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Begin starts a new run for ds, replacing any earlier run of that date.
func (l *Ledger) Begin(ds string) (*Run, error) {
	id, err := idgen.RunID()
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:        id,
		DS:        ds,
		StartedAt: l.now().UTC(),
		Stages:    map[string]StageResult{},
	}
	err = l.db.Update(func(tx *bolt.Tx) error {
		return putRun(tx, run)
	})
	if err != nil {
		return nil, fmt.Errorf("begin run %s: %w", ds, err)
	}
	return run, nil
}

// Record stores the result of stage for ds. A run is started implicitly when
// none exists, so stages can be invoked one at a time.
func (l *Ledger) Record(ds, stage string, result StageResult) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		run, err := getRun(tx, ds)
		if errors.Is(err, ErrNotFound) {
			id, idErr := idgen.RunID()
			if idErr != nil {
				return idErr
			}
			run = &Run{ID: id, DS: ds, StartedAt: l.now().UTC(), Stages: map[string]StageResult{}}
		} else if err != nil {
			return err
		}
		run.Stages[stage] = result
		return putRun(tx, run)
	})
	if err != nil {
		return fmt.Errorf("record stage %s of %s: %w", stage, ds, err)
	}
	return nil
}

// Finish marks the run for ds as finished.
func (l *Ledger) Finish(ds string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		run, err := getRun(tx, ds)
		if err != nil {
			return err
		}
		at := l.now().UTC()
		run.FinishedAt = &at
		return putRun(tx, run)
	})
	if err != nil {
		return fmt.Errorf("finish run %s: %w", ds, err)
	}
	return nil
}

// Get returns the run for ds or ErrNotFound.
func (l *Ledger) Get(ds string) (*Run, error) {
	var run *Run
	err := l.db.View(func(tx *bolt.Tx) error {
		var err error
		run, err = getRun(tx, ds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns up to limit runs, newest date first. A limit of zero or less
// returns every run.
func (l *Ledger) List(limit int) ([]*Run, error) {
	var runs []*Run
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func getRun(tx *bolt.Tx, ds string) (*Run, error) {
	v := tx.Bucket(runsBucket).Get([]byte(ds))
	if v == nil {
		return nil, ErrNotFound
	}
	var run Run
	if err := json.Unmarshal(v, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", ds, err)
	}
	if run.Stages == nil {
		run.Stages = map[string]StageResult{}
	}
	return &run, nil
}

func putRun(tx *bolt.Tx, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return tx.Bucket(runsBucket).Put([]byte(run.DS), data)
}
