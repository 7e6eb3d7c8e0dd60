// Package rundb records sweep runs and their per-bin-width results in a sqlite database.
package rundb

import (
	"encoding/json"
	"time"

	"github.com/bindlab/bind/bind-go/sweep"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql
	uuid "github.com/satori/go.uuid"
)

// Status of a run
type Status string

const (
	// StatusStarted is set when the sweep starts
	StatusStarted Status = "started"
	// StatusFinished is set when every bin width was modeled
	StatusFinished Status = "finished"
	// StatusError is set when at least one bin width failed
	StatusError Status = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	status      TEXT NOT NULL,
	params      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	bin_width   REAL NOT NULL,
	status      TEXT NOT NULL,
	train_rows  INTEGER NOT NULL DEFAULT 0,
	test_rows   INTEGER NOT NULL DEFAULT 0,
	vocabulary  INTEGER NOT NULL DEFAULT 0,
	best_params TEXT NOT NULL DEFAULT '',
	cv_mse      REAL,
	mse         REAL,
	rmse        REAL,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, bin_width)
);`

// Run is one recorded sweep
type Run struct {
	ID         string     `db:"id"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Status     Status     `db:"status"`
	// Params is the JSON encoded configuration of the sweep
	Params string `db:"params"`
	Error  string `db:"error"`
}

// Result is the outcome of one bin width within a run
type Result struct {
	RunID      string   `db:"run_id"`
	BinWidth   float64  `db:"bin_width"`
	Status     string   `db:"status"`
	TrainRows  int      `db:"train_rows"`
	TestRows   int      `db:"test_rows"`
	Vocabulary int      `db:"vocabulary"`
	BestParams string   `db:"best_params"`
	CVMSE      *float64 `db:"cv_mse"`
	MSE        *float64 `db:"mse"`
	RMSE       *float64 `db:"rmse"`
	Error      string   `db:"error"`
}

// DB is a run history database
type DB struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening run history %s", path)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "error creating run history schema")
	}
	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// Start records a new run with the given parameters and returns it
func (d *DB) Start(params interface{}) (*Run, error) {
	buf, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrapf(err, "error encoding run params")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        id.String(),
		StartedAt: time.Now().UTC(),
		Status:    StatusStarted,
		Params:    string(buf),
	}
	_, err = d.db.NamedExec(`INSERT INTO runs (id, started_at, status, params) VALUES (:id, :started_at, :status, :params)`, run)
	if err != nil {
		return nil, errors.Wrapf(err, "error recording run")
	}
	return run, nil
}

// Finish records the outcomes of a run and marks it finished, or errored if runErr is non-nil
func (d *DB) Finish(run *Run, outcomes []sweep.Outcome, runErr error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, o := range outcomes {
		if _, err := tx.NamedExec(`INSERT INTO results
			(run_id, bin_width, status, train_rows, test_rows, vocabulary, best_params, cv_mse, mse, rmse, error)
			VALUES (:run_id, :bin_width, :status, :train_rows, :test_rows, :vocabulary, :best_params, :cv_mse, :mse, :rmse, :error)`,
			resultOf(run.ID, o)); err != nil {
			return errors.Wrapf(err, "error recording bin width %v", o.BinWidth)
		}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = StatusFinished
	if runErr != nil {
		run.Status = StatusError
		run.Error = runErr.Error()
	}
	if _, err := tx.NamedExec(`UPDATE runs SET finished_at = :finished_at, status = :status, error = :error WHERE id = :id`, run); err != nil {
		return errors.Wrapf(err, "error finishing run %s", run.ID)
	}
	return tx.Commit()
}

func resultOf(runID string, o sweep.Outcome) Result {
	r := Result{
		RunID:    runID,
		BinWidth: o.BinWidth,
		Status:   o.Status.String(),
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	if rep := o.Report; rep != nil {
		cv := -rep.BestScore
		mse, rmse := rep.MSE, rep.RMSE
		r.TrainRows = rep.TrainRows
		r.TestRows = rep.TestRows
		r.Vocabulary = rep.VocabularySize
		r.BestParams = rep.BestParams.String()
		r.CVMSE, r.MSE, r.RMSE = &cv, &mse, &rmse
	}
	return r
}

// Runs returns the most recent runs, newest first; limit <= 0 returns all of them
func (d *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []Run
	err := d.db.Select(&runs, `SELECT id, started_at, finished_at, status, params, error FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	return runs, err
}

// Results returns the results of a run ordered by bin width
func (d *DB) Results(runID string) ([]Result, error) {
	var results []Result
	err := d.db.Select(&results, `SELECT * FROM results WHERE run_id = ? ORDER BY bin_width`, runID)
	return results, err
}
