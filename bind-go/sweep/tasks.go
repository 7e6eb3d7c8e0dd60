// Package sweep materializes tokenized datasets and models them for a range of bin widths.
package sweep

import (
	"context"
	"io"
	"sync"

	"github.com/bindlab/bind/bind-go/affinity"
	"github.com/bindlab/bind/bind-go/dataset"
	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/taskgraph"
	"go.uber.org/zap"
)

// Task kinds
const (
	TokensKind = "tokens"
	RFKind     = "rf"
)

// Env is shared by every task of a sweep
type Env struct {
	Store    *dataset.Store
	Profiles *profile.Lazy
	Refined  dataset.LabelTable
	Core     dataset.LabelTable
	Model    affinity.Config
	// Workers bounds concurrency within a task (tokenization)
	Workers int
	Logger  *zap.Logger
	// Out receives the human-readable reports; nil discards them
	Out io.Writer

	outM sync.Mutex
}

func (e *Env) print(r *affinity.Report) {
	if e.Out == nil {
		return
	}
	e.outM.Lock()
	defer e.outM.Unlock()
	r.Print(e.Out)
}

func (e *Env) logger() *zap.Logger {
	return binlog.OrNop(e.Logger)
}

// TokensTask stores the refined and core datasets of one bin width
type TokensTask struct {
	BinWidth float64
	env      *Env
}

// NewTokensTask returns the tokens task for binWidth
func NewTokensTask(env *Env, binWidth float64) *TokensTask {
	return &TokensTask{BinWidth: binWidth, env: env}
}

// Artifact returns the store key of the given table
func (t *TokensTask) Artifact(table string) dataset.ArtifactKey {
	return dataset.ArtifactKey{Kind: TokensKind, Table: table, BinWidth: t.BinWidth}
}

// Key implements taskgraph.Task
func (t *TokensTask) Key() taskgraph.Key {
	return taskgraph.Key{Kind: TokensKind, Param: dataset.FormatBinWidth(t.BinWidth)}
}

// Requires implements taskgraph.Task
func (t *TokensTask) Requires() []taskgraph.Task {
	return nil
}

// Complete is true once both tables are stored
func (t *TokensTask) Complete() bool {
	return t.env.Store.Exists(t.Artifact(dataset.Refined)) && t.env.Store.Exists(t.Artifact(dataset.Core))
}

// Run implements taskgraph.Task
func (t *TokensTask) Run(ctx context.Context) error {
	profiles, err := t.env.Profiles.LoadAndLock()
	if err != nil {
		return errors.Wrapf(err, "error loading profiles")
	}
	defer t.env.Profiles.Unlock()

	res, err := dataset.Build(profiles, t.BinWidth, t.env.Refined, t.env.Core, dataset.Options{
		Workers: t.env.Workers,
		Logger:  t.env.logger().With(zap.Stringer("task", t.Key())),
	})
	if err != nil {
		return err
	}

	for _, table := range []struct {
		name string
		ds   dataset.Dataset
	}{
		{dataset.Refined, res.Refined},
		{dataset.Core, res.Core},
	} {
		// a table left over from an interrupted run is kept as is
		err := t.env.Store.Put(t.Artifact(table.name), table.ds)
		if err != nil && !errors.Is(err, dataset.ErrExists) {
			return err
		}
	}
	return nil
}

// RFTask models one bin width from the datasets of its TokensTask
type RFTask struct {
	BinWidth float64
	Tokens   *TokensTask
	env      *Env

	m      sync.Mutex
	report *affinity.Report
}

// NewRFTask returns the modeling task for binWidth
func NewRFTask(env *Env, binWidth float64) *RFTask {
	return &RFTask{
		BinWidth: binWidth,
		Tokens:   NewTokensTask(env, binWidth),
		env:      env,
	}
}

// Key implements taskgraph.Task
func (t *RFTask) Key() taskgraph.Key {
	return taskgraph.Key{Kind: RFKind, Param: dataset.FormatBinWidth(t.BinWidth)}
}

// Requires implements taskgraph.Task
func (t *RFTask) Requires() []taskgraph.Task {
	return []taskgraph.Task{t.Tokens}
}

// Complete is true once the task has produced a report; models are not persisted between runs.
func (t *RFTask) Complete() bool {
	return t.Report() != nil
}

// Report returns the report of the last successful run
func (t *RFTask) Report() *affinity.Report {
	t.m.Lock()
	defer t.m.Unlock()
	return t.report
}

// Run implements taskgraph.Task
func (t *RFTask) Run(ctx context.Context) error {
	if !t.Tokens.Complete() {
		return &taskgraph.UnmetDependencyError{Task: t.Key(), Dependency: t.Tokens.Key()}
	}

	train, err := t.env.Store.Get(t.Tokens.Artifact(dataset.Refined))
	if err != nil {
		return err
	}
	test, err := t.env.Store.Get(t.Tokens.Artifact(dataset.Core))
	if err != nil {
		return err
	}

	rep, err := affinity.Evaluate(t.BinWidth, train, test, t.env.Model, t.env.logger())
	if err != nil {
		return err
	}
	t.env.print(rep)

	t.m.Lock()
	defer t.m.Unlock()
	t.report = rep
	return nil
}
