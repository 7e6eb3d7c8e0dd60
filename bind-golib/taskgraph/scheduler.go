package taskgraph

import (
	"context"
	"sync"
	"time"

	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/workerpool"
	"go.uber.org/zap"
)

// Options for a Scheduler
type Options struct {
	// Workers is the number of root tasks built concurrently
	Workers int
	Logger  *zap.Logger
}

type state struct {
	status Status
	err    error
	done   chan struct{}
}

// Scheduler tracks the status of every task key it has seen
type Scheduler struct {
	opts   Options
	logger *zap.Logger

	m      sync.Mutex
	states map[Key]*state
}

// New returns a Scheduler
func New(opts Options) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scheduler{
		opts:   opts,
		logger: binlog.OrNop(opts.Logger),
		states: make(map[Key]*state),
	}
}

// Status returns the status of key; unknown keys are Pending.
func (s *Scheduler) Status(key Key) Status {
	s.m.Lock()
	defer s.m.Unlock()
	if st, ok := s.states[key]; ok {
		return st.status
	}
	return Pending
}

// Err returns the failure recorded for key, if any
func (s *Scheduler) Err(key Key) error {
	s.m.Lock()
	defer s.m.Unlock()
	if st, ok := s.states[key]; ok {
		return st.err
	}
	return nil
}

// Build ensures every root and its dependencies are done. Roots are built concurrently; the
// failure of one root does not stop the others. The returned error combines the failures of
// all roots.
func (s *Scheduler) Build(ctx context.Context, roots ...Task) error {
	if err := checkAcyclic(roots); err != nil {
		return err
	}

	pool := workerpool.New(s.opts.Workers)
	defer pool.Stop()

	var jobs []workerpool.Job
	for _, root := range roots {
		root := root
		jobs = append(jobs, func() error {
			return s.ensure(ctx, root)
		})
	}
	pool.Add(jobs)
	return pool.Wait()
}

// ensure runs t unless another caller already claimed its key, in which case it waits for
// that caller's outcome.
func (s *Scheduler) ensure(ctx context.Context, t Task) error {
	key := t.Key()

	s.m.Lock()
	if st, ok := s.states[key]; ok {
		s.m.Unlock()
		<-st.done
		return st.err
	}
	st := &state{status: Pending, done: make(chan struct{})}
	s.states[key] = st
	s.m.Unlock()

	err := s.execute(ctx, t, st)

	s.m.Lock()
	st.err = err
	if err != nil {
		st.status = Failed
	} else {
		st.status = Done
	}
	s.m.Unlock()
	close(st.done)
	return err
}

func (s *Scheduler) execute(ctx context.Context, t Task, st *state) error {
	key := t.Key()
	logger := s.logger.With(zap.Stringer("task", key))

	if t.Complete() {
		logger.Info("task already complete")
		return nil
	}

	s.setStatus(st, Running)

	for _, dep := range t.Requires() {
		if err := s.ensure(ctx, dep); err != nil {
			logger.Error("dependency failed", zap.Stringer("dependency", dep.Key()), zap.Error(err))
			return &UnmetDependencyError{Task: key, Dependency: dep.Key(), Err: err}
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "%s not started", key)
	}

	logger.Info("running task")
	start := time.Now()
	if err := t.Run(ctx); err != nil {
		logger.Error("task failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return errors.Wrapf(err, "%s failed", key)
	}
	logger.Info("task done", zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) setStatus(st *state, status Status) {
	s.m.Lock()
	defer s.m.Unlock()
	st.status = status
}

// checkAcyclic rejects graphs in which a task transitively requires itself
func checkAcyclic(roots []Task) error {
	const (
		visiting = 1
		visited  = 2
	)
	marks := make(map[Key]int)

	var visit func(t Task, path []Key) error
	visit = func(t Task, path []Key) error {
		key := t.Key()
		switch marks[key] {
		case visited:
			return nil
		case visiting:
			return errors.Errorf("dependency cycle: %v", append(path, key))
		}
		marks[key] = visiting
		path = append(append([]Key(nil), path...), key)
		for _, dep := range t.Requires() {
			if err := visit(dep, path); err != nil {
				return err
			}
		}
		marks[key] = visited
		return nil
	}

	for _, root := range roots {
		if err := visit(root, nil); err != nil {
			return err
		}
	}
	return nil
}
