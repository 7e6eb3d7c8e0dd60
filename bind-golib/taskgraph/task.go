// Package taskgraph runs dependency graphs of cached tasks. Each task is identified by a
// Key; within one Scheduler a key runs at most once, its dependencies always finish before
// it starts, and a task whose output already exists is never re-run.
package taskgraph

import (
	"context"
	"fmt"

	"github.com/bindlab/bind/bind-golib/errors"
)

// Key identifies a task instance by its kind and the parameter it was instantiated with
type Key struct {
	Kind  string
	Param string
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%s)", k.Kind, k.Param)
}

// Task is a unit of work with cached output
type Task interface {
	// Key identifies the task; two tasks with the same key are interchangeable.
	Key() Key
	// Requires lists the tasks that must be Done before Run is called.
	Requires() []Task
	// Complete reports whether the task's output already exists.
	Complete() bool
	// Run produces the task's output.
	Run(ctx context.Context) error
}

// Status of a task within a Scheduler
type Status int

const (
	// Pending tasks have not started
	Pending Status = iota
	// Running tasks are waiting on dependencies or executing
	Running
	// Done tasks ran successfully or were already complete
	Done
	// Failed tasks returned an error or had a failed dependency
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrUnmetDependency matches (via errors.Is) every UnmetDependencyError
var ErrUnmetDependency = errors.New("unmet dependency")

// UnmetDependencyError is returned for a task that could not run because a dependency is not done
type UnmetDependencyError struct {
	Task       Key
	Dependency Key
	// Err is the dependency's own failure, if any
	Err error
}

func (e *UnmetDependencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: dependency %s not completed", e.Task, e.Dependency)
	}
	return fmt.Sprintf("%s: dependency %s not completed: %v", e.Task, e.Dependency, e.Err)
}

// Is implements errors.Is
func (e *UnmetDependencyError) Is(target error) bool {
	return target == ErrUnmetDependency
}

// Unwrap returns the dependency's failure
func (e *UnmetDependencyError) Unwrap() error {
	return e.Err
}
