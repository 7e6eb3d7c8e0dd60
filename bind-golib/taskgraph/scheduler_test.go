package taskgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	key      Key
	requires []Task
	runErr   error
	delay    time.Duration

	m        sync.Mutex
	complete bool
	runs     int32
	running  int32
	overlap  bool
}

func newFake(kind, param string, requires ...Task) *fakeTask {
	return &fakeTask{key: Key{Kind: kind, Param: param}, requires: requires}
}

func (f *fakeTask) Key() Key         { return f.key }
func (f *fakeTask) Requires() []Task { return f.requires }

func (f *fakeTask) Complete() bool {
	f.m.Lock()
	defer f.m.Unlock()
	return f.complete
}

func (f *fakeTask) Run(ctx context.Context) error {
	if atomic.AddInt32(&f.running, 1) > 1 {
		f.m.Lock()
		f.overlap = true
		f.m.Unlock()
	}
	defer atomic.AddInt32(&f.running, -1)
	atomic.AddInt32(&f.runs, 1)

	time.Sleep(f.delay)
	if f.runErr != nil {
		return f.runErr
	}
	f.m.Lock()
	f.complete = true
	f.m.Unlock()
	return nil
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "PENDING", Pending.String())
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, "DONE", Done.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "tokens(5)", Key{Kind: "tokens", Param: "5"}.String())
}

func TestBuildRunsDependenciesFirst(t *testing.T) {
	var order []string
	var m sync.Mutex
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			m.Lock()
			defer m.Unlock()
			order = append(order, name)
			return nil
		}
	}

	tokens := &funcTask{key: Key{"tokens", "5"}, run: record("tokens")}
	rf := &funcTask{key: Key{"rf", "5"}, requires: []Task{tokens}, run: record("rf")}

	s := New(Options{})
	require.NoError(t, s.Build(context.Background(), rf))
	assert.Equal(t, []string{"tokens", "rf"}, order)
	assert.Equal(t, Done, s.Status(tokens.Key()))
	assert.Equal(t, Done, s.Status(rf.Key()))
	assert.Equal(t, Pending, s.Status(Key{"rf", "7"}))
}

func TestSharedDependencyRunsOnce(t *testing.T) {
	tokens := newFake("tokens", "5")
	tokens.delay = 20 * time.Millisecond

	var roots []Task
	for i := 0; i < 4; i++ {
		roots = append(roots, newFake("rf", fmt.Sprint(i), tokens))
	}

	s := New(Options{Workers: 4})
	require.NoError(t, s.Build(context.Background(), roots...))
	assert.EqualValues(t, 1, tokens.runs)
	assert.False(t, tokens.overlap)
}

func TestSameKeyNeverRunsConcurrently(t *testing.T) {
	// distinct task values with the same key are interchangeable
	a := newFake("tokens", "5")
	b := newFake("tokens", "5")
	a.delay, b.delay = 20*time.Millisecond, 20*time.Millisecond

	s := New(Options{Workers: 2})
	require.NoError(t, s.Build(context.Background(), a, b))
	assert.EqualValues(t, 1, atomic.LoadInt32(&a.runs)+atomic.LoadInt32(&b.runs))
}

func TestCompleteTaskIsNotRun(t *testing.T) {
	tokens := newFake("tokens", "5")
	tokens.complete = true
	rf := newFake("rf", "5", tokens)

	s := New(Options{})
	require.NoError(t, s.Build(context.Background(), rf))
	assert.EqualValues(t, 0, tokens.runs)
	assert.EqualValues(t, 1, rf.runs)
	assert.Equal(t, Done, s.Status(tokens.Key()))

	// a second build finds both done
	require.NoError(t, New(Options{}).Build(context.Background(), rf))
	assert.EqualValues(t, 1, rf.runs)
}

func TestFailedDependency(t *testing.T) {
	badTokens := newFake("tokens", "5")
	badTokens.runErr = fmt.Errorf("profile missing")
	badRF := newFake("rf", "5", badTokens)

	goodRF := newFake("rf", "7", newFake("tokens", "7"))

	s := New(Options{Workers: 2})
	err := s.Build(context.Background(), badRF, goodRF)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmetDependency))
	assert.Contains(t, err.Error(), "rf(5): dependency tokens(5) not completed")
	assert.Contains(t, err.Error(), "profile missing")

	assert.EqualValues(t, 0, badRF.runs)
	assert.Equal(t, Failed, s.Status(badTokens.Key()))
	assert.Equal(t, Failed, s.Status(badRF.Key()))
	var unmet *UnmetDependencyError
	require.True(t, errors.As(s.Err(badRF.Key()), &unmet))
	assert.Equal(t, badTokens.Key(), unmet.Dependency)

	// other bin widths are unaffected
	assert.EqualValues(t, 1, goodRF.runs)
	assert.Equal(t, Done, s.Status(goodRF.Key()))
	assert.NoError(t, s.Err(goodRF.Key()))

	// failures are not retried by the same scheduler
	require.Error(t, s.Build(context.Background(), badRF))
	assert.EqualValues(t, 1, badTokens.runs)
}

func TestCycleRejected(t *testing.T) {
	a := &funcTask{key: Key{"a", ""}}
	b := &funcTask{key: Key{"b", ""}, requires: []Task{a}}
	a.requires = []Task{b}

	err := New(Options{}).Build(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rf := newFake("rf", "5")
	s := New(Options{})
	require.Error(t, s.Build(ctx, rf))
	assert.EqualValues(t, 0, rf.runs)
	assert.Equal(t, Failed, s.Status(rf.Key()))
}

type funcTask struct {
	key      Key
	requires []Task
	run      func(context.Context) error
	done     bool
}

func (f *funcTask) Key() Key         { return f.key }
func (f *funcTask) Requires() []Task { return f.requires }
func (f *funcTask) Complete() bool   { return f.done }
func (f *funcTask) Run(ctx context.Context) error {
	if f.run != nil {
		if err := f.run(ctx); err != nil {
			return err
		}
	}
	f.done = true
	return nil
}
