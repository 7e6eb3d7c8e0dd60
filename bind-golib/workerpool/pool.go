package workerpool

import (
	"sync"

	"github.com/bindlab/bind/bind-golib/errors"
)

// Job is a unit of work run by a Pool
type Job func() error

// Pool runs jobs on a fixed number of goroutines. Jobs may be added at any time before Stop.
type Pool struct {
	m       sync.Mutex
	cond    *sync.Cond
	queue   []Job
	stopped bool
	errs    errors.Errors

	pending sync.WaitGroup
}

// New starts a pool with the given number of workers (at least one)
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.m)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Add queues jobs for execution. Jobs added after Stop are dropped.
func (p *Pool) Add(jobs []Job) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.stopped {
		return
	}
	p.pending.Add(len(jobs))
	p.queue = append(p.queue, jobs...)
	p.cond.Broadcast()
}

// Wait blocks until every queued job has finished (or was dropped by Stop) and returns
// the combined errors of the jobs that ran so far.
func (p *Pool) Wait() error {
	p.pending.Wait()

	p.m.Lock()
	defer p.m.Unlock()
	return errors.AsError(p.errs)
}

// Stop drops jobs that have not started yet and lets the workers exit once running jobs finish.
func (p *Pool) Stop() {
	p.m.Lock()
	defer p.m.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.pending.Add(-len(p.queue))
	p.queue = nil
	p.cond.Broadcast()
}

func (p *Pool) work() {
	for {
		p.m.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.m.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.m.Unlock()

		if err := job(); err != nil {
			p.m.Lock()
			p.errs = errors.Append(p.errs, err)
			p.m.Unlock()
		}
		p.pending.Done()
	}
}
