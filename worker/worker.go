package worker

import (
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sirupsen/logrus"
)

// Pool runs functions on a fixed set of goroutines. A panic in a submitted function is reported to
// Sentry and does not stop the worker.
type Pool struct {
	queue chan func()
	log   *logrus.Logger

	// mu guards closing the queue against concurrent sends.
	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool of n workers.
func NewPool(n int, log *logrus.Logger) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{queue: make(chan func(), n), log: log}
	for range n {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for f := range p.queue {
		p.run(f)
	}
}

func (p *Pool) run(f func()) {
	defer func() {
		if v := recover(); v != nil {
			if p.log != nil {
				p.log.Errorf("worker panic: %v", v)
			}
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("component", "worker")
			})
			hub.Recover(oerror.New("%v", v))
			hub.Flush(time.Second * 5)
		}
	}()
	f()
}

// Submit queues f. To be used by a function that may be CPU intensive. Once the pool is closed, f runs
// on the calling goroutine.
func (p *Pool) Submit(f func()) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.run(f)
		return
	}
	p.queue <- f
	p.mu.RUnlock()
}

// Run runs every function passed on the pool and waits for all of them to return.
func (p *Pool) Run(fs ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fs))
	for _, f := range fs {
		p.Submit(func() {
			defer wg.Done()
			f()
		})
	}
	wg.Wait()
}

// Close stops the workers once the queued functions have run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

var defaultPool = NewPool(runtime.NumCPU(), nil)

// Submit queues f on the default pool.
func Submit(f func()) {
	defaultPool.Submit(f)
}

// Default returns the default pool.
func Default() *Pool {
	return defaultPool
}
