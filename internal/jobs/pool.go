package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Pool is an in-process FIFO queue drained by a fixed set of workers. One
// worker owns a job end-to-end; a handler error marks the job failed and is
// logged, never retried. Handlers registered per-company never run
// concurrently for the same company.
type Pool struct {
	log     *logger.Logger
	queue   chan Job
	workers int

	mu       sync.RWMutex
	handlers map[Kind]handlerEntry

	locks *keyedMutex
	group *errgroup.Group
}

type handlerEntry struct {
	fn         Handler
	perCompany bool
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	return &Pool{
		log:      logger.New("jobs.pool"),
		queue:    make(chan Job, queueSize),
		workers:  workers,
		handlers: make(map[Kind]handlerEntry),
		locks:    newKeyedMutex(),
	}
}

// Register binds a handler to a job kind.
func (p *Pool) Register(kind Kind, fn Handler) {
	p.register(kind, fn, false)
}

// RegisterPerCompany binds a handler that must not run concurrently for the
// same company. Jobs for distinct companies still run in parallel.
func (p *Pool) RegisterPerCompany(kind Kind, fn Handler) {
	p.register(kind, fn, true)
}

func (p *Pool) register(kind Kind, fn Handler, perCompany bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = handlerEntry{fn: fn, perCompany: perCompany}
}

// Enqueue adds a job to the queue, failing immediately when the queue is
// full rather than blocking the caller.
func (p *Pool) Enqueue(job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case p.queue <- job:
		p.log.WithField("job_id", job.ID).WithField("kind", string(job.Kind)).Debug("job enqueued")
		return nil
	default:
		return fmt.Errorf("job queue is full (capacity %d)", cap(p.queue))
	}
}

// Start launches the workers. They drain the queue until ctx is cancelled;
// Wait blocks until all workers have stopped.
func (p *Pool) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	p.group = g
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			p.runWorker(ctx, worker)
			return nil
		})
	}
	p.log.WithField("workers", p.workers).Info("worker pool started")
}

// LockCompany acquires the same per-company mutex the workers use, so work
// run outside the pool is still serialized against per-company jobs. The
// returned function releases it.
func (p *Pool) LockCompany(companyID string) func() {
	return p.locks.Lock(companyID)
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() error {
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

func (p *Pool) runWorker(ctx context.Context, worker int) {
	log := p.log.WithField("worker", worker)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return
		case job := <-p.queue:
			p.execute(ctx, log, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, log *logger.Logger, job Job) {
	p.mu.RLock()
	entry, ok := p.handlers[job.Kind]
	p.mu.RUnlock()
	if !ok {
		log.WithField("kind", string(job.Kind)).Error("no handler for job kind")
		return
	}

	if entry.perCompany && job.CompanyID != "" {
		unlock := p.locks.Lock(job.CompanyID)
		defer unlock()
	}

	log = log.WithField("job_id", job.ID).WithField("kind", string(job.Kind))
	log.Info("job started")
	started := time.Now()
	if err := entry.fn(ctx, job); err != nil {
		log.WithError(err).Error("job failed")
		return
	}
	log.WithField("duration", time.Since(started).String()).Info("job completed")
}

// keyedMutex serializes work per string key without holding a lock for keys
// not in use.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
