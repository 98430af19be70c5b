package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var ErrQueueFull = errors.New("worker pool queue full")

// Job is a unit of background work. Run gets a context bounded by the pool's job timeout.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pool struct {
	jobs        chan Job
	workerCount int
	jobTimeout  time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
	metrics     *Metrics
}

type Metrics struct {
	mu           sync.RWMutex
	processed    int64
	failed       int64
	backpressure int64
}

type Snapshot struct {
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	Backpressure int64 `json:"backpressure_events"`
	Queued       int   `json:"queued"`
}

func NewPool(workerCount, queueSize int, jobTimeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		jobs:        make(chan Job, queueSize),
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &Metrics{},
	}
}

func (p *Pool) Start() {
	log.Printf("🚀 Starting worker pool with %d workers and queue size %d", p.workerCount, cap(p.jobs))

	for i := 1; i <= p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(id, job)
		}
	}
}

func (p *Pool) process(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Worker #%d PANIC recovered in %s: %v", workerID, job.Name, r)
			p.metrics.incFailed()
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, p.jobTimeout)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		log.Printf("❌ Worker #%d job %s failed: %v", workerID, job.Name, err)
		p.metrics.incFailed()
		return
	}
	p.metrics.incProcessed()
}

// Submit never blocks; a full queue drops the job.
func (p *Pool) Submit(job Job) (err error) {
	defer func() {
		// submitting after Shutdown
		if recover() != nil {
			err = fmt.Errorf("worker pool is stopped")
		}
	}()

	select {
	case p.jobs <- job:
		return nil
	default:
		log.Printf("⚠️ Queue full, dropping job %s", job.Name)
		p.metrics.incBackpressure()
		return ErrQueueFull
	}
}

// Shutdown drains queued jobs, cancelling whatever is still running after timeout.
func (p *Pool) Shutdown(timeout time.Duration) error {
	log.Printf("🛑 Shutting down worker pool...")
	p.closeOnce.Do(func() { close(p.jobs) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s := p.Stats()
		log.Printf("✅ Worker pool stopped (processed %d, failed %d, dropped %d)", s.Processed, s.Failed, s.Backpressure)
		return nil
	case <-time.After(timeout):
		p.cancel()
		return fmt.Errorf("worker pool shutdown timed out after %v", timeout)
	}
}

func (p *Pool) Stats() Snapshot {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return Snapshot{
		Processed:    p.metrics.processed,
		Failed:       p.metrics.failed,
		Backpressure: p.metrics.backpressure,
		Queued:       len(p.jobs),
	}
}

func (m *Metrics) incProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
}

func (m *Metrics) incFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *Metrics) incBackpressure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backpressure++
}
