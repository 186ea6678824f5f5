package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

type Job func(ctx context.Context) error

var ErrPoolClosed = errors.New("working pool is closed")

// WorkingPool runs jobs on a fixed number of workers fed by a bounded queue.
// Jobs already queued when the pool stops are still executed.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job

	mu     sync.RWMutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// SubmitJob waits for queue space or for ctx to end.
func (p *WorkingPool) SubmitJob(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues job only if there is room right now.
func (p *WorkingPool) TrySubmit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobChan <- job:
		return true
	default:
		return false
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	jobCtx := context.WithoutCancel(ctx)
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(jobCtx, &workerWg, i+1)
	}

	<-ctx.Done()

	log.Println("[WorkingPool] Shutdown signaled. Closing job channel.")
	p.mu.Lock()
	p.closed = true
	close(p.jobChan)
	p.mu.Unlock()

	workerWg.Wait()
	log.Printf("[WorkingPool] All workers stopped. processed=%d failed=%d\n", p.processed.Load(), p.failed.Load())
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	log.Printf("[WorkingPool-Worker %d] Started and waiting for jobs.\n", id)

	for job := range p.jobChan {
		p.safeExecution(ctx, job, id)
	}
	log.Printf("[WorkingPool-Worker %d] Job channel closed. Exiting.\n", id)
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.Printf("[WorkingPool-Worker %d] FATAL: Panic recovered in job: %v\n", workerID, r)
		}
	}()

	if err := job(ctx); err != nil {
		p.failed.Add(1)
		log.Printf("[WorkingPool-Worker %d] Error executing job: %s.\n", workerID, err)
		return
	}
	p.processed.Add(1)
}

// Stats returns how many jobs succeeded and how many failed or panicked.
func (p *WorkingPool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}
