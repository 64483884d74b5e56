// Package parallel provides the worker pool that runs the data-parallel
// rasterization stages.
//
// Every stage is bulk-synchronous: work for one stage is split into
// independent items, ExecuteAll runs them across the workers, and returns
// only after every item has finished. That return is the barrier between
// consecutive stages.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for parallel rendering.
//
// The pool distributes work items across multiple workers, each with their own
// queue. Workers can steal work from other workers when their own queue is empty.
// This helps balance load when some tiles are much denser than others.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	// workQueues holds per-worker work queues.
	workQueues []chan func()

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			work()

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				work()
			}
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for all to complete.
// If the pool is closed, the work runs on the calling goroutine so that
// a stage never silently skips items.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			fn()
		}
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(work))

	for i, fn := range work {
		wrapped := func() {
			defer completion.Done()
			fn()
		}

		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}

	completion.Wait()
}

// For splits [0, n) into at most chunks contiguous half-open ranges and
// runs fn on each of them in parallel. Range boundaries depend only on n
// and chunks, never on scheduling, so per-chunk results can be combined
// deterministically. For returns after every call to fn has returned.
func (p *WorkerPool) For(n, chunks int, fn func(chunk, lo, hi int)) {
	if n <= 0 {
		return
	}
	chunks = max(min(chunks, n), 1)
	if chunks == 1 {
		fn(0, 0, n)
		return
	}

	work := make([]func(), chunks)
	for c := range chunks {
		lo, hi := ChunkBounds(n, chunks, c)
		work[c] = func() { fn(c, lo, hi) }
	}
	p.ExecuteAll(work)
}

// ChunkBounds returns the half-open bounds of chunk c when [0, n) is
// split into the given number of near-equal contiguous chunks.
func ChunkBounds(n, chunks, c int) (lo, hi int) {
	size := n / chunks
	rem := n % chunks
	lo = c*size + min(c, rem)
	hi = lo + size
	if c < rem {
		hi++
	}
	return lo, hi
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
