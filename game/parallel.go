package game

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum job count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 4

// workChunk represents a range of jobs for a worker to process.
type workChunk struct {
	start, end int
	fn         func(i int) error
}

// chunkDone reports the first error of a chunk, if any.
type chunkDone struct {
	start int
	err   error
}

// workerPool runs indexed jobs on persistent goroutines. Jobs write their
// results by index, so output does not depend on the worker count.
type workerPool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan chunkDone // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// newWorkerPool sizes the pool; workers <= 0 means GOMAXPROCS.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: workers}
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan chunkDone, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- chunkDone{start: chunk.start, err: runChunk(chunk)}
		}
	}
}

// runChunk processes every job in the chunk and keeps the first error.
func runChunk(chunk workChunk) error {
	var first error
	for i := chunk.start; i < chunk.end; i++ {
		if err := chunk.fn(i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// run calls fn for every index in [0, n). The returned error is the one from
// the lowest failing chunk, so it is stable across schedules.
func (p *workerPool) run(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		return runChunk(workChunk{start: 0, end: n, fn: fn})
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	var (
		firstErr   error
		firstStart = n
	)
	for i := 0; i < chunksDispatched; i++ {
		done := <-p.doneChan
		if done.err != nil && done.start < firstStart {
			firstErr, firstStart = done.err, done.start
		}
	}
	return firstErr
}
