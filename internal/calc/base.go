package calc

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

type ringMetaData struct {
	lock           sync.Mutex
	cond           *sync.Cond
	ringIsEmpty    []bool
	ringBufferHead int
}

// PipeLine represents a compute pipeline
type PipeLine struct {
	numQueueSize   int
	numWorkers     int
	jobQueue       chan int
	bufferMetaData ringMetaData
	pushCnt        atomic.Int64
	popCnt         atomic.Int64
	closeOnce      sync.Once
	debug          bool
	logger         *slog.Logger
}

// Init returns a compute PipeLine with numQueueSize ring buffer slots and
// numWorkers goroutines for ForEach. numWorkers < 1 means runtime.NumCPU().
func Init(numQueueSize int, numWorkers int, debug bool) *PipeLine {
	if numQueueSize < 1 {
		numQueueSize = 1
	}
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}

	pl := &PipeLine{
		numQueueSize: numQueueSize,
		numWorkers:   numWorkers,
		jobQueue:     make(chan int, numQueueSize),
		bufferMetaData: ringMetaData{
			ringIsEmpty: make([]bool, numQueueSize),
		},
		debug:  debug,
		logger: slog.Default(),
	}
	pl.bufferMetaData.cond = sync.NewCond(&pl.bufferMetaData.lock)

	for i := 0; i < numQueueSize; i++ {
		pl.bufferMetaData.ringIsEmpty[i] = true
	}

	return pl
}

// Sequential returns a single-worker PipeLine. ForEach on it runs in index
// order on the calling goroutine.
func Sequential() *PipeLine {
	return Init(1, 1, false)
}

// SetLogger replaces the logger used for debug output.
func (p *PipeLine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Workers returns the number of ForEach workers
func (p *PipeLine) Workers() int {
	return p.numWorkers
}

// QueueSize returns the number of ring buffer slots
func (p *PipeLine) QueueSize() int {
	return p.numQueueSize
}

func work(fn func(int), order <-chan int, wg *sync.WaitGroup) {
	for {
		index, ok := <-order
		if ok {
			fn(index)
			wg.Done()
		} else {
			break
		}
	}
}

// ForEach calls fn for every index in [0, n) and returns once all calls have
// finished. fn must only write state owned by its index.
func (p *PipeLine) ForEach(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	if p.numWorkers <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	workers := p.numWorkers
	if workers > n {
		workers = n
	}

	if p.debug {
		p.logger.Debug("pipeline dispatch", "jobs", n, "workers", workers)
	}

	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(n)

	for i := 0; i < workers; i++ {
		go work(fn, order, &wg)
	}

	for i := 0; i < n; i++ {
		order <- i
	}

	wg.Wait()
	close(order)
}

// Malloc claims a buffer element in ring buffer, waiting until one is free
func (p *PipeLine) Malloc() int {
	m := &p.bufferMetaData

	m.lock.Lock()
	defer m.lock.Unlock()

	for {
		for k := 0; k < p.numQueueSize; k++ {
			idx := (m.ringBufferHead + k) % p.numQueueSize
			if m.ringIsEmpty[idx] {
				m.ringIsEmpty[idx] = false
				m.ringBufferHead = (idx + 1) % p.numQueueSize
				return idx
			}
		}
		m.cond.Wait()
	}
}

// Push pushes a claimed slot into the job queue
func (p *PipeLine) Push(slot int) {
	p.jobQueue <- slot
	pushed := p.pushCnt.Add(1)

	if p.debug {
		p.logger.Debug("pipeline push", "slot", slot, "pushed", pushed, "popped", p.popCnt.Load())
	}
}

// Pop pops the next slot from the job queue. ok is false once the queue is
// closed and drained.
func (p *PipeLine) Pop() (int, bool) {
	slot, ok := <-p.jobQueue
	if ok {
		p.popCnt.Add(1)
	}

	return slot, ok
}

// Free frees slot from ring buffer
func (p *PipeLine) Free(slot int) {
	m := &p.bufferMetaData

	m.lock.Lock()
	m.ringIsEmpty[slot] = true
	m.lock.Unlock()
	m.cond.Signal()
}

// Close tells Pop that no more slots will be pushed
func (p *PipeLine) Close() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

/*
	Workflow:

	Malloc -> Push -> Pop -> Free
*/
