package textframe

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/textframe/textframe/attr"
)

var (
	// ErrStaleLayout is reported for work that was invalidated before its
	// result could be delivered.
	ErrStaleLayout = errors.New("textframe: layout invalidated before completion")

	// ErrQueueClosed is reported for work submitted after Close.
	ErrQueueClosed = errors.New("textframe: layout queue closed")
)

// LayoutResult is the outcome of an asynchronous layout. Generation echoes
// the token returned by Submit.
type LayoutResult struct {
	Layout     *Layout
	Err        error
	Generation uint64
}

type layoutJob struct {
	container *Container
	text      *attr.Text
	rng       attr.Range
	shaper    Shaper
	gen       uint64
	done      func(LayoutResult)
}

// LayoutQueue runs layout construction on a fixed pool of worker goroutines.
// Text edits typically invalidate in-flight work; Invalidate bumps a
// generation counter and results from earlier generations are delivered as
// ErrStaleLayout instead of publishing an outdated layout.
type LayoutQueue struct {
	mu     sync.Mutex
	closed bool
	jobs   chan layoutJob
	gen    atomic.Uint64
	wg     sync.WaitGroup
}

// NewLayoutQueue starts a queue with the given number of workers; values
// below one are raised to one.
func NewLayoutQueue(workers int) *LayoutQueue {
	if workers < 1 {
		workers = 1
	}
	q := &LayoutQueue{jobs: make(chan layoutJob, 2*workers)}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *LayoutQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		if job.gen != q.gen.Load() {
			job.done(LayoutResult{Err: ErrStaleLayout, Generation: job.gen})
			continue
		}
		l, err := NewLayout(job.container, job.text, job.rng, job.shaper)
		// re-check after the expensive part so an edit during layout wins
		if job.gen != q.gen.Load() {
			job.done(LayoutResult{Err: ErrStaleLayout, Generation: job.gen})
			continue
		}
		job.done(LayoutResult{Layout: l, Err: err, Generation: job.gen})
	}
}

// Submit enqueues a layout and returns its generation token. The callback
// runs on a worker goroutine, exactly once per submission.
func (q *LayoutQueue) Submit(container *Container, text *attr.Text, rng attr.Range, shaper Shaper, done func(LayoutResult)) uint64 {
	gen := q.gen.Load()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		done(LayoutResult{Err: ErrQueueClosed, Generation: gen})
		return gen
	}
	q.jobs <- layoutJob{container, text, rng, shaper, gen, done}
	q.mu.Unlock()
	return gen
}

// Invalidate marks all in-flight and queued work stale and returns the new
// generation token.
func (q *LayoutQueue) Invalidate() uint64 {
	return q.gen.Add(1)
}

// Generation returns the current generation token.
func (q *LayoutQueue) Generation() uint64 {
	return q.gen.Load()
}

// Close drains queued work and stops the workers. It blocks until every
// pending callback has run.
func (q *LayoutQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
