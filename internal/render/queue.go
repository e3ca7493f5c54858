package render

import (
	"sync"

	"github.com/ivlev/pdfview/internal/document"
)

// Queue is the FIFO handoff between producers and the worker.
// A page is present at most once; re-submitting a queued page keeps its
// position.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*document.Page
	queued map[*document.Page]struct{}
	active int // pages taken but not yet marked Done
	closed bool
}

func NewQueue() *Queue {
	q := &Queue{queued: make(map[*document.Page]struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit appends page unless it is already rendered or already queued.
// It reports whether the page was appended.
func (q *Queue) Submit(page *document.Page) bool {
	if page == nil || page.Rendered() {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.queued[page]; ok {
		return false
	}
	q.items = append(q.items, page)
	q.queued[page] = struct{}{}
	q.cond.Signal()
	return true
}

// Take blocks until a page is available and removes the oldest one.
// ok is false once the queue is closed.
func (q *Queue) Take() (page *document.Page, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}

	page = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.queued, page)
	q.active++
	return page, true
}

// Done reports that the worker finished with a page returned by Take.
func (q *Queue) Done() {
	q.mu.Lock()
	if q.active > 0 {
		q.active--
	}
	q.mu.Unlock()
}

// Idle reports whether nothing is queued or being rendered.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.active == 0
}

// Close drops pending pages and wakes the worker. It is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	clear(q.queued)
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Contains(page *document.Page) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.queued[page]
	return ok
}
