package render

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/pdfview/internal/document"
)

var (
	ErrNilSource = errors.New("render: nil pixel source")
	ErrNilSink   = errors.New("render: nil display sink")
)

// Refresher recomputes which pages are visible and submits them again.
type Refresher interface {
	Refresh()
}

type Option func(*Scheduler)

// WithMemoryCheck installs a preflight run before every surface allocation.
func WithMemoryCheck(check MemoryCheck) Option {
	return func(s *Scheduler) { s.memCheck = check }
}

func WithDocument(doc *document.Document) Option {
	return func(s *Scheduler) { s.doc = doc }
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Queued   int
	State    WorkerState
	Rendered uint64
	Failed   uint64
}

// Scheduler is the entry point producers use to request page renders.
// It owns the queue and the single worker goroutine.
type Scheduler struct {
	queue    *Queue
	worker   *Worker
	memCheck MemoryCheck

	group    *errgroup.Group
	stopWake func() bool

	mu        sync.Mutex
	doc       *document.Document
	refresher Refresher

	shutdownOnce sync.Once
	shutdownErr  error
}

// Init allocates the queue and starts the worker. Cancelling ctx stops the
// worker the same way Shutdown does; Shutdown must still be called to join it.
func Init(ctx context.Context, src PixelSource, sink Sink, opts ...Option) (*Scheduler, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Scheduler{queue: NewQueue()}
	for _, opt := range opts {
		opt(s)
	}
	s.worker = NewWorker(s.queue, src, sink, s.memCheck)

	g, gctx := errgroup.WithContext(ctx)
	s.group = g
	s.stopWake = context.AfterFunc(gctx, s.queue.Close)
	g.Go(func() error {
		return s.worker.Run(gctx)
	})

	return s, nil
}

// SetDocument switches the document RenderAll invalidates. Pages of the
// previous document that are still queued are rendered normally.
func (s *Scheduler) SetDocument(doc *document.Document) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// SetRefresher registers the layout that RenderAll asks to resubmit
// visible pages.
func (s *Scheduler) SetRefresher(r Refresher) {
	s.mu.Lock()
	s.refresher = r
	s.mu.Unlock()
}

// RenderPage asks for page to be rendered. It reports whether the request
// was accepted, which includes a page that is already waiting in the queue.
// Acceptance does not mean the render will succeed.
func (s *Scheduler) RenderPage(page *document.Page) bool {
	if s == nil || s.queue == nil || page == nil || page.Rendered() {
		return false
	}
	if s.queue.Submit(page) {
		Logger().Debug("page queued", "page", page.Index()+1)
		return true
	}
	return s.queue.Contains(page)
}

// RenderAll marks every page of the current document stale and lets the
// refresher resubmit whatever is visible. Queued pages stay queued.
func (s *Scheduler) RenderAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	doc, r := s.doc, s.refresher
	s.mu.Unlock()

	if doc == nil {
		return
	}
	doc.Invalidate()
	if r != nil {
		r.Refresh()
	}
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Queued:   s.queue.Len(),
		State:    s.worker.State(),
		Rendered: s.worker.Rendered(),
		Failed:   s.worker.Failed(),
	}
}

// Idle reports whether every accepted request has been processed.
func (s *Scheduler) Idle() bool {
	return s.queue.Idle()
}

// Shutdown drops pending pages and waits for the worker to finish its
// current page. Later calls return the first result.
func (s *Scheduler) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.queue.Close()
		s.stopWake()
		s.shutdownErr = s.group.Wait()
	})
	return s.shutdownErr
}
