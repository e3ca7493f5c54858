package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ivlev/pdfview/internal/document"
	"github.com/ivlev/pdfview/internal/pipeline"
	"github.com/ivlev/pdfview/internal/raster"
)

var ErrRenderPanic = errors.New("render: source panicked")

// PixelSource produces the raw pixels of a page. It is called with the page
// lock held, so it may read the page geometry and scale.
type PixelSource interface {
	RenderPage(page *document.Page) (*raster.Buffer, error)
}

// Sink presents a finished surface. Present takes ownership of s only when
// it returns nil, and it marks page rendered inside the display context.
type Sink interface {
	Present(ctx context.Context, page *document.Page, s *raster.Surface) error
}

// MemoryCheck is consulted before a surface of need bytes is allocated.
type MemoryCheck func(need uint64) error

type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRendering
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRendering:
		return "rendering"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker drains a Queue one page at a time.
type Worker struct {
	queue    *Queue
	source   PixelSource
	sink     Sink
	memCheck MemoryCheck

	state    atomic.Int32
	rendered atomic.Uint64
	failed   atomic.Uint64
}

func NewWorker(q *Queue, src PixelSource, sink Sink, memCheck MemoryCheck) *Worker {
	return &Worker{queue: q, source: src, sink: sink, memCheck: memCheck}
}

func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

func (w *Worker) Rendered() uint64 { return w.rendered.Load() }

func (w *Worker) Failed() uint64 { return w.failed.Load() }

// Run renders pages until the queue is closed. A failed page is logged and
// skipped; it never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	log := Logger()
	log.Info("render worker started")
	defer func() {
		w.state.Store(int32(WorkerStopped))
		log.Info("render worker stopped", "rendered", w.rendered.Load(), "failed", w.failed.Load())
	}()

	for {
		page, ok := w.queue.Take()
		if !ok {
			return nil
		}

		w.state.Store(int32(WorkerRendering))
		start := time.Now()
		if err := w.renderPage(ctx, page); err != nil {
			w.failed.Add(1)
			log.Warn("rendering failed", "page", page.Index()+1, "err", err)
		} else {
			w.rendered.Add(1)
			log.Debug("rendered", "page", page.Index()+1, "took", time.Since(start))
		}
		w.state.Store(int32(WorkerIdle))
		w.queue.Done()
	}
}

func (w *Worker) renderPage(ctx context.Context, page *document.Page) (err error) {
	page.Lock()
	defer page.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRenderPanic, r)
		}
	}()

	width, height := page.TargetSize()
	if w.memCheck != nil && width > 0 && height > 0 {
		need := uint64(pipeline.StrideForWidth(width)) * uint64(height)
		if err := w.memCheck(need); err != nil {
			return err
		}
	}

	buf, err := w.source.RenderPage(page)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	surface, err := pipeline.Convert(buf, width, height)
	buf.Release()
	if err != nil {
		return err
	}

	if err := w.sink.Present(ctx, page, surface); err != nil {
		surface.Release()
		return fmt.Errorf("present: %w", err)
	}
	return nil
}
