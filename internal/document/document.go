// Package document holds per-page render state shared between the
// foreground and the render worker.
package document

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Page is one page of the open document.
//
// Geometry and scale are guarded by the page lock: the render worker holds
// it for the whole render, and every mutation takes it too. The rendered
// flag is atomic so producers can test it without waiting on a render.
type Page struct {
	index int

	mu     sync.Mutex
	width  float64
	height float64
	scale  float64

	rendered atomic.Bool

	// extent mirrors TargetSize for readers that must not wait on a render.
	extentW atomic.Int64
	extentH atomic.Int64
}

func NewPage(index int, width, height, scale float64) *Page {
	p := &Page{index: index, width: width, height: height, scale: scale}
	p.updateExtent()
	return p
}

// Index is the zero-based page number. It never changes.
func (p *Page) Index() int { return p.index }

func (p *Page) Lock()   { p.mu.Lock() }
func (p *Page) Unlock() { p.mu.Unlock() }

// Size returns the page size in content units. The caller must hold the lock.
func (p *Page) Size() (width, height float64) { return p.width, p.height }

// Scale returns the page scale. The caller must hold the lock.
func (p *Page) Scale() float64 { return p.scale }

// TargetSize returns the rendered size in pixels. The caller must hold the lock.
func (p *Page) TargetSize() (width, height int) {
	return int(math.Round(p.width * p.scale)), int(math.Round(p.height * p.scale))
}

// Geometry is TargetSize for callers that do not hold the lock.
func (p *Page) Geometry() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TargetSize()
}

// Extent returns the last published pixel size without taking the lock.
// Layout uses it so that scrolling never waits for a page being rendered.
func (p *Page) Extent() (width, height int) {
	return int(p.extentW.Load()), int(p.extentH.Load())
}

func (p *Page) updateExtent() {
	w, h := p.TargetSize()
	p.extentW.Store(int64(w))
	p.extentH.Store(int64(h))
}

// SetScale changes the scale and marks the page stale.
func (p *Page) SetScale(scale float64) {
	p.mu.Lock()
	p.scale = scale
	p.updateExtent()
	p.rendered.Store(false)
	p.mu.Unlock()
}

// SetSize changes the content size and marks the page stale.
func (p *Page) SetSize(width, height float64) {
	p.mu.Lock()
	p.width, p.height = width, height
	p.updateExtent()
	p.rendered.Store(false)
	p.mu.Unlock()
}

func (p *Page) Rendered() bool { return p.rendered.Load() }

func (p *Page) MarkRendered() { p.rendered.Store(true) }

func (p *Page) Invalidate() { p.rendered.Store(false) }

func (p *Page) String() string { return fmt.Sprintf("page %d", p.index+1) }

// Sizer reports page sizes in content units.
type Sizer interface {
	PageCount() int
	PageSize(index int) (width, height float64, err error)
}

// Document owns its pages for its whole lifetime.
type Document struct {
	Name  string
	pages []*Page

	mu    sync.Mutex
	scale float64
}

// Open measures every page of src.
func Open(name string, src Sizer, scale float64) (*Document, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	n := src.PageCount()
	if n == 0 {
		return nil, fmt.Errorf("document %s has no pages", name)
	}
	doc := &Document{Name: name, scale: scale, pages: make([]*Page, n)}
	for i := 0; i < n; i++ {
		w, h, err := src.PageSize(i)
		if err != nil {
			return nil, fmt.Errorf("page %d size: %w", i+1, err)
		}
		doc.pages[i] = NewPage(i, w, h, scale)
	}
	return doc, nil
}

// New builds a document from already measured pages.
func New(name string, scale float64, pages ...*Page) *Document {
	return &Document{Name: name, scale: scale, pages: pages}
}

func (d *Document) Pages() []*Page { return d.pages }

func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the page at index or nil when out of range.
func (d *Document) Page(index int) *Page {
	if index < 0 || index >= len(d.pages) {
		return nil
	}
	return d.pages[index]
}

func (d *Document) Scale() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scale
}

// SetScale propagates scale to every page under each page's lock.
// A page being rendered is updated once its render finishes.
func (d *Document) SetScale(scale float64) {
	d.mu.Lock()
	d.scale = scale
	d.mu.Unlock()
	for _, p := range d.pages {
		p.SetScale(scale)
	}
}

// Remeasure reloads page sizes from src, e.g. after the file changed on disk.
// Pages beyond the new page count keep their old size.
func (d *Document) Remeasure(src Sizer) error {
	n := src.PageCount()
	for i, p := range d.pages {
		if i >= n {
			break
		}
		w, h, err := src.PageSize(i)
		if err != nil {
			return fmt.Errorf("page %d size: %w", i+1, err)
		}
		p.SetSize(w, h)
	}
	return nil
}

// Invalidate clears the rendered flag of every page.
func (d *Document) Invalidate() {
	for _, p := range d.pages {
		p.Invalidate()
	}
}
