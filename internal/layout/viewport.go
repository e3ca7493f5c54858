// Package layout decides which pages are visible in a vertically scrolled
// view and asks for them to be rendered.
package layout

import (
	"sync"

	"github.com/ivlev/pdfview/internal/document"
)

// Submitter accepts render requests; render.Scheduler implements it.
type Submitter interface {
	RenderPage(page *document.Page) bool
}

// Viewport is a continuous column of pages separated by Gap pixels.
type Viewport struct {
	submit Submitter

	mu     sync.Mutex
	doc    *document.Document
	offset int
	height int
	gap    int
}

func NewViewport(submit Submitter, height, gap int) *Viewport {
	return &Viewport{submit: submit, height: height, gap: gap}
}

func (v *Viewport) SetDocument(doc *document.Document) {
	v.mu.Lock()
	v.doc = doc
	v.offset = 0
	v.mu.Unlock()
}

func (v *Viewport) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// Visible returns the pages that intersect the view, top to bottom.
func (v *Viewport) Visible() []*document.Page {
	v.mu.Lock()
	doc, top, bottom, gap := v.doc, v.offset, v.offset+v.height, v.gap
	v.mu.Unlock()

	if doc == nil {
		return nil
	}

	var visible []*document.Page
	y := 0
	for _, p := range doc.Pages() {
		_, h := p.Extent()
		if y >= bottom {
			break
		}
		if y+h > top {
			visible = append(visible, p)
		}
		y += h + gap
	}
	return visible
}

// ContentHeight is the total height of the page column.
func (v *Viewport) ContentHeight() int {
	v.mu.Lock()
	doc, gap := v.doc, v.gap
	v.mu.Unlock()

	if doc == nil {
		return 0
	}
	total := 0
	for i, p := range doc.Pages() {
		_, h := p.Extent()
		total += h
		if i > 0 {
			total += gap
		}
	}
	return total
}

// ScrollTo moves the view, clamped to the content, and requests renders for
// the pages now visible. It returns how many requests were accepted.
func (v *Viewport) ScrollTo(offset int) int {
	maxOffset := v.ContentHeight()
	v.mu.Lock()
	maxOffset -= v.height
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	v.offset = offset
	v.mu.Unlock()

	return v.submitVisible()
}

// Refresh resubmits the visible pages. RenderAll calls it after
// invalidating the document.
func (v *Viewport) Refresh() {
	v.submitVisible()
}

func (v *Viewport) submitVisible() int {
	n := 0
	for _, p := range v.Visible() {
		if v.submit.RenderPage(p) {
			n++
		}
	}
	return n
}
