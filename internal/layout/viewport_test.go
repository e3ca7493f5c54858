package layout

import (
	"testing"

	"github.com/ivlev/pdfview/internal/document"
)

type recordingSubmitter struct {
	pages []int
}

func (r *recordingSubmitter) RenderPage(p *document.Page) bool {
	if p.Rendered() {
		return false
	}
	r.pages = append(r.pages, p.Index())
	return true
}

// Five pages of 100px with a 10px gap: tops at 0, 110, 220, 330, 440.
func newDoc() *document.Document {
	var pages []*document.Page
	for i := 0; i < 5; i++ {
		pages = append(pages, document.NewPage(i, 50, 100, 1))
	}
	return document.New("doc", 1, pages...)
}

func indexes(ps []*document.Page) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.Index()
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestVisible(t *testing.T) {
	tests := []struct {
		offset, height int
		want           []int
	}{
		{0, 100, []int{0}},
		{0, 111, []int{0, 1}},
		{100, 10, nil}, // inside the gap
		{105, 200, []int{1, 2}},
		{300, 1000, []int{2, 3, 4}},
	}

	for _, tt := range tests {
		v := NewViewport(&recordingSubmitter{}, tt.height, 10)
		v.SetDocument(newDoc())
		v.offset = tt.offset

		got := indexes(v.Visible())
		if !equal(got, tt.want) {
			t.Errorf("offset=%d height=%d: expected %v, got %v", tt.offset, tt.height, tt.want, got)
		}
	}
}

func TestScrollToSubmitsVisible(t *testing.T) {
	sub := &recordingSubmitter{}
	v := NewViewport(sub, 100, 10)
	doc := newDoc()
	v.SetDocument(doc)
	doc.Page(2).MarkRendered()

	n := v.ScrollTo(200)
	if n != 1 || !equal(sub.pages, []int{1}) {
		t.Errorf("Expected only page 1 submitted, got %v (n=%d)", sub.pages, n)
	}

	// Clamped to the end of the content: 540 - 100.
	v.ScrollTo(10000)
	if v.Offset() != 440 {
		t.Errorf("Expected clamped offset 440, got %d", v.Offset())
	}
	v.ScrollTo(-5)
	if v.Offset() != 0 {
		t.Errorf("Expected offset 0, got %d", v.Offset())
	}
}

func TestRefreshAndContentHeight(t *testing.T) {
	sub := &recordingSubmitter{}
	v := NewViewport(sub, 230, 10)
	if v.ContentHeight() != 0 || len(v.Visible()) != 0 {
		t.Error("Viewport without a document must be empty")
	}

	v.SetDocument(newDoc())
	if h := v.ContentHeight(); h != 540 {
		t.Errorf("Expected content height 540, got %d", h)
	}

	v.Refresh()
	if !equal(sub.pages, []int{0, 1, 2}) {
		t.Errorf("Expected pages 0..2, got %v", sub.pages)
	}
}
