package source

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// pointsPerInch is the PDF user-space resolution; scale 1 renders at 72 DPI.
const pointsPerInch = 72.0

var ErrPageRange = errors.New("page index out of range")

// Source is a paged document that can be rasterised.
type Source interface {
	PageCount() int
	// PageSize returns the page size in points at scale 1.
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, scale float64) (image.Image, error)
	Close() error
}

// Reloader is implemented by sources that can re-read their backing file.
type Reloader interface {
	Reload() error
}

// Open picks the source by path: MuPDF for .pdf, images for anything else.
func Open(path string) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// FitzPDFSource renders PDF pages with MuPDF. The fitz document is not safe
// for concurrent use, so every call goes through mu.
type FitzPDFSource struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.NumPage()
}

func (f *FitzPDFSource) PageSize(index int) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= f.doc.NumPage() {
		return 0, 0, fmt.Errorf("%w: %d", ErrPageRange, index)
	}
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, scale float64) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= f.doc.NumPage() {
		return nil, fmt.Errorf("%w: %d", ErrPageRange, index)
	}
	return f.doc.ImageDPI(index, pointsPerInch*scale)
}

// Reload reopens the file after it changed on disk.
func (f *FitzPDFSource) Reload() error {
	doc, err := fitz.New(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	old := f.doc
	f.doc = doc
	f.mu.Unlock()
	return old.Close()
}

func (f *FitzPDFSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Close()
}
