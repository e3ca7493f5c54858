package source

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/ivlev/pdfview/internal/document"
	"github.com/ivlev/pdfview/internal/raster"
)

// Pixels adapts a Source to the render worker. The worker calls it with
// the page lock held.
type Pixels struct {
	src Source
}

func NewPixels(src Source) *Pixels {
	return &Pixels{src: src}
}

// RenderPage rasterises page at its current scale. Output that misses the
// target size by rounding (MuPDF rounds outward) is resampled to fit.
func (p *Pixels) RenderPage(page *document.Page) (*raster.Buffer, error) {
	img, err := p.src.RenderPage(page.Index(), page.Scale())
	if err != nil {
		return nil, err
	}
	w, h := page.TargetSize()
	if b := img.Bounds(); w > 0 && h > 0 && (b.Dx() != w || b.Dy() != h) {
		img = fit(img, w, h)
	}
	return raster.FromImage(img), nil
}

func fit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst
}
