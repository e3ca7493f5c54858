// Package raster holds the two pixel containers that cross the render
// boundary: the Buffer produced by a document source and the packed RGB
// Surface handed to the display.
package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ivlev/pdfview/internal/system"
)

// Buffer is raw source pixel data with an explicit row stride.
// Channels 0..2 are R, G, B; any further channel is ignored.
type Buffer struct {
	Pix           []byte
	Stride        int
	Width         int
	Height        int
	BytesPerPixel int

	pooled bool
}

// FromImage wraps img as a Buffer. An *image.RGBA anchored at the origin
// is used without copying; anything else is drawn into pooled storage.
func FromImage(img image.Image) *Buffer {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return &Buffer{
			Pix:           rgba.Pix,
			Stride:        rgba.Stride,
			Width:         b.Dx(),
			Height:        b.Dy(),
			BytesPerPixel: 4,
		}
	}

	stride := b.Dx() * 4
	dst := &image.RGBA{
		Pix:    system.GetBytes(stride * b.Dy()),
		Stride: stride,
		Rect:   image.Rect(0, 0, b.Dx(), b.Dy()),
	}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return &Buffer{
		Pix:           dst.Pix,
		Stride:        stride,
		Width:         b.Dx(),
		Height:        b.Dy(),
		BytesPerPixel: 4,
		pooled:        true,
	}
}

// Release gives pooled storage back. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	if b.pooled && b.Pix != nil {
		system.PutBytes(b.Pix)
	}
	b.Pix = nil
}

// Surface is a packed R,G,B image without alpha. Rows are Stride bytes apart.
type Surface struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
}

// NewSurface allocates a surface from the shared byte pool.
func NewSurface(width, height, stride int) *Surface {
	return &Surface{
		Pix:    system.GetBytes(stride * height),
		Stride: stride,
		Width:  width,
		Height: height,
	}
}

func (s *Surface) ColorModel() color.Model { return color.RGBAModel }

func (s *Surface) Bounds() image.Rectangle { return image.Rect(0, 0, s.Width, s.Height) }

func (s *Surface) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return color.RGBA{}
	}
	i := y*s.Stride + x*3
	return color.RGBA{R: s.Pix[i], G: s.Pix[i+1], B: s.Pix[i+2], A: 0xff}
}

// Release returns the pixel storage to the pool.
func (s *Surface) Release() {
	if s == nil || s.Pix == nil {
		return
	}
	system.PutBytes(s.Pix)
	s.Pix = nil
}
