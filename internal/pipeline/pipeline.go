// Package pipeline converts source pixel buffers into display surfaces.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/ivlev/pdfview/internal/raster"
)

var (
	ErrEmptyBuffer       = errors.New("pipeline: empty pixel buffer")
	ErrInvalidDimensions = errors.New("pipeline: invalid target dimensions")
	ErrUnsupportedFormat = errors.New("pipeline: unsupported pixel format")
	ErrBufferTooSmall    = errors.New("pipeline: pixel buffer smaller than target")
)

const surfaceBytesPerPixel = 3

// StrideForWidth returns the row stride of a packed RGB surface.
// Rows are padded to a 4-byte boundary.
func StrideForWidth(width int) int {
	return (width*surfaceBytesPerPixel + 3) &^ 3
}

// Convert copies the top-left width x height pixels of buf into a new
// surface. Rows and columns of buf beyond the target are never read.
func Convert(buf *raster.Buffer, width, height int) (*raster.Surface, error) {
	if buf == nil || len(buf.Pix) == 0 {
		return nil, ErrEmptyBuffer
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	bpp := buf.BytesPerPixel
	if bpp < surfaceBytesPerPixel {
		return nil, fmt.Errorf("%w: %d bytes per pixel", ErrUnsupportedFormat, bpp)
	}
	if err := checkBounds(buf, width, height); err != nil {
		return nil, err
	}

	dst := raster.NewSurface(width, height, StrideForWidth(width))
	rowBytes := width * surfaceBytesPerPixel

	for y := 0; y < height; y++ {
		src := buf.Pix[y*buf.Stride : y*buf.Stride+width*bpp]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+rowBytes]

		if bpp == surfaceBytesPerPixel {
			copy(row, src)
			continue
		}
		for x, s := 0, 0; x < rowBytes; x, s = x+3, s+bpp {
			row[x] = src[s]
			row[x+1] = src[s+1]
			row[x+2] = src[s+2]
		}
	}

	return dst, nil
}

func checkBounds(buf *raster.Buffer, width, height int) error {
	if buf.Width < width || buf.Height < height {
		return fmt.Errorf("%w: source %dx%d, target %dx%d", ErrBufferTooSmall, buf.Width, buf.Height, width, height)
	}
	// A buffer whose rows overlap is malformed whatever the target size.
	if buf.Stride < buf.Width*buf.BytesPerPixel {
		return fmt.Errorf("%w: stride %d shorter than row", ErrBufferTooSmall, buf.Stride)
	}
	// The last row only needs to hold the pixels we read.
	need := (height-1)*buf.Stride + width*buf.BytesPerPixel
	if len(buf.Pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrBufferTooSmall, len(buf.Pix), need)
	}
	return nil
}
