package source

import (
	"fmt"
	"image"
	"math"

	"github.com/skip2/go-qrcode"
)

// QRPageSize is the side of a QRSource page in points.
const QRPageSize = 256

// QRSource is a synthetic document: page i is a QR code encoding
// "<label> page <i+1>". It needs no files, which makes it handy for demos.
type QRSource struct {
	label string
	pages int
}

func NewQRSource(label string, pages int) *QRSource {
	return &QRSource{label: label, pages: pages}
}

func (q *QRSource) PageCount() int { return q.pages }

func (q *QRSource) PageSize(index int) (float64, float64, error) {
	if index < 0 || index >= q.pages {
		return 0, 0, fmt.Errorf("%w: %d", ErrPageRange, index)
	}
	return QRPageSize, QRPageSize, nil
}

// Content returns the text encoded on page index.
func (q *QRSource) Content(index int) string {
	return fmt.Sprintf("%s page %d", q.label, index+1)
}

func (q *QRSource) RenderPage(index int, scale float64) (image.Image, error) {
	if index < 0 || index >= q.pages {
		return nil, fmt.Errorf("%w: %d", ErrPageRange, index)
	}
	code, err := qrcode.New(q.Content(index), qrcode.Medium)
	if err != nil {
		return nil, err
	}
	size := int(math.Round(QRPageSize * scale))
	if size < 1 {
		size = 1
	}
	return code.Image(size), nil
}

func (q *QRSource) Close() error { return nil }
