package display

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/ivlev/pdfview/internal/document"
	"github.com/ivlev/pdfview/internal/raster"
)

// Container is the display slot of one page. Only the Loop touches it.
type Container struct {
	surface *raster.Surface
	swaps   int
}

// Replace discards the previous surface and attaches s.
func (c *Container) Replace(s *raster.Surface) {
	if c.surface != nil && c.surface != s {
		c.surface.Release()
	}
	c.surface = s
	c.swaps++
}

func (c *Container) Surface() *raster.Surface { return c.surface }

func (c *Container) Clear() {
	c.Replace(nil)
}

// Sink presents rendered pages by swapping surfaces on the Loop.
type Sink struct {
	loop       *Loop
	containers map[int]*Container

	presented atomic.Uint64
}

func NewSink(loop *Loop) *Sink {
	return &Sink{loop: loop, containers: make(map[int]*Container)}
}

// Present swaps s into the page's container and marks the page rendered,
// both on the Loop. On error the caller still owns s.
func (s *Sink) Present(ctx context.Context, page *document.Page, surface *raster.Surface) error {
	err := s.loop.Do(ctx, func() {
		s.container(page.Index()).Replace(surface)
		page.MarkRendered()
	})
	if err == nil {
		s.presented.Add(1)
	}
	return err
}

func (s *Sink) Presented() uint64 { return s.presented.Load() }

func (s *Sink) container(index int) *Container {
	c, ok := s.containers[index]
	if !ok {
		c = &Container{}
		s.containers[index] = c
	}
	return c
}

// Reset drops every attached surface, e.g. when another document is opened.
func (s *Sink) Reset(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		for _, c := range s.containers {
			c.Clear()
		}
		clear(s.containers)
	})
}

// Snapshot copies the surface shown for page index. ok is false when the
// page has nothing attached.
func (s *Sink) Snapshot(ctx context.Context, index int) (img *image.RGBA, ok bool, err error) {
	err = s.loop.Do(ctx, func() {
		c, found := s.containers[index]
		if !found || c.surface == nil {
			return
		}
		img = image.NewRGBA(c.surface.Bounds())
		draw.Draw(img, img.Rect, c.surface, image.Point{}, draw.Src)
		ok = true
	})
	return img, ok, err
}

// Export writes every attached surface to dir as page-NNN.png and returns
// the written paths in page order.
func (s *Sink) Export(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	var exportErr error
	err := s.loop.Do(ctx, func() {
		indexes := make([]int, 0, len(s.containers))
		for i, c := range s.containers {
			if c.surface != nil {
				indexes = append(indexes, i)
			}
		}
		sort.Ints(indexes)

		for _, i := range indexes {
			path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", i+1))
			if err := writePNG(path, s.containers[i].surface); err != nil {
				exportErr = fmt.Errorf("export page %d: %w", i+1, err)
				return
			}
			paths = append(paths, path)
		}
	})
	if err != nil {
		return nil, err
	}
	return paths, exportErr
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
